package world

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats счётчики мира с момента создания
type Stats struct {
	Ticks                uint64 `json:"ticks"`
	Mutations            uint64 `json:"mutations"`
	ScheduledFired       uint64 `json:"scheduled_fired"`
	ScheduledInvalidated uint64 `json:"scheduled_invalidated"`
	RandomTicks          uint64 `json:"random_ticks"`
	Truncations          uint64 `json:"propagation_truncations"`
	PendingTicks         int    `json:"pending_ticks"`
	LoadedChunks         int    `json:"loaded_chunks"`
}

// TickStats итог одного мирового тика
type TickStats struct {
	Tick        uint64 `json:"tick"`
	Fired       int    `json:"fired"`
	Invalidated int    `json:"invalidated"`
	RandomTicks int    `json:"random_ticks"`
}

// Metrics инкапсулирует Prometheus-метрики мира и атомарные счётчики для Stats
type Metrics struct {
	ticks                prometheus.Counter
	mutations            prometheus.Counter
	scheduledFired       prometheus.Counter
	scheduledInvalidated prometheus.Counter
	randomTicks          prometheus.Counter
	truncations          prometheus.Counter
	loadedChunks         prometheus.Gauge
	pendingTicks         prometheus.Gauge
	tickDuration         prometheus.Histogram

	nTicks, nMutations, nFired, nInvalidated, nRandom, nTruncations atomic.Uint64
}

// NewMetrics создаёт метрики и регистрирует их в reg. При reg == nil метрики
// только считаются, но не экспортируются.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "ticks_total",
			Help:      "Общее число обработанных мировых тиков.",
		}),
		mutations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "block_mutations_total",
			Help:      "Число применённых изменений состояний блоков.",
		}),
		scheduledFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "scheduled_ticks_fired_total",
			Help:      "Сработавшие отложенные тики.",
		}),
		scheduledInvalidated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "scheduled_ticks_invalidated_total",
			Help:      "Отложенные тики, отброшенные из-за смены блока или выгрузки чанка.",
		}),
		randomTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "random_ticks_total",
			Help:      "Вызовы RandomTick для непустых ячеек.",
		}),
		truncations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "propagation_truncations_total",
			Help:      "Каскады обновлений соседей, обрезанные по глубине.",
		}),
		loadedChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "world",
			Name:      "loaded_chunks",
			Help:      "Число загруженных чанков.",
		}),
		pendingTicks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "world",
			Name:      "pending_scheduled_ticks",
			Help:      "Отложенные тики в очереди.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "world",
			Name:      "tick_duration_seconds",
			Help:      "Длительность обработки мирового тика.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{
			m.ticks, m.mutations, m.scheduledFired, m.scheduledInvalidated,
			m.randomTicks, m.truncations, m.loadedChunks, m.pendingTicks, m.tickDuration,
		} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) incMutations() {
	m.mutations.Inc()
	m.nMutations.Add(1)
}

func (m *Metrics) incFired() {
	m.scheduledFired.Inc()
	m.nFired.Add(1)
}

func (m *Metrics) incInvalidated() {
	m.scheduledInvalidated.Inc()
	m.nInvalidated.Add(1)
}

func (m *Metrics) incRandomTicks() {
	m.randomTicks.Inc()
	m.nRandom.Add(1)
}

func (m *Metrics) incTruncations() {
	m.truncations.Inc()
	m.nTruncations.Add(1)
}

func (m *Metrics) observeTick(seconds float64, pending int) {
	m.ticks.Inc()
	m.nTicks.Add(1)
	m.tickDuration.Observe(seconds)
	m.pendingTicks.Set(float64(pending))
}

func (m *Metrics) setLoadedChunks(n int) {
	m.loadedChunks.Set(float64(n))
}

func (m *Metrics) snapshot() Stats {
	return Stats{
		Ticks:                m.nTicks.Load(),
		Mutations:            m.nMutations.Load(),
		ScheduledFired:       m.nFired.Load(),
		ScheduledInvalidated: m.nInvalidated.Load(),
		RandomTicks:          m.nRandom.Load(),
		Truncations:          m.nTruncations.Load(),
	}
}
