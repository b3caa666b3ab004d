package world

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/annel0/blocktick/internal/logging"
	"github.com/annel0/blocktick/internal/vec"
	"github.com/annel0/blocktick/internal/world/block"
)

// DefaultTicksPerSecond частота мировых тиков в Run
const DefaultTicksPerSecond = 20

// ChunkStore сохраняет и загружает состояния чанков
type ChunkStore interface {
	// LoadChunk возвращает плотный массив состояний; found=false, если чанк не сохранялся.
	LoadChunk(ctx context.Context, coords vec.Vec3) (states []block.StateID, found bool, err error)
	SaveChunk(ctx context.Context, coords vec.Vec3, states []block.StateID) error
}

// ChunkGenerator создаёт новый чанк, если его нет в хранилище
type ChunkGenerator interface {
	GenerateChunk(coords vec.Vec3) *Chunk
}

// Options задаёт параметры мира
type Options struct {
	Seed            int64
	TicksPerSecond  int
	RandomTickSpeed int // 0: значение по умолчанию, отрицательное отключает
	MaxUpdateDepth  int
	SaveInterval    time.Duration // 0: без автосохранения
	IOConcurrency   int           // Параллелизм SaveAll/LoadArea

	Store      ChunkStore
	Generator  ChunkGenerator
	Displacer  EntityDisplacer
	Registerer prometheus.Registerer
	Logger     *logging.Logger
}

// World владеет загруженными чанками, планировщиком тиков, подписчиками и
// метриками. Реализует block.World.
type World struct {
	registry        *block.Registry
	seed            int64
	ticksPerSecond  int
	randomTickSpeed int
	maxUpdateDepth  int
	saveInterval    time.Duration
	ioConcurrency   int

	mu     sync.RWMutex
	chunks map[vec.Vec3]*Chunk

	scheduler *TickScheduler
	rng       *rand.Rand
	rngMu     sync.Mutex
	tickMu    sync.Mutex // Tick выполняется строго последовательно
	lastTick  TickStats

	listenersMu sync.RWMutex
	listeners   []Listener

	store     ChunkStore
	generator ChunkGenerator
	displacer EntityDisplacer
	metrics   *Metrics
	logger    *logging.Logger
	tracer    trace.Tracer

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ block.World = (*World)(nil)

// NewWorld создаёт мир над реестром блоков
func NewWorld(registry *block.Registry, opts Options) (*World, error) {
	if registry == nil {
		return nil, errors.New("world: registry is required")
	}
	if registry.Air() == nil {
		return nil, errors.New("world: registry has no air block")
	}

	metrics, err := NewMetrics(opts.Registerer)
	if err != nil {
		return nil, fmt.Errorf("world: register metrics: %w", err)
	}

	w := &World{
		registry:        registry,
		seed:            opts.Seed,
		ticksPerSecond:  opts.TicksPerSecond,
		randomTickSpeed: opts.RandomTickSpeed,
		maxUpdateDepth:  opts.MaxUpdateDepth,
		saveInterval:    opts.SaveInterval,
		ioConcurrency:   opts.IOConcurrency,
		chunks:          make(map[vec.Vec3]*Chunk),
		scheduler:       NewTickScheduler(),
		rng:             rand.New(rand.NewSource(opts.Seed)),
		store:           opts.Store,
		generator:       opts.Generator,
		displacer:       opts.Displacer,
		metrics:         metrics,
		logger:          opts.Logger,
		tracer:          otel.Tracer("blocktick/world"),
	}
	if w.ticksPerSecond <= 0 {
		w.ticksPerSecond = DefaultTicksPerSecond
	}
	if w.randomTickSpeed == 0 {
		w.randomTickSpeed = DefaultRandomTickSpeed
	}
	if w.maxUpdateDepth <= 0 {
		w.maxUpdateDepth = DefaultMaxUpdateDepth
	}
	if w.ioConcurrency <= 0 {
		w.ioConcurrency = 4
	}
	if w.logger == nil {
		w.logger = logging.GetWorldLogger()
	}
	return w, nil
}

// Registry возвращает каталог типов блоков мира
func (w *World) Registry() *block.Registry {
	return w.registry
}

// AddListener подписывает слушателя на изменения мира
func (w *World) AddListener(l Listener) {
	w.listenersMu.Lock()
	w.listeners = append(w.listeners, l)
	w.listenersMu.Unlock()
}

// CurrentTick возвращает номер последнего обработанного тика
func (w *World) CurrentTick() uint64 {
	return w.scheduler.Now()
}

// Stats возвращает счётчики мира
func (w *World) Stats() Stats {
	s := w.metrics.snapshot()
	s.PendingTicks = w.scheduler.Len()
	w.mu.RLock()
	s.LoadedChunks = len(w.chunks)
	w.mu.RUnlock()
	return s
}

// LastTick возвращает итог последнего тика
func (w *World) LastTick() TickStats {
	w.tickMu.Lock()
	defer w.tickMu.Unlock()
	return w.lastTick
}

// chunk возвращает загруженный чанк или nil
func (w *World) chunk(coords vec.Vec3) *Chunk {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.chunks[coords]
}

// IsLoaded сообщает, загружен ли чанк с позицией pos
func (w *World) IsLoaded(pos vec.Vec3) bool {
	return w.chunk(pos.ChunkCoords()) != nil
}

// LoadedChunks возвращает координаты загруженных чанков в порядке (Y, Z, X)
func (w *World) LoadedChunks() []vec.Vec3 {
	w.mu.RLock()
	coords := make([]vec.Vec3, 0, len(w.chunks))
	for c := range w.chunks {
		coords = append(coords, c)
	}
	w.mu.RUnlock()

	sort.Slice(coords, func(i, j int) bool { return coords[i].Less(coords[j]) })
	return coords
}

// decode переводит сохранённый идентификатор в состояние; некорректный читается как воздух
func (w *World) decode(pos vec.Vec3, id block.StateID) block.State {
	s, err := w.registry.Decode(id)
	if err != nil {
		w.logger.Warn("некорректное состояние %d в %s читается как воздух: %v", id, pos, err)
		return w.registry.AirState()
	}
	return s
}

// GetBlock возвращает тип блока в позиции
func (w *World) GetBlock(ctx context.Context, pos vec.Vec3) (*block.BlockType, error) {
	t, _, err := w.GetBlockAndState(ctx, pos)
	return t, err
}

// GetBlockState возвращает состояние в позиции
func (w *World) GetBlockState(ctx context.Context, pos vec.Vec3) (block.State, error) {
	_, s, err := w.GetBlockAndState(ctx, pos)
	return s, err
}

// GetBlockAndState возвращает тип и состояние одним обращением к чанку
func (w *World) GetBlockAndState(_ context.Context, pos vec.Vec3) (*block.BlockType, block.State, error) {
	c := w.chunk(pos.ChunkCoords())
	if c == nil {
		return nil, block.State{}, fmt.Errorf("%w: %s", block.ErrUnloaded, pos)
	}
	s := w.decode(pos, c.Get(pos.LocalInChunk()))
	return s.Type, s, nil
}

// SetBlockState единственный путь записи состояний. Возвращает предыдущее состояние.
func (w *World) SetBlockState(ctx context.Context, pos vec.Vec3, state block.StateID, flags block.Flags) (block.StateID, error) {
	return w.setBlockState(ctx, pos, state, flags, chainFrom(ctx))
}

func (w *World) setBlockState(ctx context.Context, pos vec.Vec3, id block.StateID, flags block.Flags, chain updateChain) (block.StateID, error) {
	current, err := w.registry.Decode(id)
	if err != nil {
		return 0, err
	}

	c := w.chunk(pos.ChunkCoords())
	if c == nil {
		return 0, fmt.Errorf("%w: %s", block.ErrUnloaded, pos)
	}

	prevID, ok := c.Set(pos.LocalInChunk(), id)
	if !ok {
		return 0, fmt.Errorf("%w: %s", block.ErrUnloaded, pos)
	}
	if prevID == id {
		return prevID, nil
	}
	w.metrics.incMutations()

	// Блокировка чанка уже отпущена: дальше вызываются поведения и слушатели
	prev := w.decode(pos, prevID)
	tick := w.scheduler.Now()

	if !flags.Has(block.FlagSkipDrops) && !prev.IsAir() && prev.Type != current.Type {
		w.emitDrop(ctx, BlockDrop{Tick: tick, Pos: pos, State: prev, Cause: DropCauseReplaced})
	}

	if flags.Has(block.FlagMoveEntities) && current.IsSolid() && w.displacer != nil {
		w.displacer.DisplaceEntities(ctx, pos, current)
	}

	if flags.Has(block.FlagNotifyListeners) {
		w.emitChange(ctx, BlockChange{Tick: tick, Pos: pos, Previous: prev, Current: current})
	}

	if flags.Has(block.FlagNotifyNeighbors) {
		w.propagate(ctx, pos, prev, current, chain)
	}
	return prevID, nil
}

// BreakBlock заменяет блок воздухом. Без FlagSkipDrops слушатели получают выпадение.
func (w *World) BreakBlock(ctx context.Context, pos vec.Vec3, drop *block.DropContext, flags block.Flags) error {
	prev, err := w.GetBlockState(ctx, pos)
	if err != nil {
		return err
	}
	if prev.IsAir() {
		return nil
	}

	if _, err := w.setBlockState(ctx, pos, w.registry.AirState().ID, flags|block.FlagSkipDrops, chainFrom(ctx)); err != nil {
		return err
	}

	if !flags.Has(block.FlagSkipDrops) {
		ev := BlockDrop{Tick: w.scheduler.Now(), Pos: pos, State: prev, Cause: DropCauseBroken}
		if drop != nil {
			if drop.Cause != "" {
				ev.Cause = drop.Cause
			}
			ev.PlayerID = drop.PlayerID
		}
		w.emitDrop(ctx, ev)
	}
	return nil
}

// PlaceBlock конвейер установки: CanPlaceAt, OnPlace, запись с FlagsAll.
// face направление от pos к блоку, к которому прикрепляются.
func (w *World) PlaceBlock(ctx context.Context, t *block.BlockType, pos vec.Vec3, face vec.Direction, placer block.Placer) (block.StateID, error) {
	if t == nil {
		return 0, block.ErrUnknownBlock
	}
	if owner, ok := w.registry.Type(t.ID()); !ok || owner != t {
		return 0, fmt.Errorf("%w: %s", block.ErrUnknownBlock, t.Name)
	}
	if !w.IsLoaded(pos) {
		return 0, fmt.Errorf("%w: %s", block.ErrUnloaded, pos)
	}

	behavior := w.registry.Behavior(t)
	if !behavior.CanPlaceAt(ctx, w, t, pos, face) {
		return 0, fmt.Errorf("%w: %s at %s", block.ErrPlacementDenied, t.Name, pos)
	}

	id := behavior.OnPlace(ctx, w, t, pos, face, placer)
	if !t.Owns(id) {
		return 0, fmt.Errorf("%w: %s produced state %d", block.ErrInvalidState, t.Name, id)
	}

	if _, err := w.SetBlockState(ctx, pos, id, block.FlagsAll); err != nil {
		return 0, err
	}
	return id, nil
}

// ScheduleBlockTick планирует отложенный тик блока
func (w *World) ScheduleBlockTick(t *block.BlockType, pos vec.Vec3, delay uint32, priority block.TickPriority) {
	w.scheduler.Schedule(t, pos, delay, priority)
}

// IsTickScheduled сообщает, ожидает ли (тип, позиция) отложенного тика
func (w *World) IsTickScheduled(t *block.BlockType, pos vec.Vec3) bool {
	return w.scheduler.IsScheduled(t, pos)
}

func (w *World) emitChange(ctx context.Context, change BlockChange) {
	w.listenersMu.RLock()
	listeners := w.listeners
	w.listenersMu.RUnlock()

	for _, l := range listeners {
		l.BlockChanged(ctx, change)
	}
}

func (w *World) emitDrop(ctx context.Context, drop BlockDrop) {
	w.listenersMu.RLock()
	listeners := w.listeners
	w.listenersMu.RUnlock()

	for _, l := range listeners {
		l.BlockDropped(ctx, drop)
	}
}

// Tick обрабатывает один мировой тик: срабатывают все отложенные тики со
// сроком на этот тик в порядке (приоритет, очередь), затем случайные тики.
func (w *World) Tick(ctx context.Context) TickStats {
	w.tickMu.Lock()
	defer w.tickMu.Unlock()

	ctx, span := w.tracer.Start(ctx, "world.Tick")
	defer span.End()

	start := time.Now()
	stats := TickStats{Tick: w.scheduler.Advance()}

	for _, st := range w.scheduler.PopDue() {
		t, err := w.GetBlock(ctx, st.Pos)
		if err != nil || t != st.Type {
			// Блок сменился или чанк выгружен
			stats.Invalidated++
			w.metrics.incInvalidated()
			continue
		}
		w.registry.Behavior(t).OnScheduledTick(ctx, w, t, st.Pos)
		stats.Fired++
		w.metrics.incFired()
	}

	stats.RandomTicks = w.randomTick(ctx)

	w.metrics.observeTick(time.Since(start).Seconds(), w.scheduler.Len())
	span.SetAttributes(
		attribute.Int64("world.tick", int64(stats.Tick)),
		attribute.Int("world.scheduled.fired", stats.Fired),
		attribute.Int("world.scheduled.invalidated", stats.Invalidated),
		attribute.Int("world.random_ticks", stats.RandomTicks),
	)
	w.lastTick = stats
	return stats
}

// Run запускает цикл тиков и автосохранения. Неблокирующий.
func (w *World) Run(parentCtx context.Context) {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	if w.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(parentCtx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.tickLoop(ctx)

	if w.saveInterval > 0 && w.store != nil {
		w.wg.Add(1)
		go w.autoSaveLoop(ctx)
	}
	w.logger.Info("мир запущен: %d тиков/с, random tick speed %d", w.ticksPerSecond, w.randomTickSpeed)
}

func (w *World) tickLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(time.Second / time.Duration(w.ticksPerSecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// autoSaveLoop периодически сохраняет изменённые чанки
func (w *World) autoSaveLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.saveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.SaveAll(ctx); err != nil {
				w.logger.Error("автосохранение мира: %v", err)
			}
		}
	}
}

// Stop останавливает циклы и принудительно сохраняет изменённые чанки
func (w *World) Stop(ctx context.Context) error {
	w.runMu.Lock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.runMu.Unlock()
	w.wg.Wait()

	return w.SaveAll(ctx)
}

// LoadChunk делает чанк резидентным: из хранилища, иначе генератором, иначе воздухом
func (w *World) LoadChunk(ctx context.Context, coords vec.Vec3) (*Chunk, error) {
	if c := w.chunk(coords); c != nil {
		return c, nil
	}

	var c *Chunk
	if w.store != nil {
		states, found, err := w.store.LoadChunk(ctx, coords)
		if err != nil {
			return nil, fmt.Errorf("load chunk %s: %w", coords, err)
		}
		if found {
			c, err = NewChunkFromStates(coords, states)
			if err != nil {
				return nil, err
			}
		}
	}
	if c == nil {
		if w.generator != nil {
			c = w.generator.GenerateChunk(coords)
			c.MarkChanged()
		} else {
			c = NewChunk(coords, w.registry.AirState().ID)
		}
	}

	w.mu.Lock()
	if existing, ok := w.chunks[coords]; ok {
		w.mu.Unlock()
		return existing, nil
	}
	w.chunks[coords] = c
	n := len(w.chunks)
	w.mu.Unlock()

	w.metrics.setLoadedChunks(n)
	w.logger.Debug("чанк %s загружен", coords)
	return c, nil
}

// UnloadChunk убирает чанк из памяти и сохраняет его, если он изменён.
// Чанк сначала отсоединяется, поэтому запись после этого получает ErrUnloaded,
// а не пропадает. При ошибке сохранения чанк возвращается в мир.
// Ожидающие тики в нём отбрасываются при срабатывании.
func (w *World) UnloadChunk(ctx context.Context, coords vec.Vec3) error {
	w.mu.Lock()
	c, ok := w.chunks[coords]
	if !ok {
		w.mu.Unlock()
		return nil
	}
	delete(w.chunks, coords)
	w.mu.Unlock()

	c.detach()
	if err := w.saveChunk(ctx, c); err != nil {
		c.attach()
		w.mu.Lock()
		if _, loaded := w.chunks[coords]; !loaded {
			w.chunks[coords] = c
		}
		w.mu.Unlock()
		return err
	}

	w.mu.RLock()
	n := len(w.chunks)
	w.mu.RUnlock()

	w.metrics.setLoadedChunks(n)
	w.logger.Debug("чанк %s выгружен", coords)
	return nil
}

// SaveChunk сохраняет загруженный чанк, если он изменён
func (w *World) SaveChunk(ctx context.Context, coords vec.Vec3) error {
	c := w.chunk(coords)
	if c == nil {
		return fmt.Errorf("%w: chunk %s", block.ErrUnloaded, coords)
	}
	return w.saveChunk(ctx, c)
}

func (w *World) saveChunk(ctx context.Context, c *Chunk) error {
	if w.store == nil {
		return nil
	}
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	states, seen := c.Snapshot()
	if seen == 0 {
		return nil
	}
	if err := w.store.SaveChunk(ctx, c.Coords, states); err != nil {
		return fmt.Errorf("save chunk %s: %w", c.Coords, err)
	}
	c.ClearChanges(seen)
	return nil
}

// SaveAll параллельно сохраняет все изменённые чанки
func (w *World) SaveAll(ctx context.Context) error {
	if w.store == nil {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.ioConcurrency)

	saved := 0
	for _, coords := range w.LoadedChunks() {
		c := w.chunk(coords)
		if c == nil || !c.HasChanges() {
			continue
		}
		saved++
		g.Go(func() error {
			return w.saveChunk(gctx, c)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if saved > 0 {
		w.logger.Info("сохранено чанков: %d", saved)
	}
	return nil
}

// LoadArea параллельно загружает куб чанков радиуса radius вокруг center (в чанках)
func (w *World) LoadArea(ctx context.Context, center vec.Vec3, radius int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.ioConcurrency)

	for y := center.Y - radius; y <= center.Y+radius; y++ {
		for z := center.Z - radius; z <= center.Z+radius; z++ {
			for x := center.X - radius; x <= center.X+radius; x++ {
				coords := vec.Vec3{X: x, Y: y, Z: z}
				g.Go(func() error {
					_, err := w.LoadChunk(gctx, coords)
					return err
				})
			}
		}
	}
	return g.Wait()
}
