package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/annel0/blocktick/internal/api"
	"github.com/annel0/blocktick/internal/cache"
	"github.com/annel0/blocktick/internal/config"
	"github.com/annel0/blocktick/internal/eventbus"
	"github.com/annel0/blocktick/internal/logging"
	"github.com/annel0/blocktick/internal/observability"
	"github.com/annel0/blocktick/internal/storage"
	"github.com/annel0/blocktick/internal/vec"
	"github.com/annel0/blocktick/internal/world"
	"github.com/annel0/blocktick/internal/world/block"
	"github.com/annel0/blocktick/internal/world/block/implementations"
)

// Server собирает мир, хранилище, шину событий и REST API в один процесс
type Server struct {
	cfg    *config.Config
	logger *logging.Logger

	registry *prometheus.Registry
	world    *world.World
	deltas   *world.BlockDeltaManager
	store    *storage.ChunkStore
	codec    *storage.ChunkCodec
	cache    cache.CacheRepo
	bus      eventbus.EventBus
	rest     *api.RestServer

	telemetry observability.Shutdown
	closers   []func(context.Context) error
}

// New создаёт все компоненты, но ничего не запускает.
// При ошибке уже открытые ресурсы закрываются.
func New(ctx context.Context, cfg *config.Config) (srv *Server, err error) {
	s := &Server{
		cfg:      cfg,
		logger:   logging.GetServerLogger(),
		registry: prometheus.NewRegistry(),
	}
	defer func() {
		if err != nil {
			_ = s.Close(context.Background())
		}
	}()

	s.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err = s.initTelemetry(ctx); err != nil {
		return nil, err
	}
	if err = s.initStorage(); err != nil {
		return nil, err
	}
	if err = s.initEventBus(ctx); err != nil {
		return nil, err
	}
	if err = s.initWorld(); err != nil {
		return nil, err
	}

	s.rest, err = api.NewRestServer(api.Config{
		Port:     fmt.Sprintf(":%d", cfg.Server.GetRESTPort()),
		World:    s.world,
		Deltas:   s.deltas,
		Bus:      s.bus,
		Registry: s.metricsRegistry(),
		Logger:   logging.GetComponentLogger("api"),
	})
	if err != nil {
		return nil, fmt.Errorf("rest server: %w", err)
	}
	return s, nil
}

func (s *Server) metricsRegistry() *prometheus.Registry {
	if !s.cfg.Server.EnableMetrics {
		return nil
	}
	return s.registry
}

func (s *Server) initTelemetry(ctx context.Context) error {
	tc := s.cfg.Telemetry
	var err error
	if tc.Enabled {
		s.telemetry, err = observability.InitTelemetry(ctx, tc.ServiceName, tc.Endpoint)
	} else {
		s.telemetry, err = observability.InitNoopTelemetry(ctx, tc.ServiceName)
	}
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

// initStorage открывает BadgerDB и кеш перед ней: Redis, если задан адрес, иначе память
func (s *Server) initStorage() error {
	fp := block.Default.Fingerprint()

	store, err := storage.NewChunkStore(s.cfg.Storage.GetDataPath(), fp)
	if err != nil {
		return fmt.Errorf("chunk store: %w", err)
	}
	s.store = store
	s.closers = append(s.closers, func(context.Context) error { return store.Close() })

	codec, err := storage.NewChunkCodec(fp)
	if err != nil {
		return fmt.Errorf("chunk codec: %w", err)
	}
	s.codec = codec

	if url := s.cfg.Storage.GetRedisURL(); url != "" {
		rc, err := cache.NewRedisCache(&cache.CacheConfig{
			RedisURL:      url,
			RedisPassword: s.cfg.Storage.RedisPassword,
			RedisDB:       s.cfg.Storage.RedisDB,
			DefaultTTL:    s.cfg.Storage.CacheTTL,
		})
		if err != nil {
			// Мир работает и без кеша
			s.logger.Warn("Redis недоступен (%v), используется кеш в памяти", err)
			s.cache = cache.NewMemoryCache(s.cfg.Storage.CacheTTL)
		} else {
			s.cache = rc
		}
	} else {
		s.cache = cache.NewMemoryCache(s.cfg.Storage.CacheTTL)
	}
	c := s.cache
	s.closers = append(s.closers, func(context.Context) error { return c.Close() })
	return nil
}

func (s *Server) initEventBus(ctx context.Context) error {
	ec := s.cfg.EventBus
	if url := ec.GetURL(); url != "" {
		jb, err := eventbus.NewJetStreamBus(eventbus.JetStreamConfig{
			URL:       url,
			Stream:    ec.Stream,
			Retention: ec.RetentionDuration(),
		})
		if err != nil {
			return fmt.Errorf("jetstream: %w", err)
		}
		s.bus = jb
	} else {
		s.bus = eventbus.NewMemoryBus(ec.Buffer)
	}
	bus := s.bus
	s.closers = append(s.closers, func(context.Context) error { return bus.Close() })

	if _, err := eventbus.StartLoggingListener(ctx, s.bus, logging.GetComponentLogger("events")); err != nil {
		return fmt.Errorf("logging listener: %w", err)
	}
	exporter, err := eventbus.NewMetricsExporter(s.bus, s.registry)
	if err != nil {
		return fmt.Errorf("eventbus metrics: %w", err)
	}
	exporter.Start(ctx, 5*time.Second)
	return nil
}

func (s *Server) initWorld() error {
	wc := s.cfg.World
	store := storage.NewCachedStore(s.store, s.cache, s.codec, s.cfg.Storage.CacheTTL)

	w, err := world.NewWorld(block.Default, world.Options{
		Seed:            wc.Seed,
		TicksPerSecond:  wc.TicksPerSecond,
		RandomTickSpeed: wc.RandomTickSpeed,
		MaxUpdateDepth:  wc.MaxUpdateDepth,
		SaveInterval:    wc.SaveInterval,
		IOConcurrency:   wc.IOConcurrency,
		Store:           store,
		Generator:       world.NewGenerator(wc.Seed, implementations.Vanilla),
		Registerer:      s.registry,
		Logger:          logging.GetWorldLogger(),
	})
	if err != nil {
		return fmt.Errorf("world: %w", err)
	}
	s.world = w

	s.deltas = world.NewBlockDeltaManager(s.cfg.Server.DeltaRetention)
	w.AddListener(s.deltas)
	w.AddListener(eventbus.NewBlockListener(s.bus, wc.Name, logging.GetComponentLogger("events")))
	return nil
}

// Run загружает область спавна, запускает мир и REST API и блокируется
// до отмены ctx или падения HTTP сервера.
func (s *Server) Run(ctx context.Context) error {
	spawn := vec.Vec3{Y: s.cfg.World.SpawnY}
	if err := s.world.LoadArea(ctx, spawn, s.cfg.World.PreloadRadius); err != nil {
		return fmt.Errorf("load spawn area: %w", err)
	}
	s.logger.Info("область спавна загружена: %d чанков", len(s.world.LoadedChunks()))

	s.deltas.Start(ctx)
	s.world.Run(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(s.rest.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.rest.Stop(shutdownCtx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

// Close останавливает мир с сохранением и освобождает ресурсы в обратном порядке
func (s *Server) Close(ctx context.Context) error {
	var errs []error
	if s.world != nil {
		if err := s.world.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop world: %w", err))
		}
		s.world = nil
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	if s.codec != nil {
		s.codec.Close()
		s.codec = nil
	}
	if s.telemetry != nil {
		if err := s.telemetry(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry: %w", err))
		}
		s.telemetry = nil
	}
	return errors.Join(errs...)
}
