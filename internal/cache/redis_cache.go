package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/annel0/blocktick/internal/logging"
)

// RedisCache реализует CacheRepo поверх Redis.
// Ключи получают общий префикс, чтобы несколько миров делили один Redis.
type RedisCache struct {
	client *redis.Client
	config *CacheConfig
	stats  *cacheStats
}

// NewRedisCache создаёт Redis кеш и проверяет соединение.
func NewRedisCache(config *CacheConfig) (*RedisCache, error) {
	applyDefaults(config)

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.RedisURL,
		Password:     config.RedisPassword,
		DB:           config.RedisDB,
		PoolSize:     config.MaxConnections,
		PoolTimeout:  config.PoolTimeout,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Info("Redis cache initialized: %s (prefix %q)", config.RedisURL, config.KeyPrefix)
	return newRedisCacheWithClient(rdb, config), nil
}

func newRedisCacheWithClient(client *redis.Client, config *CacheConfig) *RedisCache {
	applyDefaults(config)
	return &RedisCache{
		client: client,
		config: config,
		stats:  newCacheStats(),
	}
}

func applyDefaults(config *CacheConfig) {
	if config.DefaultTTL == 0 {
		config.DefaultTTL = 30 * time.Second
	}
	if config.MaxTTL == 0 {
		config.MaxTTL = time.Hour
	}
	if config.MaxConnections == 0 {
		config.MaxConnections = 10
	}
	if config.PoolTimeout == 0 {
		config.PoolTimeout = 30 * time.Second
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "blocktick:"
	}
}

func (r *RedisCache) key(key string) string {
	return r.config.KeyPrefix + key
}

// clampTTL приводит TTL к диапазону (0, MaxTTL]
func (r *RedisCache) clampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = r.config.DefaultTTL
	}
	if ttl > r.config.MaxTTL {
		ttl = r.config.MaxTTL
	}
	return ttl
}

// Get получает значение по ключу из Redis кеша.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	defer r.stats.recordLatency(start)

	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err == nil {
		r.stats.hit()
		return val, nil
	}

	r.stats.miss()
	if err != redis.Nil {
		logging.Error("Redis Get error for key %s: %v", key, err)
		return nil, fmt.Errorf("redis get error: %w", err)
	}
	return nil, ErrCacheMiss
}

// Set сохраняет значение в Redis кеше.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	defer r.stats.recordLatency(start)

	if err := r.client.Set(ctx, r.key(key), value, r.clampTTL(ttl)).Err(); err != nil {
		logging.Error("Redis Set error for key %s: %v", key, err)
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

// Delete удаляет ключ из кеша.
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	start := time.Now()
	defer r.stats.recordLatency(start)

	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		logging.Error("Redis Delete error for key %s: %v", key, err)
		return fmt.Errorf("redis delete error: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis.
func (r *RedisCache) Close() error {
	if err := r.client.Close(); err != nil {
		logging.Error("Error closing Redis connection: %v", err)
		return err
	}
	logging.Info("Redis cache closed")
	return nil
}

// GetMetrics возвращает текущие метрики кеша.
func (r *RedisCache) GetMetrics() *CacheMetrics {
	return r.stats.snapshot()
}

// cacheStats считает попадания и задержки; общая часть всех реализаций кеша
type cacheStats struct {
	requests int64
	hits     int64
	misses   int64

	latencySum   int64 // в наносекундах
	latencyCount int64
	maxLatency   int64

	mu      sync.Mutex
	updated time.Time
}

func newCacheStats() *cacheStats {
	return &cacheStats{updated: time.Now()}
}

func (s *cacheStats) hit() {
	atomic.AddInt64(&s.requests, 1)
	atomic.AddInt64(&s.hits, 1)
}

func (s *cacheStats) miss() {
	atomic.AddInt64(&s.requests, 1)
	atomic.AddInt64(&s.misses, 1)
}

// recordLatency записывает latency метрику.
func (s *cacheStats) recordLatency(start time.Time) {
	latency := time.Since(start).Nanoseconds()

	atomic.AddInt64(&s.latencySum, latency)
	atomic.AddInt64(&s.latencyCount, 1)

	for {
		current := atomic.LoadInt64(&s.maxLatency)
		if latency <= current || atomic.CompareAndSwapInt64(&s.maxLatency, current, latency) {
			break
		}
	}

	s.mu.Lock()
	s.updated = time.Now()
	s.mu.Unlock()
}

func (s *cacheStats) snapshot() *CacheMetrics {
	m := &CacheMetrics{
		TotalRequests: atomic.LoadInt64(&s.requests),
		CacheHits:     atomic.LoadInt64(&s.hits),
		CacheMisses:   atomic.LoadInt64(&s.misses),
		MaxLatencyMs:  float64(atomic.LoadInt64(&s.maxLatency)) / 1e6,
	}
	if total := m.CacheHits + m.CacheMisses; total > 0 {
		m.HitRatio = float64(m.CacheHits) / float64(total)
	}
	if count := atomic.LoadInt64(&s.latencyCount); count > 0 {
		m.AvgLatencyMs = float64(atomic.LoadInt64(&s.latencySum)) / float64(count) / 1e6 // нс в мс
	}

	s.mu.Lock()
	m.LastUpdate = s.updated
	s.mu.Unlock()
	return m
}
