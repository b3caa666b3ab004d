package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache CacheRepo в памяти процесса. Используется, когда Redis
// не настроен, и в тестах.
type MemoryCache struct {
	mu      sync.Mutex
	items   map[string]memoryItem
	ttl     time.Duration
	closed  bool
	stats   *cacheStats
	nowFunc func() time.Time
}

type memoryItem struct {
	value   []byte
	expires time.Time
}

// NewMemoryCache создаёт кеш с TTL по умолчанию
func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	if defaultTTL <= 0 {
		defaultTTL = 30 * time.Second
	}
	return &MemoryCache{
		items:   make(map[string]memoryItem),
		ttl:     defaultTTL,
		stats:   newCacheStats(),
		nowFunc: time.Now,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	start := time.Now()
	defer m.stats.recordLatency(start)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrCacheClosed
	}
	item, ok := m.items[key]
	if !ok || m.nowFunc().After(item.expires) {
		delete(m.items, key)
		m.stats.miss()
		return nil, ErrCacheMiss
	}
	m.stats.hit()
	return append([]byte(nil), item.value...), nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	defer m.stats.recordLatency(start)

	if ttl <= 0 {
		ttl = m.ttl
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrCacheClosed
	}
	m.items[key] = memoryItem{
		value:   append([]byte(nil), value...),
		expires: m.nowFunc().Add(ttl),
	}
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *MemoryCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.items = make(map[string]memoryItem)
	return nil
}

func (m *MemoryCache) GetMetrics() *CacheMetrics {
	return m.stats.snapshot()
}
