package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/blocktick/internal/cache"
	"github.com/annel0/blocktick/internal/logging"
	"github.com/annel0/blocktick/internal/vec"
	"github.com/annel0/blocktick/internal/world"
	"github.com/annel0/blocktick/internal/world/block"
)

// CachedStore добавляет горячий кеш перед постоянным хранилищем чанков.
// Запись идёт сквозь кеш; ошибки кеша не влияют на результат операции.
type CachedStore struct {
	backend world.ChunkStore
	cache   cache.CacheRepo
	codec   *ChunkCodec
	ttl     time.Duration
	logger  *logging.Logger
}

// NewCachedStore оборачивает backend кешем
func NewCachedStore(backend world.ChunkStore, c cache.CacheRepo, codec *ChunkCodec, ttl time.Duration) *CachedStore {
	return &CachedStore{
		backend: backend,
		cache:   c,
		codec:   codec,
		ttl:     ttl,
		logger:  logging.GetStorageLogger(),
	}
}

func cacheKey(coords vec.Vec3) string {
	return fmt.Sprintf("chunk:%d:%d:%d", coords.X, coords.Y, coords.Z)
}

// LoadChunk читает чанк из кеша, при промахе из backend с прогревом кеша
func (s *CachedStore) LoadChunk(ctx context.Context, coords vec.Vec3) ([]block.StateID, bool, error) {
	key := cacheKey(coords)

	data, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		states, decErr := s.codec.Decode(data)
		if decErr == nil {
			return states, true, nil
		}
		// Устаревший или повреждённый блоб: читаем из backend
		s.logger.Warn("Чанк %s в кеше не читается: %v", coords, decErr)
		_ = s.cache.Delete(ctx, key)
	case !cache.IsCacheMiss(err):
		s.logger.Warn("Кеш недоступен для %s: %v", coords, err)
	}

	states, found, err := s.backend.LoadChunk(ctx, coords)
	if err != nil || !found {
		return states, found, err
	}

	if err := s.cache.Set(ctx, key, s.codec.Encode(states), s.ttl); err != nil {
		s.logger.Debug("Не удалось прогреть кеш для %s: %v", coords, err)
	}
	return states, true, nil
}

// SaveChunk пишет в backend, затем обновляет кеш
func (s *CachedStore) SaveChunk(ctx context.Context, coords vec.Vec3, states []block.StateID) error {
	if err := s.backend.SaveChunk(ctx, coords, states); err != nil {
		return err
	}

	key := cacheKey(coords)
	if err := s.cache.Set(ctx, key, s.codec.Encode(states), s.ttl); err != nil {
		// Старое значение в кеше хуже промаха
		if delErr := s.cache.Delete(ctx, key); delErr != nil && !errors.Is(delErr, cache.ErrCacheClosed) {
			s.logger.Error("Кеш чанка %s мог устареть: %v", coords, delErr)
		}
	}
	return nil
}
