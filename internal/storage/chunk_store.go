package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v3"

	"github.com/annel0/blocktick/internal/logging"
	"github.com/annel0/blocktick/internal/vec"
	"github.com/annel0/blocktick/internal/world/block"
)

// ErrStoreClosed возвращается при обращении к закрытому хранилищу
var ErrStoreClosed = errors.New("хранилище не готово")

const layoutKey = "meta:layout"

// ChunkStore хранит чанки мира в BadgerDB. Реализует world.ChunkStore.
type ChunkStore struct {
	db      *badger.DB
	dbPath  string
	codec   *ChunkCodec
	logger  *logging.Logger
	mutex   sync.RWMutex
	isReady bool
}

// NewChunkStore открывает хранилище в каталоге dataPath/world.
// Пустой dataPath открывает базу в памяти.
func NewChunkStore(dataPath string, fingerprint uint64) (*ChunkStore, error) {
	var opts badger.Options
	dbPath := ""
	if dataPath == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dbPath = filepath.Join(dataPath, "world")
		opts = badger.DefaultOptions(dbPath)
	}
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	codec, err := NewChunkCodec(fingerprint)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &ChunkStore{
		db:      db,
		dbPath:  dbPath,
		codec:   codec,
		logger:  logging.GetStorageLogger(),
		isReady: true,
	}
	if err := s.checkLayout(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// checkLayout записывает отпечаток раскладки в новую базу и сверяет его в существующей
func (s *ChunkStore) checkLayout() error {
	want := layoutRecord(s.codec.Fingerprint())
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(layoutKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return txn.Set([]byte(layoutKey), want)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if string(val) != string(want) {
				return fmt.Errorf("%w: база %s", ErrLayoutMismatch, s.dbPath)
			}
			return nil
		})
	})
}

func chunkKey(coords vec.Vec3) []byte {
	return []byte(fmt.Sprintf("chunk:%d:%d:%d", coords.X, coords.Y, coords.Z))
}

// Close закрывает хранилище данных
func (s *ChunkStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isReady {
		return nil
	}

	s.isReady = false
	s.codec.Close()
	return s.db.Close()
}

// SaveChunk сохраняет плотный массив состояний чанка
func (s *ChunkStore) SaveChunk(_ context.Context, coords vec.Vec3, states []block.StateID) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return ErrStoreClosed
	}

	data := s.codec.Encode(states)
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chunkKey(coords), data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	s.logger.Trace("Чанк %s сохранён (%d байт)", coords, len(data))
	return nil
}

// LoadChunk загружает чанк. found=false, если чанк ещё не сохранялся.
func (s *ChunkStore) LoadChunk(_ context.Context, coords vec.Vec3) ([]block.StateID, bool, error) {
	data, found, err := s.loadBlob(coords)
	if err != nil || !found {
		return nil, found, err
	}

	states, err := s.codec.Decode(data)
	if err != nil {
		return nil, false, fmt.Errorf("чанк %s: %w", coords, err)
	}
	return states, true, nil
}

func (s *ChunkStore) loadBlob(coords vec.Vec3) ([]byte, bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return nil, false, ErrStoreClosed
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chunkKey(coords))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	return data, true, nil
}

// DeleteChunk удаляет сохранённый чанк
func (s *ChunkStore) DeleteChunk(_ context.Context, coords vec.Vec3) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return ErrStoreClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(chunkKey(coords))
	})
}

// ChunkCount возвращает число сохранённых чанков
func (s *ChunkStore) ChunkCount() (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return 0, ErrStoreClosed
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte("chunk:")
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}
