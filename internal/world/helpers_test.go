package world

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/annel0/blocktick/internal/logging"
	"github.com/annel0/blocktick/internal/vec"
	"github.com/annel0/blocktick/internal/world/block"
	"github.com/annel0/blocktick/internal/world/block/implementations"
)

// tickLog собирает вызовы тестовых поведений
type tickLog struct {
	mu      sync.Mutex
	entries []string
	dirs    []vec.Direction
	random  []vec.Vec3
}

func (l *tickLog) add(s string) {
	l.mu.Lock()
	l.entries = append(l.entries, s)
	l.mu.Unlock()
}

// recorderBehavior записывает запланированные тики, случайные тики и
// направления обновлений соседей
type recorderBehavior struct {
	block.DefaultBehavior
	log *tickLog
}

func (b recorderBehavior) OnScheduledTick(_ context.Context, _ block.World, _ *block.BlockType, pos vec.Vec3) {
	b.log.add(pos.String())
}

func (b recorderBehavior) RandomTick(_ context.Context, _ block.World, _ *block.BlockType, pos vec.Vec3) {
	b.log.mu.Lock()
	b.log.random = append(b.log.random, pos)
	b.log.mu.Unlock()
}

func (b recorderBehavior) StateForNeighborUpdate(_ context.Context, _ block.World, _ *block.BlockType, state block.StateID, _ vec.Vec3,
	dir vec.Direction, _ vec.Vec3, _ block.StateID) block.StateID {
	b.log.mu.Lock()
	b.log.dirs = append(b.log.dirs, dir)
	b.log.mu.Unlock()
	return state
}

// flipperBehavior переключает своё состояние на каждое обновление соседа
type flipperBehavior struct {
	block.DefaultBehavior
}

func (flipperBehavior) StateForNeighborUpdate(_ context.Context, _ block.World, t *block.BlockType, state block.StateID, _ vec.Vec3,
	_ vec.Direction, _ vec.Vec3, _ block.StateID) block.StateID {
	props, err := t.Decode(state)
	if err != nil {
		return state
	}
	return t.MustEncode(props.WithBool("lit", !props.Bool("lit")))
}

// downOnlyBehavior уведомляет только соседа снизу
type downOnlyBehavior struct {
	block.DefaultBehavior
}

func (downOnlyBehavior) UpdateDirections() []vec.Direction {
	return []vec.Direction{vec.Down}
}

type testBlocks struct {
	*implementations.Catalogue
	Recorder *block.BlockType
	Flipper  *block.BlockType
	DownOnly *block.BlockType
	log      *tickLog
}

func newTestRegistry() (*block.Registry, *testBlocks) {
	reg := block.NewRegistry()
	tb := &testBlocks{Catalogue: implementations.RegisterAll(reg), log: &tickLog{}}
	tb.Recorder = reg.MustRegister(&block.BlockType{Name: "test:recorder"}, recorderBehavior{log: tb.log})
	tb.Flipper = reg.MustRegister(&block.BlockType{
		Name:       "test:flipper",
		Properties: []block.Property{block.BoolProperty("lit")},
	}, flipperBehavior{})
	tb.DownOnly = reg.MustRegister(&block.BlockType{Name: "test:down_only", Solid: true}, downOnlyBehavior{})
	return reg, tb
}

// memStore ChunkStore в памяти
type memStore struct {
	mu     sync.Mutex
	chunks map[vec.Vec3][]block.StateID
	saves  int
}

func newMemStore() *memStore {
	return &memStore{chunks: make(map[vec.Vec3][]block.StateID)}
}

func (s *memStore) LoadChunk(_ context.Context, coords vec.Vec3) ([]block.StateID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	states, ok := s.chunks[coords]
	if !ok {
		return nil, false, nil
	}
	return append([]block.StateID(nil), states...), true, nil
}

func (s *memStore) SaveChunk(_ context.Context, coords vec.Vec3, states []block.StateID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[coords] = append([]block.StateID(nil), states...)
	s.saves++
	return nil
}

// recordingListener собирает события мира
type recordingListener struct {
	mu      sync.Mutex
	changes []BlockChange
	drops   []BlockDrop
}

func (l *recordingListener) BlockChanged(_ context.Context, change BlockChange) {
	l.mu.Lock()
	l.changes = append(l.changes, change)
	l.mu.Unlock()
}

func (l *recordingListener) BlockDropped(_ context.Context, drop BlockDrop) {
	l.mu.Lock()
	l.drops = append(l.drops, drop)
	l.mu.Unlock()
}

// testOrigin лежит в чанке (0, 4, 0)
var testOrigin = vec.Vec3{X: 8, Y: 70, Z: 8}

func newTestWorld(t *testing.T, opts Options) (*World, *testBlocks) {
	t.Helper()
	reg, tb := newTestRegistry()
	if opts.Logger == nil {
		opts.Logger = newTestWorldLogger()
	}
	if opts.RandomTickSpeed == 0 {
		opts.RandomTickSpeed = -1
	}
	w, err := NewWorld(reg, opts)
	require.NoError(t, err)

	_, err = w.LoadChunk(context.Background(), testOrigin.ChunkCoords())
	require.NoError(t, err)
	return w, tb
}

func mustSet(t *testing.T, w *World, pos vec.Vec3, id block.StateID, flags block.Flags) {
	t.Helper()
	_, err := w.SetBlockState(context.Background(), pos, id, flags)
	require.NoError(t, err)
}

func newTestWorldLogger() *logging.Logger {
	return logging.NewWriterLogger("world", io.Discard, logging.ERROR)
}

// interleavingStore вызывает onSave один раз внутри SaveChunk, уже после
// того, как мир снял снимок чанка
type interleavingStore struct {
	*memStore
	once   sync.Once
	onSave func()
}

func (s *interleavingStore) SaveChunk(ctx context.Context, coords vec.Vec3, states []block.StateID) error {
	if s.onSave != nil {
		s.once.Do(s.onSave)
	}
	return s.memStore.SaveChunk(ctx, coords, states)
}
