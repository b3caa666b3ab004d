package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blocktick/internal/config"
	"github.com/annel0/blocktick/internal/eventbus"
	"github.com/annel0/blocktick/internal/vec"
	"github.com/annel0/blocktick/internal/world/block"
	"github.com/annel0/blocktick/internal/world/block/implementations"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("BLOCKTICK_DATA_PATH", "")
	t.Setenv("BLOCKTICK_REDIS_URL", "")
	t.Setenv("BLOCKTICK_NATS_URL", "")

	cfg := config.Default()
	cfg.World.PreloadRadius = 0
	cfg.World.SaveInterval = 0
	return cfg
}

func TestServer_WiresWorldToEventBus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := New(ctx, newTestConfig(t))
	require.NoError(t, err)
	defer func() { assert.NoError(t, s.Close(context.Background())) }()

	_, isMemory := s.bus.(*eventbus.MemoryBus)
	assert.True(t, isMemory)

	var mu sync.Mutex
	var changes []eventbus.BlockChangeEvent
	_, err = s.bus.Subscribe(ctx, eventbus.Filter{Types: []string{eventbus.EventBlockChange}}, func(_ context.Context, ev *eventbus.Envelope) {
		change, err := eventbus.DecodeBlockChange(ev)
		if err != nil {
			return
		}
		mu.Lock()
		changes = append(changes, change)
		mu.Unlock()
	})
	require.NoError(t, err)

	pos := vec.Vec3{X: 1, Y: 200, Z: 1}
	_, err = s.world.LoadChunk(ctx, pos.ChunkCoords())
	require.NoError(t, err)
	_, err = s.world.SetBlockState(ctx, pos, implementations.Vanilla.Stone.DefaultState(), block.FlagsAll)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(changes) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, s.deltas.GetPendingChangesCount())
}

func TestServer_CloseSavesWorld(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, newTestConfig(t))
	require.NoError(t, err)

	pos := vec.Vec3{X: -3, Y: 180, Z: 5}
	_, err = s.world.LoadChunk(ctx, pos.ChunkCoords())
	require.NoError(t, err)
	_, err = s.world.SetBlockState(ctx, pos, implementations.Vanilla.Dirt.DefaultState(), block.FlagsAll)
	require.NoError(t, err)

	store := s.store
	require.NoError(t, s.world.Stop(ctx))

	states, found, err := store.LoadChunk(ctx, pos.ChunkCoords())
	require.NoError(t, err)
	require.True(t, found)
	assert.NotEmpty(t, states)

	assert.NoError(t, s.Close(ctx))
}
