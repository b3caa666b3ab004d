package eventbus

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blocktick/internal/logging"
	"github.com/annel0/blocktick/internal/vec"
	"github.com/annel0/blocktick/internal/world"
	"github.com/annel0/blocktick/internal/world/block"
	"github.com/annel0/blocktick/internal/world/block/implementations"
)

// collector собирает доставленные события
type collector struct {
	mu     sync.Mutex
	events []*Envelope
}

func (c *collector) handle(_ context.Context, ev *Envelope) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collector) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.EventType
	}
	return out
}

func TestMemoryBus_OrderAndFilter(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(16)

	all := &collector{}
	drops := &collector{}
	_, err := bus.Subscribe(ctx, Filter{}, all.handle)
	require.NoError(t, err)
	_, err = bus.Subscribe(ctx, Filter{Types: []string{EventBlockDrop}}, drops.handle)
	require.NoError(t, err)

	for _, typ := range []string{EventBlockChange, EventBlockDrop, EventBlockChange} {
		require.NoError(t, bus.Publish(ctx, NewEnvelope(typ, "w", HighPriority, nil)))
	}
	require.NoError(t, bus.Close())

	assert.Equal(t, []string{EventBlockChange, EventBlockDrop, EventBlockChange}, all.types())
	assert.Equal(t, []string{EventBlockDrop}, drops.types())

	stats := bus.Metrics()
	assert.Equal(t, uint64(3), stats.Published)
	assert.Equal(t, uint64(4), stats.Consumed)

	assert.ErrorIs(t, bus.Publish(ctx, NewEnvelope(EventBlockChange, "w", 0, nil)), ErrBusClosed)
}

func TestMemoryBus_SourceFilterAndUnsubscribe(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(16)

	c := &collector{}
	sub, err := bus.Subscribe(ctx, Filter{Sources: []string{"overworld"}}, c.handle)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, NewEnvelope(EventBlockChange, "nether", HighPriority, nil)))
	require.NoError(t, bus.Publish(ctx, NewEnvelope(EventBlockChange, "overworld", HighPriority, nil)))
	require.Eventually(t, func() bool { return len(c.types()) == 1 }, time.Second, time.Millisecond)

	sub.Unsubscribe()
	require.NoError(t, bus.Publish(ctx, NewEnvelope(EventBlockChange, "overworld", HighPriority, nil)))
	require.NoError(t, bus.Close())
	assert.Len(t, c.types(), 1)
}

func TestNewEnvelope(t *testing.T) {
	a := NewEnvelope(EventBlockChange, "w", 1, []byte("{}"))
	b := NewEnvelope(EventBlockChange, "w", 1, []byte("{}"))
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 1, a.Version)
	assert.Equal(t, time.UTC, a.Timestamp.Location())
}

func TestBlockListener_PublishesWorldEvents(t *testing.T) {
	ctx := context.Background()
	reg := block.NewRegistry()
	cat := implementations.RegisterAll(reg)
	logger := logging.NewWriterLogger("eventbus", io.Discard, logging.ERROR)

	w, err := world.NewWorld(reg, world.Options{RandomTickSpeed: -1, Logger: logger})
	require.NoError(t, err)
	pos := vec.Vec3{X: 1, Y: 1, Z: 1}
	_, err = w.LoadChunk(ctx, pos.ChunkCoords())
	require.NoError(t, err)

	bus := NewMemoryBus(64)
	c := &collector{}
	_, err = bus.Subscribe(ctx, Filter{}, c.handle)
	require.NoError(t, err)
	w.AddListener(NewBlockListener(bus, "overworld", logger))

	_, err = w.SetBlockState(ctx, pos, cat.Stone.DefaultState(), block.FlagsAll)
	require.NoError(t, err)
	require.NoError(t, w.BreakBlock(ctx, pos, &block.DropContext{Cause: "player", PlayerID: 3}, block.FlagsAll))
	require.NoError(t, bus.Close())

	require.Equal(t, []string{EventBlockChange, EventBlockChange, EventBlockDrop}, c.types())

	change, err := DecodeBlockChange(c.events[0])
	require.NoError(t, err)
	assert.Equal(t, pos, change.Pos)
	assert.Equal(t, cat.Stone.Name, change.Current)
	assert.Equal(t, uint32(cat.Stone.DefaultState()), change.CurrentID)
	assert.Equal(t, "overworld", c.events[0].Source)

	drop, err := DecodeBlockDrop(c.events[2])
	require.NoError(t, err)
	assert.Equal(t, "player", drop.Cause)
	assert.Equal(t, uint64(3), drop.PlayerID)

	_, err = DecodeBlockDrop(c.events[0])
	assert.Error(t, err)
}

func TestMetricsExporter_Collect(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(8)
	reg := prometheus.NewRegistry()
	me, err := NewMetricsExporter(bus, reg)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, NewEnvelope(EventBlockChange, "w", 0, nil)))
	require.NoError(t, bus.Publish(ctx, NewEnvelope(EventBlockChange, "w", 0, nil)))
	me.collect()
	assert.Equal(t, 2.0, testutil.ToFloat64(me.published))

	require.NoError(t, bus.Publish(ctx, NewEnvelope(EventBlockChange, "w", 0, nil)))
	me.collect()
	assert.Equal(t, 3.0, testutil.ToFloat64(me.published))

	_, err = NewMetricsExporter(bus, reg)
	assert.Error(t, err, "повторная регистрация")
	require.NoError(t, bus.Close())
}

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "blocktick.block_change", subjectFor("blocktick", EventBlockChange))
}
