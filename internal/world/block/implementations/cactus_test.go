package implementations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blocktick/internal/vec"
	"github.com/annel0/blocktick/internal/world/block"
)

func cactusAt(age int, cat *Catalogue) block.StateID {
	return cat.Cactus.MustEncode(block.Properties{}.WithInt(CactusAgeProperty, age))
}

func TestCactus_CanPlaceAt(t *testing.T) {
	ctx := context.Background()
	pos := vec.Vec3{X: 0, Y: 65, Z: 0}
	b := CactusBehavior{}

	t.Run("на песке", func(t *testing.T) {
		w := newMockWorld()
		w.put(pos.Down(), w.cat.Sand.DefaultState())
		assert.True(t, b.CanPlaceAt(ctx, w, w.cat.Cactus, pos, vec.Down))
	})

	t.Run("на красном песке и на кактусе", func(t *testing.T) {
		w := newMockWorld()
		w.put(pos.Down(), w.cat.RedSand.DefaultState())
		assert.True(t, b.CanPlaceAt(ctx, w, w.cat.Cactus, pos, vec.Down))

		w.put(pos.Down(), cactusAt(3, w.cat))
		assert.True(t, b.CanPlaceAt(ctx, w, w.cat.Cactus, pos, vec.Down))
	})

	t.Run("на земле нельзя", func(t *testing.T) {
		w := newMockWorld()
		w.put(pos.Down(), w.cat.Dirt.DefaultState())
		assert.False(t, b.CanPlaceAt(ctx, w, w.cat.Cactus, pos, vec.Down))
	})

	t.Run("твёрдый сосед сбоку", func(t *testing.T) {
		w := newMockWorld()
		w.put(pos.Down(), w.cat.Sand.DefaultState())
		w.put(pos.Offset(vec.East), w.cat.Stone.DefaultState())
		assert.False(t, b.CanPlaceAt(ctx, w, w.cat.Cactus, pos, vec.Down))
	})

	t.Run("лава сбоку", func(t *testing.T) {
		w := newMockWorld()
		w.put(pos.Down(), w.cat.Sand.DefaultState())
		w.put(pos.Offset(vec.North), w.cat.Lava.DefaultState())
		assert.False(t, b.CanPlaceAt(ctx, w, w.cat.Cactus, pos, vec.Down))
	})

	t.Run("вода сбоку допустима, сверху нет", func(t *testing.T) {
		w := newMockWorld()
		w.put(pos.Down(), w.cat.Sand.DefaultState())
		w.put(pos.Offset(vec.West), w.cat.Water.DefaultState())
		assert.True(t, b.CanPlaceAt(ctx, w, w.cat.Cactus, pos, vec.Down))

		w.put(pos.Up(), w.cat.Water.DefaultState())
		assert.False(t, b.CanPlaceAt(ctx, w, w.cat.Cactus, pos, vec.Down))
	})

	t.Run("стекло сбоку не мешает", func(t *testing.T) {
		w := newMockWorld()
		w.put(pos.Down(), w.cat.Sand.DefaultState())
		w.put(pos.Offset(vec.East), w.cat.Glass.DefaultState())
		assert.True(t, b.CanPlaceAt(ctx, w, w.cat.Cactus, pos, vec.Down))
	})

	t.Run("незагруженный сосед", func(t *testing.T) {
		w := newMockWorld()
		w.put(pos.Down(), w.cat.Sand.DefaultState())
		w.unloaded[pos.Offset(vec.South)] = true
		assert.False(t, b.CanPlaceAt(ctx, w, w.cat.Cactus, pos, vec.Down))
	})
}

func TestCactus_RandomTickAges(t *testing.T) {
	ctx := context.Background()
	w := newMockWorld()
	pos := vec.Vec3{X: 3, Y: 70, Z: 3}
	w.put(pos, cactusAt(4, w.cat))

	CactusBehavior{}.RandomTick(ctx, w, w.cat.Cactus, pos)

	s, err := w.GetBlockState(ctx, pos)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Properties().Int(CactusAgeProperty))
	require.Len(t, w.sets, 1)
	assert.Equal(t, block.FlagNotifyListeners, w.sets[0].flags)
}

func TestCactus_RandomTickGrowsAtMaxAge(t *testing.T) {
	ctx := context.Background()
	w := newMockWorld()
	pos := vec.Vec3{X: 3, Y: 70, Z: 3}
	full := cactusAt(15, w.cat)
	w.put(pos, full)

	CactusBehavior{}.RandomTick(ctx, w, w.cat.Cactus, pos)

	above, err := w.GetBlockState(ctx, pos.Up())
	require.NoError(t, err)
	assert.Equal(t, full, above.ID)

	self, err := w.GetBlockState(ctx, pos)
	require.NoError(t, err)
	assert.Equal(t, 0, self.Properties().Int(CactusAgeProperty))
}

func TestCactus_RandomTickBlockedAbove(t *testing.T) {
	ctx := context.Background()
	w := newMockWorld()
	pos := vec.Vec3{X: 3, Y: 70, Z: 3}
	w.put(pos, cactusAt(7, w.cat))
	w.put(pos.Up(), w.cat.Stone.DefaultState())

	CactusBehavior{}.RandomTick(ctx, w, w.cat.Cactus, pos)

	assert.Empty(t, w.sets)
	s, _ := w.GetBlockState(ctx, pos)
	assert.Equal(t, 7, s.Properties().Int(CactusAgeProperty))
}

func TestCactus_NeighborUpdateSchedulesAndBreaks(t *testing.T) {
	ctx := context.Background()
	w := newMockWorld()
	pos := vec.Vec3{X: 0, Y: 65, Z: 0}
	state := cactusAt(0, w.cat)
	w.put(pos.Down(), w.cat.Sand.DefaultState())
	w.put(pos, state)

	b := CactusBehavior{}

	// Опора на месте: состояние не меняется, тик не нужен
	got := b.StateForNeighborUpdate(ctx, w, w.cat.Cactus, state, pos, vec.Down, pos.Down(), w.cat.Sand.DefaultState())
	assert.Equal(t, state, got)
	assert.Empty(t, w.scheduled)

	// Рядом поставили камень
	stone := w.cat.Stone.DefaultState()
	w.put(pos.Offset(vec.East), stone)
	got = b.StateForNeighborUpdate(ctx, w, w.cat.Cactus, state, pos, vec.East, pos.Offset(vec.East), stone)
	assert.Equal(t, state, got)
	require.Len(t, w.scheduled, 1)
	assert.Equal(t, uint32(1), w.scheduled[0].delay)
	assert.Equal(t, block.PriorityNormal, w.scheduled[0].priority)

	b.OnScheduledTick(ctx, w, w.cat.Cactus, pos)
	require.Len(t, w.breaks, 1)
	assert.Equal(t, pos, w.breaks[0].pos)
	assert.Equal(t, DropCauseSupportLost, w.breaks[0].drop.Cause)
}

func TestCactus_ScheduledTickKeepsSupportedCactus(t *testing.T) {
	ctx := context.Background()
	w := newMockWorld()
	pos := vec.Vec3{X: 0, Y: 65, Z: 0}
	w.put(pos.Down(), w.cat.Sand.DefaultState())
	w.put(pos, cactusAt(0, w.cat))

	// Камень убрали до срабатывания тика
	CactusBehavior{}.OnScheduledTick(ctx, w, w.cat.Cactus, pos)
	assert.Empty(t, w.breaks)
}
