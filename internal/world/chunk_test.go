package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blocktick/internal/vec"
	"github.com/annel0/blocktick/internal/world/block"
)

func TestChunk_IndexRoundTrip(t *testing.T) {
	seen := make(map[int]bool, ChunkVolume)
	for y := 0; y < vec.ChunkSize; y++ {
		for z := 0; z < vec.ChunkSize; z++ {
			for x := 0; x < vec.ChunkSize; x++ {
				local := vec.Vec3{X: x, Y: y, Z: z}
				i := index(local)
				require.False(t, seen[i], "индекс %d занят дважды", i)
				seen[i] = true
				require.Equal(t, local, localAt(i))
			}
		}
	}
	assert.Len(t, seen, ChunkVolume)
}

func TestChunk_SetAndChanges(t *testing.T) {
	c := NewChunk(vec.Vec3{X: 1, Y: -2, Z: 3}, 0)
	local := vec.Vec3{X: 4, Y: 5, Z: 6}

	assert.False(t, c.HasChanges())
	prev, ok := c.Set(local, 7)
	assert.True(t, ok)
	assert.Equal(t, block.StateID(0), prev)
	assert.Equal(t, block.StateID(7), c.Get(local))
	assert.True(t, c.HasChanges())

	_, seen := c.Snapshot()
	c.ClearChanges(seen)
	// То же значение не считается изменением
	prev, _ = c.Set(local, 7)
	assert.Equal(t, block.StateID(7), prev)
	assert.False(t, c.HasChanges())

	c.MarkChanged()
	assert.True(t, c.HasChanges())

	assert.Equal(t, vec.Vec3{X: 16, Y: -32, Z: 48}, c.Origin())
}

func TestChunk_ClearChangesKeepsLaterWrites(t *testing.T) {
	c := NewChunk(vec.Vec3{}, 0)
	c.Set(vec.Vec3{X: 1}, 5)

	states, seen := c.Snapshot()
	assert.Equal(t, 1, seen)
	assert.Equal(t, block.StateID(5), states[index(vec.Vec3{X: 1})])

	// Запись между снимком и сбросом остаётся несохранённой
	c.Set(vec.Vec3{X: 2}, 6)
	c.ClearChanges(seen)
	assert.True(t, c.HasChanges())

	_, seen = c.Snapshot()
	c.ClearChanges(seen)
	assert.False(t, c.HasChanges())
}

func TestChunk_DetachedRejectsWrites(t *testing.T) {
	c := NewChunk(vec.Vec3{}, 0)
	c.detach()

	_, ok := c.Set(vec.Vec3{X: 1}, 5)
	assert.False(t, ok)
	assert.Equal(t, block.StateID(0), c.Get(vec.Vec3{X: 1}))
	assert.False(t, c.HasChanges())

	c.attach()
	_, ok = c.Set(vec.Vec3{X: 1}, 5)
	assert.True(t, ok)
}

func TestChunk_FromStates(t *testing.T) {
	_, err := NewChunkFromStates(vec.Vec3{}, make([]block.StateID, 10))
	assert.Error(t, err)

	states := make([]block.StateID, ChunkVolume)
	states[index(vec.Vec3{X: 15, Y: 15, Z: 15})] = 3
	c, err := NewChunkFromStates(vec.Vec3{}, states)
	require.NoError(t, err)
	assert.Equal(t, block.StateID(3), c.Get(vec.Vec3{X: 15, Y: 15, Z: 15}))
	assert.False(t, c.HasChanges())

	// States возвращает копию
	out := c.States()
	out[0] = 9
	assert.Equal(t, block.StateID(0), c.Get(vec.Vec3{}))
}

func TestChunk_Fill(t *testing.T) {
	c := NewChunk(vec.Vec3{}, 2)
	for _, id := range c.States() {
		require.Equal(t, block.StateID(2), id)
	}
}
