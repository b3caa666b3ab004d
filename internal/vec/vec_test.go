package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirection_OppositeAndOffset(t *testing.T) {
	for _, d := range Directions() {
		// Противоположное направление противоположного равно исходному
		assert.Equal(t, d, d.Opposite().Opposite(), "direction %s", d)

		// Смещения взаимно гасятся
		sum := d.Offset().Add(d.Opposite().Offset())
		assert.Equal(t, Vec3{}, sum, "direction %s", d)
	}
}

func TestDirection_Horizontal(t *testing.T) {
	for _, d := range HorizontalDirections() {
		assert.True(t, d.IsHorizontal())
		assert.Equal(t, 0, d.Offset().Y)
	}
	assert.False(t, Up.IsHorizontal())
	assert.False(t, Down.IsHorizontal())
}

func TestParseDirection(t *testing.T) {
	d, ok := ParseDirection("east")
	assert.True(t, ok)
	assert.Equal(t, East, d)

	_, ok = ParseDirection("sideways")
	assert.False(t, ok)
}

func TestVec3_ChunkCoords(t *testing.T) {
	p := Vec3{X: -1, Y: 17, Z: 31}

	assert.Equal(t, Vec3{X: -1, Y: 1, Z: 1}, p.ChunkCoords())
	assert.Equal(t, Vec3{X: 15, Y: 1, Z: 15}, p.LocalInChunk())

	// Угол чанка + локальная позиция = исходная позиция
	assert.Equal(t, p, p.ChunkCoords().ChunkOrigin().Add(p.LocalInChunk()))
}

func TestVec3_Neighbours(t *testing.T) {
	p := Vec3{X: 3, Y: 4, Z: 5}

	assert.Equal(t, Vec3{X: 3, Y: 5, Z: 5}, p.Up())
	assert.Equal(t, Vec3{X: 3, Y: 3, Z: 5}, p.Down())
	assert.Equal(t, Vec3{X: 4, Y: 4, Z: 5}, p.Offset(East))
	assert.Equal(t, Vec3{X: 3, Y: 4, Z: 4}, p.Offset(North))
}
