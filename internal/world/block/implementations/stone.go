package implementations

import (
	"github.com/annel0/blocktick/internal/world/block"
)

// StoneBehavior камень, обычный твёрдый блок без реакций
type StoneBehavior struct {
	block.DefaultBehavior
}

// NewStoneType создаёт тип камня
func NewStoneType() *block.BlockType {
	return &block.BlockType{
		Name:  "minecraft:stone",
		Solid: true,
	}
}

// DirtBehavior земля
type DirtBehavior struct {
	block.DefaultBehavior
}

// NewDirtType создаёт тип земли
func NewDirtType() *block.BlockType {
	return &block.BlockType{
		Name:  "minecraft:dirt",
		Solid: true,
		Tags:  []string{"minecraft:dirt"},
	}
}

// SandBehavior песок; физика падения вне этого ядра
type SandBehavior struct {
	block.DefaultBehavior
}

// NewSandType создаёт песчаный тип (обычный или красный песок)
func NewSandType(name string) *block.BlockType {
	return &block.BlockType{
		Name:  name,
		Solid: true,
		Tags:  []string{TagSand},
	}
}

// GlassBehavior стекло: занимает клетку, но не считается твёрдой опорой
type GlassBehavior struct {
	block.DefaultBehavior
}

// NewGlassType создаёт тип стекла
func NewGlassType() *block.BlockType {
	return &block.BlockType{Name: "minecraft:glass"}
}
