package implementations

import (
	"github.com/annel0/blocktick/internal/world/block"
)

// AirBehavior реализует поведение пустого блока (воздуха).
// Воздух статичен: всё берётся из DefaultBehavior.
type AirBehavior struct {
	block.DefaultBehavior
}

// NewAirType создаёт тип пустого блока
func NewAirType() *block.BlockType {
	return &block.BlockType{
		Name: "minecraft:air",
		Air:  true,
	}
}
