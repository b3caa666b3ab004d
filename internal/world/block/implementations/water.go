package implementations

import (
	"github.com/annel0/blocktick/internal/world/block"
)

// LiquidLevelProperty уровень жидкости (0 у источника)
const LiquidLevelProperty = "level"

// LiquidBehavior вода и лава. Растекание не входит в это ядро,
// поэтому жидкость только занимает ячейку.
type LiquidBehavior struct {
	block.DefaultBehavior
}

// NewLiquidType создаёт тип жидкости с уровнем 0..15
func NewLiquidType(name, tag string) *block.BlockType {
	return &block.BlockType{
		Name:       name,
		Liquid:     true,
		Properties: []block.Property{block.IntProperty(LiquidLevelProperty, 0, 15)},
		Tags:       []string{tag},
	}
}
