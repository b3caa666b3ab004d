package implementations

import (
	"context"

	"github.com/annel0/blocktick/internal/vec"
	"github.com/annel0/blocktick/internal/world/block"
)

// CactusAgeProperty возраст кактуса, на 15 кактус вырастает на блок вверх
const CactusAgeProperty = "age"

const cactusMaxAge = 15

// CactusBehavior описывает кактус: растёт случайными тиками, не терпит
// твёрдых соседей по горизонтали и ломается при потере опоры.
type CactusBehavior struct {
	block.DefaultBehavior
}

// NewCactusType создаёт тип кактуса
func NewCactusType() *block.BlockType {
	return &block.BlockType{
		Name:       "minecraft:cactus",
		Solid:      true,
		Properties: []block.Property{block.IntProperty(CactusAgeProperty, 0, cactusMaxAge)},
	}
}

// CanPlaceAt проверяет опору: по бокам ничего твёрдого и никакой лавы,
// снизу кактус или песок, сверху не жидкость. Незагруженный чанк означает отказ.
func (b CactusBehavior) CanPlaceAt(ctx context.Context, w block.World, t *block.BlockType, pos vec.Vec3, _ vec.Direction) bool {
	for _, dir := range vec.HorizontalDirections() {
		side, err := w.GetBlockState(ctx, pos.Offset(dir))
		if err != nil {
			return false
		}
		if side.IsSolid() || side.Type.IsTaggedWith(TagLava) {
			return false
		}
	}

	below, err := w.GetBlock(ctx, pos.Down())
	if err != nil || below == nil {
		return false
	}
	if below != t && !below.IsTaggedWith(TagSand) {
		return false
	}

	above, err := w.GetBlockState(ctx, pos.Up())
	if err != nil {
		return false
	}
	return !above.IsLiquid()
}

// RandomTick старит кактус; на максимальном возрасте переносит состояние вверх
func (b CactusBehavior) RandomTick(ctx context.Context, w block.World, t *block.BlockType, pos vec.Vec3) {
	above, err := w.GetBlockState(ctx, pos.Up())
	if err != nil || !above.IsAir() {
		return
	}

	current, err := w.GetBlockState(ctx, pos)
	if err != nil || current.Type != t {
		return
	}

	age := current.Properties().Int(CactusAgeProperty)
	if age >= cactusMaxAge {
		if _, err := w.SetBlockState(ctx, pos.Up(), current.ID, block.FlagNotifyListeners); err != nil {
			return
		}
		young := t.MustEncode(block.Properties{}.WithInt(CactusAgeProperty, 0))
		_, _ = w.SetBlockState(ctx, pos, young, block.FlagNotifyListeners)
		return
	}

	older := t.MustEncode(block.Properties{}.WithInt(CactusAgeProperty, age+1))
	_, _ = w.SetBlockState(ctx, pos, older, block.FlagNotifyListeners)
}

// StateForNeighborUpdate не меняет состояние сразу: при потере опоры
// откладывает проверку на следующий тик.
func (b CactusBehavior) StateForNeighborUpdate(ctx context.Context, w block.World, t *block.BlockType, state block.StateID, pos vec.Vec3,
	_ vec.Direction, _ vec.Vec3, _ block.StateID) block.StateID {
	if !b.CanPlaceAt(ctx, w, t, pos, vec.Down) {
		w.ScheduleBlockTick(t, pos, 1, block.PriorityNormal)
	}
	return state
}

// OnScheduledTick ломает кактус, если опора так и не появилась
func (b CactusBehavior) OnScheduledTick(ctx context.Context, w block.World, t *block.BlockType, pos vec.Vec3) {
	if b.CanPlaceAt(ctx, w, t, pos, vec.Down) {
		return
	}
	_ = w.BreakBlock(ctx, pos, &block.DropContext{Cause: DropCauseSupportLost}, block.FlagsAll)
}
