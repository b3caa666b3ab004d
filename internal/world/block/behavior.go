package block

import (
	"context"

	"github.com/annel0/blocktick/internal/vec"
)

// Behavior определяет поведение блока: фиксированный набор возможностей,
// через который мир диспетчеризует размещение, тики и реакцию на соседей.
// Реализации встраивают DefaultBehavior и переопределяют только нужное.
type Behavior interface {
	// CanPlaceAt чистый предикат: может ли блок стоять в pos. Не изменяет мир.
	// face направление от pos к блоку, к которому прикрепляются.
	CanPlaceAt(ctx context.Context, w World, t *BlockType, pos vec.Vec3, face vec.Direction) bool

	// OnPlace вычисляет начальное состояние устанавливаемого блока.
	OnPlace(ctx context.Context, w World, t *BlockType, pos vec.Vec3, face vec.Direction, placer Placer) StateID

	// OnScheduledTick вызывается при срабатывании запланированного тика.
	OnScheduledTick(ctx context.Context, w World, t *BlockType, pos vec.Vec3)

	// RandomTick вызывается случайно, без гарантии интервала. Должен быть дешёвым.
	RandomTick(ctx context.Context, w World, t *BlockType, pos vec.Vec3)

	// StateForNeighborUpdate возвращает состояние, которое блок должен принять после
	// изменения соседа в направлении dir. Может запланировать тик.
	StateForNeighborUpdate(ctx context.Context, w World, t *BlockType, state StateID, pos vec.Vec3,
		dir vec.Direction, neighborPos vec.Vec3, neighborState StateID) StateID
}

// NeighborScoper необязательная возможность: блок сам задаёт, каких соседей
// уведомлять при изменении его состояния. По умолчанию уведомляются все шесть направлений.
type NeighborScoper interface {
	UpdateDirections() []vec.Direction
}

// DefaultBehavior поведение по умолчанию: размещение разрешено, состояние
// по умолчанию, тики ничего не делают, реакция на соседей не меняет состояние.
type DefaultBehavior struct{}

func (DefaultBehavior) CanPlaceAt(context.Context, World, *BlockType, vec.Vec3, vec.Direction) bool {
	return true
}

func (DefaultBehavior) OnPlace(_ context.Context, _ World, t *BlockType, _ vec.Vec3, _ vec.Direction, _ Placer) StateID {
	return t.DefaultState()
}

func (DefaultBehavior) OnScheduledTick(context.Context, World, *BlockType, vec.Vec3) {}

func (DefaultBehavior) RandomTick(context.Context, World, *BlockType, vec.Vec3) {}

func (DefaultBehavior) StateForNeighborUpdate(_ context.Context, _ World, _ *BlockType, state StateID, _ vec.Vec3,
	_ vec.Direction, _ vec.Vec3, _ StateID) StateID {
	return state
}

// UpdateDirections возвращает направления, которые уведомляются при изменении блока
func UpdateDirections(b Behavior) []vec.Direction {
	if s, ok := b.(NeighborScoper); ok {
		return s.UpdateDirections()
	}
	return vec.Directions()
}
