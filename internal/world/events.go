package world

import (
	"context"

	"github.com/annel0/blocktick/internal/vec"
	"github.com/annel0/blocktick/internal/world/block"
)

// EventType определяет тип события мира
type EventType uint8

const (
	EventTypeBlockChange EventType = iota // Изменение блока
	EventTypeBlockDrop                    // Выпадение предметов при разрушении или замене
)

func (t EventType) String() string {
	switch t {
	case EventTypeBlockChange:
		return "block_change"
	case EventTypeBlockDrop:
		return "block_drop"
	default:
		return "unknown"
	}
}

// Event представляет собой интерфейс для всех событий мира
type Event interface {
	GetType() EventType
}

// BlockChange изменение состояния в позиции
type BlockChange struct {
	Tick     uint64
	Pos      vec.Vec3
	Previous block.State
	Current  block.State
}

// GetType возвращает тип события
func (e BlockChange) GetType() EventType {
	return EventTypeBlockChange
}

// BlockDrop блок разрушен или заменён другим типом, и из него должны выпасть предметы
type BlockDrop struct {
	Tick     uint64
	Pos      vec.Vec3
	State    block.State
	Cause    string
	PlayerID uint64
}

// GetType возвращает тип события
func (e BlockDrop) GetType() EventType {
	return EventTypeBlockDrop
}

// Listener получает изменения мира. Вызывается синхронно из мутации,
// поэтому реализация не должна блокироваться надолго и не должна
// изменять мир из обработчика.
type Listener interface {
	BlockChanged(ctx context.Context, change BlockChange)
	BlockDropped(ctx context.Context, drop BlockDrop)
}

// EntityDisplacer выталкивает сущности из ячейки, ставшей твёрдой.
// Сами сущности живут вне ядра блоков.
type EntityDisplacer interface {
	DisplaceEntities(ctx context.Context, pos vec.Vec3, state block.State)
}

// Стандартные причины выпадения предметов
const (
	DropCauseBroken   = "broken"
	DropCauseReplaced = "replaced"
)
