package block

import (
	"context"

	"github.com/annel0/blocktick/internal/vec"
)

// World определяет интерфейс, через который поведения блоков читают и
// изменяют мир. Любой вызов — точка приостановки: между двумя вызовами другие
// мутации могут успеть примениться, поэтому поведение не должно рассчитывать
// на атомарность нескольких обращений подряд.
type World interface {
	// Registry возвращает каталог типов, по которому декодируются состояния.
	Registry() *Registry

	// GetBlock возвращает тип блока в позиции. ErrUnloaded, если чанк не загружен.
	GetBlock(ctx context.Context, pos vec.Vec3) (*BlockType, error)

	// GetBlockState возвращает состояние в позиции.
	GetBlockState(ctx context.Context, pos vec.Vec3) (State, error)

	// GetBlockAndState возвращает тип и состояние одним обращением.
	GetBlockAndState(ctx context.Context, pos vec.Vec3) (*BlockType, State, error)

	// SetBlockState единственный путь записи. Возвращает предыдущее состояние.
	SetBlockState(ctx context.Context, pos vec.Vec3, state StateID, flags Flags) (StateID, error)

	// BreakBlock заменяет блок пустотой и сигнализирует о выпадении предметов.
	BreakBlock(ctx context.Context, pos vec.Vec3, drop *DropContext, flags Flags) error

	// ScheduleBlockTick планирует отложенный тик. Никогда не завершается ошибкой,
	// дубликаты допускаются.
	ScheduleBlockTick(t *BlockType, pos vec.Vec3, delay uint32, priority TickPriority)

	// IsTickScheduled сообщает, есть ли ожидающий тик для (тип, позиция).
	IsTickScheduled(t *BlockType, pos vec.Vec3) bool
}

// Flags битовая маска побочных эффектов мутации
type Flags uint8

const (
	// FlagNotifyNeighbors запускает распространение обновлений соседям
	FlagNotifyNeighbors Flags = 1 << iota
	// FlagNotifyListeners отправляет изменение подписчикам мира (клиентам, шине событий)
	FlagNotifyListeners
	// FlagSkipDrops подавляет выпадение предметов при замене блока
	FlagSkipDrops
	// FlagMoveEntities сдвигает сущности из нового твёрдого объёма
	FlagMoveEntities

	// FlagsAll обычная мутация: соседи и подписчики
	FlagsAll = FlagNotifyNeighbors | FlagNotifyListeners
)

// Has проверяет, установлен ли флаг
func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

// TickPriority задаёт грубый порядок срабатывания тиков в одном мировом тике.
// Меньшее значение срабатывает раньше.
type TickPriority int8

const (
	PriorityExtremelyHigh TickPriority = -3
	PriorityVeryHigh      TickPriority = -2
	PriorityHigh          TickPriority = -1
	PriorityNormal        TickPriority = 0
	PriorityLow           TickPriority = 1
	PriorityVeryLow       TickPriority = 2
	PriorityExtremelyLow  TickPriority = 3
)

func (p TickPriority) String() string {
	switch p {
	case PriorityExtremelyHigh:
		return "extremely_high"
	case PriorityVeryHigh:
		return "very_high"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	case PriorityVeryLow:
		return "very_low"
	case PriorityExtremelyLow:
		return "extremely_low"
	default:
		return "unknown"
	}
}

// DropContext описывает причину разрушения блока для выпадения предметов
type DropContext struct {
	Cause    string // "player", "support_lost", "explosion", ...
	PlayerID uint64 // 0, если разрушено не игроком
}

// Placer контекст того, кто ставит блок. Сущности вне этого ядра,
// поэтому передаётся только горизонтальная ориентация.
type Placer struct {
	Facing   vec.Direction
	PlayerID uint64
}
