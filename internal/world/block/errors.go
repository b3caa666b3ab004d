package block

import "errors"

// Ошибки ядра блоков. Оборачиваются через fmt.Errorf("...: %w") и проверяются errors.Is.
var (
	// ErrUnloaded позиция принадлежит чанку, который сейчас не загружен.
	// Для проверок размещения означает «нельзя», для тиков — пропуск.
	ErrUnloaded = errors.New("region not loaded")

	// ErrInvalidState идентификатор состояния не декодируется ни одним типом блока
	// или набор свойств не укладывается в домены типа.
	ErrInvalidState = errors.New("invalid block state")

	// ErrPropagationDepthExceeded каскад обновлений соседей обрезан по глубине.
	// Только логируется и учитывается в метриках.
	ErrPropagationDepthExceeded = errors.New("neighbor update depth exceeded")

	// ErrPlacementDenied CanPlaceAt запретил установку блока
	ErrPlacementDenied = errors.New("placement denied")

	// ErrUnknownBlock тип блока не зарегистрирован
	ErrUnknownBlock = errors.New("unknown block type")
)
