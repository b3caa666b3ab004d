package implementations

import "github.com/annel0/blocktick/internal/world/block"

// Теги, используемые поведениями для грубых категориальных проверок
const (
	TagSand  = "minecraft:sand"
	TagLava  = "minecraft:lava"
	TagWater = "minecraft:water"
)

// DropCauseSupportLost причина разрушения блока, потерявшего опору
const DropCauseSupportLost = "support_lost"

// Catalogue набор зарегистрированных в одном реестре типов блоков
type Catalogue struct {
	Air     *block.BlockType
	Stone   *block.BlockType
	Dirt    *block.BlockType
	Sand    *block.BlockType
	RedSand *block.BlockType
	Water   *block.BlockType
	Lava    *block.BlockType
	Cactus  *block.BlockType
	Bell    *block.BlockType
	Glass   *block.BlockType
}

// Vanilla каталог, зарегистрированный в block.Default
var Vanilla *Catalogue

// Регистрируем все типы блоков при импорте пакета.
// Порядок регистрации определяет диапазоны состояний: добавлять только в конец.
func init() {
	Vanilla = RegisterAll(block.Default)
}

// RegisterAll регистрирует каталог в указанном реестре. Каждый вызов создаёт
// собственные экземпляры типов, поэтому тесты могут собирать свои реестры.
func RegisterAll(r *block.Registry) *Catalogue {
	c := &Catalogue{}

	// Базовые блоки
	c.Air = r.MustRegister(NewAirType(), AirBehavior{})
	c.Stone = r.MustRegister(NewStoneType(), StoneBehavior{})
	c.Dirt = r.MustRegister(NewDirtType(), DirtBehavior{})
	c.Sand = r.MustRegister(NewSandType("minecraft:sand"), SandBehavior{})
	c.RedSand = r.MustRegister(NewSandType("minecraft:red_sand"), SandBehavior{})

	// Жидкости
	c.Water = r.MustRegister(NewLiquidType("minecraft:water", TagWater), LiquidBehavior{})
	c.Lava = r.MustRegister(NewLiquidType("minecraft:lava", TagLava), LiquidBehavior{})

	// Растения и устройства
	c.Cactus = r.MustRegister(NewCactusType(), CactusBehavior{})
	c.Bell = r.MustRegister(NewBellType(), BellBehavior{})
	c.Glass = r.MustRegister(NewGlassType(), GlassBehavior{})

	return c
}
