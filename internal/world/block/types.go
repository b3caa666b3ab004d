package block

import (
	"fmt"
)

// TypeID индекс типа блока в реестре
type TypeID uint16

// StateID плотный идентификатор пары (тип блока, набор свойств).
// Каждый тип владеет непрерывным диапазоном [Base, Base+StateCount).
type StateID uint32

// BlockType неизменяемая запись каталога: имя, упорядоченные свойства и
// физические признаки. После регистрации поля не изменяются.
type BlockType struct {
	Name       string
	Properties []Property
	Defaults   Properties // Значения по умолчанию; отсутствующие берутся с индексом 0
	Solid      bool
	Liquid     bool
	Air        bool
	Tags       []string

	id           TypeID
	base         StateID
	count        uint32
	strides      []uint32
	defaultState StateID
	tags         map[string]struct{}
}

// ID возвращает идентификатор типа в реестре
func (t *BlockType) ID() TypeID { return t.id }

// Base возвращает первый идентификатор состояния типа
func (t *BlockType) Base() StateID { return t.base }

// StateCount возвращает число состояний типа (произведение мощностей доменов)
func (t *BlockType) StateCount() uint32 { return t.count }

// DefaultState возвращает состояние по умолчанию
func (t *BlockType) DefaultState() StateID { return t.defaultState }

// Owns сообщает, принадлежит ли идентификатор диапазону этого типа
func (t *BlockType) Owns(id StateID) bool {
	return id >= t.base && uint32(id-t.base) < t.count
}

// IsTaggedWith проверяет принадлежность типа к тегу (например, "minecraft:sand")
func (t *BlockType) IsTaggedWith(tag string) bool {
	if t == nil {
		return false
	}
	_, ok := t.tags[tag]
	return ok
}

func (t *BlockType) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.Name
}

// prepare вычисляет разряды смешанной системы счисления и диапазон типа.
// Порядок разрядов: первое свойство даёт старший разряд, последнее младший.
func (t *BlockType) prepare(id TypeID, base StateID) error {
	t.id = id
	t.base = base
	t.strides = make([]uint32, len(t.Properties))
	t.tags = make(map[string]struct{}, len(t.Tags))
	for _, tag := range t.Tags {
		t.tags[tag] = struct{}{}
	}

	seen := make(map[string]struct{}, len(t.Properties))
	count := uint64(1)
	for i := len(t.Properties) - 1; i >= 0; i-- {
		p := t.Properties[i]
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("block %s: duplicate property %q", t.Name, p.Name)
		}
		seen[p.Name] = struct{}{}

		card := p.Cardinality()
		if card <= 0 {
			return fmt.Errorf("block %s: property %q has empty domain", t.Name, p.Name)
		}
		t.strides[i] = uint32(count)
		count *= uint64(card)
		if count > 1<<24 {
			return fmt.Errorf("block %s: too many states (%d)", t.Name, count)
		}
	}
	t.count = uint32(count)

	for name := range t.Defaults {
		if _, ok := seen[name]; !ok {
			return fmt.Errorf("block %s: default for unknown property %q", t.Name, name)
		}
	}

	def, err := t.Encode(nil)
	if err != nil {
		return fmt.Errorf("block %s: bad defaults: %w", t.Name, err)
	}
	t.defaultState = def
	return nil
}

// Encode упаковывает набор свойств в идентификатор состояния.
// Отсутствующие свойства берутся из значений по умолчанию.
func (t *BlockType) Encode(props Properties) (StateID, error) {
	for name := range props {
		if t.propertyIndex(name) < 0 {
			return 0, fmt.Errorf("%w: %s has no property %q", ErrInvalidState, t.Name, name)
		}
	}

	offset := uint32(0)
	for i, p := range t.Properties {
		value, ok := props[p.Name]
		if !ok {
			value, ok = t.Defaults[p.Name]
		}
		digit := 0
		if ok {
			idx, valid := p.Index(value)
			if !valid {
				return 0, fmt.Errorf("%w: %s.%s=%q", ErrInvalidState, t.Name, p.Name, value)
			}
			digit = idx
		}
		offset += uint32(digit) * t.strides[i]
	}
	return t.base + StateID(offset), nil
}

// MustEncode Encode для статически известных наборов свойств
func (t *BlockType) MustEncode(props Properties) StateID {
	id, err := t.Encode(props)
	if err != nil {
		panic(err)
	}
	return id
}

// Decode распаковывает идентификатор состояния этого типа в набор свойств
func (t *BlockType) Decode(id StateID) (Properties, error) {
	if !t.Owns(id) {
		return nil, fmt.Errorf("%w: id %d outside %s range [%d, %d)", ErrInvalidState, id, t.Name, t.base, uint32(t.base)+t.count)
	}

	offset := uint32(id - t.base)
	props := make(Properties, len(t.Properties))
	for i := len(t.Properties) - 1; i >= 0; i-- {
		p := t.Properties[i]
		card := uint32(p.Cardinality())
		props[p.Name] = p.Value(int(offset % card))
		offset /= card
	}
	if offset != 0 {
		// Недостижимо при корректных границах диапазона
		return nil, fmt.Errorf("%w: id %d has malformed digits for %s", ErrInvalidState, id, t.Name)
	}
	return props, nil
}

// Property возвращает определение свойства по имени
func (t *BlockType) Property(name string) (Property, bool) {
	i := t.propertyIndex(name)
	if i < 0 {
		return Property{}, false
	}
	return t.Properties[i], true
}

func (t *BlockType) propertyIndex(name string) int {
	for i, p := range t.Properties {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// State декодированное по типу состояние в позиции: идентификатор и его тип
type State struct {
	ID   StateID
	Type *BlockType
}

// IsAir сообщает, пустая ли ячейка
func (s State) IsAir() bool {
	return s.Type == nil || s.Type.Air
}

// IsSolid сообщает, твёрдый ли блок
func (s State) IsSolid() bool {
	return s.Type != nil && s.Type.Solid
}

// IsLiquid сообщает, жидкость ли это
func (s State) IsLiquid() bool {
	return s.Type != nil && s.Type.Liquid
}

// Properties декодирует набор свойств. Для некорректного состояния возвращает пустой набор.
func (s State) Properties() Properties {
	if s.Type == nil {
		return Properties{}
	}
	props, err := s.Type.Decode(s.ID)
	if err != nil {
		return Properties{}
	}
	return props
}

func (s State) String() string {
	if s.Type == nil {
		return fmt.Sprintf("#%d", s.ID)
	}
	props := s.Properties()
	if len(props) == 0 {
		return s.Type.Name
	}
	out := s.Type.Name + "["
	for i, k := range props.Keys() {
		if i > 0 {
			out += ","
		}
		out += k + "=" + props[k]
	}
	return out + "]"
}
