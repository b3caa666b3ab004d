package block

import (
	"fmt"
	"sort"
	"strconv"
)

// PropertyKind определяет тип домена значений свойства
type PropertyKind uint8

const (
	KindInt  PropertyKind = iota // Ограниченное целое [Min, Max]
	KindBool                     // false/true
	KindEnum                     // Закрытое перечисление
)

// Property описывает одно свойство состояния блока с конечным доменом значений.
// Индекс значения в домене служит «цифрой» при упаковке состояния.
type Property struct {
	Name   string
	Kind   PropertyKind
	Min    int      // Только для KindInt
	Max    int      // Только для KindInt
	Values []string // Только для KindEnum
}

// IntProperty создаёт целочисленное свойство с доменом [min, max]
func IntProperty(name string, min, max int) Property {
	if max < min {
		panic(fmt.Sprintf("block: property %q has empty domain [%d, %d]", name, min, max))
	}
	return Property{Name: name, Kind: KindInt, Min: min, Max: max}
}

// BoolProperty создаёт логическое свойство
func BoolProperty(name string) Property {
	return Property{Name: name, Kind: KindBool}
}

// EnumProperty создаёт свойство-перечисление. Порядок значений фиксирован.
func EnumProperty(name string, values ...string) Property {
	if len(values) == 0 {
		panic(fmt.Sprintf("block: enum property %q has no values", name))
	}
	return Property{Name: name, Kind: KindEnum, Values: append([]string(nil), values...)}
}

// Cardinality возвращает размер домена значений
func (p Property) Cardinality() int {
	switch p.Kind {
	case KindInt:
		return p.Max - p.Min + 1
	case KindBool:
		return 2
	default:
		return len(p.Values)
	}
}

// Index возвращает индекс значения в домене
func (p Property) Index(value string) (int, bool) {
	switch p.Kind {
	case KindInt:
		// Только каноническая запись: "03" и "+3" не принимаются
		n, err := strconv.Atoi(value)
		if err != nil || strconv.Itoa(n) != value || n < p.Min || n > p.Max {
			return 0, false
		}
		return n - p.Min, true
	case KindBool:
		switch value {
		case "false":
			return 0, true
		case "true":
			return 1, true
		}
		return 0, false
	default:
		for i, v := range p.Values {
			if v == value {
				return i, true
			}
		}
		return 0, false
	}
}

// Value возвращает значение по индексу. Индекс должен лежать в [0, Cardinality).
func (p Property) Value(i int) string {
	switch p.Kind {
	case KindInt:
		return strconv.Itoa(p.Min + i)
	case KindBool:
		if i == 1 {
			return "true"
		}
		return "false"
	default:
		return p.Values[i]
	}
}

// Properties набор значений свойств (PropertySet) конкретного состояния
type Properties map[string]string

// Int возвращает целочисленное значение свойства (0, если свойство отсутствует)
func (p Properties) Int(name string) int {
	n, _ := strconv.Atoi(p[name])
	return n
}

// Bool возвращает логическое значение свойства
func (p Properties) Bool(name string) bool {
	return p[name] == "true"
}

// String возвращает значение свойства как есть
func (p Properties) String(name string) string {
	return p[name]
}

// With возвращает копию набора с заменённым значением
func (p Properties) With(name, value string) Properties {
	c := make(Properties, len(p)+1)
	for k, v := range p {
		c[k] = v
	}
	c[name] = value
	return c
}

// WithInt With для целочисленных свойств
func (p Properties) WithInt(name string, value int) Properties {
	return p.With(name, strconv.Itoa(value))
}

// WithBool With для логических свойств
func (p Properties) WithBool(name string, value bool) Properties {
	return p.With(name, strconv.FormatBool(value))
}

// Equal сравнивает два набора свойств
func (p Properties) Equal(other Properties) bool {
	if len(p) != len(other) {
		return false
	}
	for k, v := range p {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Keys возвращает отсортированные имена свойств
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
