package block

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Registry каталог типов блоков и их поведений.
// Диапазоны состояний выдаются подряд в порядке регистрации, поэтому список
// регистрации должен быть стабильным в пределах версии формата данных.
//
// Регистрация выполняется один раз при старте, до того как реестр начнёт
// использоваться миром; после этого реестр только читается и безопасен для
// конкурентного доступа.
type Registry struct {
	types      []*BlockType
	behaviors  []Behavior
	byName     map[string]*BlockType
	stateTypes []TypeID // state id -> type id, плотная таблица
	air        *BlockType
}

// NewRegistry создаёт пустой реестр
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*BlockType),
	}
}

// Default реестр процесса; наполняется пакетом implementations в init()
var Default = NewRegistry()

// Register добавляет тип блока в реестр по умолчанию
func Register(t *BlockType, behavior Behavior) *BlockType {
	return Default.MustRegister(t, behavior)
}

// Register добавляет тип блока с поведением и выдаёт ему диапазон состояний.
// nil-поведение заменяется на DefaultBehavior.
func (r *Registry) Register(t *BlockType, behavior Behavior) (*BlockType, error) {
	if t == nil || t.Name == "" {
		return nil, fmt.Errorf("block type without name")
	}
	if _, exists := r.byName[t.Name]; exists {
		return nil, fmt.Errorf("block %s already registered", t.Name)
	}
	if len(r.types) >= 1<<16 {
		return nil, fmt.Errorf("block registry is full")
	}

	base := StateID(len(r.stateTypes))
	if err := t.prepare(TypeID(len(r.types)), base); err != nil {
		return nil, err
	}

	if behavior == nil {
		behavior = DefaultBehavior{}
	}
	r.types = append(r.types, t)
	r.behaviors = append(r.behaviors, behavior)
	r.byName[t.Name] = t
	for i := uint32(0); i < t.count; i++ {
		r.stateTypes = append(r.stateTypes, t.id)
	}
	if t.Air && r.air == nil {
		r.air = t
	}
	return t, nil
}

// MustRegister Register, паникующий при ошибке (для init())
func (r *Registry) MustRegister(t *BlockType, behavior Behavior) *BlockType {
	registered, err := r.Register(t, behavior)
	if err != nil {
		panic(err)
	}
	return registered
}

// Type возвращает тип по идентификатору
func (r *Registry) Type(id TypeID) (*BlockType, bool) {
	if int(id) >= len(r.types) {
		return nil, false
	}
	return r.types[id], true
}

// ByName возвращает тип по имени ("minecraft:cactus")
func (r *Registry) ByName(name string) (*BlockType, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Types возвращает все типы в порядке регистрации
func (r *Registry) Types() []*BlockType {
	return append([]*BlockType(nil), r.types...)
}

// Behavior возвращает поведение типа, для неизвестного типа DefaultBehavior
func (r *Registry) Behavior(t *BlockType) Behavior {
	if t == nil || int(t.id) >= len(r.behaviors) || r.types[t.id] != t {
		return DefaultBehavior{}
	}
	return r.behaviors[t.id]
}

// TypeOf возвращает тип, владеющий идентификатором состояния
func (r *Registry) TypeOf(id StateID) (*BlockType, bool) {
	if int(id) >= len(r.stateTypes) {
		return nil, false
	}
	return r.types[r.stateTypes[id]], true
}

// StateCount возвращает общее число состояний в реестре
func (r *Registry) StateCount() int {
	return len(r.stateTypes)
}

// Encode упаковывает набор свойств типа в идентификатор состояния
func (r *Registry) Encode(t *BlockType, props Properties) (StateID, error) {
	if t == nil {
		return 0, ErrUnknownBlock
	}
	if owner, ok := r.Type(t.id); !ok || owner != t {
		return 0, fmt.Errorf("%w: %s", ErrUnknownBlock, t.Name)
	}
	return t.Encode(props)
}

// Decode находит тип по идентификатору состояния
func (r *Registry) Decode(id StateID) (State, error) {
	t, ok := r.TypeOf(id)
	if !ok {
		return State{}, fmt.Errorf("%w: id %d outside every block range", ErrInvalidState, id)
	}
	return State{ID: id, Type: t}, nil
}

// DecodeProperties декодирует идентификатор в тип и набор свойств
func (r *Registry) DecodeProperties(id StateID) (*BlockType, Properties, error) {
	s, err := r.Decode(id)
	if err != nil {
		return nil, nil, err
	}
	props, err := s.Type.Decode(id)
	if err != nil {
		return nil, nil, err
	}
	return s.Type, props, nil
}

// Air возвращает тип пустого блока (первый зарегистрированный с признаком Air)
func (r *Registry) Air() *BlockType {
	return r.air
}

// AirState возвращает состояние «пусто»; используется как замена некорректным состояниям
func (r *Registry) AirState() State {
	if r.air == nil {
		return State{}
	}
	return State{ID: r.air.defaultState, Type: r.air}
}

// Fingerprint возвращает хеш раскладки диапазонов: имена типов, порядок и домены
// свойств. Сохранённые идентификаторы имеют смысл только при совпадающем отпечатке.
func (r *Registry) Fingerprint() uint64 {
	d := xxhash.New()
	for _, t := range r.types {
		_, _ = d.WriteString(t.Name)
		_, _ = d.WriteString("{")
		for _, p := range t.Properties {
			_, _ = d.WriteString(p.Name)
			_, _ = d.WriteString(":")
			_, _ = d.WriteString(strconv.Itoa(int(p.Kind)))
			for i := 0; i < p.Cardinality(); i++ {
				_, _ = d.WriteString(",")
				_, _ = d.WriteString(p.Value(i))
			}
			_, _ = d.WriteString(";")
		}
		_, _ = d.WriteString("}")
	}
	return d.Sum64()
}

// Parse разбирает запись состояния вида "name" или "name[k=v,...]",
// обратную State.String. Не указанные свойства берутся по умолчанию.
func (r *Registry) Parse(s string) (State, error) {
	name, rest, hasProps := strings.Cut(strings.TrimSpace(s), "[")
	t, ok := r.ByName(name)
	if !ok {
		return State{}, fmt.Errorf("%w: %q", ErrUnknownBlock, name)
	}

	props := Properties{}
	if hasProps {
		if !strings.HasSuffix(rest, "]") {
			return State{}, fmt.Errorf("%w: unterminated properties in %q", ErrInvalidState, s)
		}
		rest = strings.TrimSuffix(rest, "]")
		if rest != "" {
			for _, pair := range strings.Split(rest, ",") {
				k, v, ok := strings.Cut(pair, "=")
				if !ok {
					return State{}, fmt.Errorf("%w: bad property %q", ErrInvalidState, pair)
				}
				props[strings.TrimSpace(k)] = strings.TrimSpace(v)
			}
		}
	}

	id, err := t.Encode(props)
	if err != nil {
		return State{}, err
	}
	return State{ID: id, Type: t}, nil
}
