package block

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) (*Registry, *BlockType, *BlockType, *BlockType) {
	t.Helper()
	r := NewRegistry()

	air, err := r.Register(&BlockType{Name: "test:air", Air: true}, nil)
	require.NoError(t, err)

	cactus, err := r.Register(&BlockType{
		Name:       "test:cactus",
		Solid:      true,
		Properties: []Property{IntProperty("age", 0, 15)},
	}, nil)
	require.NoError(t, err)

	bell, err := r.Register(&BlockType{
		Name: "test:bell",
		Properties: []Property{
			EnumProperty("attachment", "floor", "ceiling", "single_wall", "double_wall"),
			EnumProperty("facing", "north", "south", "west", "east"),
			BoolProperty("powered"),
		},
		Defaults: Properties{"facing": "south"},
	}, nil)
	require.NoError(t, err)

	return r, air, cactus, bell
}

func TestRegistry_ContiguousRanges(t *testing.T) {
	r, air, cactus, bell := testRegistry(t)

	assert.Equal(t, StateID(0), air.Base())
	assert.Equal(t, uint32(1), air.StateCount())
	assert.Equal(t, StateID(1), cactus.Base())
	assert.Equal(t, uint32(16), cactus.StateCount())
	assert.Equal(t, StateID(17), bell.Base())
	assert.Equal(t, uint32(4*4*2), bell.StateCount())
	assert.Equal(t, 1+16+32, r.StateCount())
	assert.Same(t, air, r.Air())
}

func TestRegistry_RoundTripEveryState(t *testing.T) {
	r, _, _, _ := testRegistry(t)

	seen := make(map[StateID]bool)
	for _, bt := range r.Types() {
		for i := uint32(0); i < bt.StateCount(); i++ {
			id := bt.Base() + StateID(i)

			decoded, props, err := r.DecodeProperties(id)
			require.NoError(t, err)
			assert.Same(t, bt, decoded)

			encoded, err := r.Encode(bt, props)
			require.NoError(t, err)
			assert.Equal(t, id, encoded, "%s %v", bt.Name, props)

			assert.False(t, seen[id], "состояние %d выдано дважды", id)
			seen[id] = true
		}
	}
	assert.Len(t, seen, r.StateCount())
}

func TestBlockType_FirstPropertyIsMostSignificant(t *testing.T) {
	_, _, _, bell := testRegistry(t)

	id, err := bell.Encode(Properties{"attachment": "ceiling", "facing": "north", "powered": "false"})
	require.NoError(t, err)
	// attachment=1 при шаге 4*2
	assert.Equal(t, bell.Base()+8, id)

	id, err = bell.Encode(Properties{"attachment": "floor", "facing": "north", "powered": "true"})
	require.NoError(t, err)
	assert.Equal(t, bell.Base()+1, id)
}

func TestBlockType_Defaults(t *testing.T) {
	_, _, cactus, bell := testRegistry(t)

	assert.Equal(t, cactus.Base(), cactus.DefaultState())

	props, err := bell.Decode(bell.DefaultState())
	require.NoError(t, err)
	assert.Equal(t, "floor", props.String("attachment"))
	assert.Equal(t, "south", props.String("facing"))
	assert.False(t, props.Bool("powered"))

	// Отсутствующее свойство берётся из значения по умолчанию
	id, err := bell.Encode(Properties{"powered": "true"})
	require.NoError(t, err)
	props, err = bell.Decode(id)
	require.NoError(t, err)
	assert.Equal(t, "south", props.String("facing"))
	assert.True(t, props.Bool("powered"))
}

func TestBlockType_InvalidStates(t *testing.T) {
	r, _, cactus, bell := testRegistry(t)

	_, err := cactus.Encode(Properties{"age": "16"})
	assert.True(t, errors.Is(err, ErrInvalidState))

	_, err = cactus.Encode(Properties{"height": "1"})
	assert.True(t, errors.Is(err, ErrInvalidState))

	_, err = bell.Encode(Properties{"facing": "up"})
	assert.True(t, errors.Is(err, ErrInvalidState))

	_, err = cactus.Decode(bell.Base())
	assert.True(t, errors.Is(err, ErrInvalidState))

	_, err = r.Decode(StateID(r.StateCount()))
	assert.True(t, errors.Is(err, ErrInvalidState))

	foreign := &BlockType{Name: "test:foreign"}
	_, err = r.Encode(foreign, nil)
	assert.True(t, errors.Is(err, ErrUnknownBlock))
}

func TestRegistry_RejectsBadTypes(t *testing.T) {
	r := NewRegistry()

	_, err := r.Register(&BlockType{Name: "test:a"}, nil)
	require.NoError(t, err)

	_, err = r.Register(&BlockType{Name: "test:a"}, nil)
	assert.Error(t, err, "повторное имя")

	_, err = r.Register(&BlockType{
		Name:       "test:dup",
		Properties: []Property{BoolProperty("lit"), BoolProperty("lit")},
	}, nil)
	assert.Error(t, err, "повторное свойство")

	_, err = r.Register(&BlockType{
		Name:     "test:bad_default",
		Defaults: Properties{"missing": "1"},
	}, nil)
	assert.Error(t, err)

	assert.Panics(t, func() { IntProperty("bad", 3, 2) })
	assert.Panics(t, func() { EnumProperty("empty") })
}

func TestRegistry_TypeOfAndBehavior(t *testing.T) {
	r, air, cactus, _ := testRegistry(t)

	bt, ok := r.TypeOf(cactus.Base() + 15)
	require.True(t, ok)
	assert.Same(t, cactus, bt)

	_, ok = r.TypeOf(StateID(1000))
	assert.False(t, ok)

	assert.IsType(t, DefaultBehavior{}, r.Behavior(air))
	assert.IsType(t, DefaultBehavior{}, r.Behavior(nil))

	byName, ok := r.ByName("test:cactus")
	require.True(t, ok)
	assert.Same(t, cactus, byName)
}

func TestRegistry_Fingerprint(t *testing.T) {
	a, _, _, _ := testRegistry(t)
	b, _, _, _ := testRegistry(t)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	_, err := b.Register(&BlockType{Name: "test:extra"}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestState_String(t *testing.T) {
	r, _, _, bell := testRegistry(t)

	s, err := r.Decode(bell.DefaultState())
	require.NoError(t, err)
	assert.Equal(t, "test:bell[attachment=floor,facing=south,powered=false]", s.String())
	assert.True(t, r.AirState().IsAir())
}

func TestUpdateDirections(t *testing.T) {
	assert.Len(t, UpdateDirections(DefaultBehavior{}), 6)
}

func TestRegistry_Parse(t *testing.T) {
	r, air, cactus, bell := testRegistry(t)

	s, err := r.Parse("test:air")
	require.NoError(t, err)
	assert.Equal(t, air.DefaultState(), s.ID)

	s, err = r.Parse("test:cactus[age=7]")
	require.NoError(t, err)
	assert.Equal(t, cactus.MustEncode(Properties{"age": "7"}), s.ID)

	// Обратно к State.String
	want := State{ID: bell.MustEncode(Properties{"attachment": "ceiling", "powered": "true"}), Type: bell}
	s, err = r.Parse(want.String())
	require.NoError(t, err)
	assert.Equal(t, want.ID, s.ID)

	_, err = r.Parse("test:nothing")
	assert.True(t, errors.Is(err, ErrUnknownBlock))
	_, err = r.Parse("test:cactus[age=99]")
	assert.True(t, errors.Is(err, ErrInvalidState))
	_, err = r.Parse("test:cactus[age=1")
	assert.True(t, errors.Is(err, ErrInvalidState))
	_, err = r.Parse("test:cactus[age]")
	assert.True(t, errors.Is(err, ErrInvalidState))
	_, err = r.Parse("test:cactus[age=03]")
	assert.True(t, errors.Is(err, ErrInvalidState))
}

func TestProperty_IntIndexCanonicalOnly(t *testing.T) {
	p := IntProperty("age", 0, 15)

	idx, ok := p.Index("3")
	require.True(t, ok)
	assert.Equal(t, 3, idx)

	for _, v := range []string{"03", "+3", " 3", "-0"} {
		_, ok := p.Index(v)
		assert.False(t, ok, v)
	}

	neg := IntProperty("offset", -2, 2)
	idx, ok = neg.Index("-2")
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}
