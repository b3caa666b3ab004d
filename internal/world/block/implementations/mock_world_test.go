package implementations

import (
	"context"

	"github.com/annel0/blocktick/internal/vec"
	"github.com/annel0/blocktick/internal/world/block"
)

type setCall struct {
	pos   vec.Vec3
	state block.StateID
	flags block.Flags
}

type scheduledTick struct {
	t        *block.BlockType
	pos      vec.Vec3
	delay    uint32
	priority block.TickPriority
}

type breakCall struct {
	pos   vec.Vec3
	drop  *block.DropContext
	flags block.Flags
}

// mockWorld реализует block.World поверх карты для тестирования поведений.
// Позиции вне unloaded и без записи считаются воздухом.
type mockWorld struct {
	reg       *block.Registry
	cat       *Catalogue
	blocks    map[vec.Vec3]block.StateID
	unloaded  map[vec.Vec3]bool
	sets      []setCall
	scheduled []scheduledTick
	breaks    []breakCall
}

func newMockWorld() *mockWorld {
	reg := block.NewRegistry()
	cat := RegisterAll(reg)
	return &mockWorld{
		reg:      reg,
		cat:      cat,
		blocks:   make(map[vec.Vec3]block.StateID),
		unloaded: make(map[vec.Vec3]bool),
	}
}

// put ставит состояние без записи в журнал вызовов
func (m *mockWorld) put(pos vec.Vec3, id block.StateID) {
	m.blocks[pos] = id
}

func (m *mockWorld) Registry() *block.Registry { return m.reg }

func (m *mockWorld) GetBlock(ctx context.Context, pos vec.Vec3) (*block.BlockType, error) {
	t, _, err := m.GetBlockAndState(ctx, pos)
	return t, err
}

func (m *mockWorld) GetBlockState(ctx context.Context, pos vec.Vec3) (block.State, error) {
	_, s, err := m.GetBlockAndState(ctx, pos)
	return s, err
}

func (m *mockWorld) GetBlockAndState(_ context.Context, pos vec.Vec3) (*block.BlockType, block.State, error) {
	if m.unloaded[pos] {
		return nil, block.State{}, block.ErrUnloaded
	}
	id, ok := m.blocks[pos]
	if !ok {
		air := m.reg.AirState()
		return air.Type, air, nil
	}
	s, err := m.reg.Decode(id)
	if err != nil {
		return nil, block.State{}, err
	}
	return s.Type, s, nil
}

func (m *mockWorld) SetBlockState(_ context.Context, pos vec.Vec3, state block.StateID, flags block.Flags) (block.StateID, error) {
	if m.unloaded[pos] {
		return 0, block.ErrUnloaded
	}
	if _, err := m.reg.Decode(state); err != nil {
		return 0, err
	}
	prev, ok := m.blocks[pos]
	if !ok {
		prev = m.reg.AirState().ID
	}
	m.blocks[pos] = state
	m.sets = append(m.sets, setCall{pos: pos, state: state, flags: flags})
	return prev, nil
}

func (m *mockWorld) BreakBlock(_ context.Context, pos vec.Vec3, drop *block.DropContext, flags block.Flags) error {
	if m.unloaded[pos] {
		return block.ErrUnloaded
	}
	delete(m.blocks, pos)
	m.breaks = append(m.breaks, breakCall{pos: pos, drop: drop, flags: flags})
	return nil
}

func (m *mockWorld) ScheduleBlockTick(t *block.BlockType, pos vec.Vec3, delay uint32, priority block.TickPriority) {
	m.scheduled = append(m.scheduled, scheduledTick{t: t, pos: pos, delay: delay, priority: priority})
}

func (m *mockWorld) IsTickScheduled(t *block.BlockType, pos vec.Vec3) bool {
	for _, s := range m.scheduled {
		if s.t == t && s.pos == pos {
			return true
		}
	}
	return false
}
