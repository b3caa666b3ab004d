package implementations

import (
	"context"

	"github.com/annel0/blocktick/internal/logging"
	"github.com/annel0/blocktick/internal/vec"
	"github.com/annel0/blocktick/internal/world/block"
)

// Свойства колокола
const (
	BellAttachmentProperty = "attachment"
	BellFacingProperty     = "facing"
	BellPoweredProperty    = "powered"
)

// Варианты крепления колокола
const (
	AttachmentFloor      = "floor"
	AttachmentCeiling    = "ceiling"
	AttachmentSingleWall = "single_wall"
	AttachmentDoubleWall = "double_wall"
)

// BellBehavior описывает колокол: крепится к полу, потолку или стене
type BellBehavior struct {
	block.DefaultBehavior
}

// NewBellType создаёт тип колокола
func NewBellType() *block.BlockType {
	return &block.BlockType{
		Name: "minecraft:bell",
		Properties: []block.Property{
			block.EnumProperty(BellAttachmentProperty, AttachmentFloor, AttachmentCeiling, AttachmentSingleWall, AttachmentDoubleWall),
			block.EnumProperty(BellFacingProperty, "north", "south", "west", "east"),
			block.BoolProperty(BellPoweredProperty),
		},
		Defaults: block.Properties{
			BellAttachmentProperty: AttachmentFloor,
			BellFacingProperty:     "north",
			BellPoweredProperty:    "false",
		},
	}
}

// isSolidAt твёрдый ли блок в позиции. Незагруженная позиция не считается опорой.
func isSolidAt(ctx context.Context, w block.World, pos vec.Vec3) bool {
	s, err := w.GetBlockState(ctx, pos)
	return err == nil && s.IsSolid()
}

// CanPlaceAt: для вертикальной грани нужна твёрдая опора по этой грани;
// для горизонтальной подойдёт стена, пол или потолок.
func (b BellBehavior) CanPlaceAt(ctx context.Context, w block.World, _ *block.BlockType, pos vec.Vec3, face vec.Direction) bool {
	if !face.IsHorizontal() {
		return isSolidAt(ctx, w, pos.Offset(face))
	}
	if isSolidAt(ctx, w, pos.Offset(face)) {
		return true
	}
	if isSolidAt(ctx, w, pos.Down()) {
		return true
	}
	return isSolidAt(ctx, w, pos.Up())
}

// OnPlace выбирает крепление. Порядок проверок для стены фиксирован:
// стена, затем пол, затем потолок.
func (b BellBehavior) OnPlace(ctx context.Context, w block.World, t *block.BlockType, pos vec.Vec3, face vec.Direction, placer block.Placer) block.StateID {
	props := block.Properties{}
	if placer.Facing.IsHorizontal() {
		props = props.With(BellFacingProperty, placer.Facing.String())
	}

	switch face {
	case vec.Up:
		props = props.With(BellAttachmentProperty, AttachmentCeiling)
	case vec.Down:
		props = props.With(BellAttachmentProperty, AttachmentFloor)
	default:
		props = props.With(BellFacingProperty, face.String())
		switch {
		case isSolidAt(ctx, w, pos.Offset(face)):
			if isSolidAt(ctx, w, pos.Offset(face.Opposite())) {
				props = props.With(BellAttachmentProperty, AttachmentDoubleWall)
			} else {
				props = props.With(BellAttachmentProperty, AttachmentSingleWall)
			}
		case isSolidAt(ctx, w, pos.Down()):
			props = props.With(BellAttachmentProperty, AttachmentFloor)
		case isSolidAt(ctx, w, pos.Up()):
			props = props.With(BellAttachmentProperty, AttachmentCeiling)
		default:
			// Опора пропала между CanPlaceAt и OnPlace
			logging.GetBlocksLogger().Warn("колокол в %s: нет опоры для грани %s, используется состояние по умолчанию", pos, face)
			return t.DefaultState()
		}
	}

	id, err := t.Encode(props)
	if err != nil {
		logging.GetBlocksLogger().Warn("колокол в %s: %v", pos, err)
		return t.DefaultState()
	}
	return id
}

// supported проверяет опору для сохранённого крепления
func (b BellBehavior) supported(ctx context.Context, w block.World, pos vec.Vec3, props block.Properties) bool {
	facing, ok := vec.ParseDirection(props.String(BellFacingProperty))
	if !ok {
		facing = vec.North
	}

	switch props.String(BellAttachmentProperty) {
	case AttachmentCeiling:
		return isSolidAt(ctx, w, pos.Up())
	case AttachmentSingleWall:
		return isSolidAt(ctx, w, pos.Offset(facing))
	case AttachmentDoubleWall:
		return isSolidAt(ctx, w, pos.Offset(facing)) && isSolidAt(ctx, w, pos.Offset(facing.Opposite()))
	default:
		return isSolidAt(ctx, w, pos.Down())
	}
}

// StateForNeighborUpdate откладывает разрушение колокола, потерявшего опору
func (b BellBehavior) StateForNeighborUpdate(ctx context.Context, w block.World, t *block.BlockType, state block.StateID, pos vec.Vec3,
	_ vec.Direction, _ vec.Vec3, _ block.StateID) block.StateID {
	props, err := t.Decode(state)
	if err != nil {
		return state
	}
	if !b.supported(ctx, w, pos, props) && !w.IsTickScheduled(t, pos) {
		w.ScheduleBlockTick(t, pos, 1, block.PriorityNormal)
	}
	return state
}

// OnScheduledTick ломает колокол без опоры
func (b BellBehavior) OnScheduledTick(ctx context.Context, w block.World, t *block.BlockType, pos vec.Vec3) {
	current, err := w.GetBlockState(ctx, pos)
	if err != nil || current.Type != t {
		return
	}
	if b.supported(ctx, w, pos, current.Properties()) {
		return
	}
	_ = w.BreakBlock(ctx, pos, &block.DropContext{Cause: DropCauseSupportLost}, block.FlagsAll)
}
