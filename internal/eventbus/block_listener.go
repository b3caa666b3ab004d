package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/annel0/blocktick/internal/logging"
	"github.com/annel0/blocktick/internal/vec"
	"github.com/annel0/blocktick/internal/world"
)

// Типы событий блоков
const (
	EventBlockChange = "block_change"
	EventBlockDrop   = "block_drop"
)

// BlockChangeEvent полезная нагрузка события block_change
type BlockChangeEvent struct {
	Tick       uint64   `json:"tick"`
	Pos        vec.Vec3 `json:"pos"`
	Previous   string   `json:"previous"`
	PreviousID uint32   `json:"previous_id"`
	Current    string   `json:"current"`
	CurrentID  uint32   `json:"current_id"`
}

// BlockDropEvent полезная нагрузка события block_drop
type BlockDropEvent struct {
	Tick     uint64   `json:"tick"`
	Pos      vec.Vec3 `json:"pos"`
	State    string   `json:"state"`
	StateID  uint32   `json:"state_id"`
	Cause    string   `json:"cause"`
	PlayerID uint64   `json:"player_id,omitempty"`
}

// BlockListener публикует изменения блоков мира в шину событий.
type BlockListener struct {
	bus    EventBus
	source string
	logger *logging.Logger
}

// NewBlockListener создаёт слушателя мира; source попадает в каждый конверт
func NewBlockListener(bus EventBus, source string, logger *logging.Logger) *BlockListener {
	return &BlockListener{bus: bus, source: source, logger: logger}
}

func (l *BlockListener) BlockChanged(ctx context.Context, change world.BlockChange) {
	l.publish(ctx, EventBlockChange, HighPriority, BlockChangeEvent{
		Tick:       change.Tick,
		Pos:        change.Pos,
		Previous:   change.Previous.String(),
		PreviousID: uint32(change.Previous.ID),
		Current:    change.Current.String(),
		CurrentID:  uint32(change.Current.ID),
	})
}

func (l *BlockListener) BlockDropped(ctx context.Context, drop world.BlockDrop) {
	l.publish(ctx, EventBlockDrop, HighPriority-2, BlockDropEvent{
		Tick:     drop.Tick,
		Pos:      drop.Pos,
		State:    drop.State.String(),
		StateID:  uint32(drop.State.ID),
		Cause:    drop.Cause,
		PlayerID: drop.PlayerID,
	})
}

func (l *BlockListener) publish(ctx context.Context, eventType string, priority int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		l.logger.Error("Не удалось сериализовать %s: %v", eventType, err)
		return
	}
	if err := l.bus.Publish(ctx, NewEnvelope(eventType, l.source, priority, data)); err != nil {
		l.logger.Warn("Событие %s не опубликовано: %v", eventType, err)
	}
}

// DecodeBlockChange разбирает полезную нагрузку block_change
func DecodeBlockChange(ev *Envelope) (BlockChangeEvent, error) {
	var out BlockChangeEvent
	if ev.EventType != EventBlockChange {
		return out, fmt.Errorf("unexpected event type %q", ev.EventType)
	}
	err := json.Unmarshal(ev.Payload, &out)
	return out, err
}

// DecodeBlockDrop разбирает полезную нагрузку block_drop
func DecodeBlockDrop(ev *Envelope) (BlockDropEvent, error) {
	var out BlockDropEvent
	if ev.EventType != EventBlockDrop {
		return out, fmt.Errorf("unexpected event type %q", ev.EventType)
	}
	err := json.Unmarshal(ev.Payload, &out)
	return out, err
}
