package world

import (
	"context"
	"encoding/binary"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/annel0/blocktick/internal/vec"
)

// BlockDeltaManager накапливает изменения блоков по чанкам и отдаёт их
// подписчикам по версиям. Подключается к миру как Listener.
type BlockDeltaManager struct {
	chunkDeltas  map[vec.Vec3]*ChunkDelta   // Накопленные изменения по чанкам
	subscribers  map[string]*SubscriberInfo // Подписчики на обновления (connID -> info)
	deltaVersion uint64                     // Глобальная версия изменений
	mu           sync.RWMutex               // Мьютекс для безопасного доступа
	retention    time.Duration              // Сколько хранить дельту после последнего изменения
}

// ChunkDelta содержит накопленные изменения в чанке
type ChunkDelta struct {
	ChunkCoords vec.Vec3                      `json:"chunk"`
	Changes     map[vec.Vec3]*BlockChangeInfo `json:"-"`
	Version     uint64                        `json:"version"`
	LastUpdated time.Time                     `json:"last_updated"`
}

// BlockChangeInfo содержит информацию об изменении блока
type BlockChangeInfo struct {
	Local      vec.Vec3 `json:"local"`
	State      uint32   `json:"state"`
	Block      string   `json:"block"`
	ChangeType string   `json:"change_type"` // "set", "break"
	Version    uint64   `json:"version"`
}

// DeltaView снимок дельты чанка для отправки подписчику
type DeltaView struct {
	ChunkCoords vec.Vec3          `json:"chunk"`
	Version     uint64            `json:"version"`
	Changes     []BlockChangeInfo `json:"changes"`
	Checksum    uint64            `json:"checksum"`
}

// SubscriberInfo содержит информацию о подписчике
type SubscriberInfo struct {
	ConnID   string   // ID соединения
	Center   vec.Vec3 // Центр области подписки (в чанках)
	Radius   int      // Радиус в чанках
	LastSent uint64   // Последняя отправленная версия
}

// NewBlockDeltaManager создаёт новый менеджер delta-обновлений
func NewBlockDeltaManager(retention time.Duration) *BlockDeltaManager {
	if retention <= 0 {
		retention = time.Minute
	}
	return &BlockDeltaManager{
		chunkDeltas: make(map[vec.Vec3]*ChunkDelta),
		subscribers: make(map[string]*SubscriberInfo),
		retention:   retention,
	}
}

// Start запускает периодическую очистку старых дельт
func (bdm *BlockDeltaManager) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(bdm.retention / 2)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				bdm.cleanupOldDeltas(time.Now())
			}
		}
	}()
}

// BlockChanged реализует Listener
func (bdm *BlockDeltaManager) BlockChanged(_ context.Context, change BlockChange) {
	changeType := "set"
	if change.Current.IsAir() {
		changeType = "break"
	}
	name := ""
	if change.Current.Type != nil {
		name = change.Current.Type.Name
	}
	bdm.AddBlockChange(change.Pos, uint32(change.Current.ID), name, changeType)
}

// BlockDropped реализует Listener; выпадения в дельты не попадают
func (bdm *BlockDeltaManager) BlockDropped(context.Context, BlockDrop) {}

// AddBlockChange добавляет изменение блока в дельту его чанка
func (bdm *BlockDeltaManager) AddBlockChange(worldPos vec.Vec3, state uint32, blockName, changeType string) {
	chunkCoords := worldPos.ChunkCoords()
	localPos := worldPos.LocalInChunk()

	bdm.mu.Lock()
	defer bdm.mu.Unlock()

	// Увеличиваем глобальную версию
	bdm.deltaVersion++

	delta, exists := bdm.chunkDeltas[chunkCoords]
	if !exists {
		delta = &ChunkDelta{
			ChunkCoords: chunkCoords,
			Changes:     make(map[vec.Vec3]*BlockChangeInfo),
		}
		bdm.chunkDeltas[chunkCoords] = delta
	}

	// Последнее изменение ячейки перекрывает предыдущие
	delta.Changes[localPos] = &BlockChangeInfo{
		Local:      localPos,
		State:      state,
		Block:      blockName,
		ChangeType: changeType,
		Version:    bdm.deltaVersion,
	}
	delta.Version = bdm.deltaVersion
	delta.LastUpdated = time.Now()
}

// Subscribe подписывает клиента на обновления блоков в области
func (bdm *BlockDeltaManager) Subscribe(connID string, center vec.Vec3, radius int) {
	bdm.mu.Lock()
	defer bdm.mu.Unlock()

	bdm.subscribers[connID] = &SubscriberInfo{
		ConnID:   connID,
		Center:   center,
		Radius:   radius,
		LastSent: bdm.deltaVersion,
	}
}

// Unsubscribe отписывает клиента от обновлений блоков
func (bdm *BlockDeltaManager) Unsubscribe(connID string) {
	bdm.mu.Lock()
	defer bdm.mu.Unlock()
	delete(bdm.subscribers, connID)
}

// Poll возвращает дельты для подписчика с момента прошлого опроса
func (bdm *BlockDeltaManager) Poll(connID string) ([]DeltaView, bool) {
	bdm.mu.Lock()
	defer bdm.mu.Unlock()

	subscriber, ok := bdm.subscribers[connID]
	if !ok {
		return nil, false
	}

	var views []DeltaView
	for chunkCoords, delta := range bdm.chunkDeltas {
		if delta.Version <= subscriber.LastSent {
			continue
		}
		if !isChunkInRadius(chunkCoords, subscriber.Center, subscriber.Radius) {
			continue
		}
		views = append(views, deltaView(delta, subscriber.LastSent))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Version < views[j].Version })

	subscriber.LastSent = bdm.deltaVersion
	return views, true
}

func deltaView(delta *ChunkDelta, since uint64) DeltaView {
	view := DeltaView{ChunkCoords: delta.ChunkCoords, Version: delta.Version}
	for _, change := range delta.Changes {
		if change.Version > since {
			view.Changes = append(view.Changes, *change)
		}
	}
	sort.Slice(view.Changes, func(i, j int) bool { return view.Changes[i].Version < view.Changes[j].Version })
	view.Checksum = calculateDeltaChecksum(view)
	return view
}

// isChunkInRadius проверяет, находится ли чанк в радиусе от центра
func isChunkInRadius(chunk, center vec.Vec3, radius int) bool {
	dx := chunk.X - center.X
	dy := chunk.Y - center.Y
	dz := chunk.Z - center.Z
	return dx*dx+dy*dy+dz*dz <= radius*radius
}

// calculateDeltaChecksum вычисляет контрольную сумму дельты для проверки на клиенте
func calculateDeltaChecksum(view DeltaView) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, v := range []int{view.ChunkCoords.X, view.ChunkCoords.Y, view.ChunkCoords.Z} {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(v)))
		_, _ = d.Write(buf[:])
	}
	for _, c := range view.Changes {
		binary.LittleEndian.PutUint64(buf[:], uint64(c.Local.X)<<16|uint64(c.Local.Y)<<8|uint64(c.Local.Z))
		_, _ = d.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(c.State))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// cleanupOldDeltas удаляет дельты, не менявшиеся дольше retention
func (bdm *BlockDeltaManager) cleanupOldDeltas(now time.Time) {
	bdm.mu.Lock()
	defer bdm.mu.Unlock()

	cutoff := now.Add(-bdm.retention)
	for chunkCoords, delta := range bdm.chunkDeltas {
		if delta.LastUpdated.Before(cutoff) {
			delete(bdm.chunkDeltas, chunkCoords)
		}
	}
}

// GetPendingChangesCount возвращает количество накопленных изменений
func (bdm *BlockDeltaManager) GetPendingChangesCount() int {
	bdm.mu.RLock()
	defer bdm.mu.RUnlock()

	count := 0
	for _, delta := range bdm.chunkDeltas {
		count += len(delta.Changes)
	}
	return count
}

// GetSubscribersCount возвращает количество подписчиков
func (bdm *BlockDeltaManager) GetSubscribersCount() int {
	bdm.mu.RLock()
	defer bdm.mu.RUnlock()
	return len(bdm.subscribers)
}
