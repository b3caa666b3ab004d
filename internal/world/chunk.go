package world

import (
	"fmt"
	"sync"

	"github.com/annel0/blocktick/internal/vec"
	"github.com/annel0/blocktick/internal/world/block"
)

// ChunkVolume число ячеек в кубическом чанке 16x16x16
const ChunkVolume = vec.ChunkSize * vec.ChunkSize * vec.ChunkSize

// Chunk представляет кубический участок мира 16x16x16 блоков.
// Запись сериализуется мьютексом чанка; чтение всегда видит целое значение.
type Chunk struct {
	Coords vec.Vec3 // Координаты чанка (в чанках)

	blocks        [ChunkVolume]block.StateID
	changeCounter int  // Счетчик изменений с последнего сохранения
	detached      bool // Чанк выгружен: запись запрещена
	mu            sync.RWMutex
	saveMu        sync.Mutex // Сохранения одного чанка идут по очереди
}

// NewChunk создаёт чанк, заполненный одним состоянием
func NewChunk(coords vec.Vec3, fill block.StateID) *Chunk {
	c := &Chunk{Coords: coords}
	if fill != 0 {
		for i := range c.blocks {
			c.blocks[i] = fill
		}
	}
	return c
}

// NewChunkFromStates восстанавливает чанк из плотного массива состояний
func NewChunkFromStates(coords vec.Vec3, states []block.StateID) (*Chunk, error) {
	if len(states) != ChunkVolume {
		return nil, fmt.Errorf("chunk %s: expected %d states, got %d", coords, ChunkVolume, len(states))
	}
	c := &Chunk{Coords: coords}
	copy(c.blocks[:], states)
	return c, nil
}

// index переводит локальные координаты в индекс массива (порядок Y, Z, X)
func index(local vec.Vec3) int {
	return (local.Y*vec.ChunkSize+local.Z)*vec.ChunkSize + local.X
}

// localAt обратное преобразование индекса в локальные координаты
func localAt(i int) vec.Vec3 {
	return vec.Vec3{
		X: i % vec.ChunkSize,
		Z: (i / vec.ChunkSize) % vec.ChunkSize,
		Y: i / (vec.ChunkSize * vec.ChunkSize),
	}
}

// Get возвращает состояние по локальным координатам
func (c *Chunk) Get(local vec.Vec3) block.StateID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[index(local)]
}

// Set записывает состояние и возвращает предыдущее.
// ok=false, если чанк уже выгружен и запись не принята.
func (c *Chunk) Set(local vec.Vec3, id block.StateID) (prev block.StateID, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := index(local)
	prev = c.blocks[i]
	if c.detached {
		return prev, false
	}
	if prev != id {
		c.blocks[i] = id
		c.changeCounter++
	}
	return prev, true
}

// setRaw заполняет ячейку без учёта изменений (генерация)
func (c *Chunk) setRaw(local vec.Vec3, id block.StateID) {
	c.blocks[index(local)] = id
}

// States возвращает копию всех состояний чанка
func (c *Chunk) States() []block.StateID {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]block.StateID, ChunkVolume)
	copy(out, c.blocks[:])
	return out
}

// Snapshot возвращает копию состояний и число изменений, вошедших в неё.
// Это число передаётся в ClearChanges после успешной записи.
func (c *Chunk) Snapshot() ([]block.StateID, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]block.StateID, ChunkVolume)
	copy(out, c.blocks[:])
	return out, c.changeCounter
}

// HasChanges возвращает true, если чанк изменён с последнего сохранения
func (c *Chunk) HasChanges() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.changeCounter > 0
}

// ClearChanges снимает seen изменений, сохранённых снимком. Изменения,
// сделанные после снимка, остаются и попадут в следующее сохранение.
func (c *Chunk) ClearChanges(seen int) {
	c.mu.Lock()
	c.changeCounter -= seen
	if c.changeCounter < 0 {
		c.changeCounter = 0
	}
	c.mu.Unlock()
}

// detach запрещает дальнейшие записи; после него снимок окончательный
func (c *Chunk) detach() {
	c.mu.Lock()
	c.detached = true
	c.mu.Unlock()
}

func (c *Chunk) attach() {
	c.mu.Lock()
	c.detached = false
	c.mu.Unlock()
}

// MarkChanged помечает чанк как требующий сохранения
func (c *Chunk) MarkChanged() {
	c.mu.Lock()
	c.changeCounter++
	c.mu.Unlock()
}

// Origin возвращает мировые координаты ячейки (0,0,0) чанка
func (c *Chunk) Origin() vec.Vec3 {
	return c.Coords.ChunkOrigin()
}
