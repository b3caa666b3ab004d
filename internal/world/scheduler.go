package world

import (
	"container/heap"
	"sync"

	"github.com/annel0/blocktick/internal/vec"
	"github.com/annel0/blocktick/internal/world/block"
)

// ScheduledTick отложенный тик блока
type ScheduledTick struct {
	Pos      vec.Vec3
	Type     *block.BlockType
	Due      uint64 // Абсолютный номер мирового тика
	Priority block.TickPriority
	Seq      uint64 // Порядок постановки, разрешает равные приоритеты
}

type tickKey struct {
	pos vec.Vec3
	t   *block.BlockType
}

// tickQueue min-heap по (Due, Priority, Seq)
type tickQueue []*ScheduledTick

func (q tickQueue) Len() int { return len(q) }

func (q tickQueue) Less(i, j int) bool {
	a, b := q[i], q[j]
	if a.Due != b.Due {
		return a.Due < b.Due
	}
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.Seq < b.Seq
}

func (q tickQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *tickQueue) Push(x interface{}) { *q = append(*q, x.(*ScheduledTick)) }

func (q *tickQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// TickScheduler хранит отложенные тики одного мира.
// Задержка хранится как абсолютный номер тика, поэтому уменьшать
// счётчики каждого элемента на каждом тике не нужно.
type TickScheduler struct {
	mu      sync.Mutex
	queue   tickQueue
	pending map[tickKey]int
	now     uint64
	seq     uint64
}

// NewTickScheduler создаёт пустой планировщик
func NewTickScheduler() *TickScheduler {
	return &TickScheduler{
		pending: make(map[tickKey]int),
	}
}

// Schedule ставит тик через delay мировых тиков. Нулевая задержка считается единицей.
// Дубликаты не отбрасываются: каждый вызов даёт отдельное срабатывание.
func (s *TickScheduler) Schedule(t *block.BlockType, pos vec.Vec3, delay uint32, priority block.TickPriority) {
	if delay == 0 {
		delay = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	heap.Push(&s.queue, &ScheduledTick{
		Pos:      pos,
		Type:     t,
		Due:      s.now + uint64(delay),
		Priority: priority,
		Seq:      s.seq,
	})
	s.pending[tickKey{pos: pos, t: t}]++
}

// IsScheduled сообщает, есть ли ожидающий тик для типа в позиции
func (s *TickScheduler) IsScheduled(t *block.BlockType, pos vec.Vec3) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[tickKey{pos: pos, t: t}] > 0
}

// Advance переводит часы планировщика на следующий тик и возвращает его номер
func (s *TickScheduler) Advance() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now++
	return s.now
}

// Now возвращает текущий номер тика
func (s *TickScheduler) Now() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// PopDue извлекает все тики, срок которых наступил, в порядке срабатывания.
// Тики, поставленные во время обработки партии, попадают в следующие тики.
func (s *TickScheduler) PopDue() []*ScheduledTick {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*ScheduledTick
	for len(s.queue) > 0 && s.queue[0].Due <= s.now {
		item := heap.Pop(&s.queue).(*ScheduledTick)
		key := tickKey{pos: item.Pos, t: item.Type}
		if s.pending[key] <= 1 {
			delete(s.pending, key)
		} else {
			s.pending[key]--
		}
		due = append(due, item)
	}
	return due
}

// Len возвращает число ожидающих тиков
func (s *TickScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}
