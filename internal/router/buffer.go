package router

import (
	"sync"
)

// Queue is an unbounded FIFO shared by one producer (the router) and any number
// of consumers. Push never blocks, so the connection's event goroutine is never
// held up by slow bucket writes.
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	head   int
	closed bool

	pushed  int64
	popped  int64
	highLen int
}

// NewQueue creates a queue with room for hint items before it reallocates.
func NewQueue[T any](hint int) *Queue[T] {
	if hint < 0 {
		hint = 0
	}
	q := &Queue[T]{items: make([]T, 0, hint)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends item. Returns false once the queue is closed.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, item)
	q.pushed++
	if n := len(q.items) - q.head; n > q.highLen {
		q.highLen = n
	}

	q.cond.Signal()
	return true
}

// Pop removes the oldest item, waiting until one is available.
// Returns false when the queue is closed and empty.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.head == len(q.items) && !q.closed {
		q.cond.Wait()
	}
	return q.take()
}

// TryPop removes the oldest item if there is one.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.take()
}

// take must be called with the lock held.
func (q *Queue[T]) take() (T, bool) {
	var zero T
	if q.head == len(q.items) {
		return zero, false
	}

	item := q.items[q.head]
	q.items[q.head] = zero
	q.head++
	q.popped++

	// Reclaim the consumed prefix once it dominates the slice.
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}

	return item, true
}

// Close stops further pushes. Consumers still receive everything queued.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Stats returns queue statistics.
func (q *Queue[T]) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Len:     len(q.items) - q.head,
		Pushed:  q.pushed,
		Popped:  q.popped,
		HighLen: q.highLen,
	}
}

// QueueStats contains queue statistics.
type QueueStats struct {
	Len     int
	Pushed  int64
	Popped  int64
	HighLen int // Largest backlog seen
}
