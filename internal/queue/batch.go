package queue

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Batch tracks a fixed set of independent tasks and fires a completion
// callback exactly once, after every task has reached a terminal state. How
// many of them failed does not matter to the barrier.
type Batch struct {
	id        uuid.UUID
	remaining atomic.Int64
	cancelled atomic.Bool
	once      sync.Once
	onDone    func()
}

// NewBatch creates a barrier over size tasks. onDone runs exactly once, on
// the goroutine that retires the last task. A batch of size zero fires
// immediately.
func NewBatch(size int64, onDone func()) *Batch {
	b := &Batch{
		id:     uuid.New(),
		onDone: onDone,
	}
	b.remaining.Store(size)
	if size <= 0 {
		b.fire()
	}
	return b
}

// ID is the stable identifier of this batch, persisted on the sync run for
// observability.
func (b *Batch) ID() uuid.UUID {
	return b.id
}

// TaskDone retires one task. The last retirement fires the completion
// callback; further calls are a bug but must not fire it again.
func (b *Batch) TaskDone() {
	if b.remaining.Add(-1) == 0 {
		b.fire()
	}
}

// Cancel flags the batch so that not-yet-started tasks can short-circuit.
// In-flight tasks are not interrupted and still count toward completion.
func (b *Batch) Cancel() {
	b.cancelled.Store(true)
}

// Cancelled reports whether the batch has been cancelled.
func (b *Batch) Cancelled() bool {
	return b.cancelled.Load()
}

func (b *Batch) fire() {
	b.once.Do(func() {
		if b.onDone != nil {
			b.onDone()
		}
	})
}
