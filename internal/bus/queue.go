package bus

import (
	"context"
	"errors"
	"sync/atomic"

	"main/internal/model"
)

var (
	ErrQueueFull   = errors.New("confirmation queue full")
	ErrQueueClosed = errors.New("confirmation queue closed")
)

// Queue is the bounded, non-blocking intake for execution confirmations.
// The transport/session layer publishes; ledger workers consume.
type Queue struct {
	ch     chan *model.Confirmation
	closed uint32
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan *model.Confirmation, capacity)}
}

// TryPublish enqueues a confirmation without blocking.
func (q *Queue) TryPublish(cm *model.Confirmation) error {
	if atomic.LoadUint32(&q.closed) != 0 {
		return ErrQueueClosed
	}
	select {
	case q.ch <- cm:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops the queue from accepting new confirmations. Buffered
// confirmations are still delivered to consumers.
func (q *Queue) Close() {
	if atomic.CompareAndSwapUint32(&q.closed, 0, 1) {
		close(q.ch)
	}
}

// Run consumes confirmations until the context is done or the queue is
// closed and drained. Multiple consumers may run against one queue.
func (q *Queue) Run(ctx context.Context, handler func(*model.Confirmation)) {
	for {
		select {
		case <-ctx.Done():
			return
		case cm, ok := <-q.ch:
			if !ok {
				return
			}
			handler(cm)
		}
	}
}
