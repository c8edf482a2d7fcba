package journal

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/yanun0323/logs"
)

var (
	ErrClosed         = errors.New("journal writer closed")
	ErrNotStarted     = errors.New("journal writer not started")
	ErrAlreadyStarted = errors.New("journal writer already started")
)

const _defaultQueueSize = 4096

// Writer drains a bounded queue of records into the store from a single
// background goroutine, so later state for a key is never persisted before
// earlier state. A storage error is treated as fatal: continuing without a
// durable journal would silently lose the accounting trail.
type Writer struct {
	store *Store
	ch    chan Record
	wg    sync.WaitGroup
	err   atomic.Value

	started uint32
	closed  uint32

	// fatalf is swapped out in tests; everywhere else a storage error
	// aborts the process.
	fatalf func(format string, args ...any)
}

// NewWriter creates a writer over the store with the given queue capacity.
func NewWriter(store *Store, queueSize int) *Writer {
	if queueSize <= 0 {
		queueSize = _defaultQueueSize
	}
	return &Writer{
		store:  store,
		ch:     make(chan Record, queueSize),
		fatalf: logs.Fatalf,
	}
}

// Start runs the writer loop in a new goroutine.
func (w *Writer) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapUint32(&w.started, 0, 1) {
		return ErrAlreadyStarted
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
	return nil
}

// Append enqueues a record, blocking while the queue is full. Mutations are
// accepted in apply order from inside the manager's critical section, which
// keeps per-key write ordering.
func (w *Writer) Append(rec Record) error {
	if atomic.LoadUint32(&w.closed) != 0 {
		return ErrClosed
	}
	if atomic.LoadUint32(&w.started) == 0 {
		return ErrNotStarted
	}
	if err := w.Err(); err != nil {
		return err
	}
	w.ch <- rec
	return nil
}

// Close stops the writer and waits for buffered records to persist.
func (w *Writer) Close() error {
	if atomic.CompareAndSwapUint32(&w.closed, 0, 1) {
		close(w.ch)
	}
	w.wg.Wait()
	return w.Err()
}

// Err returns the first storage error observed by the writer, if any.
func (w *Writer) Err() error {
	if v := w.err.Load(); v != nil {
		return v.(error)
	}
	return nil
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drainNonBlocking()
			return
		case rec, ok := <-w.ch:
			if !ok {
				return
			}
			if !w.persist(rec) {
				return
			}
		}
	}
}

func (w *Writer) drainNonBlocking() {
	for {
		select {
		case rec, ok := <-w.ch:
			if !ok {
				return
			}
			if !w.persist(rec) {
				return
			}
		default:
			return
		}
	}
}

func (w *Writer) persist(rec Record) bool {
	if err := w.store.Append(&rec); err != nil {
		w.setErr(err)
		w.fatalf("journal write failed: %v", err)
		return false
	}
	return true
}

func (w *Writer) setErr(err error) {
	if err == nil {
		return
	}
	if w.err.Load() != nil {
		return
	}
	w.err.Store(err)
}
