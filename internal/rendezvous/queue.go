package rendezvous

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrClosed is returned by Put once the queue has been killed.
	ErrClosed = errors.New("rendezvous queue closed")
	// ErrTimeout is returned by Get when nothing arrived before the deadline.
	ErrTimeout = errors.New("rendezvous queue timeout")
)

// Queue is a FIFO queue with a terminal closed state.
type Queue[T any] struct {
	mu      sync.Mutex
	items   []T
	closed  bool
	waiters []chan struct{}
}

// New returns an open, empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Put appends item and wakes one waiting reader.
func (q *Queue[T]) Put(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.items = append(q.items, item)
	q.wakeOneLocked()
	return nil
}

// Get returns the next item. When the queue is closed and drained it returns
// ok=false with a nil error. A timeout <= 0 waits without a deadline; ctx
// cancellation is always honoured.
func (q *Queue[T]) Get(ctx context.Context, timeout time.Duration) (T, bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		q.mu.Lock()
		if item, ok := q.popLocked(); ok {
			q.mu.Unlock()
			return item, true, nil
		}
		if q.closed {
			q.mu.Unlock()
			var zero T
			return zero, false, nil
		}
		wake := make(chan struct{}, 1)
		q.waiters = append(q.waiters, wake)
		q.mu.Unlock()

		select {
		case <-wake:
			continue
		case <-deadline:
			if item, ok, done := q.abandon(wake); done {
				return item, ok, nil
			}
			var zero T
			return zero, false, ErrTimeout
		case <-ctx.Done():
			if item, ok, done := q.abandon(wake); done {
				return item, ok, nil
			}
			var zero T
			return zero, false, ctx.Err()
		}
	}
}

// abandon unregisters a waiter that is giving up. If data or a close arrived
// in the meantime it is returned (done=true) instead of being lost.
func (q *Queue[T]) abandon(wake chan struct{}) (T, bool, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeWaiterLocked(wake)
	if item, ok := q.popLocked(); ok {
		return item, true, true
	}
	var zero T
	if q.closed {
		return zero, false, true
	}
	return zero, false, false
}

// Kill closes the queue and wakes every waiting reader. It is idempotent.
func (q *Queue[T]) Kill() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	for _, w := range q.waiters {
		signal(w)
	}
	q.waiters = nil
}

// Closed reports whether Kill has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len reports the number of buffered items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) popLocked() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) > 0 {
		// Another item is ready; make sure someone is awake to take it.
		q.wakeOneLocked()
	}
	return item, true
}

func (q *Queue[T]) wakeOneLocked() {
	if len(q.waiters) == 0 {
		return
	}
	w := q.waiters[0]
	q.waiters = q.waiters[1:]
	signal(w)
}

func (q *Queue[T]) removeWaiterLocked(wake chan struct{}) {
	for i, w := range q.waiters {
		if w == wake {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return
		}
	}
}

func signal(w chan struct{}) {
	select {
	case w <- struct{}{}:
	default:
	}
}
