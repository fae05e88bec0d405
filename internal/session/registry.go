package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"shelftags/internal/rendezvous"
)

// Queue is the per-session announcement queue.
type Queue = rendezvous.Queue[*Datum]

var (
	// ErrAlreadyExists is returned by Create when a live queue is registered.
	ErrAlreadyExists = errors.New("session queue already exists")
	// ErrRemoved is returned to waiters whose session was removed first.
	ErrRemoved = errors.New("session removed")
)

type entry struct {
	queue *Queue
	// ready is closed when queue is set or the entry is removed.
	ready chan struct{}
	// attached is set once a consumer has asked for the queue.
	attached bool
	// retired holds killed queues replaced by a later Create.
	retired []*Queue
}

// live reports whether the entry holds a queue that still accepts puts.
func (e *entry) live() bool {
	return e.queue != nil && !e.queue.Closed()
}

// Registry maps session keys to announcement queues.
type Registry struct {
	mu      sync.Mutex
	entries map[*Key]*entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[*Key]*entry)}
}

// Create registers a new queue for key and hands it to anyone already
// waiting. It fails if a live queue is already registered; a queue killed by
// Close is replaced.
func (r *Registry) Create(key *Key) (*Queue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createLocked(key)
}

// Ensure returns the live queue for key, creating it if needed.
func (r *Registry) Ensure(key *Key) *Queue {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key]; ok && e.live() {
		return e.queue
	}
	q, _ := r.createLocked(key)
	return q
}

func (r *Registry) createLocked(key *Key) (*Queue, error) {
	e, ok := r.entries[key]
	if ok && e.live() {
		return nil, ErrAlreadyExists
	}
	q := rendezvous.New[*Datum]()
	if !ok {
		e = &entry{ready: make(chan struct{})}
		r.entries[key] = e
	}
	if e.queue != nil {
		// The consumer keeps draining the killed queue it already holds.
		e.retired = append(e.retired, e.queue)
		e.queue = q
		e.attached = false
		return q, nil
	}
	e.queue = q
	close(e.ready)
	return q, nil
}

// Lookup returns the live queue for key without waiting.
func (r *Registry) Lookup(key *Key) (*Queue, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key]; ok && e.live() {
		return e.queue, true
	}
	return nil, false
}

// GetOrWait returns the queue registered for key, waiting up to timeout for
// a matching Create. A queue already killed by Close is still returned so its
// buffered announcements can be drained. A timeout <= 0 waits on ctx alone.
func (r *Registry) GetOrWait(ctx context.Context, key *Key, timeout time.Duration) (*Queue, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{ready: make(chan struct{})}
		r.entries[key] = e
	}
	e.attached = true
	if e.queue != nil {
		r.mu.Unlock()
		return e.queue, nil
	}
	ready := e.ready
	r.mu.Unlock()

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case <-ready:
	case <-deadline:
		return nil, rendezvous.ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e.queue == nil {
		return nil, ErrRemoved
	}
	return e.queue, nil
}

// Remove kills the queue for key, releases pending waiters, and forgets the
// entry. Announcements still buffered are abandoned. Removing an unknown key
// is a no-op.
func (r *Registry) Remove(key *Key) {
	r.mu.Lock()
	e, ok := r.entries[key]
	if ok {
		delete(r.entries, key)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	if e.queue == nil {
		close(e.ready)
		return
	}
	e.queue.Kill()
	abandonBuffered(e.queue)
	for _, q := range e.retired {
		abandonBuffered(q)
	}
}

// Close is the producer's end-of-session signal. It kills the live queue so
// the consumer's drain ends. When no consumer ever attached, the entry is
// removed as well and buffered announcements are abandoned.
func (r *Registry) Close(key *Key) {
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok || e.queue == nil {
		r.mu.Unlock()
		return
	}
	orphaned := !e.attached
	if orphaned {
		delete(r.entries, key)
	}
	r.mu.Unlock()

	e.queue.Kill()
	if orphaned {
		abandonBuffered(e.queue)
		for _, q := range e.retired {
			abandonBuffered(q)
		}
	}
}

func abandonBuffered(q *Queue) {
	for {
		d, ok, err := q.Get(context.Background(), 0)
		if err != nil || !ok {
			return
		}
		if d != nil {
			d.Abandon()
		}
	}
}

// Len reports how many sessions are registered, pending ones included.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
