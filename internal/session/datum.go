package session

import (
	"context"
	"sync"
	"time"

	"shelftags/internal/metadata"
	"shelftags/internal/rendezvous"
)

// Datum is one announced item: the vendor id plus a single-slot holder for
// the companion pool's result. The ready signal fires exactly once.
//
// Ownership of the result passes to whoever reads it through Wait. If the
// datum is abandoned instead, a stored result is handed to the orphan
// handler, and a result that arrives later is refused by Fulfill so the
// producer delivers it itself.
type Datum struct {
	ID string

	mu        sync.Mutex
	ready     chan struct{}
	fulfilled bool
	taken     bool
	abandoned bool
	result    *metadata.Record
	orphan    func(metadata.Record)
}

// NewDatum creates an unfulfilled datum for id.
func NewDatum(id string) *Datum {
	return &Datum{ID: id, ready: make(chan struct{})}
}

// OnOrphan registers fn to receive a stored result that nobody took before
// Abandon. It must be set before the datum is announced.
func (d *Datum) OnOrphan(fn func(metadata.Record)) {
	d.mu.Lock()
	d.orphan = fn
	d.mu.Unlock()
}

// Fulfill stores the companion result and fires the ready signal. A nil
// record marks the item finished without a result. Only the first call on a
// datum that has not been abandoned has an effect; it reports whether this
// call won.
func (d *Datum) Fulfill(record *metadata.Record) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fulfilled || d.abandoned {
		return false
	}
	if record != nil {
		clone := record.Clone()
		d.result = &clone
	}
	d.fulfilled = true
	close(d.ready)
	return true
}

// Ready is closed once Fulfill has won.
func (d *Datum) Ready() <-chan struct{} {
	return d.ready
}

// IsReady reports whether Fulfill has won.
func (d *Datum) IsReady() bool {
	select {
	case <-d.ready:
		return true
	default:
		return false
	}
}

// Result returns the stored record. It is only meaningful once ready.
func (d *Datum) Result() (metadata.Record, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.fulfilled || d.result == nil {
		return metadata.Record{}, false
	}
	return d.result.Clone(), true
}

// Wait blocks until the datum is ready, timeout elapses, or ctx ends, and
// takes ownership of the result. A timeout <= 0 waits on ctx alone.
func (d *Datum) Wait(ctx context.Context, timeout time.Duration) (metadata.Record, bool, error) {
	if d.IsReady() {
		return d.take()
	}
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	select {
	case <-d.ready:
		return d.take()
	case <-deadline:
		return metadata.Record{}, false, rendezvous.ErrTimeout
	case <-ctx.Done():
		return metadata.Record{}, false, ctx.Err()
	}
}

func (d *Datum) take() (metadata.Record, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.abandoned || d.result == nil {
		return metadata.Record{}, false, nil
	}
	d.taken = true
	return d.result.Clone(), true, nil
}

// Abandon gives up on the datum. A result already stored and not taken goes
// to the orphan handler; a later Fulfill is refused. Abandoning twice, or
// after Wait took the result, does nothing.
func (d *Datum) Abandon() {
	d.mu.Lock()
	if d.abandoned || d.taken {
		d.mu.Unlock()
		return
	}
	d.abandoned = true
	var (
		handler func(metadata.Record)
		rec     metadata.Record
	)
	if d.fulfilled && d.result != nil {
		handler = d.orphan
		rec = d.result.Clone()
	}
	d.mu.Unlock()

	if handler != nil {
		handler(rec)
	}
}

// Abandoned reports whether Abandon has run.
func (d *Datum) Abandoned() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.abandoned
}
