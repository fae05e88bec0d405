package metadata

import (
	"context"
	"sync"
)

// Sink receives finished records.
type Sink interface {
	Emit(ctx context.Context, record Record) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, record Record) error

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, record Record) error {
	return f(ctx, record)
}

// ChanSink delivers records on a channel, giving up when ctx is done.
type ChanSink chan<- Record

// Emit sends a clone of record on the channel.
func (c ChanSink) Emit(ctx context.Context, record Record) error {
	select {
	case c <- record.Clone():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Collector accumulates records in memory. It is safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	records []Record
}

// Emit appends a clone of record.
func (c *Collector) Emit(_ context.Context, record Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, record.Clone())
	return nil
}

// Records returns a copy of everything collected so far.
func (c *Collector) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Record, len(c.records))
	for i, r := range c.records {
		out[i] = r.Clone()
	}
	return out
}

// Len reports how many records were collected.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}
