// Package metrics exposes Prometheus counters for identify sessions, shelf
// workers, and the page cache.
//
// Every method is safe on a nil *Metrics so components can take an optional
// metrics handle without branching. Each Metrics owns its registry; nothing
// is registered globally.
package metrics
