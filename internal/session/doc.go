// Package session hands per-item announcements from a foreign lookup pool to
// the tag coordinator.
//
// Each identify run is represented by a Key compared by identity. The
// Registry maps keys to rendezvous queues of Datum values: the producer side
// creates a queue eagerly when it announces its first item, while the
// consumer side may ask first and wait (bounded) for the producer to show up.
// The two sides start independently, so neither ordering can be assumed.
//
// A Registry is an ordinary value. Wire one instance through the plugin and
// the foreign-pool integration; tests create as many as they like.
package session
