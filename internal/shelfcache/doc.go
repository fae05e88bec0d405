// Package shelfcache persists raw shelves pages in SQLite so repeated lookups
// of the same vendor item skip the network.
//
// Entries expire after a configurable TTL. Cache.Wrap decorates any
// shelves.Fetcher with read-through caching; lookup failures degrade to a
// live fetch rather than failing the worker.
package shelfcache
