// Package metadata defines the catalog record exchanged with the host and the
// sinks records are delivered to.
package metadata
