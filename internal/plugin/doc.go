// Package plugin is the host-facing facade: it owns the configuration store,
// the default shelves collaborators, the session registry, and the
// coordinator, and exposes identify plus the configuration accessors the host
// settings surface needs.
package plugin
