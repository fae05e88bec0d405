package config

import (
	"errors"
	"sync/atomic"
)

// Store holds the active configuration. Readers take snapshots that never
// change underneath them; writers swap in a fully validated replacement.
type Store struct {
	current atomic.Pointer[Config]
	version atomic.Uint64
}

// NewStore returns a store seeded with cfg, or the defaults when cfg is nil.
func NewStore(cfg *Config) *Store {
	s := &Store{}
	if cfg == nil {
		def := Default()
		cfg = &def
	}
	s.current.Store(cfg.Clone())
	return s
}

// Snapshot returns a deep copy of the active configuration.
func (s *Store) Snapshot() *Config {
	return s.current.Load().Clone()
}

// Version increments on every successful Apply.
func (s *Store) Version() uint64 {
	return s.version.Load()
}

// Apply normalizes and validates cfg, then makes a copy of it the active
// configuration. Sessions that already took a snapshot are unaffected.
func (s *Store) Apply(cfg *Config) error {
	if cfg == nil {
		return errors.New("apply config: nil config")
	}
	next := cfg.Clone()
	if err := next.normalize(); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	s.current.Store(next)
	s.version.Add(1)
	return nil
}
