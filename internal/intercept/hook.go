package intercept

import "sync"

// Hook is a named, swappable callable slot.
type Hook[F any] struct {
	name string

	mu       sync.RWMutex
	current  F
	original F
	spliced  bool
}

// NewHook creates a hook that initially calls fn.
func NewHook[F any](name string, fn F) *Hook[F] {
	return &Hook[F]{name: name, current: fn, original: fn}
}

// Name returns the hook point name.
func (h *Hook[F]) Name() string {
	return h.name
}

// Func returns the callable currently installed.
func (h *Hook[F]) Func() F {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Original returns the callable installed before any splice.
func (h *Hook[F]) Original() F {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.original
}

// Splice installs build(original) in place of the current callable. It does
// nothing and returns false when the hook is already spliced.
func (h *Hook[F]) Splice(build func(original F) F) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.spliced {
		return false
	}
	h.original = h.current
	h.current = build(h.original)
	h.spliced = true
	return true
}

// Spliced reports whether a replacement is installed.
func (h *Hook[F]) Spliced() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.spliced
}

// Restore reinstates the original callable.
func (h *Hook[F]) Restore() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.spliced {
		return
	}
	h.current = h.original
	h.spliced = false
}
