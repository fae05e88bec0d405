// Package intercept splices replacement callables into named hook points
// owned by code we do not control.
//
// A Hook holds the callable the owner invokes. Splice swaps in a replacement
// built from the original, so the replacement can delegate. Splicing the same
// hook twice is a no-op, which keeps repeated activations from stacking
// wrappers. The Gateway records which (owner, hook) pairs have been spliced.
package intercept
