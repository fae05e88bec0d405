// Package foreign models the companion lookup pool that shelftags merges
// into: an independently scheduled set of workers that resolves catalog
// items for the same vendor.
//
// The pool exposes three hook points (item start, item finish, session done)
// as intercept.Hook values. By default they do nothing but deliver results to
// the item's sink; the integration package splices replacements in to
// announce items to the session registry and hand results over for merging.
// Pool is a reference implementation driven by a Resolver.
package foreign
