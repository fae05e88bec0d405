// Package worker turns one vendor identifier into a tag record.
//
// A Worker walks a fixed state machine (fetching, parsing, mapping,
// thresholding, emitting) and ends either done or aborted. Failures are
// contained: they are logged and reflected in the Outcome, never returned to
// the caller, so one bad item cannot disturb its siblings.
package worker
