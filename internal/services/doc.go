// Package services defines shared utilities consumed by the coordinator,
// workers, and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp session ids, vendor item ids, worker stages,
//     and coordinator modes for logging.
//   - Structured error markers plus the Wrap helper that keep failure
//     messages consistent and classifiable with errors.Is.
//
// Use these helpers when wiring new lookup logic so operational behaviour
// (error handling, observability) stays uniform.
package services
