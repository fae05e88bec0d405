// Package integration splices shelftags into a companion lookup pool.
//
// Once activated, every item the pool starts is announced on the session's
// registry queue, finished results are handed to the coordinator through the
// item's datum instead of being emitted twice, and the end of the pool's
// session closes the queue. When integration is switched off in the live
// configuration the replacements defer to the pool's original behaviour.
package integration
