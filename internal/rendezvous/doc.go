// Package rendezvous provides a bounded-lifetime FIFO queue used to hand work
// items from one goroutine pool to another.
//
// A Queue starts open and is closed exactly once by Kill. Closing wakes every
// blocked reader, but items buffered before the close are still delivered:
// readers drain the buffer first and only then observe the closed state.
// Put after Kill is a programming error reported as ErrClosed.
package rendezvous
