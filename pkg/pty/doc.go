// Package pty allocates pseudo terminals and runs child processes on them.
//
// The lifecycle is Allocate → Spawn → use → Close. Allocate returns a PtyPair
// holding both ends of a new terminal. Spawn consumes the pair: the child end
// becomes the standard streams and controlling terminal of a new session, and
// the master end is returned as a PseudoTerminal registered with the Go
// runtime poller. Reads and writes on a PseudoTerminal park the calling
// goroutine until the descriptor is ready and never block an OS thread.
package pty
