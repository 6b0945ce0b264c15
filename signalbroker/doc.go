// Package signalbroker is the process-wide singleton that multiplexes OS
// termination signals across every live worker pool in the process.
//
// A pool that wants signal-driven shutdown calls Subscribe once; the first
// subscriber in the process installs the OS handlers, later subscribers
// reuse them. The first signal received fans out a graceful-shutdown intent
// to every subscriber and arms a 5-second escalation timer; a second signal
// (or the timer firing first) fans out a forceful-shutdown intent instead.
// Both latches are one-shot per process: once set, new Subscribe calls fail
// with ErrAlreadyShuttingDown.
package signalbroker
