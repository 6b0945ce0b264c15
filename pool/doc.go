// Package pool is the public worker pool API: a supervisor that owns a
// fixed-size set of workers, a Listener, and a Reset-Locked Ticker, and
// drives their shared lifecycle through graceful and forceful shutdown.
//
// A Pool is constructed with New, which spawns its workers and starts its
// Listener and Ticker immediately. Unless Config.NoHandleSignals is set, the
// pool also subscribes to the process-wide signalbroker, so an OS
// termination signal drives the same shutdown path as an explicit
// GracefulShutdown call.
package pool
