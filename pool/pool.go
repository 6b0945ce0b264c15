package pool

import (
	"context"
)

// Pool is the operations a caller drives once a pool is running.
type Pool interface {

	// GracefulShutdown emits pool:gracefulShutdown, releases the listener
	// and ticker, releases every worker (allowing in-flight jobs to
	// finish), fails any jobs left behind by workers that did not release
	// cleanly, and terminates. It is idempotent: a call while shutdown is
	// already in progress logs and returns nil.
	GracefulShutdown(ctx context.Context, message string) error

	// ForcefulShutdown marks every worker's in-flight job failed instead
	// of waiting for it to finish. It still awaits worker release
	// settlement before failing those jobs, but does not arm an abort
	// timeout and does not escalate further on error. Safe to call after
	// GracefulShutdown; it will not double-release workers.
	ForcefulShutdown(ctx context.Context, message string) error

	// Release is a deprecated alias for GracefulShutdown(ctx, ""). It logs
	// a deprecation notice once per call before delegating.
	Release(ctx context.Context) error

	// Done closes once the pool has fully terminated.
	Done() <-chan struct{}

	// Result reports the most recently observed reset-locked tick outcome,
	// not the shutdown outcome.
	Result() error

	// AbortContext is the root cancellation token observed by workers; it
	// fires when the graceful-shutdown abort timeout elapses.
	AbortContext() context.Context

	// ID identifies this pool instance for log correlation.
	ID() string
}
