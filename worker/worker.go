// Package worker declares the contract a worker pool supervises. The task
// handler invocation a concrete Worker performs is an external concern; this
// package only fixes the shape the pool needs to orchestrate one.
package worker

import (
	"context"

	"github.com/pgvanniekerk/pgworker/job"
)

// Worker consumes one job at a time and exposes the handful of operations
// the pool needs for shutdown and notification fan-out.
type Worker interface {

	// Release stops the worker, allowing its in-flight job (if any) to
	// finish unless ctx is cancelled first. It is idempotent.
	Release(ctx context.Context) error

	// GetActiveJob returns the job currently being processed, if any.
	GetActiveJob() (j *job.Job, ok bool)

	// Nudge hints that new work may be available. It returns false if the
	// worker is already busy and declines the hint.
	Nudge() bool

	// WorkerID identifies this worker for lock attribution in the jobs
	// table.
	WorkerID() string

	// Done is closed once the worker's run loop has exited.
	Done() <-chan struct{}
}
