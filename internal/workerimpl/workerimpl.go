// Package workerimpl provides the pool's default worker.Worker: a thin
// poll-and-execute loop. Job selection, handler dispatch, and retry
// bookkeeping are all external collaborators supplied via PollFunc; this
// package only owns the wake-up loop and the bookkeeping the pool needs for
// shutdown.
package workerimpl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pgvanniekerk/pgworker/events"
	"github.com/pgvanniekerk/pgworker/job"
)

// PollFunc selects and runs at most one job per call. It reports the job it
// locked via onStart before executing it, so the worker can answer
// GetActiveJob while the job is in flight. A call with no available job
// should return nil without invoking onStart.
type PollFunc func(ctx context.Context, onStart func(*job.Job)) error

// Config wires a Worker to its pool.
type Config struct {
	ID           string
	Poll         PollFunc
	PollInterval time.Duration
	Logger       *slog.Logger
	Events       events.Sink
	Pool         any
}

// Worker is the default worker.Worker implementation: it wakes on a timer or
// a Nudge, runs one PollFunc cycle, and repeats until released.
type Worker struct {
	cfg Config

	mu        sync.Mutex
	activeJob *job.Job

	nudgeCh   chan struct{}
	releaseCh chan struct{}
	doneCh    chan struct{}

	releaseOnce sync.Once
}

// New constructs a Worker from cfg. Call Start to begin its run loop.
func New(cfg Config) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &Worker{
		cfg:       cfg,
		nudgeCh:   make(chan struct{}, 1),
		releaseCh: make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the worker's run loop in a background goroutine.
func (w *Worker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.doneCh)

	timer := time.NewTimer(w.cfg.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.releaseCh:
			return
		case <-w.nudgeCh:
		case <-timer.C:
		}

		w.pollOnce(ctx)

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(w.cfg.PollInterval)
	}
}

func (w *Worker) pollOnce(ctx context.Context) {
	if w.cfg.Poll == nil {
		return
	}

	onStart := func(j *job.Job) {
		w.mu.Lock()
		w.activeJob = j
		w.mu.Unlock()
	}

	err := w.cfg.Poll(ctx, onStart)

	w.mu.Lock()
	w.activeJob = nil
	w.mu.Unlock()

	if err != nil && w.cfg.Logger != nil {
		w.cfg.Logger.Warn("workerimpl: poll cycle failed", "worker", w.cfg.ID, "error", err)
	}
}

// Release stops the worker, allowing its in-flight job (if any) to finish
// unless ctx is cancelled first. It is idempotent.
func (w *Worker) Release(ctx context.Context) error {
	w.releaseOnce.Do(func() { close(w.releaseCh) })

	select {
	case <-w.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetActiveJob returns the job currently being processed, if any.
func (w *Worker) GetActiveJob() (*job.Job, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.activeJob == nil {
		return nil, false
	}
	return w.activeJob, true
}

// Nudge hints that new work may be available. It declines (returns false) if
// the worker is currently processing a job.
func (w *Worker) Nudge() bool {
	w.mu.Lock()
	busy := w.activeJob != nil
	w.mu.Unlock()
	if busy {
		return false
	}

	select {
	case w.nudgeCh <- struct{}{}:
		return true
	default:
		// Already has a pending nudge queued; still counts as accepted.
		return true
	}
}

// WorkerID identifies this worker for lock attribution in the jobs table.
func (w *Worker) WorkerID() string {
	return w.cfg.ID
}

// Done is closed once the worker's run loop has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.doneCh
}
