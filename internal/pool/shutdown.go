package pool

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pgvanniekerk/pgworker/events"
	"github.com/pgvanniekerk/pgworker/internal/pgjob"
	"github.com/pgvanniekerk/pgworker/job"
	"github.com/pgvanniekerk/pgworker/worker"
)

// maxConcurrentReleases bounds how many workers release at once during
// shutdown. Without this, a large-concurrency pool would fire every
// worker's Release call simultaneously, each potentially touching the same
// underlying connection pool to update job state.
const maxConcurrentReleases = 16

// GracefulShutdown runs the sequence described on the public pool.Pool
// interface's GracefulShutdown. It is idempotent: a second call while shutdown is already in
// progress logs and returns nil without doing further work.
func (p *Pool) GracefulShutdown(ctx context.Context, message string) error {
	p.mu.Lock()
	if p.shuttingDown || p.terminated {
		p.mu.Unlock()
		if p.cfg.Logger != nil {
			p.cfg.Logger.Info("pool: graceful shutdown already in progress", "pool_id", p.id)
		}
		return nil
	}
	p.shuttingDown = true
	p.mu.Unlock()

	if p.cfg.GracefulShutdownAbortTimeout > 0 {
		timer := time.AfterFunc(p.cfg.GracefulShutdownAbortTimeout, p.abortCancel)
		p.mu.Lock()
		p.abortTimer = timer
		p.mu.Unlock()
	}

	p.emit(events.Event{Kind: events.PoolGracefulShutdown, Pool: p, Message: message})

	p.deactivate()

	workers := p.snapshotWorkers()
	releaseErrs := releaseAll(ctx, workers)

	var toFailJobs []*job.Job
	var toFailWorkerIDs []string
	for i, w := range workers {
		if releaseErrs[i] == nil {
			continue
		}
		j, ok := w.GetActiveJob()
		if !ok {
			continue
		}
		toFailJobs = append(toFailJobs, j)
		toFailWorkerIDs = append(toFailWorkerIDs, w.WorkerID())
		p.emit(events.Event{Kind: events.PoolGracefulShutdownWorkerError, Pool: p, Error: releaseErrs[i], Job: j})
	}

	if len(toFailJobs) > 0 {
		cancelled, err := pgjob.FailJobs(ctx, p.cfg.WithPgClient, p.cfg.Schema, toFailWorkerIDs, toFailJobs, message)
		if err != nil {
			p.emit(events.Event{Kind: events.PoolGracefulShutdownError, Pool: p, Error: err})
			return p.ForcefulShutdown(ctx, err.Error())
		}
		if p.cfg.Logger != nil {
			p.cfg.Logger.Info("pool: failed jobs left behind by workers that did not release cleanly", "pool_id", p.id, "count", len(cancelled))
		}
	}

	p.emit(events.Event{Kind: events.PoolGracefulShutdownComplete, Pool: p})
	p.terminate()
	return nil
}

// ForcefulShutdown marks every worker's in-flight job failed instead of
// waiting for it to finish. It still awaits worker release settlement
// before calling FailJobs, rather than racing ahead of it, but does not
// arm the abort timeout and does not escalate further on error.
func (p *Pool) ForcefulShutdown(ctx context.Context, message string) error {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return nil
	}
	if p.forcefulStarted {
		p.mu.Unlock()
		if p.cfg.Logger != nil {
			p.cfg.Logger.Info("pool: forceful shutdown already in progress", "pool_id", p.id)
		}
		return nil
	}
	p.forcefulStarted = true
	p.mu.Unlock()

	p.emit(events.Event{Kind: events.PoolForcefulShutdown, Pool: p, Message: message})

	p.deactivate()

	workers := p.snapshotWorkers()
	// Release results are best-effort during forceful shutdown: every
	// worker's active job is collected regardless of whether its release
	// settled cleanly.
	releaseAll(ctx, workers)

	var toFailJobs []*job.Job
	var toFailWorkerIDs []string
	for _, w := range workers {
		j, ok := w.GetActiveJob()
		if !ok {
			continue
		}
		toFailJobs = append(toFailJobs, j)
		toFailWorkerIDs = append(toFailWorkerIDs, w.WorkerID())
	}

	if len(toFailJobs) > 0 {
		if _, err := pgjob.FailJobs(ctx, p.cfg.WithPgClient, p.cfg.Schema, toFailWorkerIDs, toFailJobs, message); err != nil {
			p.emit(events.Event{Kind: events.PoolForcefulShutdownError, Pool: p, Error: err})
			if p.cfg.Logger != nil {
				p.cfg.Logger.Error("pool: forceful shutdown failed to mark in-flight jobs failed", "pool_id", p.id, "error", err)
			}
		}
	}

	p.emit(events.Event{Kind: events.PoolForcefulShutdownComplete, Pool: p})
	p.terminate()
	return nil
}

// deactivate stops the pool's timers and listener exactly once, gating
// further reconnects and reset-locked ticks.
func (p *Pool) deactivate() {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	p.active = false
	p.mu.Unlock()

	p.ticker.Stop()
	_ = p.listener.Release(context.Background())

	p.emit(events.Event{Kind: events.PoolRelease, Pool: p})
}

// terminate removes the pool from the process-global registry, removes its
// signal-broker subscription, waits for any in-flight reset-locked tick so
// Result reflects its outcome, and resolves Done. It runs exactly once; a
// second call is logged and otherwise a no-op.
func (p *Pool) terminate() {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		if p.cfg.Logger != nil {
			p.cfg.Logger.Error("pool: terminate called more than once", "pool_id", p.id)
		}
		return
	}
	p.terminated = true
	already := p.doneClosed
	if !already {
		p.doneClosed = true
	}
	timer := p.abortTimer
	p.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}

	deregister(p)

	if p.signalRelease != nil {
		p.signalRelease()
	}

	p.ticker.Stop()
	<-p.ticker.Done()

	p.abortCancel()

	if !already {
		close(p.done)
	}
}

// releaseAll calls Release on every worker, bounding the number running
// concurrently to maxConcurrentReleases, and returns each worker's error,
// index-aligned with workers.
func releaseAll(ctx context.Context, workers []worker.Worker) []error {
	errs := make([]error, len(workers))

	weight := int64(len(workers))
	if weight > maxConcurrentReleases {
		weight = maxConcurrentReleases
	}
	if weight == 0 {
		return errs
	}
	sem := semaphore.NewWeighted(weight)

	var wg sync.WaitGroup
	for i, w := range workers {
		if err := sem.Acquire(ctx, 1); err != nil {
			errs[i] = err
			continue
		}
		wg.Add(1)
		go func(i int, w worker.Worker) {
			defer wg.Done()
			defer sem.Release(1)
			errs[i] = w.Release(ctx)
		}(i, w)
	}
	wg.Wait()

	return errs
}
