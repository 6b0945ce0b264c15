// Package resetlocked runs the pool's periodic sweep for jobs whose lock
// survived a crashed worker, re-opening them so another worker can pick them
// up.
package resetlocked

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pgvanniekerk/pgworker/events"
	"github.com/pgvanniekerk/pgworker/internal/jitter"
	"github.com/pgvanniekerk/pgworker/internal/pgjob"
	"github.com/pgvanniekerk/pgworker/job"
)

// Config wires a Ticker to its pool.
type Config struct {
	WithPgClient job.WithPgClient
	Schema       string
	Min, Max     time.Duration
	Source       jitter.Source
	Events       events.Sink
	Pool         any
	Logger       *slog.Logger
}

// Ticker schedules resetLockedAt sweeps with the jittered delays computed by
// jitter.ResetLockedInitial and jitter.ResetLockedNext. At most one tick is ever in flight; Stop cancels
// the pending timer but lets an in-flight tick finish, and Done reports when
// no further ticks will run.
type Ticker struct {
	cfg Config

	mu       sync.Mutex
	timer    *time.Timer
	stopped  bool
	inFlight bool
	done     chan struct{}
	doneOnce sync.Once
	lastErr  error
}

// New constructs a Ticker from cfg. Call Start to schedule the first tick.
func New(cfg Config) *Ticker {
	return &Ticker{
		cfg:  cfg,
		done: make(chan struct{}),
	}
}

// Start schedules the first tick with the initial jittered delay.
func (t *Ticker) Start() {
	delay := jitter.ResetLockedInitial(t.cfg.Max, t.source())
	t.schedule(delay)
}

// Stop cancels the pending timer. An in-flight tick is left to finish; once
// it does, Done closes.
func (t *Ticker) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	inFlight := t.inFlight
	t.mu.Unlock()

	if !inFlight {
		t.closeDone()
	}
}

// Done is closed once the ticker has stopped and any in-flight tick has
// completed.
func (t *Ticker) Done() <-chan struct{} {
	return t.done
}

// LastError reports the outcome of the most recently completed tick, or nil
// if every tick so far succeeded (or none has run yet).
func (t *Ticker) LastError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

func (t *Ticker) schedule(delay time.Duration) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.timer = time.AfterFunc(delay, t.tick)
	t.mu.Unlock()
}

func (t *Ticker) tick() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.inFlight = true
	t.mu.Unlock()

	t.emit(events.Event{Kind: events.ResetLockedStarted, Pool: t.cfg.Pool})

	err := pgjob.ResetLockedAt(context.Background(), t.cfg.WithPgClient, t.cfg.Schema)

	t.mu.Lock()
	t.lastErr = err
	t.inFlight = false
	stopped := t.stopped
	t.mu.Unlock()

	if stopped {
		if err != nil {
			t.emit(events.Event{Kind: events.ResetLockedFailure, Pool: t.cfg.Pool, Error: err})
		} else {
			t.emit(events.Event{Kind: events.ResetLockedSuccess, Pool: t.cfg.Pool})
		}
		t.closeDone()
		return
	}

	next := jitter.ResetLockedNext(t.cfg.Min, t.cfg.Max, t.source())
	if err != nil {
		if t.cfg.Logger != nil {
			t.cfg.Logger.Warn("resetlocked: tick failed, scheduling next tick as normal", "error", err)
		}
		t.emit(events.Event{Kind: events.ResetLockedFailure, Pool: t.cfg.Pool, Error: err, Delay: &next})
	} else {
		t.emit(events.Event{Kind: events.ResetLockedSuccess, Pool: t.cfg.Pool, Delay: &next})
	}

	t.schedule(next)
}

func (t *Ticker) closeDone() {
	t.doneOnce.Do(func() { close(t.done) })
}

func (t *Ticker) source() jitter.Source {
	if t.cfg.Source != nil {
		return t.cfg.Source
	}
	return jitter.DefaultSource
}

func (t *Ticker) emit(e events.Event) {
	if t.cfg.Events != nil {
		t.cfg.Events(e)
	}
}
