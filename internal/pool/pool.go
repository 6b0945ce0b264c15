// Package pool implements the worker pool supervisor: it owns N workers,
// the Listener, and the Reset-Locked Ticker, and drives the graceful and
// forceful shutdown sequences described on the public pool.Pool interface.
//
// A single mutex owns every mutable field below; pool state is mutated from
// multiple goroutines (workers, the listener, the ticker, signal fan-out),
// so every access is serialized through it rather than split across
// several locks.
package pool

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pgvanniekerk/pgworker/events"
	"github.com/pgvanniekerk/pgworker/internal/envflag"
	"github.com/pgvanniekerk/pgworker/internal/listener"
	"github.com/pgvanniekerk/pgworker/internal/resetlocked"
	"github.com/pgvanniekerk/pgworker/internal/workerimpl"
	"github.com/pgvanniekerk/pgworker/job"
	"github.com/pgvanniekerk/pgworker/signalbroker"
	"github.com/pgvanniekerk/pgworker/worker"
)

// Config is the fully-resolved configuration the pool implementation acts
// on. The public pool package applies defaults before constructing one of
// these.
type Config struct {
	Concurrency                  uint16
	NoHandleSignals              bool
	MinResetLockedInterval       time.Duration
	MaxResetLockedInterval       time.Duration
	GracefulShutdownAbortTimeout time.Duration
	Logger                       *slog.Logger
	Events                       *events.Bus
	Schema                       string
	SimpleProtocol               bool

	WithPgClient job.WithPgClient
	Poll         workerimpl.PollFunc
	PollInterval time.Duration

	// Workers, if non-nil, overrides the default worker construction
	// (internal/workerimpl driven by Poll) with a caller-supplied set.
	// Used by tests and by callers with their own Worker implementation.
	Workers []worker.Worker
}

// Pool is the internal/pool implementation of the public pool.Pool
// interface.
type Pool struct {
	id  string
	cfg Config

	mu              sync.Mutex
	workers         []worker.Worker
	active          bool
	shuttingDown    bool
	forcefulStarted bool
	terminated      bool

	abortCtx    context.Context
	abortCancel context.CancelFunc
	abortTimer  *time.Timer

	listener      *listener.Listener
	ticker        *resetlocked.Ticker
	signalRelease func()

	done       chan struct{}
	doneClosed bool
}

// New constructs a Pool from cfg, spawns its workers, starts the Listener
// and Reset-Locked Ticker, and subscribes to the Signal Broker unless
// cfg.NoHandleSignals is set. It fails if the Signal Broker has already
// begun a shutdown.
func New(cfg Config) (*Pool, error) {
	id := uuid.NewString()

	envflag.DumpConfig(cfg.Logger, cfg)

	abortCtx, abortCancel := context.WithCancel(context.Background())

	p := &Pool{
		id:          id,
		cfg:         cfg,
		active:      true,
		abortCtx:    abortCtx,
		abortCancel: abortCancel,
		done:        make(chan struct{}),
	}

	p.workers = p.buildWorkers()

	p.emit(events.Event{Kind: events.PoolCreate, Pool: p})

	p.ticker = resetlocked.New(resetlocked.Config{
		WithPgClient: cfg.WithPgClient,
		Schema:       cfg.Schema,
		Min:          cfg.MinResetLockedInterval,
		Max:          cfg.MaxResetLockedInterval,
		Events:       p.busSink(),
		Pool:         p,
		Logger:       cfg.Logger,
	})
	p.ticker.Start()

	p.listener = listener.New(listener.Config{
		WithPgClient: cfg.WithPgClient,
		Logger:       cfg.Logger,
		Events:       p.busSink(),
		Pool:         p,
		Workers:      p.snapshotWorkers,
		OnMigrate:    p.handleMigration,
	})
	p.listener.Start(context.Background())

	for _, w := range p.workers {
		if starter, ok := w.(starter); ok {
			starter.Start(p.abortCtx)
		}
	}

	if !cfg.NoHandleSignals {
		release, err := signalbroker.Subscribe(cfg.Logger, signalbroker.Sink{
			Graceful: func(message string) { _ = p.GracefulShutdown(context.Background(), message) },
			Forceful: func(message string) { _ = p.ForcefulShutdown(context.Background(), message) },
			Done:     p.Done,
		})
		if err != nil {
			p.ticker.Stop()
			_ = p.listener.Release(context.Background())
			abortCancel()
			return nil, err
		}
		p.signalRelease = release
	}

	register(p)

	go p.watchAbort()

	return p, nil
}

// watchAbort starts a graceful shutdown if the abort context fires from an
// external source before any shutdown has begun. When the abort fires from
// the graceful-shutdown timeout, shuttingDown is already set and this is a
// no-op.
func (p *Pool) watchAbort() {
	<-p.abortCtx.Done()

	p.mu.Lock()
	idle := !p.shuttingDown && !p.forcefulStarted && !p.terminated
	p.mu.Unlock()

	if idle {
		_ = p.GracefulShutdown(context.Background(), "abort signal received")
	}
}

// starter is satisfied by internal/workerimpl.Worker; custom worker.Worker
// implementations supplied via Config.Workers are not required to implement
// it and are assumed already running.
type starter interface {
	Start(ctx context.Context)
}

func (p *Pool) buildWorkers() []worker.Worker {
	if p.cfg.Workers != nil {
		return p.cfg.Workers
	}

	workers := make([]worker.Worker, p.cfg.Concurrency)
	for i := range workers {
		workers[i] = workerimpl.New(workerimpl.Config{
			ID:           uuid.NewString(),
			Poll:         p.cfg.Poll,
			PollInterval: p.cfg.PollInterval,
			Logger:       p.cfg.Logger,
			Events:       p.busSink(),
			Pool:         p,
		})
	}
	return workers
}

// ID returns the pool's identity, used for log correlation.
func (p *Pool) ID() string {
	return p.id
}

// AbortContext is the root cancellation token observed by workers; it fires
// when the graceful-shutdown abort timer elapses.
func (p *Pool) AbortContext() context.Context {
	return p.abortCtx
}

// Done closes once the pool has fully terminated.
func (p *Pool) Done() <-chan struct{} {
	return p.done
}

// Result reports the most recently observed reset-locked tick outcome, not
// the shutdown outcome.
func (p *Pool) Result() error {
	return p.ticker.LastError()
}

func (p *Pool) snapshotWorkers() []worker.Worker {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]worker.Worker, len(p.workers))
	copy(out, p.workers)
	return out
}

func (p *Pool) handleMigration(migrationNumber int) {
	setMigrationExitCode()
	if p.cfg.Logger != nil {
		p.cfg.Logger.Warn("pool: initiating graceful shutdown for schema migration", "pool_id", p.id, "migration_number", migrationNumber)
	}
	go func() { _ = p.GracefulShutdown(context.Background(), "schema migration detected") }()
}

func (p *Pool) busSink() events.Sink {
	if p.cfg.Events == nil {
		return nil
	}
	return p.cfg.Events.Emit
}

func (p *Pool) emit(e events.Event) {
	if p.cfg.Events != nil {
		p.cfg.Events.Emit(e)
	}
}
