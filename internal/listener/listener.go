// Package listener owns the pool's single LISTEN/NOTIFY connection: it
// acquires one pgx connection, subscribes to the "jobs:insert" and
// "jobs:migrate" channels, and reconnects with jittered backoff whenever the
// connection drops.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgvanniekerk/pgworker/events"
	"github.com/pgvanniekerk/pgworker/internal/jitter"
	"github.com/pgvanniekerk/pgworker/job"
	"github.com/pgvanniekerk/pgworker/worker"
)

const (
	insertChannel  = "jobs:insert"
	migrateChannel = "jobs:migrate"
)

// MigrationPayload is the optional JSON body of a jobs:migrate notification.
// A malformed or empty payload is tolerated; MigrationNumber stays at zero.
type MigrationPayload struct {
	MigrationNumber int `json:"migrationNumber"`
}

// Config wires a Listener to its pool without creating an import cycle back
// into internal/pool: the pool hands down accessors instead of itself.
type Config struct {
	WithPgClient job.WithPgClient
	Logger       *slog.Logger
	Events       events.Sink
	Pool         any

	// Source drives the reconnect jitter formula; nil selects
	// jitter.DefaultSource.
	Source jitter.Source

	// Workers returns the pool's current worker slice in construction
	// order, used to find the first Worker that accepts a jobs:insert
	// nudge.
	Workers func() []worker.Worker

	// OnMigrate is invoked when a jobs:migrate notification arrives. The
	// pool uses it to set the process exit code and start a graceful
	// shutdown.
	OnMigrate func(migrationNumber int)
}

// Listener runs the connection loop described by the package doc comment.
// The zero value is not usable; construct with New.
type Listener struct {
	cfg Config

	mu       sync.Mutex
	closed   bool
	cancel   context.CancelFunc
	attempts int
}

// New constructs a Listener from cfg. Call Start to begin the connection
// loop.
func New(cfg Config) *Listener {
	return &Listener{cfg: cfg}
}

// Start launches the connection loop in a background goroutine. It returns
// immediately; the loop runs until ctx is cancelled or Release is called.
func (l *Listener) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()

	go l.run(ctx)
}

// Release idempotently tears the listener down by cancelling the connection
// loop. The goroutine that owns the connection issues a best-effort UNLISTEN
// on its way out; the connection is never touched from here, since the pump
// may still be blocked on it.
func (l *Listener) Release(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

func (l *Listener) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		l.emit(events.Event{Kind: events.PoolListenConnecting, Pool: l.cfg.Pool, Attempts: l.attempts})

		err := l.connectAndListen(ctx)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		l.emit(events.Event{Kind: events.PoolListenError, Pool: l.cfg.Pool, Attempts: l.attempts, Error: err})

		delay := jitter.Reconnect(l.attempts, l.source())
		l.attempts++

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (l *Listener) connectAndListen(ctx context.Context) error {
	return l.cfg.WithPgClient(ctx, func(conn *pgxpool.Conn) error {
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return context.Canceled
		}
		l.mu.Unlock()

		// UNLISTEN is best-effort, issued here once the pump has returned
		// so the connection is never used from two goroutines. A dropped
		// connection on the reconnect path has nothing worth unlistening.
		defer func() {
			l.mu.Lock()
			closed := l.closed
			l.mu.Unlock()
			if closed {
				_, _ = conn.Exec(context.Background(), `UNLISTEN "`+insertChannel+`"`)
			}
		}()

		if _, err := conn.Exec(ctx, `LISTEN "`+insertChannel+`"`); err != nil {
			return err
		}
		l.attempts = 0
		l.emit(events.Event{Kind: events.PoolListenSuccess, Pool: l.cfg.Pool, Client: conn})

		if _, err := conn.Exec(ctx, `LISTEN "`+migrateChannel+`"`); err != nil {
			return err
		}

		return l.pump(ctx, conn)
	})
}

func (l *Listener) pump(ctx context.Context, conn *pgxpool.Conn) error {
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.handleNotification(n)
	}
}

func (l *Listener) handleNotification(n *pgconn.Notification) {
	switch n.Channel {
	case insertChannel:
		l.nudgeFirstAccepting()
	case migrateChannel:
		l.handleMigrate(n.Payload)
	default:
		if l.cfg.Logger != nil {
			l.cfg.Logger.Warn("listener: notification on unrecognized channel", "channel", n.Channel)
		}
	}
}

func (l *Listener) nudgeFirstAccepting() {
	if l.cfg.Workers == nil {
		return
	}
	for _, w := range l.cfg.Workers() {
		if w.Nudge() {
			return
		}
	}
}

func (l *Listener) handleMigrate(payload string) {
	var p MigrationPayload
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &p); err != nil && l.cfg.Logger != nil {
			l.cfg.Logger.Warn("listener: malformed jobs:migrate payload, proceeding without a revision number", "error", err)
		}
	}

	if l.cfg.Logger != nil {
		l.cfg.Logger.Warn(fmt.Sprintf("listener: schema migration detected (revision %d), shutting down", p.MigrationNumber))
	}

	if l.cfg.OnMigrate != nil {
		l.cfg.OnMigrate(p.MigrationNumber)
	}
}

func (l *Listener) source() jitter.Source {
	if l.cfg.Source != nil {
		return l.cfg.Source
	}
	return jitter.DefaultSource
}

func (l *Listener) emit(e events.Event) {
	if l.cfg.Events != nil {
		l.cfg.Events(e)
	}
}
