package pool

import (
	"log/slog"
	"time"

	"github.com/pgvanniekerk/pgworker/events"
	"github.com/pgvanniekerk/pgworker/internal/workerimpl"
	"github.com/pgvanniekerk/pgworker/job"
	"github.com/pgvanniekerk/pgworker/worker"
)

// Defaults applied by New when the corresponding Config field is zero.
const (
	DefaultMinResetLockedInterval       = 8 * time.Minute
	DefaultMaxResetLockedInterval       = 10 * time.Minute
	DefaultGracefulShutdownAbortTimeout = 5 * time.Second
	DefaultPollInterval                 = 2 * time.Second
)

// Config configures a Pool. Concurrency may legitimately be zero: the
// Listener and Ticker still run, there are simply no workers to nudge.
type Config struct {
	// Concurrency is the number of workers the pool spawns. Zero is valid.
	Concurrency uint16

	// NoHandleSignals, if true, keeps the pool from subscribing to the
	// process-wide signalbroker.
	NoHandleSignals bool

	// MinResetLockedInterval and MaxResetLockedInterval bound the
	// reset-locked ticker's randomized scheduling. Both must be positive
	// and Min must not exceed Max.
	MinResetLockedInterval time.Duration
	MaxResetLockedInterval time.Duration

	// GracefulShutdownAbortTimeout is how long GracefulShutdown waits
	// before firing the pool's abort signal, which transitively cancels
	// worker SQL via AbortContext.
	GracefulShutdownAbortTimeout time.Duration

	// Logger receives structured logs from the pool and its components.
	// A nil Logger disables logging, not the behavior it would have
	// logged.
	Logger *slog.Logger

	// Events, if set, receives the pool's event taxonomy.
	Events *events.Bus

	// Schema is the Postgres schema the jobs table lives in, used by the
	// reset-locked and fail-jobs queries.
	Schema string

	// SimpleProtocol documents intent for callers constructing their own
	// pgxpool.Config: when true, disable prepared statements (PgBouncer
	// transaction-pooling compatibility). The pool itself does not own
	// connection construction, so this value is carried for callers to
	// read, not acted on internally. See ApplySimpleProtocol.
	SimpleProtocol bool

	// WithPgClient is the scoped DB-connection acquisition function shared
	// by the listener, ticker, and default workers.
	WithPgClient job.WithPgClient

	// Poll drives the default worker implementation's per-cycle job
	// selection and execution. Ignored if Workers is set.
	Poll workerimpl.PollFunc

	// PollInterval is how often an idle default worker wakes on its own,
	// independent of nudges.
	PollInterval time.Duration

	// Workers, if non-nil, overrides the default worker construction with
	// a caller-supplied set of worker.Worker implementations.
	Workers []worker.Worker
}

func (c Config) withDefaults() Config {
	if c.MinResetLockedInterval <= 0 {
		c.MinResetLockedInterval = DefaultMinResetLockedInterval
	}
	if c.MaxResetLockedInterval <= 0 {
		c.MaxResetLockedInterval = DefaultMaxResetLockedInterval
	}
	if c.GracefulShutdownAbortTimeout <= 0 {
		c.GracefulShutdownAbortTimeout = DefaultGracefulShutdownAbortTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}
