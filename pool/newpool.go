package pool

import (
	"context"
	"log/slog"

	internalpool "github.com/pgvanniekerk/pgworker/internal/pool"
)

// New constructs and starts a Pool from cfg. Defaults are applied for any
// zero-valued duration field. It fails if MinResetLockedInterval exceeds
// MaxResetLockedInterval, or if the process-wide signal broker has already
// begun a shutdown (only possible when cfg.NoHandleSignals is false).
func New(cfg Config) (Pool, error) {
	resolved := cfg.withDefaults()

	if resolved.MinResetLockedInterval > resolved.MaxResetLockedInterval {
		return nil, ErrInvalidResetLockedInterval
	}

	impl, err := internalpool.New(internalpool.Config{
		Concurrency:                  resolved.Concurrency,
		NoHandleSignals:              resolved.NoHandleSignals,
		MinResetLockedInterval:       resolved.MinResetLockedInterval,
		MaxResetLockedInterval:       resolved.MaxResetLockedInterval,
		GracefulShutdownAbortTimeout: resolved.GracefulShutdownAbortTimeout,
		Logger:                       resolved.Logger,
		Events:                       resolved.Events,
		Schema:                       resolved.Schema,
		SimpleProtocol:               resolved.SimpleProtocol,
		WithPgClient:                 resolved.WithPgClient,
		Poll:                         resolved.Poll,
		PollInterval:                 resolved.PollInterval,
		Workers:                      resolved.Workers,
	})
	if err != nil {
		return nil, err
	}

	return &adapter{impl: impl, logger: resolved.Logger}, nil
}

// adapter satisfies the public Pool interface over internal/pool.Pool,
// adding the deprecated Release alias.
type adapter struct {
	impl   *internalpool.Pool
	logger *slog.Logger
}

func (a *adapter) GracefulShutdown(ctx context.Context, message string) error {
	return a.impl.GracefulShutdown(ctx, message)
}

func (a *adapter) ForcefulShutdown(ctx context.Context, message string) error {
	return a.impl.ForcefulShutdown(ctx, message)
}

func (a *adapter) Release(ctx context.Context) error {
	if a.logger != nil {
		a.logger.Warn("pool: Release is deprecated, call GracefulShutdown instead", "pool_id", a.impl.ID())
	}
	return a.impl.GracefulShutdown(ctx, "")
}

func (a *adapter) Done() <-chan struct{} {
	return a.impl.Done()
}

func (a *adapter) Result() error {
	return a.impl.Result()
}

func (a *adapter) AbortContext() context.Context {
	return a.impl.AbortContext()
}

func (a *adapter) ID() string {
	return a.impl.ID()
}
