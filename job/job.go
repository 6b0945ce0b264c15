// Package job defines the row shape workers operate on and the scoped
// database-access contract the pool and its collaborators use to reach it.
package job

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Job is a single row of the queue's jobs table, as seen by the runtime
// core. Task-handler invocation and retry bookkeeping are peripheral
// concerns handled by the caller-supplied task registry, not by this
// package.
type Job struct {
	ID             int64
	QueueName      string
	TaskIdentifier string
	Payload        json.RawMessage
	Priority       int
	RunAt          time.Time
	Attempts       int
	MaxAttempts    int
	LastError      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LockedAt       time.Time
	LockedBy       string
}

// WithPgClient acquires a connection from pool, passes it to fn, and
// guarantees release on every exit path (including panic unwinding in fn).
type WithPgClient func(ctx context.Context, fn func(conn *pgxpool.Conn) error) error

// Scoped returns a WithPgClient bound to pgpool.
func Scoped(pgpool *pgxpool.Pool) WithPgClient {
	return func(ctx context.Context, fn func(conn *pgxpool.Conn) error) error {
		conn, err := pgpool.Acquire(ctx)
		if err != nil {
			return err
		}
		defer conn.Release()

		return fn(conn)
	}
}
