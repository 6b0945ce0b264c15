// Package pgjob holds the two SQL bodies the pool calls directly: reopening
// abandoned locks and marking jobs failed during shutdown. Job-selection and
// handler-dispatch SQL live with the caller's task registry, not here.
package pgjob

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgvanniekerk/pgworker/job"
)

// querier is the subset of *pgxpool.Conn this package needs. Extracting it
// lets tests exercise the query bodies against a fake without a live
// Postgres connection.
type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// ResetLockedAt reopens rows whose worker died mid-execution: any job still
// locked past the staleness window is released back to the queue.
func ResetLockedAt(ctx context.Context, withPgClient job.WithPgClient, schema string) error {
	return withPgClient(ctx, func(conn *pgxpool.Conn) error {
		return resetLockedAt(ctx, conn, schema)
	})
}

func resetLockedAt(ctx context.Context, q querier, schema string) error {
	query := fmt.Sprintf(
		`update %s.jobs set locked_by = null, locked_at = null where locked_at < now() - interval '4 hours'`,
		schema,
	)
	_, err := q.Exec(ctx, query)
	return err
}

// FailJobs marks jobs as failed with message, attributing the update to
// workerIDs. On success it returns every job passed in; it does not check
// which rows the update actually touched.
func FailJobs(ctx context.Context, withPgClient job.WithPgClient, schema string, workerIDs []string, jobs []*job.Job, message string) ([]*job.Job, error) {
	if len(jobs) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}

	err := withPgClient(ctx, func(conn *pgxpool.Conn) error {
		return failJobs(ctx, conn, schema, workerIDs, ids, message)
	})
	if err != nil {
		return nil, err
	}

	return jobs, nil
}

func failJobs(ctx context.Context, q querier, schema string, workerIDs []string, ids []int64, message string) error {
	query := fmt.Sprintf(
		`update %s.jobs set last_error = $1, locked_by = null, locked_at = null where id = any($2) and locked_by = any($3)`,
		schema,
	)
	_, err := q.Exec(ctx, query, message, ids, workerIDs)
	return err
}
