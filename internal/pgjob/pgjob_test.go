package pgjob

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pgvanniekerk/pgworker/job"
)

type fakeQuerier struct {
	gotSQL  string
	gotArgs []interface{}
	err     error
}

func (f *fakeQuerier) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	f.gotSQL = sql
	f.gotArgs = args
	return pgconn.CommandTag{}, f.err
}

func TestResetLockedAt_RunsAgainstSchema(t *testing.T) {
	q := &fakeQuerier{}
	if err := resetLockedAt(context.Background(), q, "jobqueue"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.gotSQL == "" {
		t.Fatalf("expected a query to run")
	}
}

func TestResetLockedAt_PropagatesError(t *testing.T) {
	wantErr := errors.New("connection reset")
	q := &fakeQuerier{err: wantErr}
	if err := resetLockedAt(context.Background(), q, "jobqueue"); !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestFailJobs_EmptyIsNoop(t *testing.T) {
	q := &fakeQuerier{}
	cancelled, err := failJobsFromQuerier(q, "jobqueue", nil, nil, "boom")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled != nil {
		t.Fatalf("expected no-op on empty input")
	}
}

func TestFailJobs_PassesWorkerIDsAndMessage(t *testing.T) {
	q := &fakeQuerier{}
	if err := failJobs(context.Background(), q, "jobqueue", []string{"w1"}, []int64{1, 2}, "worker crashed"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(q.gotArgs) != 3 {
		t.Fatalf("expected 3 args (message, ids, workerIDs), got %d", len(q.gotArgs))
	}
	if q.gotArgs[0] != "worker crashed" {
		t.Fatalf("expected message as first arg, got %v", q.gotArgs[0])
	}
}

// failJobsFromQuerier mirrors FailJobs' job-list handling without requiring
// a job.WithPgClient, so the empty-input short circuit is testable directly.
func failJobsFromQuerier(q querier, schema string, workerIDs []string, jobs []*job.Job, message string) ([]*job.Job, error) {
	if len(jobs) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	if err := failJobs(context.Background(), q, schema, workerIDs, ids, message); err != nil {
		return nil, err
	}
	return jobs, nil
}
