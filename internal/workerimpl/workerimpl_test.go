package workerimpl

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pgvanniekerk/pgworker/job"
)

func TestWorker_NudgeWakesPollAndRunsOneCycle(t *testing.T) {
	var calls int32
	poll := func(ctx context.Context, onStart func(*job.Job)) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}

	w := New(Config{ID: "w1", Poll: poll, PollInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	if !w.Nudge() {
		t.Fatalf("expected idle worker to accept nudge")
	}

	deadline := time.After(time.Second)
	for atomic.LoadInt32(&calls) == 0 {
		select {
		case <-deadline:
			t.Fatalf("expected poll to run after nudge")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestWorker_NudgeDeclinedWhileBusy(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	poll := func(ctx context.Context, onStart func(*job.Job)) error {
		onStart(&job.Job{ID: 1})
		close(started)
		<-release
		return nil
	}

	w := New(Config{ID: "w1", Poll: poll, PollInterval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	<-started

	if w.Nudge() {
		t.Fatalf("expected busy worker to decline nudge")
	}

	j, ok := w.GetActiveJob()
	if !ok || j.ID != 1 {
		t.Fatalf("expected active job with ID 1, got %+v ok=%v", j, ok)
	}

	close(release)
}

func TestWorker_ReleaseWaitsForInFlightJobThenCompletes(t *testing.T) {
	release := make(chan struct{})
	poll := func(ctx context.Context, onStart func(*job.Job)) error {
		onStart(&job.Job{ID: 7})
		<-release
		return nil
	}

	w := New(Config{ID: "w1", Poll: poll, PollInterval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	// Let the first poll cycle begin.
	time.Sleep(10 * time.Millisecond)

	releaseDone := make(chan error, 1)
	go func() {
		releaseDone <- w.Release(context.Background())
	}()

	select {
	case <-releaseDone:
		t.Fatalf("expected Release to block while a job is in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)

	select {
	case err := <-releaseDone:
		if err != nil {
			t.Fatalf("unexpected error from Release: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Release did not complete after job finished")
	}

	select {
	case <-w.Done():
	default:
		t.Fatalf("expected Done to be closed after Release completes")
	}
}

func TestWorker_ReleaseReturnsCtxErrWhenCtxCancelledFirst(t *testing.T) {
	poll := func(ctx context.Context, onStart func(*job.Job)) error {
		onStart(&job.Job{ID: 1})
		<-ctx.Done()
		return ctx.Err()
	}

	w := New(Config{ID: "w1", Poll: poll, PollInterval: time.Millisecond})
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	w.Start(workerCtx)

	time.Sleep(10 * time.Millisecond)

	releaseCtx, cancelRelease := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancelRelease()

	err := w.Release(releaseCtx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}

	cancelWorker()
}

func TestWorker_ReleaseIsIdempotent(t *testing.T) {
	w := New(Config{ID: "w1", Poll: func(ctx context.Context, onStart func(*job.Job)) error { return nil }, PollInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	if err := w.Release(context.Background()); err != nil {
		t.Fatalf("unexpected error on first release: %v", err)
	}
	if err := w.Release(context.Background()); err != nil {
		t.Fatalf("unexpected error on second release: %v", err)
	}
}
