package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
)

type fakeRunner struct {
	mu      sync.Mutex
	ran     []uuid.UUID
	pending []uuid.UUID
	done    chan uuid.UUID
	panicOn uuid.UUID
}

func (f *fakeRunner) RunAnalysis(ctx context.Context, id uuid.UUID) error {
	if id == f.panicOn {
		panic("boom")
	}
	f.mu.Lock()
	f.ran = append(f.ran, id)
	f.mu.Unlock()
	f.done <- id
	return errors.New("ignored")
}

func (f *fakeRunner) Recoverable(ctx context.Context, staleAfter time.Duration) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.pending
	f.pending = nil
	return out, nil
}

func TestQueueEnqueueNeverBlocks(t *testing.T) {
	q := NewQueue(1)
	if !q.Enqueue(uuid.New()) {
		t.Fatalf("first enqueue rejected")
	}
	if q.Enqueue(uuid.New()) {
		t.Fatalf("full queue accepted a job")
	}
	if q.Len() != 1 {
		t.Fatalf("len=%d", q.Len())
	}
}

func TestWorkerRunsQueuedAndRecoveredJobs(t *testing.T) {
	t.Setenv("TEMPLATE_WORKERS", "2")
	t.Setenv("TEMPLATE_SWEEP_INTERVAL", "0")

	recovered := uuid.New()
	bad := uuid.New()
	runner := &fakeRunner{pending: []uuid.UUID{recovered}, done: make(chan uuid.UUID, 4), panicOn: bad}
	q := NewQueue(8)
	w := NewWorker(logger.Nop(), q, runner)
	w.Start(context.Background())
	defer w.Stop()

	queued := uuid.New()
	q.Enqueue(bad)
	q.Enqueue(queued)

	got := map[uuid.UUID]bool{}
	deadline := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case id := <-runner.done:
			got[id] = true
		case <-deadline:
			t.Fatalf("timed out; ran=%v", got)
		}
	}
	if !got[recovered] || !got[queued] {
		t.Fatalf("unexpected jobs: %v", got)
	}
}

func TestStopWaitsForLoops(t *testing.T) {
	t.Setenv("TEMPLATE_SWEEP_INTERVAL", "0")
	w := NewWorker(logger.Nop(), NewQueue(1), &fakeRunner{done: make(chan uuid.UUID, 1)})
	w.Start(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop did not return")
	}
}
