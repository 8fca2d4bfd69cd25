package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/buyerdesk-backend/internal/platform/envutil"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
)

// Runner executes one queued job.
type Runner interface {
	RunAnalysis(ctx context.Context, id uuid.UUID) error
	Recoverable(ctx context.Context, staleAfter time.Duration) ([]uuid.UUID, error)
}

// Queue is a bounded in-process job queue.
type Queue struct {
	ch chan uuid.UUID
}

func NewQueue(size int) *Queue {
	if size < 1 {
		size = 64
	}
	return &Queue{ch: make(chan uuid.UUID, size)}
}

func (q *Queue) Enqueue(id uuid.UUID) bool {
	select {
	case q.ch <- id:
		return true
	default:
		return false
	}
}

func (q *Queue) Len() int { return len(q.ch) }

type Worker struct {
	log     *logger.Logger
	queue   *Queue
	runner  Runner
	workers int
	sweep   time.Duration
	stale   time.Duration

	wg   sync.WaitGroup
	stop context.CancelFunc
}

func NewWorker(baseLog *logger.Logger, queue *Queue, runner Runner) *Worker {
	workers := envutil.Int("TEMPLATE_WORKERS", 2)
	if workers < 1 {
		workers = 1
	}
	return &Worker{
		log:     baseLog.With("component", "TemplateWorker"),
		queue:   queue,
		runner:  runner,
		workers: workers,
		sweep:   envutil.Duration("TEMPLATE_SWEEP_INTERVAL", 30*time.Second),
		stale:   envutil.Duration("TEMPLATE_STALE_AFTER", 10*time.Minute),
	}
}

func (w *Worker) Start(ctx context.Context) {
	ctx, w.stop = context.WithCancel(ctx)
	w.log.Info("Starting template worker pool", "concurrency", w.workers)
	for i := 0; i < w.workers; i++ {
		workerID := i + 1
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runLoop(ctx, workerID)
		}()
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.sweepLoop(ctx)
	}()
}

// Stop cancels the loops and waits for in-flight jobs to record their outcome.
func (w *Worker) Stop() {
	if w.stop != nil {
		w.stop()
	}
	w.wg.Wait()
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case id := <-w.queue.ch:
			w.runOne(ctx, workerID, id)
		}
	}
}

func (w *Worker) runOne(ctx context.Context, workerID int, id uuid.UUID) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Template job panic", "worker_id", workerID, "template_id", id, "panic", fmt.Sprint(r))
		}
	}()
	if err := w.runner.RunAnalysis(ctx, id); err != nil {
		w.log.Debug("Template job finished with error", "worker_id", workerID, "template_id", id, "error", err)
	}
}

func (w *Worker) sweepLoop(ctx context.Context) {
	w.requeueRecoverable(ctx)
	if w.sweep <= 0 {
		return
	}
	ticker := time.NewTicker(w.sweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.requeueRecoverable(ctx)
		}
	}
}

func (w *Worker) requeueRecoverable(ctx context.Context) {
	ids, err := w.runner.Recoverable(ctx, w.stale)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Warn("Recoverable templates lookup failed", "error", err)
		}
		return
	}
	for _, id := range ids {
		if !w.queue.Enqueue(id) {
			return
		}
	}
}
