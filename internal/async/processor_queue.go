package async

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/joseph-ayodele/invoice-checker/internal/common"
)

// ProcessorQueue is a fixed-size worker pool. Each job runs on one worker from start to end.
type ProcessorQueue struct {
	handler Handler
	logger  *slog.Logger
	workers int
	timeout time.Duration
	grace   time.Duration

	ch      chan Job
	quit    chan struct{}
	wg      sync.WaitGroup // workers
	senders sync.WaitGroup // Enqueue calls in flight
	once    sync.Once

	base   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

// WithJobTimeout bounds one job; zero leaves jobs bounded only by the tool timeouts.
func WithJobTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithShutdownGrace sets how long Shutdown waits before cancelling in-flight jobs.
func WithShutdownGrace(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.grace = d
		}
	}
}

func NewProcessorQueue(h Handler, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		handler: h,
		logger:  logger,
		workers: runtime.NumCPU(),
		grace:   5 * time.Second,
		ch:      make(chan Job, 256),
		quit:    make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.base, q.cancel = context.WithCancel(context.Background())
	q.start()
	return q
}

func (q *ProcessorQueue) Workers() int { return q.workers }

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	ctx := common.WithJobID(common.WithBatchID(q.base, job.BatchID.String()), job.ID.String())
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("job panicked", "worker_id", workerID, "job_id", job.ID, "path", job.Path, "panic", r)
		}
	}()

	start := time.Now()
	q.handler.Handle(ctx, job)
	q.logger.Debug("job finished",
		"worker_id", workerID,
		"job_id", job.ID,
		"path", job.Path,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// Enqueue hands job to the pool. It blocks while the buffer is full and fails once
// Shutdown has started, including while it is waiting for space.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return common.ErrShuttingDown
	}
	q.senders.Add(1)
	q.mu.Unlock()
	defer q.senders.Done()

	select {
	case q.ch <- job:
		q.logger.Debug("queued file for processing", "job_id", job.ID, "path", job.Path)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-q.quit:
		q.logger.Warn("queue shut down while waiting for space", "path", job.Path)
		return common.ErrShuttingDown
	case <-ctx.Done():
		return fmt.Errorf("enqueue %s: %w", job.Path, ctx.Err())
	}
}

// Shutdown stops accepting jobs and waits for queued and running ones. After the grace
// period in-flight jobs are cancelled (their subprocesses are killed) and allowed to finish
// as failures; ctx bounds the total wait.
func (q *ProcessorQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.quit)
	q.mu.Unlock()

	grace := time.NewTimer(q.grace)
	defer grace.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// blocked senders leave through quit; only then is ch safe to close
		q.senders.Wait()
		close(q.ch)
		q.wg.Wait()
	}()

	select {
	case <-done:
		q.cancel()
		q.logger.Info("queue drained, shutdown complete")
		return nil
	case <-grace.C:
		q.logger.Warn("grace period elapsed, cancelling in-flight jobs", "grace", q.grace)
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context, cancelling in-flight jobs")
	}
	q.cancel()

	select {
	case <-done:
		q.logger.Info("queue stopped after cancellation")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown: %w", ctx.Err())
	}
}
