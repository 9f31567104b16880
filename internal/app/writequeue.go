package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/mediadb/internal/metrics"
)

// ErrQueueClosed is returned by writes submitted after Close.
var ErrQueueClosed = errors.New("write queue closed")

type writeJob struct {
	ctx  context.Context
	name string
	fn   func(ctx context.Context) error
	done chan error
}

// WriteQueue serializes every store write through one goroutine. Jobs run
// in submission order, at most one at a time. Reads do not go through the
// queue; WAL mode lets them run beside the single writer.
type WriteQueue struct {
	jobs    chan writeJob
	logger  *zap.Logger
	metrics *metrics.Metrics

	// mu guards closed and the sender count; it is never held across a send.
	mu      sync.Mutex
	closed  bool
	closing chan struct{}
	senders sync.WaitGroup

	hooksMu    sync.Mutex
	afterWrite []func()

	wg sync.WaitGroup
}

// NewWriteQueue starts the writer goroutine. backlog bounds how many jobs
// may wait before Write blocks.
func NewWriteQueue(logger *zap.Logger, m *metrics.Metrics, backlog int) *WriteQueue {
	if backlog < 1 {
		backlog = 1
	}
	q := &WriteQueue{
		jobs:    make(chan writeJob, backlog),
		closing: make(chan struct{}),
		logger:  logger,
		metrics: m,
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// AfterWrite registers a hook run on the writer goroutine after every
// successful job.
func (q *WriteQueue) AfterWrite(fn func()) {
	q.hooksMu.Lock()
	defer q.hooksMu.Unlock()
	q.afterWrite = append(q.afterWrite, fn)
}

// Write submits fn and blocks until it has run, so a caller that returns
// from Write reads its own write. A job whose context is cancelled before
// it starts is dropped with the context error. A caller still waiting for
// room in the backlog when Close is called gets ErrQueueClosed.
func (q *WriteQueue) Write(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	job := writeJob{ctx: ctx, name: name, fn: fn, done: make(chan error, 1)}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.senders.Add(1)
	q.mu.Unlock()

	select {
	case q.jobs <- job:
		q.metrics.WriteQueueDepth.Inc()
		q.senders.Done()
	case <-q.closing:
		q.senders.Done()
		return ErrQueueClosed
	case <-ctx.Done():
		q.senders.Done()
		return ctx.Err()
	}

	return <-job.done
}

// Close stops accepting jobs, drains the ones already queued and waits for
// the writer to exit.
func (q *WriteQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.closing)
	q.mu.Unlock()

	// jobs closes only once no sender can still write to it
	q.senders.Wait()
	close(q.jobs)
	q.wg.Wait()
}

func (q *WriteQueue) run() {
	defer q.wg.Done()
	for job := range q.jobs {
		q.metrics.WriteQueueDepth.Dec()
		job.done <- q.execute(job)
	}
}

func (q *WriteQueue) execute(job writeJob) error {
	if err := job.ctx.Err(); err != nil {
		q.metrics.WriteJobs.WithLabelValues(job.name, "cancelled").Inc()
		return err
	}

	start := time.Now()
	err := job.fn(job.ctx)
	elapsed := time.Since(start)

	if err != nil {
		q.metrics.WriteJobs.WithLabelValues(job.name, "error").Inc()
		q.logger.Error("write job failed",
			zap.String("job", job.name),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return err
	}

	q.metrics.WriteJobs.WithLabelValues(job.name, "ok").Inc()
	q.logger.Debug("write job done", zap.String("job", job.name), zap.Duration("elapsed", elapsed))

	q.hooksMu.Lock()
	hooks := q.afterWrite
	q.hooksMu.Unlock()
	for _, hook := range hooks {
		hook()
	}
	return nil
}
