package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vytor/openingtiers/internal/logger"
)

// ErrPoolClosed is returned by Submit after Close or Stop.
var ErrPoolClosed = errors.New("worker pool closed")

type Job interface {
	Run(context.Context) error
	Name() string
}

type Pool struct {
	jobs    chan Job
	wg      sync.WaitGroup
	workers int
	queue   int

	mu     sync.RWMutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	log    *logger.Logger
}

func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	log := logger.Default().WithPrefix("worker-pool")
	log.Debug("creating worker pool with %d workers and queue size %d", workers, queueSize)
	return &Pool{
		jobs:    make(chan Job, queueSize),
		workers: workers,
		queue:   queueSize,
		log:     log,
	}
}

// Start launches the workers. Cancelling ctx makes workers abandon queued
// jobs; a job already running sees the cancellation through its context.
// Job loggers inherit the fields of the logger carried by ctx.
func (p *Pool) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.ctx = ctx
	p.cancel = cancel
	p.log = logger.FromContext(ctx).WithPrefix("worker-pool")
	p.mu.Unlock()
	p.log.Debug("starting worker pool with %d workers", p.workers)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			workerLog := p.log.WithField("worker_id", id)

			for {
				select {
				case <-ctx.Done():
					workerLog.Debug("worker shutting down (context cancelled)")
					return
				case job, ok := <-p.jobs:
					if !ok {
						return
					}
					p.run(ctx, workerLog, job)
				}
			}
		}(i + 1)
	}
}

func (p *Pool) run(ctx context.Context, log *logger.Logger, job Job) {
	jobLog := log.WithField("job", job.Name())
	start := time.Now()

	jobCtx := logger.NewContext(ctx, jobLog)

	if err := job.Run(jobCtx); err != nil {
		jobLog.Warn("job failed after %v: %v", time.Since(start), err)
		return
	}
	jobLog.Debug("job completed in %v", time.Since(start))
}

// Submit queues job, blocking while the queue is full. It fails when ctx or
// the pool is cancelled, or after the pool was closed.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	var poolDone <-chan struct{}
	if p.ctx != nil {
		poolDone = p.ctx.Done()
	}

	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-poolDone:
		return ErrPoolClosed
	}
}

// Close stops accepting jobs and waits until the queue is drained.
func (p *Pool) Close() {
	if !p.markClosed() {
		return
	}
	p.wg.Wait()
	if p.cancel != nil {
		p.cancel()
	}
	p.log.Debug("worker pool drained")
}

// Stop cancels running jobs, drops queued ones and waits for the workers.
func (p *Pool) Stop() {
	p.log.Info("stopping worker pool")
	if p.cancel != nil {
		p.cancel()
	}
	p.markClosed()
	p.wg.Wait()
	p.log.Info("worker pool stopped")
}

func (p *Pool) markClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.closed = true
	close(p.jobs)
	return true
}

// QueueSize returns the current number of pending jobs.
func (p *Pool) QueueSize() int {
	return len(p.jobs)
}
