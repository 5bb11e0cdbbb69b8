// Package render runs content generation on a bounded worker pool.
package render

import (
	"context"
	"errors"
	"sync"

	"github.com/koios/flipdot-renderer/pkg/models"
	"go.uber.org/zap"
)

// ErrPoolStopped is returned for jobs submitted after Stop
var ErrPoolStopped = errors.New("render pool is shutting down")

// Job produces one content item
type Job func(ctx context.Context) (models.Content, error)

// Result is the outcome of a Job
type Result struct {
	Content models.Content
	Err     error
}

type task struct {
	ctx    context.Context
	index  int
	run    Job
	result chan Result
}

// Pool manages a fixed set of generation workers
type Pool struct {
	workers int
	queue   chan *task
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger

	mu      sync.RWMutex
	stopped bool
}

// NewPool creates a pool with the given number of workers
func NewPool(workers int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		workers: workers,
		queue:   make(chan *task, workers*2),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}
}

// Start launches all worker goroutines
func (p *Pool) Start() {
	p.logger.Info("Starting render worker pool",
		zap.Int("workers", p.workers),
		zap.Int("queue_size", cap(p.queue)))

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop gracefully shuts down the pool. Jobs still queued are abandoned.
func (p *Pool) Stop() {
	p.logger.Info("Stopping render worker pool")
	p.cancel()

	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.queue)
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("Render worker pool stopped")
}

// Run executes jobs concurrently and returns their results in job order,
// whatever order they complete in
func (p *Pool) Run(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	pending := make([]*task, len(jobs))

	p.mu.RLock()
	for i, job := range jobs {
		if p.stopped {
			results[i].Err = ErrPoolStopped
			continue
		}
		t := &task{ctx: ctx, index: i, run: job, result: make(chan Result, 1)}
		select {
		case p.queue <- t:
			pending[i] = t
		case <-ctx.Done():
			results[i].Err = ctx.Err()
		case <-p.ctx.Done():
			results[i].Err = ErrPoolStopped
		}
	}
	p.mu.RUnlock()

	for i, t := range pending {
		if t == nil {
			continue
		}
		select {
		case r := <-t.result:
			results[i] = r
		case <-ctx.Done():
			results[i].Err = ctx.Err()
		case <-p.ctx.Done():
			results[i].Err = ErrPoolStopped
		}
	}
	return results
}

// worker is the main loop for a single worker
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("Render worker started", zap.Int("worker_id", id))

	for {
		select {
		case t, ok := <-p.queue:
			if !ok {
				p.logger.Debug("Render worker stopping (queue closed)", zap.Int("worker_id", id))
				return
			}
			p.process(id, t)
		case <-p.ctx.Done():
			p.logger.Debug("Render worker stopping (context cancelled)", zap.Int("worker_id", id))
			return
		}
	}
}

// process runs a single job. A panicking job fails only itself.
func (p *Pool) process(workerID int, t *task) {
	var r Result
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				p.logger.Error("Render job panicked",
					zap.Int("worker_id", workerID),
					zap.Int("job", t.index),
					zap.Any("panic", rec))
				r = Result{Err: errors.New("render job panicked")}
			}
		}()
		if err := t.ctx.Err(); err != nil {
			r = Result{Err: err}
			return
		}
		content, err := t.run(t.ctx)
		r = Result{Content: content, Err: err}
	}()

	t.result <- r
}
