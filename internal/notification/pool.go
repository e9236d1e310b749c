package notification

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var (
	ErrQueueFull  = errors.New("notification queue is full")
	ErrPoolClosed = errors.New("notification pool is shut down")
)

type job struct {
	msg Message
}

type worker struct {
	id         int
	workerPool chan chan job
	jobChannel chan job
	logger     *slog.Logger
}

func newWorker(id int, workerPool chan chan job, logger *slog.Logger) *worker {
	return &worker{
		id:         id,
		workerPool: workerPool,
		jobChannel: make(chan job),
		logger:     logger,
	}
}

// start registers the worker for one job at a time until quit closes, or
// until ctx is cancelled by a shutdown that ran out of time.
func (w *worker) start(ctx context.Context, quit <-chan struct{}, wg *sync.WaitGroup, process func(context.Context, job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case w.workerPool <- w.jobChannel:
			case <-quit:
				return
			case <-ctx.Done():
				return
			}

			select {
			case j := <-w.jobChannel:
				process(ctx, j)
			case <-quit:
				w.logger.Debug("notification worker shutting down", "worker_id", w.id)
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

type PoolConfig struct {
	Workers   int
	QueueSize int
}

// Pool decorates a Sender so Send only enqueues. Workers deliver in the
// background and log failures. Shutdown delivers whatever is still queued.
type Pool struct {
	sender     Sender
	logger     *slog.Logger
	jobQueue   chan job
	workerPool chan chan job
	workers    int
	quit       chan struct{}

	// ctx aborts in-flight sends when a shutdown deadline passes.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

func NewPool(sender Sender, cfg PoolConfig, logger *slog.Logger) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		sender:     sender,
		logger:     logger,
		jobQueue:   make(chan job, queueSize),
		workerPool: make(chan chan job, workers),
		workers:    workers,
		quit:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
	for i := 0; i < p.workers; i++ {
		newWorker(i, p.workerPool, p.logger).start(p.ctx, p.quit, &p.wg, p.process)
	}
	p.wg.Add(1)
	go p.dispatch()

	p.logger.Info("notification worker pool started", "workers", p.workers, "queue_size", cap(p.jobQueue))
	return p
}

// dispatch hands queued jobs to free workers until the queue is closed and
// empty, then releases the workers.
func (p *Pool) dispatch() {
	defer p.wg.Done()
	defer close(p.quit)
	for j := range p.jobQueue {
		select {
		case jobChannel := <-p.workerPool:
			select {
			case jobChannel <- j:
			case <-p.ctx.Done():
				return
			}
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Pool) process(ctx context.Context, j job) {
	if err := p.sender.Send(ctx, j.msg); err != nil {
		p.logger.Error("async notification failed", "error", err, "to", j.msg.To, "kind", j.msg.Kind, "expense_id", j.msg.ExpenseID)
	}
}

// Send enqueues msg without blocking the caller.
func (p *Pool) Send(ctx context.Context, msg Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.jobQueue <- job{msg: msg}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting messages and waits until everything already
// queued has been delivered. When ctx ends first, pending sends are aborted
// and the remaining messages are dropped.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.jobQueue)
		p.mu.Unlock()
		p.logger.Info("shutting down notification worker pool", "queued", len(p.jobQueue))
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		p.logger.Warn("notification pool stopped before the queue drained", "dropped", len(p.jobQueue))
		return ctx.Err()
	}
}
