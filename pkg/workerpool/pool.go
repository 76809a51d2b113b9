// Package workerpool runs background jobs (pharmacovigilance alerts) on a
// bounded set of goroutines with retry and backoff.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Task is a unit of work
type Task struct {
	ID      string
	Payload interface{}
	Context context.Context
}

// Result is the outcome of a task after all attempts
type Result struct {
	TaskID   string
	Success  bool
	Error    error
	Attempts int
}

// WorkerFunc processes one task. A nil error marks success.
type WorkerFunc func(ctx context.Context, task *Task) error

// ErrPermanent wraps errors that must not be retried
var ErrPermanent = errors.New("permanent failure")

// Permanent marks err as not retryable
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Errors returned by Submit
var (
	ErrPoolClosed = errors.New("worker pool is shutting down")
	ErrQueueFull  = errors.New("worker pool queue is full")
)

// Config holds worker pool configuration
type Config struct {
	Workers         int
	QueueSize       int
	MaxRetries      int
	RetryDelay      time.Duration
	ShutdownTimeout time.Duration
	// OnResult, if set, receives every finished task
	OnResult func(*Result)
}

// DefaultConfig suits low-volume alert fan-out
func DefaultConfig() Config {
	return Config{
		Workers:         4,
		QueueSize:       256,
		MaxRetries:      2,
		RetryDelay:      500 * time.Millisecond,
		ShutdownTimeout: 15 * time.Second,
	}
}

// Pool is a bounded worker pool
type Pool struct {
	config     Config
	workerFunc WorkerFunc
	logger     *zap.Logger

	tasks chan *Task
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc

	submitted int64
	completed int64
	failed    int64
	retried   int64
}

// New creates a new worker pool
func New(cfg Config, fn WorkerFunc, logger *zap.Logger) (*Pool, error) {
	if fn == nil {
		return nil, fmt.Errorf("worker function is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		config:     cfg,
		workerFunc: fn,
		logger:     logger,
		tasks:      make(chan *Task, cfg.QueueSize),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start launches all workers
func (p *Pool) Start() {
	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("worker pool started",
		zap.Int("workers", p.config.Workers),
		zap.Int("queue_size", p.config.QueueSize))
}

// Submit enqueues a task without blocking
func (p *Pool) Submit(task *Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		atomic.AddInt64(&p.submitted, 1)
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop drains queued tasks and waits up to ShutdownTimeout for workers
func (p *Pool) Stop() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("worker pool stopped")
		return nil
	case <-time.After(p.config.ShutdownTimeout):
		p.cancel()
		p.logger.Warn("worker pool shutdown timed out")
		return fmt.Errorf("worker pool shutdown timed out after %s", p.config.ShutdownTimeout)
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for task := range p.tasks {
		result := p.run(task)
		if result.Success {
			atomic.AddInt64(&p.completed, 1)
		} else {
			atomic.AddInt64(&p.failed, 1)
			p.logger.Error("task failed",
				zap.String("task_id", task.ID),
				zap.Int("worker_id", id),
				zap.Int("attempts", result.Attempts),
				zap.Error(result.Error))
		}
		if p.config.OnResult != nil {
			p.config.OnResult(result)
		}
	}
}

func (p *Pool) run(task *Task) *Result {
	ctx := task.Context
	if ctx == nil {
		ctx = p.ctx
	}

	var lastErr error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return &Result{TaskID: task.ID, Error: err, Attempts: attempt}
		}

		lastErr = p.workerFunc(ctx, task)
		if lastErr == nil {
			return &Result{TaskID: task.ID, Success: true, Attempts: attempt + 1}
		}
		if errors.Is(lastErr, ErrPermanent) {
			return &Result{TaskID: task.ID, Error: lastErr, Attempts: attempt + 1}
		}

		if attempt < p.config.MaxRetries {
			atomic.AddInt64(&p.retried, 1)
			select {
			case <-ctx.Done():
				return &Result{TaskID: task.ID, Error: ctx.Err(), Attempts: attempt + 1}
			case <-time.After(p.config.RetryDelay * time.Duration(attempt+1)):
			}
		}
	}

	return &Result{
		TaskID:   task.ID,
		Error:    fmt.Errorf("task failed after %d attempts: %w", p.config.MaxRetries+1, lastErr),
		Attempts: p.config.MaxRetries + 1,
	}
}

// Stats is a snapshot of pool counters
type Stats struct {
	Submitted  int64 `json:"submitted"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
	Retried    int64 `json:"retried"`
	QueueDepth int   `json:"queue_depth"`
	Workers    int   `json:"workers"`
}

// Stats returns current pool statistics
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted:  atomic.LoadInt64(&p.submitted),
		Completed:  atomic.LoadInt64(&p.completed),
		Failed:     atomic.LoadInt64(&p.failed),
		Retried:    atomic.LoadInt64(&p.retried),
		QueueDepth: len(p.tasks),
		Workers:    p.config.Workers,
	}
}
