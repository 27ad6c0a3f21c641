// Package pool runs one unit of work per chromosome on a bounded set of
// workers and collects the results in submission order.
package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrOperationCancelled is returned when a run was cancelled. No partial
	// results are returned with it.
	ErrOperationCancelled = errors.New("operation cancelled")

	// ErrOperationFailed matches the error of a run in which a task failed.
	ErrOperationFailed = errors.New("operation failed")
)

// OperationError carries the first task error of a failed run.
type OperationError struct {
	Chromosome string
	Index      int
	Err        error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation on %s failed: %v", e.Chromosome, e.Err)
}

func (e *OperationError) Unwrap() []error { return []error{ErrOperationFailed, e.Err} }

// State is the lifecycle state of one Submit call.
type State int

const (
	Idle State = iota
	Running
	Completed
	Cancelled
	Failed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Pool bounds how many tasks run at once across every concurrent Submit.
// It keeps no chromosome state and may be shared by independent callers.
type Pool struct {
	parallelism int
	sem         *semaphore.Weighted
	logger      *zap.Logger

	mu   sync.Mutex
	runs map[*run]struct{}
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger for run summaries.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pool) { p.logger = l }
}

// New creates a pool running at most parallelism tasks at once. A value <= 0
// selects runtime.NumCPU().
func New(parallelism int, opts ...Option) *Pool {
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	p := &Pool{
		parallelism: parallelism,
		sem:         semaphore.NewWeighted(int64(parallelism)),
		logger:      zap.NewNop(),
		runs:        make(map[*run]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parallelism returns the worker budget.
func (p *Pool) Parallelism() int { return p.parallelism }

// Cancel asks every active run to stop. Tasks observe it through
// Job.Stopped; their runs return ErrOperationCancelled.
func (p *Pool) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for r := range p.runs {
		r.cancelled.Store(true)
		r.stop.Store(true)
		r.cancel()
	}
}

func (p *Pool) register(r *run) {
	p.mu.Lock()
	p.runs[r] = struct{}{}
	p.mu.Unlock()
}

func (p *Pool) unregister(r *run) {
	p.mu.Lock()
	delete(p.runs, r)
	p.mu.Unlock()
}

type run struct {
	stop      atomic.Bool
	cancelled atomic.Bool
	cancel    context.CancelFunc
	progress  chan struct{}
}

// Job is the handle a task uses to cooperate with its run.
type Job struct {
	Chromosome string
	Index      int
	run        *run
}

// Stopped reports whether the run was cancelled or failed. Long loops must
// check it on every iteration and return early when it is set.
func (j *Job) Stopped() bool { return j.run.stop.Load() }

// NotifyProgress reports that the task finished its unit of work. It never
// blocks; notifications beyond one per task may be dropped.
func (j *Job) NotifyProgress() {
	select {
	case j.run.progress <- struct{}{}:
	default:
	}
}

// Task is one unit of work, normally one chromosome.
type Task[R any] struct {
	Chromosome string
	Run        func(*Job) (R, error)
}

type submitConfig struct {
	progress func(done, total int)
	observer func(State)
}

// SubmitOption configures one Submit call.
type SubmitOption func(*submitConfig)

// WithProgress registers a callback invoked after each NotifyProgress. It
// runs on a separate goroutine and should return quickly.
func WithProgress(fn func(done, total int)) SubmitOption {
	return func(c *submitConfig) { c.progress = fn }
}

// WithStateObserver registers a callback receiving each state transition.
func WithStateObserver(fn func(State)) SubmitOption {
	return func(c *submitConfig) { c.observer = fn }
}

// Submit runs tasks on p and blocks until all complete, one fails, or the run
// is cancelled through ctx or p.Cancel. Results are in task order.
func Submit[R any](ctx context.Context, p *Pool, tasks []Task[R], opts ...SubmitOption) ([]R, error) {
	var cfg submitConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	setState := func(s State) {
		if cfg.observer != nil {
			cfg.observer(s)
		}
	}
	setState(Idle)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	r := &run{cancel: cancel, progress: make(chan struct{}, max(len(tasks), 1))}
	p.register(r)
	defer p.unregister(r)

	g, gctx := errgroup.WithContext(runCtx)
	stopWatch := context.AfterFunc(gctx, func() { r.stop.Store(true) })
	defer stopWatch()

	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		done := 0
		for range r.progress {
			done++
			if cfg.progress != nil {
				cfg.progress(done, len(tasks))
			}
		}
	}()

	setState(Running)
	start := time.Now()
	results := make([]R, len(tasks))
	for i, task := range tasks {
		g.Go(func() error {
			if err := p.sem.Acquire(gctx, 1); err != nil {
				return nil
			}
			defer p.sem.Release(1)
			if r.stop.Load() {
				return nil
			}

			res, err := task.Run(&Job{Chromosome: task.Chromosome, Index: i, run: r})
			if err != nil {
				return &OperationError{Chromosome: task.Chromosome, Index: i, Err: err}
			}
			results[i] = res
			return nil
		})
	}
	err := g.Wait()
	close(r.progress)
	<-dispatched

	switch {
	case r.cancelled.Load() || ctx.Err() != nil:
		setState(Cancelled)
		p.logger.Debug("operation cancelled",
			zap.Int("tasks", len(tasks)),
			zap.Duration("elapsed", time.Since(start)))
		return nil, ErrOperationCancelled
	case err != nil:
		setState(Failed)
		p.logger.Debug("operation failed", zap.Error(err))
		return nil, err
	}
	setState(Completed)
	p.logger.Debug("operation completed",
		zap.Int("tasks", len(tasks)),
		zap.Duration("elapsed", time.Since(start)))
	return results, nil
}
