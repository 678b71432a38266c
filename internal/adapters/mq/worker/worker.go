// Package worker runs queued composition requests.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/squad/internal/adapters/mq/queue"
	"github.com/okian/squad/internal/domain/composer"
	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/selection"
	"github.com/okian/squad/pkg/logger"
	"github.com/okian/squad/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultRunTimeout   = 30 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Outcome labels reported per composition.
const (
	OutcomeDone               = "done"
	OutcomeBudgetUnattainable = "budget_unattainable"
	OutcomeInfeasibleQuota    = "infeasible_quota"
	OutcomeError              = "error"
)

// Runner composes a team for one request.
type Runner interface {
	Run(ctx context.Context, req model.CompositionRequest) (composer.Report, error)
}

// Recorder tracks request status transitions.
type Recorder interface {
	Start(ctx context.Context, id string) error
	Finish(ctx context.Context, id string, report composer.Report, runErr error) error
}

// Queue defines how workers receive requests.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Request
}

// Worker processes composition requests.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current request.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue      Queue
	runner     Runner
	recorder   Recorder
	name       string
	runTimeout time.Duration

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, runner Runner, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      q,
		runner:     runner,
		recorder:   recorder,
		name:       "worker",
		runTimeout: defaultRunTimeout,
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get()
	}
	w.logger = w.logger.Named("worker")
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	requests := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case req, ok := <-requests:
			if !ok {
				return
			}
			if err := w.process(ctx, req); err != nil {
				w.logger.Error(ctx, "error processing composition", logger.String("request", req.ID), logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// process runs one request. Composition failures are stored, not returned;
// only bookkeeping failures come back as errors.
func (w *InMemoryWorker) process(ctx context.Context, req queue.Request) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	if err := w.recorder.Start(ctx, req.ID); err != nil {
		return fmt.Errorf("start %s: %w", req.ID, err)
	}

	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, w.runTimeout)
	report, runErr := w.runner.Run(runCtx, req)
	cancel()
	ms := float64(time.Since(start).Milliseconds())

	outcome := Outcome(runErr)
	metrics.RecordComposition(outcome, ms)
	metrics.RecordPruneIterations(len(report.Steps))
	switch outcome {
	case OutcomeDone:
		metrics.UpdateTeam(report.Evaluation.Cost, report.Evaluation.MeanAbility)
		w.logger.Debug(ctx, "composition stored",
			logger.String("request", req.ID),
			logger.String("run", report.RunID),
			logger.Float64("mean_ability", report.Evaluation.MeanAbility),
		)
	default:
		w.logger.Warn(ctx, "composition failed",
			logger.String("request", req.ID),
			logger.String("outcome", outcome),
			logger.Error(runErr),
		)
	}

	if err := w.recorder.Finish(ctx, req.ID, report, runErr); err != nil {
		return fmt.Errorf("finish %s: %w", req.ID, err)
	}
	return nil
}

// Outcome classifies a run error into a metrics label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeDone
	case errors.Is(err, composer.ErrBudgetUnattainable):
		return OutcomeBudgetUnattainable
	case errors.Is(err, selection.ErrInfeasibleQuota):
		return OutcomeInfeasibleQuota
	default:
		return OutcomeError
	}
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a new worker pool. A count below one uses runtime.NumCPU.
func NewPool(workerCount int, q Queue, runner Runner, recorder Recorder, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	// Options are applied to a blank worker to pick up the shared logger.
	var tmpl InMemoryWorker
	for _, opt := range opts {
		opt(&tmpl)
	}
	log := tmpl.logger
	if log == nil {
		log = logger.Get()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  log.Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, runner, recorder, wopts...)
	}
	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
