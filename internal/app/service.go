// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	requestqueue "github.com/okian/squad/internal/adapters/mq/queue"
	workerpool "github.com/okian/squad/internal/adapters/mq/worker"
	repository "github.com/okian/squad/internal/adapters/repository"
	"github.com/okian/squad/internal/domain/composer"
	"github.com/okian/squad/internal/domain/dedupe"
	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/pkg/logger"
	"github.com/okian/squad/pkg/metrics"
)

// Sentinel kinds returned by Submit.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrInvalidRequest = errors.New("invalid composition request")
	ErrBackpressure   = errors.New("composition queue full")
)

// Publisher is notified on every status change of a composition.
type Publisher interface {
	Publish(ctx context.Context, id string, status model.Status, report composer.Report)
}

// Service implements the API dependencies for the composition service.
type Service struct {
	mu sync.RWMutex

	// Core components
	composer *composer.Composer
	params   composer.Params
	store    *repository.TreapStore
	deduper  dedupe.Deduper
	queue    requestqueue.Queue
	pool     *workerpool.Pool
	pub      Publisher

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	runTimeout  time.Duration

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the request queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the request id cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRunTimeout bounds a single composition.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.runTimeout = d
		}
	}
}

// WithPublisher streams status changes to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.pub = p
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service around a composer and its default params.
func New(c *composer.Composer, params composer.Params, opts ...Option) *Service {
	s := &Service{
		composer:    c,
		params:      params,
		workerCount: runtime.NumCPU(),
		queueSize:   1_000,
		dedupeSize:  100_000,
		runTimeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if err := s.params.Validate(); err != nil {
		return err
	}

	s.store = repository.NewTreapStore(ctx)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = requestqueue.NewInMemoryQueue(requestqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s, recorder{s},
		workerpool.WithRunTimeout(s.runTimeout),
		workerpool.WithLogger(s.logger),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "composition service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Float64("budget", s.params.Budget),
	)
	return nil
}

// Stop drains queued compositions and shuts the service down.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(ctx, "stopping composition service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	_ = s.store.Close()

	s.started = false
	s.logger.Info(ctx, "composition service stopped")
}

// Params returns the params a request with no overrides runs with.
func (s *Service) Params() composer.Params { return s.params }

// paramsFor applies request overrides to the default params.
func (s *Service) paramsFor(req model.CompositionRequest) composer.Params { //nolint:gocritic // hugeParam
	p := s.params
	if req.Alpha != nil {
		p.Weights.Alpha = *req.Alpha
	}
	if req.Beta != nil {
		p.Weights.Beta = *req.Beta
	}
	if req.Budget != nil {
		p.Budget = *req.Budget
	}
	p.DefenseSeed = req.DefenseSeed
	p.AttackSeed = req.AttackSeed
	return p
}

// Submit validates and queues a request, returning its id (generated
// when empty). A request id seen before is reported as a duplicate and
// not queued again.
func (s *Service) Submit(ctx context.Context, req model.CompositionRequest) (id string, duplicate bool, err error) { //nolint:gocritic // hugeParam
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return "", false, ErrNotStarted
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = time.Now().UTC()
	}
	if err := s.paramsFor(req).Validate(); err != nil {
		return req.ID, false, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if s.deduper.SeenAndRecord(ctx, req.ID) {
		metrics.RecordRequestDuplicate()
		return req.ID, true, nil
	}
	if err := s.store.Submit(ctx, req); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// evicted from the deduper but still stored
			metrics.RecordRequestDuplicate()
			return req.ID, true, nil
		}
		s.deduper.Unrecord(ctx, req.ID)
		return req.ID, false, err
	}
	if err := s.queue.Enqueue(ctx, req); err != nil {
		_ = s.store.Forget(ctx, req.ID)
		s.deduper.Unrecord(ctx, req.ID)
		if errors.Is(err, requestqueue.ErrFull) || errors.Is(err, requestqueue.ErrClosed) {
			return req.ID, false, fmt.Errorf("%w: %w", ErrBackpressure, err)
		}
		return req.ID, false, err
	}
	s.publish(ctx, req.ID, model.StatusPending, composer.Report{})
	return req.ID, false, nil
}

// Run implements worker.Runner.
func (s *Service) Run(ctx context.Context, req model.CompositionRequest) (composer.Report, error) { //nolint:gocritic // hugeParam
	return s.composer.Compose(ctx, s.paramsFor(req))
}

// recorder adapts the result store to worker.Recorder and publishes
// every transition.
type recorder struct {
	s *Service
}

func (r recorder) Start(ctx context.Context, id string) error {
	if err := r.s.store.Start(ctx, id); err != nil {
		return err
	}
	r.s.publish(ctx, id, model.StatusRunning, composer.Report{})
	return nil
}

func (r recorder) Finish(ctx context.Context, id string, report composer.Report, runErr error) error {
	if err := r.s.store.Finish(ctx, id, report, runErr); err != nil {
		return err
	}
	rec, err := r.s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	r.s.publish(ctx, id, rec.Status, report)
	return nil
}

func (s *Service) publish(ctx context.Context, id string, status model.Status, report composer.Report) {
	if s.pub != nil {
		s.pub.Publish(ctx, id, status, report)
	}
}

// Get returns one composition by request id.
func (s *Service) Get(ctx context.Context, id string) (repository.Record, error) {
	if err := s.ready(); err != nil {
		return repository.Record{}, err
	}
	return s.store.Get(ctx, id)
}

// TopN returns the best finished compositions.
func (s *Service) TopN(ctx context.Context, n int) ([]repository.Record, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.TopN(ctx, n)
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"budget":      s.params.Budget,
		"alpha":       s.params.Weights.Alpha,
		"beta":        s.params.Weights.Beta,
	}
	if c := s.composer.Context(); c != nil {
		stats["goalkeepers"] = len(c.Goalkeepers())
		for _, g := range []model.RoleGroup{model.GroupDefense, model.GroupAttack} {
			gr := c.Graph(g)
			stats[g.String()] = map[string]interface{}{
				"players": gr.Len(),
				"edges":   gr.EdgeCount(),
				"density": gr.Density(),
			}
		}
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		counts := s.store.Count(ctx)
		byStatus := make(map[string]int, len(counts))
		for st, n := range counts {
			byStatus[string(st)] = n
		}
		stats["queueLength"] = queueLen
		stats["compositions"] = byStatus
		stats["dedupeEntries"] = s.deduper.Size()

		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)
		metrics.UpdateSystem(mem.HeapAlloc, runtime.NumGoroutine())
	}
	return stats
}
