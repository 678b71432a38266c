package loadtest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/squad/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Sentinel kinds returned by Run.
var (
	ErrUnhealthy    = errors.New("service unhealthy")
	ErrWaitTimeout  = errors.New("compositions did not finish in time")
	ErrVerification = errors.New("verification failed")
)

// Option configures Run.
type Option func(*runner)

// WithLogger sets the logger used for progress.
func WithLogger(l logger.Logger) Option {
	return func(r *runner) {
		if l != nil {
			r.log = l
		}
	}
}

type runner struct {
	cfg    Config
	client *client
	log    logger.Logger
}

// Run executes the complete load test.
func Run(ctx context.Context, cfg Config, opts ...Option) (Stats, error) {
	if err := cfg.validate(); err != nil {
		return Stats{}, err
	}
	r := &runner{cfg: cfg, client: newClient(cfg.BaseURL, cfg.Timeout), log: logger.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	stats := Stats{StartTime: time.Now()}

	r.log.Info(ctx, "starting squad load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("requests", cfg.Requests),
		logger.Int("workers", cfg.Workers),
		logger.Float64("duplicateRate", cfg.DuplicateRate),
	)

	if err := r.client.health(ctx); err != nil {
		return stats, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}

	reqs := Generate(cfg)
	accepted, err := r.submit(ctx, reqs, &stats)
	if err != nil {
		return stats, err
	}

	results, err := r.wait(ctx, accepted)
	if err != nil {
		return stats, err
	}
	for _, c := range results {
		switch c.Status {
		case "done":
			stats.Done++
		case "budget_unattainable":
			stats.Unattainable++
		default:
			stats.RunFailed++
		}
	}

	top, err := r.client.top(ctx, cfg.TopN)
	if err != nil {
		return stats, err
	}
	if err := verify(results, top, &stats); err != nil {
		return stats, err
	}

	stats.Duration = time.Since(stats.StartTime)
	r.log.Info(ctx, "load test completed",
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("done", stats.Done),
		logger.Int("unattainable", stats.Unattainable),
		logger.Int("ranked", stats.Ranked),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// submit posts every request with a bounded worker pool and returns the
// ids the service accepted.
func (r *runner) submit(ctx context.Context, reqs []Request, stats *Stats) ([]string, error) {
	var (
		accepted, duplicate, rejected, failed atomic.Int64
		mu                                    sync.Mutex
		ids                                   []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for _, req := range reqs {
		g.Go(func() error {
			code, ack, err := r.client.submit(gctx, req)
			switch {
			case err != nil:
				failed.Add(1)
				if r.cfg.Verbose {
					r.log.Warn(gctx, "submit failed", logger.String("id", req.ID), logger.Error(err))
				}
			case code == http.StatusAccepted:
				accepted.Add(1)
				mu.Lock()
				ids = append(ids, ack.ID)
				mu.Unlock()
			case code == http.StatusOK && ack.Duplicate:
				duplicate.Add(1)
			case code == http.StatusTooManyRequests:
				rejected.Add(1)
			default:
				failed.Add(1)
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	stats.Submitted = len(reqs)
	stats.Accepted = int(accepted.Load())
	stats.Duplicate = int(duplicate.Load())
	stats.Rejected = int(rejected.Load())
	stats.Failed = int(failed.Load())
	r.log.Info(ctx, "submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
	)
	return ids, nil
}

// wait polls every accepted id until it reaches a terminal status.
func (r *runner) wait(ctx context.Context, ids []string) ([]Composition, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WaitTimeout)
	defer cancel()

	out := make([]Composition, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, id := range ids {
		g.Go(func() error {
			for {
				c, err := r.client.get(gctx, id)
				if err == nil && terminal(c.Status) {
					out[i] = c
					return nil
				}
				select {
				case <-gctx.Done():
					return fmt.Errorf("%w: %s", ErrWaitTimeout, id)
				case <-time.After(r.cfg.PollInterval):
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func terminal(status string) bool {
	return status == "done" || status == "budget_unattainable" || status == "failed"
}
