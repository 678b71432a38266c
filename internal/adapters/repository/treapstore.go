package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/squad/internal/domain/composer"
	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Only StatusDone records live in the treap. Ordering: mean ability DESC,
// then id ASC. "less" means ranks earlier, so in-order traversal yields
// the best team first.

// treap node
type node struct {
	id    string
	score float64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aID) should appear before (bScore, bID).
func less(aScore float64, aID string, bScore float64, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, score float64, prio uint64) *node {
	if n == nil {
		return &node{id: id, score: score, prio: prio, size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// position returns the 1-based in-order index of (score, id), 0 if absent.
func position(n *node, score float64, id string) int {
	pos := 0
	for n != nil {
		if n.score == score && n.id == id {
			return pos + nsize(n.left) + 1
		}
		if less(score, id, n.score, n.id) {
			n = n.left
		} else {
			pos += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0
}

// collectTopN appends up to limit ids in rank order.
func collectTopN(n *node, limit int, out *[]string) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.id)
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// TreapStore keeps every record in a map and ranks finished teams in a treap.
type TreapStore struct {
	mu     sync.RWMutex
	root   *node
	byID   map[string]*Record
	counts map[model.Status]int
	now    func() time.Time

	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewTreapStore constructs a store and starts its metrics updater.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		byID:                  make(map[string]*Record),
		counts:                make(map[model.Status]int),
		now:                   time.Now,
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background goroutine.
func (s *TreapStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// Submit implements Store.Submit.
func (s *TreapStore) Submit(_ context.Context, req model.CompositionRequest) error {
	if req.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidState)
	}
	submitted := req.SubmittedAt
	if submitted.IsZero() {
		submitted = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[req.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, req.ID)
	}
	s.byID[req.ID] = &Record{
		ID:          req.ID,
		Status:      model.StatusPending,
		Request:     req,
		SubmittedAt: submitted,
	}
	s.counts[model.StatusPending]++
	return nil
}

// Start implements Store.Start.
func (s *TreapStore) Start(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.lookup(id)
	if err != nil {
		return err
	}
	if rec.Status != model.StatusPending {
		return fmt.Errorf("%w: %s is %s", ErrInvalidState, id, rec.Status)
	}
	s.move(rec, model.StatusRunning)
	return nil
}

// Finish implements Store.Finish. ErrBudgetUnattainable keeps the partial
// report but does not rank it.
func (s *TreapStore) Finish(_ context.Context, id string, report composer.Report, runErr error) error {
	status := model.StatusDone
	switch {
	case runErr == nil:
	case errors.Is(runErr, composer.ErrBudgetUnattainable):
		status = model.StatusUnattainable
	default:
		status = model.StatusFailed
	}
	score := report.Evaluation.MeanAbility
	if status == model.StatusDone && (math.IsNaN(score) || math.IsInf(score, 0)) {
		return fmt.Errorf("%w: %s has non-finite mean ability", ErrInvalidState, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.lookup(id)
	if err != nil {
		return err
	}
	if rec.Status != model.StatusRunning {
		return fmt.Errorf("%w: %s is %s", ErrInvalidState, id, rec.Status)
	}
	rec.Report = report
	rec.FinishedAt = s.now()
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	s.move(rec, status)
	if status == model.StatusDone {
		s.root = insert(s.root, id, score, rand.Uint64())
	}
	return nil
}

// Forget implements Store.Forget.
func (s *TreapStore) Forget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.lookup(id)
	if err != nil {
		return err
	}
	if rec.Status != model.StatusPending {
		return fmt.Errorf("%w: %s is %s", ErrInvalidState, id, rec.Status)
	}
	s.counts[rec.Status]--
	delete(s.byID, id)
	return nil
}

// Get implements Store.Get in O(log n) for ranked records.
func (s *TreapStore) Get(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, err := s.lookup(id)
	if err != nil {
		return Record{}, err
	}
	out := *rec
	if out.Status == model.StatusDone {
		out.Rank = position(s.root, out.Report.Evaluation.MeanAbility, id)
	}
	return out, nil
}

// TopN implements Store.TopN.
func (s *TreapStore) TopN(_ context.Context, n int) ([]Record, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, min(n, nsize(s.root)))
	collectTopN(s.root, n, &ids)
	out := make([]Record, len(ids))
	for i, id := range ids {
		out[i] = *s.byID[id]
		out[i].Rank = i + 1
	}
	return out, nil
}

// Count implements Store.Count.
func (s *TreapStore) Count(_ context.Context) map[model.Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[model.Status]int, len(s.counts))
	for st, n := range s.counts {
		out[st] = n
	}
	return out
}

// lookup assumes the lock is held.
func (s *TreapStore) lookup(id string) (*Record, error) {
	rec, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

// move assumes the write lock is held.
func (s *TreapStore) move(rec *Record, to model.Status) {
	s.counts[rec.Status]--
	s.counts[to]++
	rec.Status = to
}

func (s *TreapStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics(ctx)
			}
		}
	}()
}

func (s *TreapStore) updateMetrics(ctx context.Context) {
	counts := s.Count(ctx)
	for _, st := range []model.Status{
		model.StatusPending, model.StatusRunning, model.StatusDone,
		model.StatusUnattainable, model.StatusFailed,
	} {
		metrics.UpdateStoredCompositions(string(st), counts[st])
	}
}
