// Package selection grows a role-group sub-team greedily over the
// similarity graph under position quotas.
package selection

import (
	"context"
	"fmt"
	"slices"

	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/playergraph"
	"github.com/okian/squad/internal/domain/position"
	"github.com/okian/squad/internal/domain/scoring"
	"github.com/okian/squad/pkg/logger"
)

// Request describes one greedy selection.
type Request struct {
	Graph    *playergraph.Graph
	Scorer   scoring.Scorer
	Group    model.RoleGroup
	Seed     int64
	Quota    position.Quota
	Taxonomy position.Taxonomy
	Weights  Weights
}

// Option configures a Selector.
type Option func(*Selector)

// WithLogger sets the selector logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Selector) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCandidateObserver receives the candidate set size of every step.
func WithCandidateObserver(fn func(group model.RoleGroup, n int)) Option {
	return func(s *Selector) {
		if fn != nil {
			s.observe = fn
		}
	}
}

// Selector runs greedy quota-constrained selection. It holds no per-run
// state and may be shared between goroutines.
type Selector struct {
	log     logger.Logger
	observe func(model.RoleGroup, int)
}

// NewSelector creates a Selector.
func NewSelector(opts ...Option) *Selector {
	s := &Selector{
		log:     logger.Nop(),
		observe: func(model.RoleGroup, int) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select returns group.Size() player ids starting with req.Seed. Each
// step adds the best scoring unselected neighbour of the current team whose
// position family still has quota.
func (s *Selector) Select(ctx context.Context, req Request) ([]int64, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	size := req.Group.Size()
	remaining := req.Quota.Clone()
	if remaining.Total() < size {
		return nil, &QuotaError{Group: req.Group, Remaining: remaining, Reason: "quota smaller than group size"}
	}

	seed, err := req.Graph.MustPlayer(req.Seed)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	family := req.Taxonomy.Family(seed.Position)
	if remaining[family] <= 0 {
		return nil, &QuotaError{Group: req.Group, Remaining: remaining, Reason: fmt.Sprintf("seed position %s has no quota", seed.Position)}
	}
	remaining[family]--

	selected := []int64{seed.ID}
	inTeam := map[int64]struct{}{seed.ID: {}}
	for len(selected) < size {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("select %s: %w", req.Group, err)
		}

		cands := s.candidates(req, selected, inTeam, remaining)
		s.observe(req.Group, len(cands))
		if len(cands) == 0 {
			return nil, &QuotaError{
				Group:     req.Group,
				Selected:  len(selected),
				Remaining: remaining.Clone(),
				Reason:    "no eligible neighbour",
			}
		}

		scored, err := Evaluate(req.Graph, req.Scorer, req.Group, req.Weights, selected, cands)
		if err != nil {
			return nil, err
		}
		best, _ := Best(scored)
		p, _ := req.Graph.Player(best.ID)
		remaining[req.Taxonomy.Family(p.Position)]--
		selected = append(selected, best.ID)
		inTeam[best.ID] = struct{}{}

		s.log.Debug(ctx, "selected player",
			logger.String("group", req.Group.String()),
			logger.Int64("player", best.ID),
			logger.String("position", p.Position),
			logger.Float64("score", best.Score),
			logger.Int("candidates", len(cands)),
		)
	}
	return selected, nil
}

func (s *Selector) candidates(req Request, selected []int64, inTeam map[int64]struct{}, remaining position.Quota) []int64 {
	seen := make(map[int64]struct{})
	var out []int64
	for _, id := range selected {
		for _, n := range req.Graph.Neighbors(id) {
			if _, ok := inTeam[n]; ok {
				continue
			}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			p, _ := req.Graph.Player(n)
			if remaining[req.Taxonomy.Family(p.Position)] > 0 {
				out = append(out, n)
			}
		}
	}
	slices.Sort(out)
	return out
}

func (r Request) validate() error {
	switch {
	case r.Graph == nil:
		return fmt.Errorf("%w: nil graph", ErrInvalidRequest)
	case r.Scorer == nil:
		return fmt.Errorf("%w: nil scorer", ErrInvalidRequest)
	case r.Taxonomy == nil:
		return fmt.Errorf("%w: nil taxonomy", ErrInvalidRequest)
	case r.Group != model.GroupDefense && r.Group != model.GroupAttack:
		return fmt.Errorf("%w: cannot select %s", ErrInvalidRequest, r.Group)
	}
	return r.Weights.Validate()
}

// Star picks the default seed: the highest rated player whose position
// family has quota, lowest id on ties.
func Star(g *playergraph.Graph, quota position.Quota, tx position.Taxonomy) (int64, error) {
	var (
		best  model.Player
		found bool
	)
	for _, p := range g.Players() {
		if quota[tx.Family(p.Position)] <= 0 {
			continue
		}
		if !found || p.Rating > best.Rating {
			best, found = p, true
		}
	}
	if !found {
		return 0, fmt.Errorf("%w: no player fits quota %s", ErrInfeasibleQuota, quota)
	}
	return best.ID, nil
}
