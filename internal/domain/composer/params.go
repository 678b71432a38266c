package composer

import (
	"fmt"
	"math"

	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/position"
	"github.com/okian/squad/internal/domain/pruning"
	"github.com/okian/squad/internal/domain/selection"
)

// DefaultMaxPruneIterations bounds the prune loop.
const DefaultMaxPruneIterations = 500

// Params are the per-run knobs of a composition.
type Params struct {
	Weights            selection.Weights `json:"weights"`
	PruneWeights       selection.Weights `json:"prune_weights"`
	Budget             float64           `json:"budget"`
	DefenseQuota       position.Quota    `json:"defense_quota"`
	AttackQuota        position.Quota    `json:"attack_quota"`
	Taxonomy           position.Taxonomy `json:"-"`
	MaxPruneIterations int               `json:"max_prune_iterations"`
	// Optional seeds; the group star is used when nil.
	DefenseSeed *int64 `json:"defense_seed,omitempty"`
	AttackSeed  *int64 `json:"attack_seed,omitempty"`
}

// DefaultParams returns the params of a dataset preset.
func DefaultParams(p position.Preset) Params {
	return Params{
		Weights:            selection.Weights{Alpha: p.Alpha, Beta: p.Beta},
		PruneWeights:       pruning.DefaultWeights,
		Budget:             p.Budget,
		DefenseQuota:       p.DefenseQuota.Clone(),
		AttackQuota:        p.AttackQuota.Clone(),
		Taxonomy:           p.Taxonomy,
		MaxPruneIterations: DefaultMaxPruneIterations,
	}
}

// Quota returns the quota table of a field group.
func (p Params) Quota(g model.RoleGroup) position.Quota {
	if g == model.GroupDefense {
		return p.DefenseQuota
	}
	return p.AttackQuota
}

// Validate checks every field before any graph work starts.
func (p Params) Validate() error {
	if err := p.Weights.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	if err := p.PruneWeights.Validate(); err != nil {
		return fmt.Errorf("%w: prune: %w", ErrInvalidParams, err)
	}
	switch {
	case math.IsNaN(p.Budget) || p.Budget <= 0:
		return fmt.Errorf("%w: budget must be positive, got %v", ErrInvalidParams, p.Budget)
	case p.Taxonomy == nil:
		return fmt.Errorf("%w: missing taxonomy", ErrInvalidParams)
	case p.MaxPruneIterations <= 0:
		return fmt.Errorf("%w: max prune iterations must be positive", ErrInvalidParams)
	}
	for _, g := range []model.RoleGroup{model.GroupDefense, model.GroupAttack} {
		q := p.Quota(g)
		for fam, n := range q {
			if n < 0 {
				return fmt.Errorf("%w: negative %s quota for %s", ErrInvalidParams, g, fam)
			}
		}
		if q.Total() < g.Size() {
			return fmt.Errorf("%w: %w: %s quota %s cannot fill %d players",
				ErrInvalidParams, selection.ErrInfeasibleQuota, g, q, g.Size())
		}
	}
	return nil
}
