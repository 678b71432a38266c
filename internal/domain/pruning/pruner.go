// Package pruning repairs a team that exceeds its salary budget by
// swapping its worst value player for a cheaper, well-fitting neighbour.
package pruning

import (
	"context"
	"fmt"
	"slices"

	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/playergraph"
	"github.com/okian/squad/internal/domain/scoring"
	"github.com/okian/squad/internal/domain/selection"
	"github.com/okian/squad/pkg/logger"
)

// DefaultWeights are the composite weights used to rank replacements.
var DefaultWeights = selection.Weights{Alpha: 0.7, Beta: 0.15}

// Bucket is the graph and scorer of one field group.
type Bucket struct {
	Graph  *playergraph.Graph
	Scorer scoring.Scorer
}

// Value is a player's ability per unit of salary.
type Value struct {
	ID      int64           `json:"id"`
	Group   model.RoleGroup `json:"group"`
	Ability float64         `json:"ability"`
	Salary  float64         `json:"salary"`
	Ratio   float64         `json:"ratio"`
}

// Step is the outcome of one successful prune.
type Step struct {
	Cut         model.CutCandidate `json:"cut"`
	Replacement int64              `json:"replacement"`
	Salary      float64            `json:"salary"`
	Team        model.Team         `json:"-"`
}

// Saved is how much salary the step removed.
func (s Step) Saved() float64 { return s.Cut.Salary - s.Salary }

// Option configures a Pruner.
type Option func(*Pruner)

// WithWeights overrides the replacement weights.
func WithWeights(w selection.Weights) Option {
	return func(p *Pruner) { p.weights = w }
}

// WithLogger sets the pruner logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pruner) {
		if l != nil {
			p.log = l
		}
	}
}

// Pruner performs prune steps over immutable pools.
type Pruner struct {
	defense     Bucket
	attack      Bucket
	goalkeepers []model.Goalkeeper
	byID        map[int64]model.Goalkeeper
	weights     selection.Weights
	log         logger.Logger
}

// New creates a Pruner. Goalkeepers are searched in the given order.
func New(defense, attack Bucket, goalkeepers []model.Goalkeeper, opts ...Option) (*Pruner, error) {
	p := &Pruner{
		defense:     defense,
		attack:      attack,
		goalkeepers: slices.Clone(goalkeepers),
		byID:        make(map[int64]model.Goalkeeper, len(goalkeepers)),
		weights:     DefaultWeights,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.weights.Validate(); err != nil {
		return nil, err
	}
	for _, gk := range p.goalkeepers {
		p.byID[gk.ID] = gk
	}
	return p, nil
}

func (p *Pruner) bucket(g model.RoleGroup) Bucket {
	if g == model.GroupDefense {
		return p.defense
	}
	return p.attack
}

// Values returns the ability/salary ratio of every team member, goalkeeper
// first, then defense and attack in team order.
func (p *Pruner) Values(team model.Team) ([]Value, error) {
	gk, ok := p.byID[team.Goalkeeper]
	if !ok {
		return nil, fmt.Errorf("%w: goalkeeper %d", ErrUnknownMember, team.Goalkeeper)
	}
	out := []Value{newValue(gk.ID, model.GroupGoalkeeper, scoring.MeanAbility(gk.Abilities), gk.Salary)}
	field, err := p.fieldValues(team)
	if err != nil {
		return nil, err
	}
	return append(out, field...), nil
}

func (p *Pruner) fieldValues(team model.Team) ([]Value, error) {
	var out []Value
	for _, g := range []model.RoleGroup{model.GroupDefense, model.GroupAttack} {
		b := p.bucket(g)
		for _, id := range team.Bucket(g) {
			pl, ok := b.Graph.Player(id)
			if !ok {
				return nil, fmt.Errorf("%w: %s player %d", ErrUnknownMember, g, id)
			}
			out = append(out, newValue(id, g, b.Scorer.Score(pl.Abilities), pl.Salary))
		}
	}
	return out, nil
}

func newValue(id int64, g model.RoleGroup, ability, salary float64) Value {
	v := Value{ID: id, Group: g, Ability: ability, Salary: salary}
	if salary > 0 {
		v.Ratio = ability / salary
	}
	return v
}

// Step removes the field player with the lowest ability/salary ratio and
// fills the slot with the best scoring cheaper neighbour holding the same
// exact position. The goalkeeper is only cut when the team has no field
// players. team is not modified; on success Step.Team holds the new team.
func (p *Pruner) Step(ctx context.Context, team model.Team) (Step, error) {
	if err := ctx.Err(); err != nil {
		return Step{}, fmt.Errorf("prune: %w", err)
	}
	values, err := p.fieldValues(team)
	if err != nil {
		return Step{}, err
	}
	if len(values) == 0 {
		return p.stepGoalkeeper(ctx, team)
	}

	worst := values[0]
	for _, v := range values[1:] {
		if v.Ratio < worst.Ratio || (v.Ratio == worst.Ratio && v.ID < worst.ID) {
			worst = v
		}
	}
	b := p.bucket(worst.Group)
	cutPlayer, _ := b.Graph.Player(worst.ID)
	cut := model.CutCandidate{ID: worst.ID, Group: worst.Group, Position: cutPlayer.Position, Salary: cutPlayer.Salary}

	members := team.Bucket(worst.Group)
	sub := slices.DeleteFunc(slices.Clone(members), func(id int64) bool { return id == cut.ID })
	cands := replacementCandidates(b.Graph, sub, cut)

	scored, err := selection.Evaluate(b.Graph, b.Scorer, worst.Group, p.weights, sub, cands)
	if err != nil {
		return Step{}, err
	}
	cheaper := scored[:0]
	for _, c := range scored {
		if pl, _ := b.Graph.Player(c.ID); pl.Salary < cut.Salary {
			cheaper = append(cheaper, c)
		}
	}
	best, ok := selection.Best(cheaper)
	if !ok {
		p.log.Debug(ctx, "no cheaper replacement",
			logger.Int64("cut", cut.ID),
			logger.String("position", cut.Position),
			logger.Int("candidates", len(cands)),
		)
		return Step{}, &DeadlockError{Cut: cut, Considered: len(cands)}
	}

	replacement, _ := b.Graph.Player(best.ID)
	next := team.Clone()
	bucket := next.Bucket(worst.Group)
	bucket[slices.Index(bucket, cut.ID)] = best.ID

	p.log.Debug(ctx, "pruned player",
		logger.Int64("cut", cut.ID),
		logger.Int64("replacement", best.ID),
		logger.String("group", cut.Group.String()),
		logger.Float64("saved", cut.Salary-replacement.Salary),
	)
	return Step{Cut: cut, Replacement: best.ID, Salary: replacement.Salary, Team: next}, nil
}

// replacementCandidates are neighbours of the surviving members with the
// cut player's exact position, outside the team, in ascending id order.
func replacementCandidates(g *playergraph.Graph, sub []int64, cut model.CutCandidate) []int64 {
	skip := make(map[int64]struct{}, len(sub)+1)
	skip[cut.ID] = struct{}{}
	for _, id := range sub {
		skip[id] = struct{}{}
	}
	var out []int64
	for _, id := range sub {
		for _, n := range g.Neighbors(id) {
			if _, ok := skip[n]; ok {
				continue
			}
			skip[n] = struct{}{}
			if pl, _ := g.Player(n); pl.Position == cut.Position {
				out = append(out, n)
			}
		}
	}
	slices.Sort(out)
	return out
}

func (p *Pruner) stepGoalkeeper(ctx context.Context, team model.Team) (Step, error) {
	cur, ok := p.byID[team.Goalkeeper]
	if !ok {
		return Step{}, fmt.Errorf("%w: goalkeeper %d", ErrUnknownMember, team.Goalkeeper)
	}
	cut := model.CutCandidate{ID: cur.ID, Group: model.GroupGoalkeeper, Position: "GK", Salary: cur.Salary}

	var (
		best    model.Goalkeeper
		bestAbi float64
		found   bool
	)
	for _, gk := range p.goalkeepers {
		if gk.ID == cur.ID || !(gk.Salary < cur.Salary) {
			continue
		}
		if abi := scoring.MeanAbility(gk.Abilities); !found || abi > bestAbi {
			best, bestAbi, found = gk, abi, true
		}
	}
	if !found {
		return Step{}, &DeadlockError{Cut: cut, Considered: len(p.goalkeepers) - 1}
	}
	next := team.Clone()
	next.Goalkeeper = best.ID
	p.log.Debug(ctx, "pruned goalkeeper", logger.Int64("cut", cur.ID), logger.Int64("replacement", best.ID))
	return Step{Cut: cut, Replacement: best.ID, Salary: best.Salary, Team: next}, nil
}
