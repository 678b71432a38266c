// Package composer drives team composition through its states: seed,
// unconstrained selection, evaluation and budget pruning.
package composer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okian/squad/internal/domain/homogeneity"
	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/pruning"
	"github.com/okian/squad/internal/domain/scoring"
	"github.com/okian/squad/internal/domain/selection"
	"github.com/okian/squad/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// State is a composition state.
type State int

const (
	StateSeed State = iota
	StateUnconstrainedSelect
	StateEvaluate
	StatePrune
	StateDone
)

func (s State) String() string {
	switch s {
	case StateSeed:
		return "SEED"
	case StateUnconstrainedSelect:
		return "UNCONSTRAINED_SELECT"
	case StateEvaluate:
		return "EVALUATE"
	case StatePrune:
		return "PRUNE"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText encodes the state name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Option configures a Composer.
type Option func(*Composer)

// WithLogger sets the composer logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Composer) {
		if l != nil {
			c.log = l
		}
	}
}

// WithSelector replaces the default greedy selector.
func WithSelector(s *selection.Selector) Option {
	return func(c *Composer) {
		if s != nil {
			c.selector = s
		}
	}
}

// WithPruneObserver is called after every prune attempt with the step or
// the error that ended pruning.
func WithPruneObserver(fn func(step pruning.Step, err error)) Option {
	return func(c *Composer) {
		if fn != nil {
			c.onPrune = fn
		}
	}
}

// Composer runs compositions over an immutable Context. It is safe for
// concurrent use.
type Composer struct {
	ctx      *Context
	selector *selection.Selector
	scorers  map[model.RoleGroup]scoring.Scorer
	valuer   *pruning.Pruner
	log      logger.Logger
	onPrune  func(pruning.Step, error)
}

// New creates a Composer over c.
func New(c *Context, opts ...Option) *Composer {
	cp := &Composer{
		ctx:      c,
		selector: selection.NewSelector(),
		scorers: map[model.RoleGroup]scoring.Scorer{
			model.GroupDefense: scoring.NewCriteriaScorer(c.Criteria(model.GroupDefense)),
			model.GroupAttack:  scoring.NewCriteriaScorer(c.Criteria(model.GroupAttack)),
		},
		log:     logger.Nop(),
		onPrune: func(pruning.Step, error) {},
	}
	for _, opt := range opts {
		opt(cp)
	}
	// Values do not depend on weights, so the default pruner can rate any team.
	cp.valuer, _ = cp.pruner(pruning.DefaultWeights)
	return cp
}

// Context returns the pools the composer works over.
func (c *Composer) Context() *Context { return c.ctx }

func (c *Composer) pruner(w selection.Weights) (*pruning.Pruner, error) {
	return pruning.New(
		pruning.Bucket{Graph: c.ctx.Graph(model.GroupDefense), Scorer: c.scorers[model.GroupDefense]},
		pruning.Bucket{Graph: c.ctx.Graph(model.GroupAttack), Scorer: c.scorers[model.GroupAttack]},
		c.ctx.goalkeepers,
		pruning.WithWeights(w),
		pruning.WithLogger(c.log),
	)
}

// run carries the mutable state of one composition.
type run struct {
	id     string
	params Params
	pruner *pruning.Pruner
	team   model.Team
	seeds  map[model.RoleGroup]int64
	eval   Evaluation
	steps  []pruning.Step
	trace  []State
}

// Compose builds a team under params. On ErrBudgetUnattainable the returned
// report still describes the last team evaluated.
func (c *Composer) Compose(ctx context.Context, params Params) (Report, error) {
	start := time.Now()
	if err := params.Validate(); err != nil {
		return Report{}, err
	}
	pruner, err := c.pruner(params.PruneWeights)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	r := &run{
		id:     uuid.NewString(),
		params: params,
		pruner: pruner,
		seeds:  make(map[model.RoleGroup]int64, 2),
	}
	ctx = withRunID(ctx, r.id)
	c.log.Info(ctx, "composition started",
		logger.String("run", r.id),
		logger.Float64("alpha", params.Weights.Alpha),
		logger.Float64("beta", params.Weights.Beta),
		logger.Float64("budget", params.Budget),
	)

	state := StateSeed
	for {
		r.trace = append(r.trace, state)
		var next State
		switch state {
		case StateSeed:
			next, err = c.seed(r)
		case StateUnconstrainedSelect:
			next, err = c.selectAll(ctx, r)
		case StateEvaluate:
			next, err = c.evaluate(r)
		case StatePrune:
			next, err = c.prune(ctx, r)
		case StateDone:
			c.log.Info(ctx, "composition done",
				logger.String("run", r.id),
				logger.Float64("cost", r.eval.Cost),
				logger.Float64("mean_ability", r.eval.MeanAbility),
				logger.Int("prune_steps", len(r.steps)),
			)
			return r.report(start), nil
		}
		if err != nil {
			c.log.Warn(ctx, "composition failed",
				logger.String("run", r.id),
				logger.String("state", state.String()),
				logger.Error(err),
			)
			if state == StatePrune || state == StateEvaluate {
				return r.report(start), err
			}
			return Report{RunID: r.id, Trace: r.trace, Budget: params.Budget}, err
		}
		state = next
	}
}

func (c *Composer) seed(r *run) (State, error) {
	gk, err := c.ctx.BestGoalkeeper()
	if err != nil {
		return 0, err
	}
	r.team.Goalkeeper = gk.ID

	for _, g := range []model.RoleGroup{model.GroupDefense, model.GroupAttack} {
		explicit := r.params.DefenseSeed
		if g == model.GroupAttack {
			explicit = r.params.AttackSeed
		}
		if explicit != nil {
			r.seeds[g] = *explicit
			continue
		}
		star, err := selection.Star(c.ctx.Graph(g), r.params.Quota(g), r.params.Taxonomy)
		if err != nil {
			return 0, fmt.Errorf("%s star: %w", g, err)
		}
		r.seeds[g] = star
	}
	return StateUnconstrainedSelect, nil
}

// selectAll runs both field selections concurrently; they share only
// read-only inputs.
func (c *Composer) selectAll(ctx context.Context, r *run) (State, error) {
	var defense, attack []int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		defense, err = c.selector.Select(gctx, c.request(r, model.GroupDefense))
		return err
	})
	g.Go(func() error {
		var err error
		attack, err = c.selector.Select(gctx, c.request(r, model.GroupAttack))
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}
	r.team.Defense = defense
	r.team.Attack = attack
	if err := r.team.Validate(); err != nil {
		return 0, err
	}
	return StateEvaluate, nil
}

func (c *Composer) request(r *run, g model.RoleGroup) selection.Request {
	return selection.Request{
		Graph:    c.ctx.Graph(g),
		Scorer:   c.scorers[g],
		Group:    g,
		Seed:     r.seeds[g],
		Quota:    r.params.Quota(g),
		Taxonomy: r.params.Taxonomy,
		Weights:  r.params.Weights,
	}
}

func (c *Composer) evaluate(r *run) (State, error) {
	eval, err := c.Evaluate(r.team)
	if err != nil {
		return 0, err
	}
	r.eval = eval
	if eval.Cost < r.params.Budget {
		return StateDone, nil
	}
	if len(r.steps) >= r.params.MaxPruneIterations {
		return 0, fmt.Errorf("%w: cost %.4f still over budget %.4f after %d prune steps",
			ErrBudgetUnattainable, eval.Cost, r.params.Budget, len(r.steps))
	}
	return StatePrune, nil
}

func (c *Composer) prune(ctx context.Context, r *run) (State, error) {
	step, err := r.pruner.Step(ctx, r.team)
	c.onPrune(step, err)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBudgetUnattainable, err)
	}
	if !(step.Salary < step.Cut.Salary) {
		return 0, fmt.Errorf("%w: prune step on player %d made no cost progress", ErrBudgetUnattainable, step.Cut.ID)
	}
	r.team = step.Team
	r.steps = append(r.steps, step)
	return StateEvaluate, nil
}

// Evaluate computes cost, mean ability and group homogeneity of a team.
func (c *Composer) Evaluate(team model.Team) (Evaluation, error) {
	values, err := c.valuer.Values(team)
	if err != nil {
		return Evaluation{}, err
	}
	var eval Evaluation
	var abilityTotal float64
	for _, v := range values {
		eval.Cost += v.Salary
		abilityTotal += v.Ability
	}
	eval.MeanAbility = abilityTotal / float64(len(values))
	eval.Values = values

	for _, g := range []model.RoleGroup{model.GroupDefense, model.GroupAttack} {
		graph := c.ctx.Graph(g)
		members := make([]model.Player, 0, g.Size())
		for _, id := range team.Bucket(g) {
			p, err := graph.MustPlayer(id)
			if err != nil {
				return Evaluation{}, err
			}
			members = append(members, p)
		}
		gini := homogeneity.Gini(members)
		if g == model.GroupDefense {
			eval.DefenseGini = gini
			eval.DefenseHomogeneity = homogeneity.Transform(g, gini)
		} else {
			eval.AttackGini = gini
			eval.AttackHeterogeneity = homogeneity.Transform(g, gini)
		}
	}
	return eval, nil
}

func (r *run) report(start time.Time) Report {
	return Report{
		RunID:      r.id,
		Team:       r.team.Clone(),
		Budget:     r.params.Budget,
		Evaluation: r.eval,
		Steps:      r.steps,
		Trace:      r.trace,
		Duration:   time.Since(start),
	}
}

type runIDKey struct{}

func withRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the composition run id stored in ctx, if any.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
