package composer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/squad/internal/domain/composer"
	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/playergraph"
	"github.com/okian/squad/internal/domain/position"
	"github.com/okian/squad/internal/domain/pruning"
	"github.com/okian/squad/internal/domain/scoring"
	"github.com/okian/squad/internal/domain/selection"
	. "github.com/smartystreets/goconvey/convey"
)

func clique(players []model.Player) *playergraph.Graph {
	var edges []playergraph.Edge
	for i := range players {
		for j := i + 1; j < len(players); j++ {
			edges = append(edges, playergraph.Edge{From: players[i].ID, To: players[j].ID, Weight: 0.5})
		}
	}
	g, err := playergraph.Restore(playergraph.Export{Players: players, Edges: edges})
	if err != nil {
		panic(err)
	}
	return g
}

func field(id int64, pos string, rating float64, ability string, value float64) model.Player {
	return model.Player{ID: id, Position: pos, Rating: rating, Salary: model.Salary(rating), Abilities: map[string]float64{ability: value}}
}

func criteria(ability string) scoring.Criteria {
	c, err := scoring.NewCriteria(map[string]float64{ability: 1})
	if err != nil {
		panic(err)
	}
	return c
}

// pools: an expensive star right back (6) with a cheap alternative (5),
// two centre backs, one left back and exactly six strikers.
func pools() *composer.Context {
	defense := clique([]model.Player{
		field(1, "CB", 80, "marking", 80),
		field(2, "CB", 80, "marking", 80),
		field(3, "LB", 80, "marking", 80),
		field(5, "RB", 70, "marking", 65),
		field(6, "RB", 90, "marking", 95),
	})
	strikers := make([]model.Player, 0, 6)
	for id := int64(11); id <= 16; id++ {
		strikers = append(strikers, field(id, "ST", 60, "finishing", 99))
	}
	goalkeepers := []model.Goalkeeper{
		{ID: 100, Rating: 80, Salary: model.Salary(80), Abilities: []float64{80, 80}},
		{ID: 101, Rating: 70, Salary: model.Salary(70), Abilities: []float64{60, 70}},
	}
	c, err := composer.NewContext(goalkeepers, defense, clique(strikers), criteria("marking"), criteria("finishing"))
	if err != nil {
		panic(err)
	}
	return c
}

func params(budget float64) composer.Params {
	return composer.Params{
		Weights:            selection.Weights{Alpha: 0.5, Beta: 0.3},
		PruneWeights:       pruning.DefaultWeights,
		Budget:             budget,
		DefenseQuota:       position.Quota{"CB": 2, "LB": 1, "RB": 1},
		AttackQuota:        position.Quota{"ST": 6},
		Taxonomy:           position.Identity{},
		MaxPruneIterations: composer.DefaultMaxPruneIterations,
	}
}

func TestCompose(t *testing.T) {
	ctx := context.Background()

	Convey("Given small pools with an expensive star right back", t, func() {
		c := composer.New(pools())

		Convey("When the budget is generous", func() {
			report, err := c.Compose(ctx, params(100))

			Convey("Then the unconstrained team is returned without pruning", func() {
				So(err, ShouldBeNil)
				So(report.RunID, ShouldNotBeEmpty)
				So(report.Trace, ShouldResemble, []composer.State{
					composer.StateSeed, composer.StateUnconstrainedSelect, composer.StateEvaluate, composer.StateDone,
				})
				So(report.Team.Goalkeeper, ShouldEqual, 100)
				So(report.Team.Defense[0], ShouldEqual, 6)
				So(report.Team.Defense, ShouldContain, int64(1))
				So(report.Team.Defense, ShouldContain, int64(2))
				So(report.Team.Defense, ShouldContain, int64(3))
				So(report.Team.Attack, ShouldHaveLength, 6)
				So(report.Team.Validate(), ShouldBeNil)
				So(report.Steps, ShouldBeEmpty)
				So(report.WithinBudget(), ShouldBeTrue)
			})

			Convey("Then the evaluation covers all eleven players", func() {
				e := report.Evaluation
				So(e.Values, ShouldHaveLength, model.TeamSize)
				want := model.Salary(80)*4 + model.Salary(90) + 6*model.Salary(60)
				So(e.Cost, ShouldAlmostEqual, want, 1e-9)
				So(e.MeanAbility, ShouldAlmostEqual, (80*4+95+6*99)/11.0, 1e-9)
				So(e.AttackGini, ShouldEqual, 0)
				So(e.AttackHeterogeneity, ShouldEqual, 0)
				So(e.DefenseGini, ShouldBeGreaterThan, 0)
				So(e.DefenseHomogeneity, ShouldAlmostEqual, 1/e.DefenseGini, 1e-9)
			})
		})

		Convey("When the budget only allows the cheap right back", func() {
			report, err := c.Compose(ctx, params(15))

			Convey("Then one prune step swaps the star for the cheaper right back", func() {
				So(err, ShouldBeNil)
				So(report.Steps, ShouldHaveLength, 1)
				So(report.Steps[0].Cut.ID, ShouldEqual, 6)
				So(report.Steps[0].Replacement, ShouldEqual, 5)
				So(report.Team.Defense[0], ShouldEqual, 5)
				So(report.Evaluation.Cost, ShouldBeLessThan, 15)
				So(report.Trace, ShouldResemble, []composer.State{
					composer.StateSeed, composer.StateUnconstrainedSelect, composer.StateEvaluate,
					composer.StatePrune, composer.StateEvaluate, composer.StateDone,
				})
			})
		})

		Convey("When the budget is below anything reachable", func() {
			report, err := c.Compose(ctx, params(5))

			Convey("Then pruning deadlocks and the last team is reported", func() {
				So(err, ShouldWrap, composer.ErrBudgetUnattainable)
				So(errors.Is(err, pruning.ErrPruneDeadlock), ShouldBeTrue)
				So(report.Steps, ShouldHaveLength, 1)
				So(report.Team.Defense[0], ShouldEqual, 5)
				So(report.WithinBudget(), ShouldBeFalse)
				So(report.Trace[len(report.Trace)-1], ShouldEqual, composer.StatePrune)
			})
		})

		Convey("When the prune cap is reached", func() {
			p := params(5)
			p.MaxPruneIterations = 1
			_, err := c.Compose(ctx, p)
			So(err, ShouldWrap, composer.ErrBudgetUnattainable)
			So(errors.Is(err, pruning.ErrPruneDeadlock), ShouldBeFalse)
		})

		Convey("When composing twice", func() {
			a, errA := c.Compose(ctx, params(15))
			b, errB := c.Compose(ctx, params(15))
			So(errA, ShouldBeNil)
			So(errB, ShouldBeNil)
			So(a.Team, ShouldResemble, b.Team)
			So(a.RunID, ShouldNotEqual, b.RunID)
		})

		Convey("When the defense seed is overridden", func() {
			p := params(100)
			seed := int64(3)
			p.DefenseSeed = &seed
			report, err := c.Compose(ctx, p)
			So(err, ShouldBeNil)
			So(report.Team.Defense[0], ShouldEqual, 3)
		})
	})
}

func TestComposeInvalid(t *testing.T) {
	ctx := context.Background()

	Convey("Given a composer", t, func() {
		c := composer.New(pools())

		Convey("When weights exceed one", func() {
			p := params(100)
			p.Weights = selection.Weights{Alpha: 0.8, Beta: 0.4}
			_, err := c.Compose(ctx, p)
			So(err, ShouldWrap, composer.ErrInvalidParams)
		})

		Convey("When the quota cannot fill the attack", func() {
			p := params(100)
			p.AttackQuota = position.Quota{"ST": 5}
			_, err := c.Compose(ctx, p)
			So(err, ShouldWrap, selection.ErrInfeasibleQuota)
		})

		Convey("When no player fits the quota", func() {
			p := params(100)
			p.AttackQuota = position.Quota{"CF": 6}
			report, err := c.Compose(ctx, p)
			So(err, ShouldWrap, selection.ErrInfeasibleQuota)
			So(report.Trace, ShouldResemble, []composer.State{composer.StateSeed})
		})

		Convey("When the budget is not positive", func() {
			_, err := c.Compose(ctx, params(0))
			So(err, ShouldWrap, composer.ErrInvalidParams)
		})
	})
}

func TestContext(t *testing.T) {
	Convey("Given pools sharing an id", t, func() {
		defense := clique([]model.Player{field(1, "CB", 80, "marking", 80), field(2, "CB", 80, "marking", 80)})
		attack := clique([]model.Player{field(2, "ST", 80, "finishing", 80), field(3, "ST", 80, "finishing", 80)})
		gks := []model.Goalkeeper{{ID: 9, Rating: 70, Salary: model.Salary(70), Abilities: []float64{70}}}

		_, err := composer.NewContext(gks, defense, attack, criteria("marking"), criteria("finishing"))
		So(err, ShouldWrap, composer.ErrInvalidContext)
	})

	Convey("Given no goalkeepers", t, func() {
		g := clique([]model.Player{field(1, "CB", 80, "marking", 80)})
		_, err := composer.NewContext(nil, g, g, criteria("marking"), criteria("marking"))
		So(err, ShouldEqual, composer.ErrNoGoalkeeper)
	})

	Convey("Given goalkeepers with different mean ability", t, func() {
		c := pools()
		gk, err := c.BestGoalkeeper()
		So(err, ShouldBeNil)
		So(gk.ID, ShouldEqual, 100)
		_, ok := c.Goalkeeper(101)
		So(ok, ShouldBeTrue)
	})

	Convey("Given a preset", t, func() {
		preset, err := position.PresetFor("pes")
		So(err, ShouldBeNil)
		p := composer.DefaultParams(preset)
		So(p.Validate(), ShouldBeNil)
		So(p.Budget, ShouldEqual, 100)
		So(p.Quota(model.GroupAttack).Total(), ShouldEqual, 6)
	})
}
