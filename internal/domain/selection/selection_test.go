package selection_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/playergraph"
	"github.com/okian/squad/internal/domain/position"
	"github.com/okian/squad/internal/domain/scoring"
	"github.com/okian/squad/internal/domain/selection"
	. "github.com/smartystreets/goconvey/convey"
)

func markingScorer() scoring.Scorer {
	s, err := scoring.NewCriteriaScorerFromWeights(map[string]float64{"marking": 1})
	if err != nil {
		panic(err)
	}
	return s
}

// clique links every pair of players with the same weight.
func clique(players []model.Player, weight float64) *playergraph.Graph {
	var edges []playergraph.Edge
	for i := range players {
		for j := i + 1; j < len(players); j++ {
			edges = append(edges, playergraph.Edge{From: players[i].ID, To: players[j].ID, Weight: weight})
		}
	}
	g, err := playergraph.Restore(playergraph.Export{Majors: []string{"marking"}, Players: players, Edges: edges})
	if err != nil {
		panic(err)
	}
	return g
}

func defender(id int64, pos string, rating, marking float64) model.Player {
	return model.Player{
		ID:        id,
		Position:  pos,
		Rating:    rating,
		Salary:    model.Salary(rating),
		Abilities: map[string]float64{"marking": marking},
	}
}

func TestNormalize(t *testing.T) {
	Convey("Given raw values", t, func() {
		So(selection.Normalize([]float64{1, 2, 3}), ShouldResemble, []float64{0, 0.5, 1})
		So(selection.Normalize([]float64{5, 5}), ShouldResemble, []float64{0, 0})
		So(selection.Normalize(nil), ShouldBeEmpty)
		So(selection.Normalize([]float64{1, math.Inf(1), 3}), ShouldResemble, []float64{0, 1, 0})
		So(selection.Normalize([]float64{math.Inf(1), math.Inf(1)}), ShouldResemble, []float64{0, 0})
	})
}

func TestWeights(t *testing.T) {
	Convey("Given selection weights", t, func() {
		So(selection.Weights{Alpha: 0.5, Beta: 0.3}.Validate(), ShouldBeNil)
		So(selection.Weights{Alpha: 0.5, Beta: 0.3}.Gamma(), ShouldAlmostEqual, 0.2)
		So(selection.Weights{Alpha: 0.8, Beta: 0.3}.Validate(), ShouldWrap, selection.ErrInvalidWeights)
		So(selection.Weights{Alpha: -0.1, Beta: 0.3}.Validate(), ShouldWrap, selection.ErrInvalidWeights)
		So(selection.Weights{Alpha: math.NaN()}.Validate(), ShouldWrap, selection.ErrInvalidWeights)
	})
}

func TestEvaluate(t *testing.T) {
	Convey("Given a seed linked to two candidates with different weights", t, func() {
		players := []model.Player{
			defender(1, "CB", 80, 70),
			defender(2, "CB", 70, 70),
			defender(3, "CB", 70, 70),
		}
		g, err := playergraph.Restore(playergraph.Export{
			Players: players,
			Edges: []playergraph.Edge{
				{From: 1, To: 2, Weight: 0.2},
				{From: 1, To: 3, Weight: 0.9},
			},
		})
		So(err, ShouldBeNil)

		Convey("When only density counts", func() {
			cands, err := selection.Evaluate(g, markingScorer(), model.GroupDefense, selection.Weights{Alpha: 0, Beta: 1}, []int64{1}, []int64{2, 3})

			Convey("Then density is the weight share and the stronger link wins", func() {
				So(err, ShouldBeNil)
				So(cands[0].Density, ShouldAlmostEqual, 0.1)
				So(cands[1].Density, ShouldAlmostEqual, 0.45)
				So(cands[0].Ability, ShouldAlmostEqual, 140)
				best, ok := selection.Best(cands)
				So(ok, ShouldBeTrue)
				So(best.ID, ShouldEqual, 3)
			})
		})

		Convey("When a candidate is unknown", func() {
			_, err := selection.Evaluate(g, markingScorer(), model.GroupDefense, selection.Weights{Alpha: 1}, []int64{1}, []int64{42})
			So(err, ShouldWrap, playergraph.ErrUnknownPlayer)
		})
	})
}

func TestSelect(t *testing.T) {
	ctx := context.Background()
	selector := selection.NewSelector()

	Convey("Given a fully connected pool of six defenders at similarity 0.5", t, func() {
		players := []model.Player{
			defender(1, "CB", 85, 80),
			defender(2, "LB", 78, 70),
			defender(3, "RB", 77, 72),
			defender(4, "RCB", 80, 75),
			defender(5, "LCB", 79, 74),
			defender(6, "CB", 70, 60),
		}
		g := clique(players, 0.5)
		quota := position.Quota{"CB": 2, "LB": 1, "RB": 1, "RCB": 1, "LCB": 1}
		seed, err := selection.Star(g, quota, position.Identity{})
		So(err, ShouldBeNil)
		So(seed, ShouldEqual, 1)

		req := selection.Request{
			Graph:    g,
			Scorer:   markingScorer(),
			Group:    model.GroupDefense,
			Seed:     seed,
			Quota:    quota,
			Taxonomy: position.Identity{},
			Weights:  selection.Weights{Alpha: 0.5, Beta: 0.3},
		}

		Convey("When selecting the defense", func() {
			team, err := selector.Select(ctx, req)

			Convey("Then four distinct players respect every quota", func() {
				So(err, ShouldBeNil)
				So(team, ShouldHaveLength, 4)
				So(team[0], ShouldEqual, 1)
				seen := map[int64]bool{}
				counts := map[string]int{}
				for _, id := range team {
					So(seen[id], ShouldBeFalse)
					seen[id] = true
					p, _ := g.Player(id)
					counts[p.Position]++
				}
				for pos, n := range counts {
					So(n, ShouldBeLessThanOrEqualTo, quota[pos])
				}
			})

			Convey("Then repeating the run yields the same team", func() {
				again, err2 := selector.Select(ctx, req)
				So(err2, ShouldBeNil)
				So(again, ShouldResemble, team)
			})
		})
	})

	Convey("Given five centre backs and ability-only weights", t, func() {
		players := []model.Player{
			defender(1, "CB", 90, 60),
			defender(2, "CB", 70, 90),
			defender(3, "CB", 70, 50),
			defender(4, "CB", 70, 70),
			defender(5, "CB", 70, 80),
		}
		req := selection.Request{
			Graph:    clique(players, 0.5),
			Scorer:   markingScorer(),
			Group:    model.GroupDefense,
			Seed:     1,
			Quota:    position.Quota{"CB": 4},
			Taxonomy: position.Identity{},
			Weights:  selection.Weights{Alpha: 1},
		}

		Convey("Then players join in ability order", func() {
			team, err := selector.Select(ctx, req)
			So(err, ShouldBeNil)
			So(team, ShouldResemble, []int64{1, 2, 5, 4})
		})

		Convey("Then equal scores fall back to the lowest id", func() {
			for i := range players {
				players[i].Abilities = map[string]float64{"marking": 70}
			}
			req.Graph = clique(players, 0.5)
			team, err := selector.Select(ctx, req)
			So(err, ShouldBeNil)
			So(team, ShouldResemble, []int64{1, 2, 3, 4})
		})

		Convey("Then a cancelled context stops the run", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := selector.Select(cctx, req)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})

		Convey("Then the candidate observer sees every step", func() {
			var sizes []int
			observed := selection.NewSelector(selection.WithCandidateObserver(func(_ model.RoleGroup, n int) {
				sizes = append(sizes, n)
			}))
			_, err := observed.Select(ctx, req)
			So(err, ShouldBeNil)
			So(sizes, ShouldResemble, []int{4, 3, 2})
		})
	})

	Convey("Given infeasible selections", t, func() {
		players := []model.Player{
			defender(1, "CB", 90, 60),
			defender(2, "CB", 70, 90),
			defender(3, "LB", 70, 50),
			defender(4, "RB", 70, 70),
		}
		req := selection.Request{
			Graph:    clique(players, 0.5),
			Scorer:   markingScorer(),
			Group:    model.GroupDefense,
			Seed:     1,
			Quota:    position.Quota{"CB": 2, "LB": 1, "RB": 1},
			Taxonomy: position.Identity{},
			Weights:  selection.Weights{Alpha: 0.5, Beta: 0.3},
		}

		Convey("When the seed has no neighbours", func() {
			g, err := playergraph.Restore(playergraph.Export{Players: players})
			So(err, ShouldBeNil)
			req.Graph = g
			_, err = selector.Select(ctx, req)

			Convey("Then an InfeasibleQuota error names the progress", func() {
				So(err, ShouldWrap, selection.ErrInfeasibleQuota)
				var qe *selection.QuotaError
				So(errors.As(err, &qe), ShouldBeTrue)
				So(qe.Selected, ShouldEqual, 1)
				So(qe.Remaining["CB"], ShouldEqual, 1)
			})
		})

		Convey("When quotas cannot fill the group", func() {
			req.Quota = position.Quota{"CB": 2, "LB": 1}
			_, err := selector.Select(ctx, req)
			So(err, ShouldWrap, selection.ErrInfeasibleQuota)
		})

		Convey("When the seed position has no quota", func() {
			req.Seed = 3
			req.Quota = position.Quota{"CB": 2, "RB": 2}
			_, err := selector.Select(ctx, req)
			So(err, ShouldWrap, selection.ErrInfeasibleQuota)
		})

		Convey("When the only remaining family is missing from the pool", func() {
			req.Quota = position.Quota{"CB": 2, "LB": 1, "LWB": 1}
			_, err := selector.Select(ctx, req)
			So(err, ShouldWrap, selection.ErrInfeasibleQuota)
		})

		Convey("When weights are out of range", func() {
			req.Weights = selection.Weights{Alpha: 0.9, Beta: 0.2}
			_, err := selector.Select(ctx, req)
			So(err, ShouldWrap, selection.ErrInvalidWeights)
		})

		Convey("When asked to select goalkeepers", func() {
			req.Group = model.GroupGoalkeeper
			_, err := selector.Select(ctx, req)
			So(err, ShouldWrap, selection.ErrInvalidRequest)
		})

		Convey("When no player fits the quota", func() {
			_, err := selection.Star(req.Graph, position.Quota{"GK": 1}, position.Identity{})
			So(err, ShouldWrap, selection.ErrInfeasibleQuota)
		})
	})
}

// presetPool builds copies players for every valid position of a group,
// all linked at the same similarity.
func presetPool(positions []string, copies int, base int64) *playergraph.Graph {
	var players []model.Player
	id := base
	for c := 0; c < copies; c++ {
		for _, pos := range positions {
			rating := 60 + float64((id*7)%35)
			players = append(players, defender(id, pos, rating, 50+float64((id*13)%45)))
			id++
		}
	}
	return clique(players, 0.5)
}

func TestSelectFillsPresetQuotas(t *testing.T) {
	ctx := context.Background()
	selector := selection.NewSelector()
	weights := []selection.Weights{{Alpha: 1}, {Beta: 1}, {Alpha: 0.5, Beta: 0.3}, {Alpha: 0.6, Beta: 0.2}, {}}

	for _, name := range []string{"fifa", "pes"} {
		preset, err := position.PresetFor(name)
		if err != nil {
			t.Fatal(err)
		}

		Convey("Given the "+name+" preset, whose quotas sum to the group sizes", t, func() {
			So(preset.DefenseQuota.Total(), ShouldEqual, model.GroupDefense.Size())
			So(preset.AttackQuota.Total(), ShouldEqual, model.GroupAttack.Size())

			groups := []struct {
				group model.RoleGroup
				graph *playergraph.Graph
				quota position.Quota
			}{
				{model.GroupDefense, presetPool(preset.DefensePositions, 3, 100), preset.DefenseQuota},
				{model.GroupAttack, presetPool(preset.AttackPositions, 2, 1000), preset.AttackQuota},
			}

			Convey("When selecting each group under several weightings", func() {
				for _, grp := range groups {
					seed, err := selection.Star(grp.graph, grp.quota, preset.Taxonomy)
					So(err, ShouldBeNil)

					for _, w := range weights {
						team, err := selector.Select(ctx, selection.Request{
							Graph:    grp.graph,
							Scorer:   markingScorer(),
							Group:    grp.group,
							Seed:     seed,
							Quota:    grp.quota,
							Taxonomy: preset.Taxonomy,
							Weights:  w,
						})
						So(err, ShouldBeNil)
						So(team, ShouldHaveLength, grp.group.Size())

						counts := position.Quota{}
						for _, id := range team {
							p, ok := grp.graph.Player(id)
							So(ok, ShouldBeTrue)
							counts[preset.Taxonomy.Family(p.Position)]++
						}
						So(counts, ShouldResemble, grp.quota)
					}
				}
			})
		})
	}
}
