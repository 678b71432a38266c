package homogeneity_test

import (
	"math"
	"testing"

	"github.com/okian/squad/internal/domain/homogeneity"
	"github.com/okian/squad/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func player(id int64, abilities map[string]float64) model.Player {
	return model.Player{ID: id, Abilities: abilities}
}

func TestCoefficient(t *testing.T) {
	Convey("Given ability populations", t, func() {
		Convey("When all values are equal", func() {
			So(homogeneity.Coefficient([]float64{70, 70, 70}), ShouldEqual, 0)
		})

		Convey("When the mean is zero", func() {
			So(homogeneity.Coefficient([]float64{0, 0}), ShouldEqual, 0)
		})

		Convey("When one of two players holds everything", func() {
			// |0-10|*2 / (2*4*5) = 0.5
			So(homogeneity.Coefficient([]float64{0, 10}), ShouldAlmostEqual, 0.5)
		})

		Convey("When values differ", func() {
			// pairs: |1-3|*2=4, mean 2 => 4/(2*4*2)=0.25
			So(homogeneity.Coefficient([]float64{1, 3}), ShouldAlmostEqual, 0.25)
		})

		Convey("When empty", func() {
			So(homogeneity.Coefficient(nil), ShouldEqual, 0)
		})
	})
}

func TestGini(t *testing.T) {
	Convey("Given a group of players", t, func() {
		members := []model.Player{
			player(1, map[string]float64{"pace": 1, "marking": 50}),
			player(2, map[string]float64{"pace": 3, "marking": 50}),
		}

		Convey("Then Gini averages across abilities and skips degenerate ones", func() {
			// pace 0.25, marking 0 => 0.125
			So(homogeneity.Gini(members), ShouldAlmostEqual, 0.125)
		})

		Convey("Then the raw value stays within [0,1)", func() {
			g := homogeneity.Gini(members)
			So(g, ShouldBeGreaterThanOrEqualTo, 0)
			So(g, ShouldBeLessThan, 1)
		})

		Convey("Then missing abilities count as zero", func() {
			uneven := []model.Player{
				player(1, map[string]float64{"pace": 10}),
				player(2, map[string]float64{}),
			}
			So(homogeneity.Gini(uneven), ShouldAlmostEqual, 0.5)
		})

		Convey("Then an empty group is 0", func() {
			So(homogeneity.Gini(nil), ShouldEqual, 0)
			So(homogeneity.Gini([]model.Player{player(1, nil)}), ShouldEqual, 0)
		})
	})
}

func TestTransform(t *testing.T) {
	Convey("Given a raw Gini value", t, func() {
		Convey("When evaluating defense", func() {
			So(homogeneity.Transform(model.GroupDefense, 0.25), ShouldAlmostEqual, 4)
			So(math.IsInf(homogeneity.Transform(model.GroupDefense, 0), 1), ShouldBeTrue)
		})

		Convey("When evaluating attack", func() {
			So(homogeneity.Transform(model.GroupAttack, 0.25), ShouldEqual, 0.25)
		})

		Convey("When evaluating a perfectly even defense", func() {
			even := []model.Player{
				player(1, map[string]float64{"marking": 60}),
				player(2, map[string]float64{"marking": 60}),
			}
			So(math.IsInf(homogeneity.Evaluate(model.GroupDefense, even), 1), ShouldBeTrue)
			So(homogeneity.Evaluate(model.GroupAttack, even), ShouldEqual, 0)
		})
	})
}
