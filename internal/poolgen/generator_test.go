package poolgen_test

import (
	"context"
	"testing"

	"github.com/okian/squad/internal/domain/position"
	"github.com/okian/squad/internal/poolgen"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerate(t *testing.T) {
	ctx := context.Background()

	Convey("Given a small pes pool config", t, func() {
		cfg := poolgen.DefaultConfig("pes")
		cfg.Goalkeepers, cfg.Defenders, cfg.Attackers = 5, 30, 40

		Convey("When generating", func() {
			pool, err := poolgen.Generate(ctx, cfg)
			So(err, ShouldBeNil)

			Convey("Then sizes and id ranges match", func() {
				So(pool.Goalkeepers, ShouldHaveLength, 5)
				So(pool.Defense, ShouldHaveLength, 30)
				So(pool.Attack, ShouldHaveLength, 40)
				So(pool.Goalkeepers[0].ID, ShouldEqual, poolgen.GoalkeeperIDBase)
				So(pool.Defense[0].ID, ShouldEqual, poolgen.DefenseIDBase)
				So(pool.Attack[39].ID, ShouldEqual, poolgen.AttackIDBase+39)
			})

			Convey("Then positions come from the dataset vocabulary", func() {
				preset, _ := position.PresetFor("pes")
				for _, p := range pool.Defense {
					So(preset.DefensePositions, ShouldContain, p.Position)
					So(p.Abilities, ShouldHaveLength, len(poolgen.FieldAbilities))
				}
				for _, p := range pool.Attack {
					So(preset.AttackPositions, ShouldContain, p.Position)
					So(p.Rating, ShouldBeBetweenOrEqual, 50, 94)
				}
				for _, gk := range pool.Goalkeepers {
					So(gk.Abilities, ShouldHaveLength, len(poolgen.GoalkeeperAbilities))
					So(gk.Salary, ShouldBeGreaterThan, 0)
				}
			})
		})

		Convey("When generating with different worker counts", func() {
			cfg.Workers = 1
			a, errA := poolgen.Generate(ctx, cfg)
			cfg.Workers = 8
			b, errB := poolgen.Generate(ctx, cfg)

			Convey("Then output is identical", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(a, ShouldResemble, b)
			})
		})

		Convey("When the seed changes", func() {
			a, _ := poolgen.Generate(ctx, cfg)
			cfg.Seed = 99
			b, _ := poolgen.Generate(ctx, cfg)
			So(a.Defense, ShouldNotResemble, b.Defense)
		})
	})

	Convey("Given invalid configs", t, func() {
		cfg := poolgen.DefaultConfig("fifa")
		cfg.Attackers = 0
		_, err := poolgen.Generate(ctx, cfg)
		So(err, ShouldWrap, poolgen.ErrInvalidConfig)

		cfg = poolgen.DefaultConfig("madden")
		_, err = poolgen.Generate(ctx, cfg)
		So(err, ShouldWrap, poolgen.ErrInvalidConfig)
		So(err, ShouldWrap, position.ErrUnknownDataset)
	})
}

func TestCriteria(t *testing.T) {
	Convey("Given the shipped criteria", t, func() {
		for _, c := range []map[string]float64{poolgen.DefenseCriteria(), poolgen.AttackCriteria()} {
			total := 0.0
			for name, w := range c {
				So(poolgen.FieldAbilities, ShouldContain, name)
				So(w, ShouldBeGreaterThan, 0)
				total += w
			}
			So(total, ShouldAlmostEqual, 1.0, 1e-9)
		}
	})
}
