// Package poolgen generates reproducible synthetic player pools for demos,
// benchmarks and tests.
package poolgen

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/position"
	"github.com/okian/squad/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Rating tiers. Most players are average, a few are elite.
const (
	tierAverage = iota
	tierGood
	tierLow
	tierElite
	tierCount
)

const (
	averageMin, averageRange = 62.0, 10.0
	goodMin, goodRange       = 72.0, 8.0
	lowMin, lowRange         = 50.0, 12.0
	eliteMin, eliteRange     = 80.0, 14.0

	abilitySpread = 9.0
	abilityMin    = 1.0
	abilityMax    = 99.0
)

// FieldAbilities are the ability columns of generated field players.
var FieldAbilities = []string{
	"acceleration", "aggression", "agility", "balance", "ball_control",
	"composure", "crossing", "curve", "dribbling", "finishing",
	"free_kick_accuracy", "heading_accuracy", "interceptions", "jumping",
	"long_passing", "long_shots", "marking", "penalties", "positioning",
	"reactions", "short_passing", "shot_power", "sliding_tackle",
	"sprint_speed", "stamina", "standing_tackle", "strength", "vision", "volleys",
}

// GoalkeeperAbilities are the ability columns of generated goalkeepers.
var GoalkeeperAbilities = []string{"diving", "handling", "kicking", "positioning", "reflexes"}

// defensive abilities get a boost for defenders, the rest for attackers.
var defensive = map[string]bool{
	"aggression": true, "heading_accuracy": true, "interceptions": true, "jumping": true,
	"marking": true, "sliding_tackle": true, "standing_tackle": true, "strength": true,
}

const roleBoost = 6.0

// DefenseCriteria and AttackCriteria are the ability weights shipped with a
// generated pool.
func DefenseCriteria() map[string]float64 {
	return map[string]float64{
		"standing_tackle": 0.2, "sliding_tackle": 0.15, "marking": 0.2,
		"interceptions": 0.15, "heading_accuracy": 0.1, "strength": 0.1, "reactions": 0.1,
	}
}

// AttackCriteria see DefenseCriteria.
func AttackCriteria() map[string]float64 {
	return map[string]float64{
		"finishing": 0.2, "dribbling": 0.15, "short_passing": 0.15, "vision": 0.1,
		"ball_control": 0.15, "positioning": 0.1, "shot_power": 0.05, "acceleration": 0.1,
	}
}

// Pool is a generated dataset.
type Pool struct {
	Goalkeepers []model.Goalkeeper
	Defense     []model.PlayerRecord
	Attack      []model.PlayerRecord
}

// Option configures Generate.
type Option func(*options)

type options struct {
	log logger.Logger
}

// WithLogger sets the logger used for the generation summary.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// Generate builds a pool. Every player draws from its own PCG stream keyed
// by seed and id, so output is identical for any worker count.
func Generate(ctx context.Context, cfg Config, opts ...Option) (Pool, error) {
	o := options{log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.validate(); err != nil {
		return Pool{}, err
	}
	preset, err := position.PresetFor(cfg.Dataset)
	if err != nil {
		return Pool{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	pool := Pool{
		Goalkeepers: make([]model.Goalkeeper, cfg.Goalkeepers),
		Defense:     make([]model.PlayerRecord, cfg.Defenders),
		Attack:      make([]model.PlayerRecord, cfg.Attackers),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range pool.Goalkeepers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pool.Goalkeepers[i] = goalkeeper(cfg.Seed, GoalkeeperIDBase+int64(i))
			return nil
		})
	}
	for i := range pool.Defense {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pool.Defense[i] = fieldPlayer(cfg, DefenseIDBase+int64(i), preset.DefensePositions, true)
			return nil
		})
	}
	for i := range pool.Attack {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pool.Attack[i] = fieldPlayer(cfg, AttackIDBase+int64(i), preset.AttackPositions, false)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Pool{}, fmt.Errorf("generate pool: %w", err)
	}

	o.log.Info(ctx, "generated player pool",
		logger.String("dataset", preset.Name),
		logger.Int("goalkeepers", len(pool.Goalkeepers)),
		logger.Int("defenders", len(pool.Defense)),
		logger.Int("attackers", len(pool.Attack)),
		logger.Any("seed", cfg.Seed),
	)
	return pool, nil
}

func rng(seed uint64, id int64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(id)))
}

// rating draws from the tier mix.
func rating(r *rand.Rand) float64 {
	switch r.IntN(tierCount + 3) {
	case tierGood:
		return goodMin + r.Float64()*goodRange
	case tierLow:
		return lowMin + r.Float64()*lowRange
	case tierElite:
		return eliteMin + r.Float64()*eliteRange
	default:
		return averageMin + r.Float64()*averageRange
	}
}

func ability(r *rand.Rand, base float64) float64 {
	v := base + r.NormFloat64()*abilitySpread
	return math.Round(math.Max(abilityMin, math.Min(abilityMax, v)))
}

func goalkeeper(seed uint64, id int64) model.Goalkeeper {
	r := rng(seed, id)
	rt := math.Round(rating(r))
	abilities := make([]float64, len(GoalkeeperAbilities))
	for i := range abilities {
		abilities[i] = ability(r, rt)
	}
	return model.Goalkeeper{ID: id, Rating: rt, Salary: model.Salary(rt), Abilities: abilities}
}

func fieldPlayer(cfg Config, id int64, positions []string, defender bool) model.PlayerRecord {
	r := rng(cfg.Seed, id)
	rt := math.Round(rating(r))
	abilities := make(map[string]float64, len(FieldAbilities))
	for _, a := range FieldAbilities {
		base := rt - roleBoost
		if defensive[a] == defender {
			base = rt + roleBoost
		}
		abilities[a] = ability(r, base)
	}
	return model.PlayerRecord{
		ID:          id,
		Position:    positions[r.IntN(len(positions))],
		Rating:      rt,
		Club:        fmt.Sprintf("club-%02d", r.IntN(cfg.Clubs)),
		Nationality: fmt.Sprintf("nation-%02d", r.IntN(cfg.Nations)),
		Abilities:   abilities,
	}
}
