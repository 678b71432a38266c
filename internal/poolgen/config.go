package poolgen

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrInvalidConfig is returned for unusable generator settings.
var ErrInvalidConfig = errors.New("invalid pool generator config")

// Identifier ranges keep the three pools disjoint.
const (
	GoalkeeperIDBase = 1
	DefenseIDBase    = 10000
	AttackIDBase     = 20000
	maxPoolSize      = DefenseIDBase - GoalkeeperIDBase
)

// Defaults used by cmd/gen-pool.
const (
	DefaultGoalkeepers = 40
	DefaultDefenders   = 300
	DefaultAttackers   = 500
	DefaultClubs       = 40
	DefaultNations     = 25
)

// Config drives Generate.
type Config struct {
	Seed        uint64
	Dataset     string // fifa or pes, selects the position vocabulary
	Goalkeepers int
	Defenders   int
	Attackers   int
	Clubs       int
	Nations     int
	Workers     int
}

// DefaultConfig returns a mid-sized pool for a dataset.
func DefaultConfig(dataset string) Config {
	return Config{
		Seed:        1,
		Dataset:     dataset,
		Goalkeepers: DefaultGoalkeepers,
		Defenders:   DefaultDefenders,
		Attackers:   DefaultAttackers,
		Clubs:       DefaultClubs,
		Nations:     DefaultNations,
		Workers:     runtime.NumCPU(),
	}
}

func (c Config) validate() error {
	switch {
	case c.Goalkeepers <= 0 || c.Defenders <= 0 || c.Attackers <= 0:
		return fmt.Errorf("%w: every pool needs at least one player", ErrInvalidConfig)
	case c.Goalkeepers > maxPoolSize || c.Defenders > maxPoolSize || c.Attackers > maxPoolSize:
		return fmt.Errorf("%w: pools are limited to %d players", ErrInvalidConfig, maxPoolSize)
	case c.Clubs <= 0 || c.Nations <= 0:
		return fmt.Errorf("%w: clubs and nations must be positive", ErrInvalidConfig)
	}
	return nil
}
