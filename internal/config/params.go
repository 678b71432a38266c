package config

import (
	"fmt"

	"github.com/okian/squad/internal/domain/composer"
	"github.com/okian/squad/internal/domain/position"
	"github.com/okian/squad/internal/domain/selection"
)

// Preset returns the dataset preset named by the config.
func (c *Config) Preset() (position.Preset, error) {
	p, err := position.PresetFor(c.Dataset)
	if err != nil {
		return position.Preset{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return p, nil
}

// Params builds composition params from the preset and any overrides.
func (c *Config) Params() (composer.Params, error) {
	preset, err := c.Preset()
	if err != nil {
		return composer.Params{}, err
	}
	p := composer.DefaultParams(preset)
	if c.Alpha != nil {
		p.Weights.Alpha = *c.Alpha
	}
	if c.Beta != nil {
		p.Weights.Beta = *c.Beta
	}
	if c.Budget > 0 {
		p.Budget = c.Budget
	}
	if len(c.DefenseQuota) > 0 {
		p.DefenseQuota = position.Quota(c.DefenseQuota).Clone()
	}
	if len(c.AttackQuota) > 0 {
		p.AttackQuota = position.Quota(c.AttackQuota).Clone()
	}
	p.PruneWeights = selection.Weights{Alpha: c.PruneAlpha, Beta: c.PruneBeta}
	p.MaxPruneIterations = c.MaxPruneIterations
	if err := p.Validate(); err != nil {
		return composer.Params{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return p, nil
}
