// Package config defines service configuration and how it is loaded.
//
// Conventions:
// - New() returns a Config filled with defaults.
// - Load layers a YAML file and environment variables on top of New().
// - Errors returned to callers wrap ErrInvalidConfig or ErrLoadConfig.
package config

import (
	"path/filepath"
	"runtime"

	"github.com/okian/squad/internal/adapters/dataset"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	// LogJSON switches the log handler to JSON.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// QueueSize bounds the in-memory composition request queue.
	QueueSize int `koanf:"queue_size" validate:"gt=0"`

	// WorkerCount sets the number of composition workers.
	WorkerCount int `koanf:"worker_count" validate:"gt=0"`

	// DedupeSize sets the capacity of the request id cache.
	DedupeSize int `koanf:"dedupe_size" validate:"gt=0"`

	// MaxResultsLimit caps GET /compositions?limit.
	MaxResultsLimit int `koanf:"max_results_limit" validate:"gt=0"`

	// Dataset selects the position taxonomy and defaults: fifa or pes.
	Dataset string `koanf:"dataset" validate:"oneof=fifa pes"`

	// DataDir holds the dataset files. Individual files may be overridden.
	DataDir             string `koanf:"data_dir" validate:"required"`
	GoalkeeperFile      string `koanf:"goalkeeper_file"`
	DefenseFile         string `koanf:"defense_file"`
	AttackFile          string `koanf:"attack_file"`
	DefenseCriteriaFile string `koanf:"defense_criteria_file"`
	AttackCriteriaFile  string `koanf:"attack_criteria_file"`

	// SnapshotDir caches built graphs; empty disables snapshots.
	SnapshotDir string `koanf:"snapshot_dir"`

	// Alpha and Beta weight ability and density; nil uses the dataset preset.
	Alpha *float64 `koanf:"alpha" validate:"omitempty,gte=0,lte=1"`
	Beta  *float64 `koanf:"beta" validate:"omitempty,gte=0,lte=1"`

	// Budget is the salary ceiling; 0 uses the dataset preset.
	Budget float64 `koanf:"budget" validate:"gte=0"`

	PruneAlpha         float64 `koanf:"prune_alpha" validate:"gte=0,lte=1"`
	PruneBeta          float64 `koanf:"prune_beta" validate:"gte=0,lte=1"`
	MaxPruneIterations int     `koanf:"max_prune_iterations" validate:"gt=0"`

	// MajorAbilities is how many top-mean abilities each vertex keeps.
	MajorAbilities int `koanf:"major_abilities" validate:"gt=0"`

	// GraphWorkers bounds similarity computation goroutines.
	GraphWorkers int `koanf:"graph_workers" validate:"gt=0"`

	// PositionSeed drives the fill of missing player positions.
	PositionSeed uint64 `koanf:"position_seed"`

	// DefenseQuota and AttackQuota override the preset quotas when set.
	DefenseQuota map[string]int `koanf:"defense_quota" validate:"omitempty,dive,gte=0"`
	AttackQuota  map[string]int `koanf:"attack_quota" validate:"omitempty,dive,gte=0"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		QueueSize:          1_000,
		WorkerCount:        runtime.NumCPU(),
		DedupeSize:         100_000,
		MaxResultsLimit:    100,
		Dataset:            "pes",
		DataDir:            "data",
		PruneAlpha:         0.7,
		PruneBeta:          0.15,
		MaxPruneIterations: 500,
		MajorAbilities:     10,
		GraphWorkers:       runtime.NumCPU(),
		PositionSeed:       1,
	}
}

// DatasetPaths resolves the dataset files, honouring per-file overrides.
func (c *Config) DatasetPaths() dataset.Paths {
	p := dataset.DirPaths(c.DataDir)
	override := func(dst *string, name string) {
		if name == "" {
			return
		}
		if filepath.IsAbs(name) {
			*dst = name
			return
		}
		*dst = filepath.Join(c.DataDir, name)
	}
	override(&p.Goalkeepers, c.GoalkeeperFile)
	override(&p.Defense, c.DefenseFile)
	override(&p.Attack, c.AttackFile)
	override(&p.DefenseCriteria, c.DefenseCriteriaFile)
	override(&p.AttackCriteria, c.AttackCriteriaFile)
	return p
}
