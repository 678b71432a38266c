package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/okian/squad/internal/adapters/dataset"
	"github.com/okian/squad/internal/adapters/snapshot"
	"github.com/okian/squad/internal/config"
	"github.com/okian/squad/internal/domain/composer"
	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/playergraph"
	"github.com/okian/squad/internal/domain/pruning"
	"github.com/okian/squad/internal/domain/scoring"
	"github.com/okian/squad/internal/domain/selection"
	"github.com/okian/squad/pkg/logger"
	"github.com/okian/squad/pkg/metrics"
	"github.com/sahilm/fuzzy"
	"golang.org/x/sync/errgroup"
)

// ErrBootstrap wraps every failure to build the composition context.
var ErrBootstrap = errors.New("bootstrap failed")

// Source describes where a composition context came from.
type Source struct {
	Fingerprint  string
	FromSnapshot bool
	SnapshotPath string
}

// LoadContext reads the configured dataset and builds both similarity
// graphs. When cfg.SnapshotDir is set, a snapshot with a matching
// fingerprint is reused and a fresh build is saved for next time.
func LoadContext(ctx context.Context, cfg *config.Config, log logger.Logger) (*composer.Context, Source, error) {
	if log == nil {
		log = logger.Nop()
	}
	preset, err := cfg.Preset()
	if err != nil {
		return nil, Source{}, fmt.Errorf("%w: %w", ErrBootstrap, err)
	}
	paths := cfg.DatasetPaths()

	fp, err := Fingerprint(cfg, paths)
	if err != nil {
		return nil, Source{}, fmt.Errorf("%w: %w", ErrBootstrap, err)
	}
	src := Source{Fingerprint: fp}
	if cfg.SnapshotDir != "" {
		src.SnapshotPath = filepath.Join(cfg.SnapshotDir, preset.Name+"-"+fp+".snap")
		if c, ok := fromSnapshot(ctx, src.SnapshotPath, fp, log); ok {
			src.FromSnapshot = true
			return c, src, nil
		}
	}

	raw, err := dataset.Load(ctx, paths)
	if err != nil {
		return nil, src, fmt.Errorf("%w: %w", ErrBootstrap, err)
	}
	defenseCriteria, attackCriteria, err := parseCriteria(raw.DefenseCriteria, raw.AttackCriteria)
	if err != nil {
		return nil, src, fmt.Errorf("%w: %w", ErrBootstrap, err)
	}
	if n := dataset.FillPositions(raw.Defense, preset.DefensePositions, cfg.PositionSeed); n > 0 {
		log.Info(ctx, "filled missing positions", logger.String("group", "defense"), logger.Int("players", n))
	}
	if n := dataset.FillPositions(raw.Attack, preset.AttackPositions, cfg.PositionSeed+1); n > 0 {
		log.Info(ctx, "filled missing positions", logger.String("group", "attack"), logger.Int("players", n))
	}
	warnUnknownAbilities(ctx, log, "defense", raw.DefenseCriteria, raw.Defense)
	warnUnknownAbilities(ctx, log, "attack", raw.AttackCriteria, raw.Attack)

	defense, attack, err := buildGraphs(ctx, cfg, raw, log)
	if err != nil {
		return nil, src, fmt.Errorf("%w: %w", ErrBootstrap, err)
	}
	c, err := composer.NewContext(raw.Goalkeepers, defense, attack, defenseCriteria, attackCriteria)
	if err != nil {
		return nil, src, fmt.Errorf("%w: %w", ErrBootstrap, err)
	}

	if src.SnapshotPath != "" {
		snap := &snapshot.Snapshot{
			Dataset:         preset.Name,
			Fingerprint:     fp,
			CreatedAt:       time.Now().UTC(),
			Goalkeepers:     raw.Goalkeepers,
			Defense:         defense.Export(),
			Attack:          attack.Export(),
			DefenseCriteria: raw.DefenseCriteria,
			AttackCriteria:  raw.AttackCriteria,
		}
		if err := snapshot.Save(src.SnapshotPath, snap); err != nil {
			log.Warn(ctx, "snapshot save failed", logger.String("path", src.SnapshotPath), logger.Error(err))
		} else {
			log.Info(ctx, "snapshot saved", logger.String("path", src.SnapshotPath))
		}
	}
	return c, src, nil
}

// Fingerprint hashes the dataset files together with every setting that
// changes the built graphs.
func Fingerprint(cfg *config.Config, p dataset.Paths) (string, error) {
	d := xxhash.New()
	_, _ = d.WriteString(cfg.Dataset)
	_, _ = d.WriteString(strconv.Itoa(cfg.MajorAbilities))
	_, _ = d.WriteString(strconv.FormatUint(cfg.PositionSeed, 10))
	for _, path := range []string{p.Goalkeepers, p.Defense, p.Attack, p.DefenseCriteria, p.AttackCriteria} {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		_, err = io.Copy(d, f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("%s: %w", path, err)
		}
		_, _ = d.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", d.Sum64()), nil
}

func fromSnapshot(ctx context.Context, path, fp string, log logger.Logger) (*composer.Context, bool) {
	snap, err := snapshot.Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn(ctx, "snapshot unusable, rebuilding", logger.String("path", path), logger.Error(err))
		}
		return nil, false
	}
	if snap.Fingerprint != fp {
		log.Warn(ctx, "snapshot fingerprint mismatch, rebuilding", logger.String("path", path))
		return nil, false
	}
	defense, attack, err := snap.Graphs()
	if err != nil {
		log.Warn(ctx, "snapshot graphs invalid, rebuilding", logger.Error(err))
		return nil, false
	}
	c, err := newContext(snap.Goalkeepers, defense, attack, snap.DefenseCriteria, snap.AttackCriteria)
	if err != nil {
		log.Warn(ctx, "snapshot context invalid, rebuilding", logger.Error(err))
		return nil, false
	}
	log.Info(ctx, "graphs restored from snapshot",
		logger.String("path", path),
		logger.Int("defense", defense.Len()),
		logger.Int("attack", attack.Len()),
	)
	return c, true
}

func buildGraphs(ctx context.Context, cfg *config.Config, raw dataset.Raw, log logger.Logger) (defense, attack *playergraph.Graph, err error) {
	build := func(ctx context.Context, group string, records []model.PlayerRecord, dst **playergraph.Graph) error {
		start := time.Now()
		g, err := playergraph.Build(ctx, records,
			playergraph.WithMajorAbilities(cfg.MajorAbilities),
			playergraph.WithWorkers(cfg.GraphWorkers),
			playergraph.WithLogger(log.Named(group)),
		)
		if err != nil {
			return fmt.Errorf("%s graph: %w", group, err)
		}
		ms := float64(time.Since(start).Milliseconds())
		metrics.RecordGraphBuild(group, ms, g.Len(), g.EdgeCount())
		log.Info(ctx, "graph built",
			logger.String("group", group),
			logger.Int("vertices", g.Len()),
			logger.Int("edges", g.EdgeCount()),
			logger.Float64("density", g.Density()),
			logger.Float64("ms", ms),
		)
		*dst = g
		return nil
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return build(gctx, "defense", raw.Defense, &defense) })
	eg.Go(func() error { return build(gctx, "attack", raw.Attack, &attack) })
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return defense, attack, nil
}

// NewComposer builds a composer over c that reports selection fan-out and
// prune deadlocks to metrics.
func NewComposer(c *composer.Context, log logger.Logger) *composer.Composer {
	if log == nil {
		log = logger.Nop()
	}
	sel := selection.NewSelector(
		selection.WithLogger(log.Named("selection")),
		selection.WithCandidateObserver(func(g model.RoleGroup, n int) {
			metrics.RecordSelectionCandidates(g.String(), n)
		}),
	)
	return composer.New(c,
		composer.WithLogger(log.Named("composer")),
		composer.WithSelector(sel),
		composer.WithPruneObserver(func(_ pruning.Step, err error) {
			if errors.Is(err, pruning.ErrPruneDeadlock) {
				metrics.RecordPruneDeadlock()
			}
		}),
	)
}

// parseCriteria normalises both weight maps. It runs before any graph is
// built so bad criteria never cost a pairwise build.
func parseCriteria(dc, ac map[string]float64) (defense, attack scoring.Criteria, err error) {
	defense, err = scoring.NewCriteria(dc)
	if err != nil {
		return defense, attack, fmt.Errorf("defense criteria: %w", err)
	}
	attack, err = scoring.NewCriteria(ac)
	if err != nil {
		return defense, attack, fmt.Errorf("attack criteria: %w", err)
	}
	return defense, attack, nil
}

func newContext(gks []model.Goalkeeper, defense, attack *playergraph.Graph, dc, ac map[string]float64) (*composer.Context, error) {
	defenseCriteria, attackCriteria, err := parseCriteria(dc, ac)
	if err != nil {
		return nil, err
	}
	return composer.NewContext(gks, defense, attack, defenseCriteria, attackCriteria)
}

// warnUnknownAbilities logs criteria names no player carries, with the
// closest known ability as a hint. Unknown abilities score zero.
func warnUnknownAbilities(ctx context.Context, log logger.Logger, group string, criteria map[string]float64, records []model.PlayerRecord) {
	unknown := UnknownAbilities(criteria, records)
	for _, name := range slices.Sorted(maps.Keys(unknown)) {
		hint := unknown[name]
		fields := []logger.Field{logger.String("group", group), logger.String("ability", name)}
		if hint != "" {
			fields = append(fields, logger.String("did_you_mean", hint))
		}
		log.Warn(ctx, "criteria ability not found in players", fields...)
	}
}

// UnknownAbilities returns the criteria names absent from every record,
// mapped to the closest fuzzy match among the known names ("" if none).
func UnknownAbilities(criteria map[string]float64, records []model.PlayerRecord) map[string]string {
	seen := make(map[string]struct{})
	for _, r := range records {
		for name := range r.Abilities {
			seen[name] = struct{}{}
		}
	}
	names := slices.Sorted(maps.Keys(seen))

	out := make(map[string]string)
	for name := range criteria {
		if _, ok := seen[name]; ok {
			continue
		}
		var hint string
		if matches := fuzzy.Find(name, names); len(matches) > 0 {
			hint = matches[0].Str
		}
		out[name] = hint
	}
	return out
}
