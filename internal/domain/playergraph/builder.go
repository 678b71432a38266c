package playergraph

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sort"
	"time"

	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/pkg/logger"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// DefaultMajorAbilities is how many abilities survive on each vertex.
const DefaultMajorAbilities = 10

// Option configures Build.
type Option func(*builder)

type builder struct {
	majors  int
	workers int
	log     logger.Logger
}

// WithMajorAbilities sets how many top-mean abilities are kept per vertex.
func WithMajorAbilities(n int) Option {
	return func(b *builder) {
		if n > 0 {
			b.majors = n
		}
	}
}

// WithWorkers bounds the goroutines computing similarity rows.
func WithWorkers(n int) Option {
	return func(b *builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithLogger sets the logger used for build statistics.
func WithLogger(l logger.Logger) Option {
	return func(b *builder) {
		if l != nil {
			b.log = l
		}
	}
}

// Edge is an undirected weighted link with From < To.
type Edge struct {
	From   int64
	To     int64
	Weight float64
}

// Build turns a pool of records into a similarity graph. Records must carry
// unique non-negative ids.
func Build(ctx context.Context, records []model.PlayerRecord, opts ...Option) (*Graph, error) {
	b := builder{
		majors:  DefaultMajorAbilities,
		workers: runtime.NumCPU(),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	start := time.Now()

	sorted := slices.Clone(records)
	slices.SortFunc(sorted, func(a, b model.PlayerRecord) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	majors := MajorAbilities(sorted, b.majors)
	players := make([]model.Player, len(sorted))
	for i, r := range sorted {
		players[i] = toVertex(r, majors)
	}
	gr, err := newGraph(players, majors)
	if err != nil {
		return nil, err
	}

	rows, err := b.similarityRows(ctx, sorted)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		for _, e := range row {
			gr.addEdge(e)
		}
	}

	b.log.Info(ctx, "similarity graph built",
		logger.Int("vertices", gr.Len()),
		logger.Int("edges", gr.EdgeCount()),
		logger.Float64("density", gr.Density()),
		logger.Any("majors", majors),
		logger.Duration("took", time.Since(start)),
	)
	return gr, nil
}

// similarityRows computes, for every i, the edges (i, j>i) with positive
// similarity. Row ranges are split across workers; the result order is fixed.
func (b builder) similarityRows(ctx context.Context, sorted []model.PlayerRecord) ([][]Edge, error) {
	attrs := make([][]string, len(sorted))
	for i, r := range sorted {
		attrs[i] = r.Attributes()
	}

	rows := make([][]Edge, len(sorted))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i := range sorted {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("similarity row %d: %w", i, err)
			}
			var row []Edge
			for j := i + 1; j < len(sorted); j++ {
				if w := Jaccard(attrs[i], attrs[j]); w > 0 {
					row = append(row, Edge{From: sorted[i].ID, To: sorted[j].ID, Weight: w})
				}
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

// MajorAbilities ranks abilities by population mean (missing values count
// as 0) and returns the n highest, ties broken by name.
func MajorAbilities(records []model.PlayerRecord, n int) []string {
	names := make(map[string]struct{})
	for _, r := range records {
		for a := range r.Abilities {
			names[a] = struct{}{}
		}
	}
	type ranked struct {
		name string
		mean float64
	}
	all := make([]ranked, 0, len(names))
	values := make([]float64, len(records))
	for a := range names {
		for i, r := range records {
			values[i] = r.Abilities[a]
		}
		all = append(all, ranked{name: a, mean: stat.Mean(values, nil)})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].mean != all[j].mean {
			return all[i].mean > all[j].mean
		}
		return all[i].name < all[j].name
	})
	if n > len(all) {
		n = len(all)
	}
	out := make([]string, n)
	for i := range out {
		out[i] = all[i].name
	}
	return out
}

func toVertex(r model.PlayerRecord, majors []string) model.Player {
	abilities := make(map[string]float64, len(majors))
	for _, a := range majors {
		if v, ok := r.Abilities[a]; ok {
			abilities[a] = v
		}
	}
	return model.Player{
		ID:        r.ID,
		Position:  r.Position,
		Rating:    r.Rating,
		Salary:    model.Salary(r.Rating),
		Abilities: abilities,
	}
}
