// Command gen-pool writes a synthetic player dataset directory that the
// squad service and CLI can load.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/okian/squad/internal/adapters/dataset"
	"github.com/okian/squad/internal/poolgen"
	"github.com/okian/squad/pkg/logger"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("gen-pool", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		out         = fs.String("out", "data", "Output dataset directory")
		ds          = fs.String("dataset", "pes", "Position vocabulary: fifa or pes")
		seed        = fs.Uint64("seed", 1, "Generator seed")
		goalkeepers = fs.Int("goalkeepers", poolgen.DefaultGoalkeepers, "Number of goalkeepers")
		defenders   = fs.Int("defenders", poolgen.DefaultDefenders, "Number of defense players")
		attackers   = fs.Int("attackers", poolgen.DefaultAttackers, "Number of attack players")
		clubs       = fs.Int("clubs", poolgen.DefaultClubs, "Number of distinct clubs")
		nations     = fs.Int("nations", poolgen.DefaultNations, "Number of distinct nations")
		workers     = fs.Int("workers", runtime.NumCPU(), "Generator workers")
		verbose     = fs.Bool("verbose", false, "Log progress")
	)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	log := logger.Nop()
	if *verbose {
		if err := logger.Init(logger.WithWriter(stderr)); err == nil {
			log = logger.Named("gen-pool")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := poolgen.Config{
		Seed:        *seed,
		Dataset:     *ds,
		Goalkeepers: *goalkeepers,
		Defenders:   *defenders,
		Attackers:   *attackers,
		Clubs:       *clubs,
		Nations:     *nations,
		Workers:     *workers,
	}
	pool, err := poolgen.Generate(ctx, cfg, poolgen.WithLogger(log))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	raw := dataset.Raw{
		Goalkeepers:     pool.Goalkeepers,
		Defense:         pool.Defense,
		Attack:          pool.Attack,
		DefenseCriteria: poolgen.DefenseCriteria(),
		AttackCriteria:  poolgen.AttackCriteria(),
	}
	if err := dataset.Write(*out, raw, poolgen.FieldAbilities, poolgen.GoalkeeperAbilities); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	log.Info(ctx, "pool written",
		logger.String("dir", *out),
		logger.Int("goalkeepers", len(pool.Goalkeepers)),
		logger.Int("defense", len(pool.Defense)),
		logger.Int("attack", len(pool.Attack)),
	)
	return 0
}
