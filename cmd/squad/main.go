// Command squad composes one team from a dataset directory and prints it.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	app "github.com/okian/squad/internal/app"
	"github.com/okian/squad/internal/config"
	"github.com/okian/squad/internal/domain/composer"
	"github.com/okian/squad/pkg/logger"
)

// Exit codes.
const (
	exitOK           = 0
	exitError        = 1
	exitUnattainable = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("squad", flag.ContinueOnError)
	var (
		dataset  = fs.String("dataset", "", "dataset preset: fifa or pes (default from config)")
		dataDir  = fs.String("data", "", "dataset directory (default from config)")
		budget   = fs.Float64("budget", 0, "salary budget (default from preset)")
		alpha    = fs.Float64("alpha", -1, "ability weight (default from preset)")
		beta     = fs.Float64("beta", -1, "density weight (default from preset)")
		asJSON   = fs.Bool("json", false, "print the report as JSON")
		verbose  = fs.Bool("verbose", false, "log progress to stderr")
		snapshot = fs.String("snapshots", "", "snapshot directory for built graphs")
	)
	if err := fs.Parse(args); err != nil {
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return exitError
	}
	applyFlags(cfg, *dataset, *dataDir, *snapshot, *budget, *alpha, *beta)
	if err := cfg.Validate(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return exitError
	}

	log := logger.Nop()
	if *verbose {
		if err := logger.Init(logger.WithWriter(os.Stderr)); err == nil {
			log = logger.Get()
		}
	}

	cctx, _, err := app.LoadContext(ctx, cfg, log)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return exitError
	}
	params, err := cfg.Params()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return exitError
	}

	report, runErr := app.NewComposer(cctx, log).Compose(ctx, params)
	if runErr != nil && !errors.Is(runErr, composer.ErrBudgetUnattainable) {
		os.Stderr.WriteString(runErr.Error() + "\n")
		return exitError
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(newReportJSON(report))
	} else {
		err = render(os.Stdout, cctx, report, runErr)
	}
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return exitError
	}
	if runErr != nil {
		return exitUnattainable
	}
	return exitOK
}

// applyFlags overlays command-line values on the loaded config. Negative
// weights and a zero budget mean "not set".
func applyFlags(cfg *config.Config, dataset, dataDir, snapshots string, budget, alpha, beta float64) {
	if dataset != "" {
		cfg.Dataset = dataset
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if snapshots != "" {
		cfg.SnapshotDir = snapshots
	}
	if budget > 0 {
		cfg.Budget = budget
	}
	if alpha >= 0 {
		cfg.Alpha = &alpha
	}
	if beta >= 0 {
		cfg.Beta = &beta
	}
}
