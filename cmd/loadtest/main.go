// Command loadtest submits a batch of compositions to a running squad
// service and verifies the ranking it reports.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/squad/internal/loadtest"
	"github.com/okian/squad/pkg/logger"
)

const (
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		requests   = flag.Int("requests", loadtest.DefaultRequests, "Number of distinct compositions to submit")
		duplicates = flag.Float64("duplicates", loadtest.DefaultDuplicateRate, "Share of submissions that resend a known id")
		topN       = flag.Int("top", loadtest.DefaultTopN, "Number of ranked compositions to fetch")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		seed       = flag.Uint64("seed", 1, "Seed for the generated overrides")
		minBudget  = flag.Float64("min-budget", 0, "Lower bound of budget overrides")
		maxBudget  = flag.Float64("max-budget", 0, "Upper bound of budget overrides; 0 keeps the preset budget")
		timeout    = flag.Duration("timeout", loadtest.DefaultTimeout, "HTTP request timeout")
		wait       = flag.Duration("wait", loadtest.DefaultWaitTimeout, "How long to wait for all compositions to finish")
		jsonLogs   = flag.Bool("json", false, "Log as JSON")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	if err := logger.Init(logger.WithJSON(*jsonLogs), logger.WithLevel(level)); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultTestTimeout)
	defer cancel()

	cfg := loadtest.Config{
		BaseURL:       *baseURL,
		Requests:      *requests,
		DuplicateRate: *duplicates,
		TopN:          *topN,
		Workers:       *workers,
		Seed:          *seed,
		MinBudget:     *minBudget,
		MaxBudget:     *maxBudget,
		Timeout:       *timeout,
		WaitTimeout:   *wait,
		Verbose:       *verbose,
	}
	if _, err := loadtest.Run(ctx, cfg, loadtest.WithLogger(logger.Named("loadtest"))); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
