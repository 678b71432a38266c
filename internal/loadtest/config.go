// Package loadtest drives a running squad service over HTTP: it submits a
// batch of composition requests, waits for them to finish and checks the
// ranking the service reports.
package loadtest

import (
	"errors"
	"time"
)

// ErrInvalidConfig is returned for unusable load test settings.
var ErrInvalidConfig = errors.New("invalid load test config")

// Defaults used by cmd/loadtest.
const (
	DefaultRequests      = 200
	DefaultTopN          = 20
	DefaultTimeout       = 10 * time.Second
	DefaultWaitTimeout   = 2 * time.Minute
	DefaultPollInterval  = 50 * time.Millisecond
	DefaultDuplicateRate = 0.05
)

// Config holds configuration for a load test run.
type Config struct {
	BaseURL       string        // Base URL of the service
	Requests      int           // Number of distinct requests to submit
	DuplicateRate float64       // Share of submissions that resend a known id
	TopN          int           // Number of ranked compositions to fetch
	Workers       int           // Number of concurrent HTTP workers
	Seed          uint64        // Drives the generated overrides
	MinBudget     float64       // Budget override range; 0 keeps the preset
	MaxBudget     float64       //
	Timeout       time.Duration // HTTP request timeout
	WaitTimeout   time.Duration // How long to wait for all runs to finish
	PollInterval  time.Duration
	Verbose       bool
}

func (c *Config) validate() error {
	switch {
	case c.BaseURL == "":
		return errors.Join(ErrInvalidConfig, errors.New("missing base url"))
	case c.Requests <= 0 || c.Workers <= 0 || c.TopN <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("requests, workers and top must be positive"))
	case c.DuplicateRate < 0 || c.DuplicateRate >= 1:
		return errors.Join(ErrInvalidConfig, errors.New("duplicate rate must be in [0, 1)"))
	case c.MinBudget < 0 || c.MaxBudget < c.MinBudget:
		return errors.Join(ErrInvalidConfig, errors.New("budget range is inverted"))
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = DefaultWaitTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return nil
}

// Request is the body of POST /compositions.
type Request struct {
	ID     string   `json:"id"`
	Alpha  *float64 `json:"alpha,omitempty"`
	Beta   *float64 `json:"beta,omitempty"`
	Budget *float64 `json:"budget,omitempty"`
}

// Ack is the response to a submission.
type Ack struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Composition is the subset of a stored composition the checks need.
type Composition struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Rank   int    `json:"rank"`
	Error  string `json:"error"`
	Result *struct {
		Cost         float64  `json:"cost"`
		Budget       float64  `json:"budget"`
		WithinBudget bool     `json:"within_budget"`
		MeanAbility  *float64 `json:"mean_ability"`
	} `json:"result"`
}

// Stats holds load test statistics.
type Stats struct {
	Submitted    int
	Accepted     int
	Duplicate    int
	Rejected     int
	Failed       int
	Done         int
	Unattainable int
	RunFailed    int
	Ranked       int
	StartTime    time.Time
	Duration     time.Duration
}
