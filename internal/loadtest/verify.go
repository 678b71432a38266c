package loadtest

import (
	"errors"
	"fmt"
)

// verify checks the ranking against the finished compositions.
func verify(results, top []Composition, stats *Stats) error {
	var errs []error
	byID := make(map[string]Composition, len(results))
	for _, c := range results {
		byID[c.ID] = c
		if c.Result == nil {
			if c.Status != "failed" {
				errs = append(errs, fmt.Errorf("%s: %s without result", c.ID, c.Status))
			}
			continue
		}
		switch {
		case c.Status == "done" && !c.Result.WithinBudget:
			errs = append(errs, fmt.Errorf("%s: done but cost %.4f is not under budget %.4f", c.ID, c.Result.Cost, c.Result.Budget))
		case c.Status == "budget_unattainable" && c.Result.WithinBudget:
			errs = append(errs, fmt.Errorf("%s: unattainable but within budget", c.ID))
		}
	}

	prev := 0.0
	for i, c := range top {
		if c.Rank != i+1 {
			errs = append(errs, fmt.Errorf("position %d has rank %d", i+1, c.Rank))
		}
		if c.Status != "done" || c.Result == nil || c.Result.MeanAbility == nil {
			errs = append(errs, fmt.Errorf("ranked %s is %s", c.ID, c.Status))
			continue
		}
		mean := *c.Result.MeanAbility
		if i > 0 && mean > prev {
			errs = append(errs, fmt.Errorf("rank %d (%.4f) beats rank %d (%.4f)", i+1, mean, i, prev))
		}
		prev = mean
		if _, ours := byID[c.ID]; ours {
			stats.Ranked++
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrVerification, errors.Join(errs...))
	}
	return nil
}
