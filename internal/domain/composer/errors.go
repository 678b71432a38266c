package composer

import "errors"

// Sentinel kinds for composition.
var (
	// ErrBudgetUnattainable means pruning could not bring the team under
	// budget: a deadlock, no cost progress, or the iteration cap.
	ErrBudgetUnattainable = errors.New("budget unattainable")
	ErrInvalidParams      = errors.New("invalid composition params")
	ErrInvalidContext     = errors.New("invalid composition context")
	ErrNoGoalkeeper       = errors.New("no goalkeeper available")
)
