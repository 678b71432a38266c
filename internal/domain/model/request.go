package model

import (
	"fmt"
	"time"
)

// Status is the lifecycle stage of a queued composition.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	// StatusUnattainable marks a run whose pruning could not reach the budget;
	// the last team is still reported.
	StatusUnattainable Status = "budget_unattainable"
	StatusFailed       Status = "failed"
)

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusUnattainable || s == StatusFailed
}

// CompositionRequest asks for one composition. Nil fields fall back to
// the service defaults.
type CompositionRequest struct {
	ID          string
	Alpha       *float64
	Beta        *float64
	Budget      *float64
	DefenseSeed *int64
	AttackSeed  *int64
	SubmittedAt time.Time
}

func (r CompositionRequest) String() string {
	return fmt.Sprintf("composition %s", r.ID)
}
