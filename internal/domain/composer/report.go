package composer

import (
	"time"

	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/pruning"
)

// Evaluation is the EVALUATE state output for a team.
type Evaluation struct {
	Cost                float64
	MeanAbility         float64
	DefenseGini         float64
	AttackGini          float64
	DefenseHomogeneity  float64 // 1/gini, +Inf for a perfectly even defense
	AttackHeterogeneity float64
	Values              []pruning.Value
}

// Report is the frozen result of a composition run. On
// ErrBudgetUnattainable it describes the last team reached.
type Report struct {
	RunID      string
	Team       model.Team
	Budget     float64
	Evaluation Evaluation
	Steps      []pruning.Step
	Trace      []State
	Duration   time.Duration
}

// WithinBudget reports whether the team cost is strictly below budget.
func (r Report) WithinBudget() bool { return r.Evaluation.Cost < r.Budget }
