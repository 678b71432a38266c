package api

import (
	"math"
	"time"

	repository "github.com/okian/squad/internal/adapters/repository"
	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/pruning"
)

type compositionView struct {
	ID          string       `json:"id"`
	Status      model.Status `json:"status"`
	Rank        int          `json:"rank,omitempty"`
	SubmittedAt time.Time    `json:"submitted_at"`
	FinishedAt  *time.Time   `json:"finished_at,omitempty"`
	Error       string       `json:"error,omitempty"`
	Result      *resultView  `json:"result,omitempty"`
}

type resultView struct {
	RunID               string         `json:"run_id"`
	Team                model.Team     `json:"team"`
	Budget              float64        `json:"budget"`
	Cost                float64        `json:"cost"`
	WithinBudget        bool           `json:"within_budget"`
	MeanAbility         *float64       `json:"mean_ability"`
	DefenseGini         *float64       `json:"defense_gini"`
	AttackGini          *float64       `json:"attack_gini"`
	DefenseHomogeneity  *float64       `json:"defense_homogeneity"`
	AttackHeterogeneity *float64       `json:"attack_heterogeneity"`
	Trace               []string       `json:"trace"`
	Steps               []pruning.Step `json:"prune_steps"`
	DurationMs          float64        `json:"duration_ms"`
}

func newCompositionView(rec repository.Record) compositionView { //nolint:gocritic // hugeParam
	v := compositionView{
		ID:          rec.ID,
		Status:      rec.Status,
		Rank:        rec.Rank,
		SubmittedAt: rec.SubmittedAt,
		Error:       rec.Error,
	}
	if !rec.FinishedAt.IsZero() {
		at := rec.FinishedAt
		v.FinishedAt = &at
	}
	if rec.Status != model.StatusDone && rec.Status != model.StatusUnattainable {
		return v
	}

	rep := rec.Report
	trace := make([]string, len(rep.Trace))
	for i, s := range rep.Trace {
		trace[i] = s.String()
	}
	steps := rep.Steps
	if steps == nil {
		steps = []pruning.Step{}
	}
	v.Result = &resultView{
		RunID:               rep.RunID,
		Team:                rep.Team,
		Budget:              rep.Budget,
		Cost:                rep.Evaluation.Cost,
		WithinBudget:        rep.WithinBudget(),
		MeanAbility:         finite(rep.Evaluation.MeanAbility),
		DefenseGini:         finite(rep.Evaluation.DefenseGini),
		AttackGini:          finite(rep.Evaluation.AttackGini),
		DefenseHomogeneity:  finite(rep.Evaluation.DefenseHomogeneity),
		AttackHeterogeneity: finite(rep.Evaluation.AttackHeterogeneity),
		Trace:               trace,
		Steps:               steps,
		DurationMs:          float64(rep.Duration.Microseconds()) / 1000,
	}
	return v
}

// finite returns nil for NaN and infinities, which JSON cannot carry.
func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
