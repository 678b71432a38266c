package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/okian/squad/internal/domain/composer"
	"github.com/okian/squad/internal/domain/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginBottom(1)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FFFF"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// render writes a human-readable report of a run.
func render(w io.Writer, c *composer.Context, rep composer.Report, runErr error) error { //nolint:gocritic // hugeParam
	var b strings.Builder
	b.WriteString(titleStyle.Render("Squad " + rep.RunID))
	b.WriteString("\n")

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#00FFFF"))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle()
		}).
		Headers("GROUP", "ID", "POSITION", "RATING", "SALARY")

	if gk, ok := c.Goalkeeper(rep.Team.Goalkeeper); ok {
		t.Row("goalkeeper", fmt.Sprint(gk.ID), "GK", num(gk.Rating), num(gk.Salary))
	}
	for _, g := range []model.RoleGroup{model.GroupDefense, model.GroupAttack} {
		for _, id := range rep.Team.Bucket(g) {
			p, ok := c.Graph(g).Player(id)
			if !ok {
				continue
			}
			t.Row(g.String(), fmt.Sprint(p.ID), p.Position, num(p.Rating), num(p.Salary))
		}
	}
	b.WriteString(t.String())
	b.WriteString("\n")

	status := okStyle.Render("within budget")
	if runErr != nil {
		status = errorStyle.Render(runErr.Error())
	} else if !rep.WithinBudget() {
		status = errorStyle.Render("over budget")
	}
	summary := []string{
		fmt.Sprintf("cost          %s / %s", num(rep.Evaluation.Cost), num(rep.Budget)),
		fmt.Sprintf("mean ability  %s", num(rep.Evaluation.MeanAbility)),
		fmt.Sprintf("defense gini  %s  homogeneity %s", num(rep.Evaluation.DefenseGini), num(rep.Evaluation.DefenseHomogeneity)),
		fmt.Sprintf("attack gini   %s", num(rep.Evaluation.AttackGini)),
		fmt.Sprintf("prune steps   %d", len(rep.Steps)),
		fmt.Sprintf("status        %s", status),
	}
	b.WriteString(boxStyle.Render(strings.Join(summary, "\n")))
	b.WriteString("\n")

	trace := make([]string, len(rep.Trace))
	for i, s := range rep.Trace {
		trace[i] = s.String()
	}
	b.WriteString(dimStyle.Render(strings.Join(trace, " → ")))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func num(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "∞"
	case math.IsNaN(f):
		return "n/a"
	default:
		return fmt.Sprintf("%.3f", f)
	}
}

// reportJSON shadows the evaluation so an infinite homogeneity encodes as
// null instead of failing.
type reportJSON struct {
	composer.Report
	Evaluation evaluationJSON
}

type evaluationJSON struct {
	composer.Evaluation
	DefenseHomogeneity *float64
}

func newReportJSON(rep composer.Report) reportJSON { //nolint:gocritic // hugeParam
	out := reportJSON{Report: rep, Evaluation: evaluationJSON{Evaluation: rep.Evaluation}}
	if h := rep.Evaluation.DefenseHomogeneity; !math.IsInf(h, 0) && !math.IsNaN(h) {
		out.Evaluation.DefenseHomogeneity = &h
	}
	return out
}
