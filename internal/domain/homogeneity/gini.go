// Package homogeneity measures how evenly abilities are spread inside a
// group of players.
package homogeneity

import (
	"math"
	"slices"

	"github.com/okian/squad/internal/domain/model"
	"gonum.org/v1/gonum/stat"
)

// Gini returns the mean Gini coefficient across the abilities of members.
// An ability missing on a player counts as 0. Abilities whose mean is not
// positive, or whose values are all equal, contribute 0. No members or no
// abilities yields 0.
func Gini(members []model.Player) float64 {
	if len(members) == 0 {
		return 0
	}
	abilities := abilityUnion(members)
	if len(abilities) == 0 {
		return 0
	}
	values := make([]float64, len(members))
	var total float64
	for _, a := range abilities {
		for i, m := range members {
			values[i] = m.Abilities[a]
		}
		total += Coefficient(values)
	}
	return total / float64(len(abilities))
}

// Coefficient is sum_i sum_j |x_i - x_j| / (2 n² mean) for one ability.
// A degenerate population (empty, non-positive mean, no spread) gives 0.
func Coefficient(values []float64) float64 {
	n := float64(len(values))
	if n == 0 {
		return 0
	}
	mean := stat.Mean(values, nil)
	if !(mean > 0) {
		return 0
	}
	var diff float64
	for _, x := range values {
		for _, y := range values {
			diff += math.Abs(x - y)
		}
	}
	if diff == 0 {
		return 0
	}
	return diff / (2 * n * n * mean)
}

// Transform orients the raw Gini per role group: defense rewards
// homogeneity (1/gini, +Inf for a perfectly even group) while attack
// rewards heterogeneity (gini as is).
func Transform(group model.RoleGroup, gini float64) float64 {
	if group != model.GroupDefense {
		return gini
	}
	if gini == 0 {
		return math.Inf(1)
	}
	return 1 / gini
}

// Evaluate is Transform(group, Gini(members)).
func Evaluate(group model.RoleGroup, members []model.Player) float64 {
	return Transform(group, Gini(members))
}

func abilityUnion(members []model.Player) []string {
	set := make(map[string]struct{})
	for _, m := range members {
		for a := range m.Abilities {
			set[a] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}
