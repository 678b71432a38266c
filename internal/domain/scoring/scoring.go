// Package scoring computes multi-criteria ability scores.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Weight is one normalised criteria entry.
type Weight struct {
	Ability string  `json:"ability"`
	Weight  float64 `json:"weight"`
}

// Criteria is an immutable, normalised weight vector over ability names.
// Entries are kept sorted by ability so sums are reproducible.
type Criteria struct {
	entries []Weight
}

// NewCriteria validates raw weights and rescales them to sum to 1.
func NewCriteria(raw map[string]float64) (Criteria, error) {
	if len(raw) == 0 {
		return Criteria{}, fmt.Errorf("%w: no weights", ErrInvalidCriteria)
	}
	names := make([]string, 0, len(raw))
	values := make([]float64, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w := raw[name]
		switch {
		case math.IsNaN(w) || math.IsInf(w, 0):
			return Criteria{}, fmt.Errorf("%w: weight for %q is not finite", ErrInvalidCriteria, name)
		case w < 0:
			return Criteria{}, fmt.Errorf("%w: weight for %q is negative", ErrInvalidCriteria, name)
		}
		values = append(values, w)
	}
	total := floats.Sum(values)
	if total <= 0 {
		return Criteria{}, fmt.Errorf("%w: weights sum to zero", ErrInvalidCriteria)
	}

	c := Criteria{entries: make([]Weight, len(names))}
	for i, name := range names {
		c.entries[i] = Weight{Ability: name, Weight: values[i] / total}
	}
	return c, nil
}

// Entries returns a copy of the sorted weights.
func (c Criteria) Entries() []Weight {
	out := make([]Weight, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len is the number of abilities the criteria cover.
func (c Criteria) Len() int { return len(c.entries) }

// Weight returns the weight of an ability, 0 when absent.
func (c Criteria) Weight(ability string) float64 {
	i := sort.Search(len(c.entries), func(i int) bool { return c.entries[i].Ability >= ability })
	if i < len(c.entries) && c.entries[i].Ability == ability {
		return c.entries[i].Weight
	}
	return 0
}

// Score is the weighted sum of the abilities named by the criteria.
// Abilities the player lacks contribute nothing.
func Score(abilities map[string]float64, c Criteria) float64 {
	var s float64
	for _, e := range c.entries {
		if v, ok := abilities[e.Ability]; ok {
			s += e.Weight * v
		}
	}
	return s
}

// MeanAbility is the plain average used to rank goalkeepers.
func MeanAbility(abilities []float64) float64 {
	if len(abilities) == 0 {
		return 0
	}
	return floats.Sum(abilities) / float64(len(abilities))
}

// Scorer scores an ability map for one role group.
type Scorer interface {
	Score(abilities map[string]float64) float64
}

// CriteriaScorer implements Scorer with a fixed criteria vector.
type CriteriaScorer struct {
	criteria Criteria
}

// NewCriteriaScorer builds a scorer over c.
func NewCriteriaScorer(c Criteria) *CriteriaScorer {
	return &CriteriaScorer{criteria: c}
}

// NewCriteriaScorerFromWeights validates raw weights and builds a scorer.
func NewCriteriaScorerFromWeights(raw map[string]float64) (*CriteriaScorer, error) {
	c, err := NewCriteria(raw)
	if err != nil {
		return nil, err
	}
	return NewCriteriaScorer(c), nil
}

// Score implements Scorer.
func (s *CriteriaScorer) Score(abilities map[string]float64) float64 {
	return Score(abilities, s.criteria)
}

// Criteria returns the scorer's criteria vector.
func (s *CriteriaScorer) Criteria() Criteria {
	return s.criteria
}
