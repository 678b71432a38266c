package selection

import (
	"fmt"

	"github.com/okian/squad/internal/domain/homogeneity"
	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/playergraph"
	"github.com/okian/squad/internal/domain/scoring"
)

// Weights split the composite score between ability (Alpha), social
// density (Beta) and homogeneity (the remaining 1-Alpha-Beta).
type Weights struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

const weightSumTolerance = 1e-9

// Validate requires Alpha, Beta in [0,1] and Alpha+Beta <= 1.
func (w Weights) Validate() error {
	if !(w.Alpha >= 0 && w.Alpha <= 1) || !(w.Beta >= 0 && w.Beta <= 1) || w.Alpha+w.Beta > 1+weightSumTolerance {
		return fmt.Errorf("%w: alpha=%v beta=%v", ErrInvalidWeights, w.Alpha, w.Beta)
	}
	return nil
}

// Gamma is the homogeneity weight.
func (w Weights) Gamma() float64 { return 1 - w.Alpha - w.Beta }

// Candidate is a scored extension of a partial team.
type Candidate struct {
	ID              int64   `json:"id"`
	Density         float64 `json:"density"`
	Ability         float64 `json:"ability"`
	Homogeneity     float64 `json:"homogeneity"`
	NormAbility     float64 `json:"norm_ability"`
	NormHomogeneity float64 `json:"norm_homogeneity"`
	Score           float64 `json:"score"`
}

// Evaluate scores every candidate against team:
//
//	density     = sum of edge weights to team / (|team| + 1)
//	ability     = own score + scores of linked team members
//	homogeneity = group-oriented Gini of team ∪ {candidate}
//	score       = α·norm(ability) + β·density + (1-α-β)·norm(homogeneity)
//
// Results keep the order of candidates.
func Evaluate(g *playergraph.Graph, scorer scoring.Scorer, group model.RoleGroup, w Weights, team, candidates []int64) ([]Candidate, error) {
	members := make([]model.Player, len(team), len(team)+1)
	teamScores := make([]float64, len(team))
	for i, id := range team {
		p, err := g.MustPlayer(id)
		if err != nil {
			return nil, err
		}
		members[i] = p
		teamScores[i] = scorer.Score(p.Abilities)
	}

	out := make([]Candidate, len(candidates))
	abilities := make([]float64, len(candidates))
	homos := make([]float64, len(candidates))
	for i, id := range candidates {
		p, err := g.MustPlayer(id)
		if err != nil {
			return nil, err
		}
		var weightSum float64
		ability := scorer.Score(p.Abilities)
		for j, t := range team {
			if wt, ok := g.Weight(id, t); ok {
				weightSum += wt
				ability += teamScores[j]
			}
		}
		homo := homogeneity.Evaluate(group, append(members, p))
		out[i] = Candidate{
			ID:          id,
			Density:     weightSum / float64(len(team)+1),
			Ability:     ability,
			Homogeneity: homo,
		}
		abilities[i] = ability
		homos[i] = homo
	}

	nAbi := Normalize(abilities)
	nHomo := Normalize(homos)
	for i := range out {
		out[i].NormAbility = nAbi[i]
		out[i].NormHomogeneity = nHomo[i]
		out[i].Score = w.Alpha*nAbi[i] + w.Beta*out[i].Density + w.Gamma()*nHomo[i]
	}
	return out, nil
}

// Best returns the highest scoring candidate, lowest id on ties.
func Best(cands []Candidate) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.Score > best.Score || (c.Score == best.Score && c.ID < best.ID) {
			best = c
		}
	}
	return best, true
}
