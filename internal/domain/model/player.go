// Package model contains domain records passed between layers.
package model

import "math"

// Salary curve constants fitted on market values against overall rating.
const (
	SalaryEta   = 0.0006375
	SalaryTheta = 0.1029
)

// PlayerRecord is a raw pool entry as produced by a dataset loader.
// Club and Nationality only feed the similarity graph.
type PlayerRecord struct {
	ID          int64
	Position    string
	Rating      float64
	Club        string
	Nationality string
	Abilities   map[string]float64
}

// Attributes returns the social attribute set used for similarity.
func (r PlayerRecord) Attributes() []string {
	out := make([]string, 0, 2)
	if r.Club != "" {
		out = append(out, "club:"+r.Club)
	}
	if r.Nationality != "" {
		out = append(out, "nation:"+r.Nationality)
	}
	return out
}

// Player is a similarity graph vertex. Abilities only hold the major
// abilities of the pool the player belongs to.
type Player struct {
	ID        int64
	Position  string
	Rating    float64
	Salary    float64
	Abilities map[string]float64
}

// Goalkeeper is scored by the plain mean of its abilities.
type Goalkeeper struct {
	ID        int64
	Rating    float64
	Salary    float64
	Abilities []float64
}

// Salary returns the market salary for an overall rating.
func Salary(rating float64) float64 {
	return SalaryEta * math.Exp(SalaryTheta*rating)
}
