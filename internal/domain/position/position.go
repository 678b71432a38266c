// Package position maps raw dataset positions onto quota families and
// carries the per-dataset presets.
package position

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
)

// ErrUnknownDataset is returned by PresetFor.
var ErrUnknownDataset = errors.New("unknown dataset")

// Taxonomy collapses raw positions into the families quotas are keyed by.
type Taxonomy interface {
	Name() string
	Family(position string) string
}

// Quota is the number of players required per position family.
type Quota map[string]int

// Total is the sum of all family counts.
func (q Quota) Total() int {
	var n int
	for _, v := range q {
		n += v
	}
	return n
}

// Clone returns an independent copy.
func (q Quota) Clone() Quota {
	return maps.Clone(q)
}

// Families returns the quota keys in sorted order.
func (q Quota) Families() []string {
	return slices.Sorted(maps.Keys(q))
}

// String renders the quota as "CB:2 LB:1 ...".
func (q Quota) String() string {
	parts := make([]string, 0, len(q))
	for _, f := range q.Families() {
		parts = append(parts, fmt.Sprintf("%s:%d", f, q[f]))
	}
	return strings.Join(parts, " ")
}

// Identity leaves positions untouched.
type Identity struct{}

func (Identity) Name() string { return "identity" }

func (Identity) Family(pos string) string { return pos }

var pesMidfield = regexp.MustCompile(`^.+MF$`)

// PES groups every *MF role and merges CF with SS.
type PES struct{}

func (PES) Name() string { return "pes" }

func (PES) Family(pos string) string {
	switch {
	case pesMidfield.MatchString(pos):
		return "*MF"
	case pos == "CF" || pos == "SS":
		return "CF/SS"
	default:
		return pos
	}
}

var fifaFamilies = map[string]string{
	"LS": "FOR", "LF": "FOR", "CF": "FOR", "RF": "FOR", "RS": "FOR",
	"ST": "FOR", "LW": "FOR", "SS": "FOR", "RW": "FOR",
	"LAM": "MID", "CAM": "MID", "RAM": "MID", "CM": "MID", "LM": "MID",
	"LCM": "MID", "RCM": "MID", "RM": "MID", "LDM": "MID", "CDM": "MID", "RDM": "MID",
	"RWB": "RB", "RCB": "RB", "RB": "RB",
	"LWB": "LB", "LCB": "LB", "LB": "LB",
}

// FIFA folds forwards, midfielders and wing backs into four families.
type FIFA struct{}

func (FIFA) Name() string { return "fifa" }

func (FIFA) Family(pos string) string {
	if f, ok := fifaFamilies[pos]; ok {
		return f
	}
	return pos
}

// Preset bundles the taxonomy, quotas, valid positions and default
// weights of a dataset.
type Preset struct {
	Name             string
	Taxonomy         Taxonomy
	DefenseQuota     Quota
	AttackQuota      Quota
	DefensePositions []string
	AttackPositions  []string
	Alpha            float64
	Beta             float64
	Budget           float64
}

// PresetFor returns the preset for "fifa" or "pes".
func PresetFor(name string) (Preset, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fifa":
		return Preset{
			Name:             "fifa",
			Taxonomy:         FIFA{},
			DefenseQuota:     Quota{"CB": 2, "LB": 1, "RB": 1},
			AttackQuota:      Quota{"MID": 3, "FOR": 3},
			DefensePositions: []string{"LWB", "RWB", "LB", "LCB", "CB", "RCB", "RB"},
			AttackPositions: []string{
				"LS", "LF", "CF", "RF", "RS", "ST", "LW", "SS", "RW",
				"LAM", "CAM", "RAM", "CM", "LM", "LCM", "RCM", "RM", "LDM", "CDM", "RDM",
			},
			Alpha:  0.5,
			Beta:   0.3,
			Budget: 8,
		}, nil
	case "pes":
		return Preset{
			Name:             "pes",
			Taxonomy:         PES{},
			DefenseQuota:     Quota{"CB": 2, "LB": 1, "RB": 1},
			AttackQuota:      Quota{"CF/SS": 1, "LWF": 1, "RWF": 1, "*MF": 3},
			DefensePositions: []string{"CB", "LB", "RB"},
			AttackPositions:  []string{"CF", "SS", "LWF", "RWF", "AMF", "CMF", "DMF", "LMF", "RMF"},
			Alpha:            0.6,
			Beta:             0.2,
			Budget:           100,
		}, nil
	default:
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
}
