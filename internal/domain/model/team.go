package model

import (
	"errors"
	"fmt"
	"slices"
)

// RoleGroup partitions a team into buckets that are selected and pruned separately.
type RoleGroup int

const (
	GroupGoalkeeper RoleGroup = iota
	GroupDefense
	GroupAttack
)

// Team sizes per group.
const (
	GoalkeeperSize = 1
	DefenseSize    = 4
	AttackSize     = 6
	TeamSize       = GoalkeeperSize + DefenseSize + AttackSize
)

// ErrInvalidTeam is returned by Team.Validate.
var ErrInvalidTeam = errors.New("invalid team")

func (g RoleGroup) String() string {
	switch g {
	case GroupGoalkeeper:
		return "goalkeeper"
	case GroupDefense:
		return "defense"
	case GroupAttack:
		return "attack"
	default:
		return fmt.Sprintf("group(%d)", int(g))
	}
}

// Size is the number of players a full team holds in the group.
func (g RoleGroup) Size() int {
	switch g {
	case GroupGoalkeeper:
		return GoalkeeperSize
	case GroupDefense:
		return DefenseSize
	case GroupAttack:
		return AttackSize
	default:
		return 0
	}
}

// Team is the 11-player outcome: one goalkeeper plus two field buckets.
type Team struct {
	Goalkeeper int64   `json:"goalkeeper"`
	Defense    []int64 `json:"defense"`
	Attack     []int64 `json:"attack"`
}

// Clone returns a deep copy.
func (t Team) Clone() Team {
	return Team{
		Goalkeeper: t.Goalkeeper,
		Defense:    slices.Clone(t.Defense),
		Attack:     slices.Clone(t.Attack),
	}
}

// Bucket returns the field bucket for a group.
func (t Team) Bucket(g RoleGroup) []int64 {
	switch g {
	case GroupDefense:
		return t.Defense
	case GroupAttack:
		return t.Attack
	case GroupGoalkeeper:
		return []int64{t.Goalkeeper}
	default:
		return nil
	}
}

// Contains reports whether a field bucket of group g holds id.
func (t Team) Contains(g RoleGroup, id int64) bool {
	return slices.Contains(t.Bucket(g), id)
}

// Validate checks bucket sizes and that all 11 identifiers are distinct.
func (t Team) Validate() error {
	if len(t.Defense) != DefenseSize {
		return fmt.Errorf("%w: defense has %d players, want %d", ErrInvalidTeam, len(t.Defense), DefenseSize)
	}
	if len(t.Attack) != AttackSize {
		return fmt.Errorf("%w: attack has %d players, want %d", ErrInvalidTeam, len(t.Attack), AttackSize)
	}
	seen := make(map[int64]struct{}, TeamSize)
	seen[t.Goalkeeper] = struct{}{}
	for _, id := range append(slices.Clone(t.Defense), t.Attack...) {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: player %d selected twice", ErrInvalidTeam, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// MarshalText encodes the group by name.
func (g RoleGroup) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText parses a group name.
func (g *RoleGroup) UnmarshalText(b []byte) error {
	switch string(b) {
	case "goalkeeper":
		*g = GroupGoalkeeper
	case "defense":
		*g = GroupDefense
	case "attack":
		*g = GroupAttack
	default:
		return fmt.Errorf("unknown role group %q", b)
	}
	return nil
}

// CutCandidate records the player removed by a prune step.
type CutCandidate struct {
	ID       int64     `json:"id"`
	Group    RoleGroup `json:"group"`
	Position string    `json:"position"`
	Salary   float64   `json:"salary"`
}
