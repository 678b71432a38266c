package composer

import (
	"fmt"
	"slices"

	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/playergraph"
	"github.com/okian/squad/internal/domain/scoring"
)

// Context holds the read-only inputs shared by every composition run:
// the goalkeeper pool, both similarity graphs and their criteria.
type Context struct {
	goalkeepers     []model.Goalkeeper
	defense         *playergraph.Graph
	attack          *playergraph.Graph
	defenseCriteria scoring.Criteria
	attackCriteria  scoring.Criteria
}

// NewContext validates the pools. Identifiers must be unique across all
// three pools so a team never holds the same id twice.
func NewContext(goalkeepers []model.Goalkeeper, defense, attack *playergraph.Graph, defenseCriteria, attackCriteria scoring.Criteria) (*Context, error) {
	switch {
	case len(goalkeepers) == 0:
		return nil, ErrNoGoalkeeper
	case defense == nil || attack == nil:
		return nil, fmt.Errorf("%w: missing graph", ErrInvalidContext)
	case defenseCriteria.Len() == 0 || attackCriteria.Len() == 0:
		return nil, fmt.Errorf("%w: %w", ErrInvalidContext, scoring.ErrInvalidCriteria)
	}

	owner := make(map[int64]string, len(goalkeepers)+defense.Len()+attack.Len())
	claim := func(id int64, pool string) error {
		if prev, ok := owner[id]; ok {
			return fmt.Errorf("%w: id %d appears in %s and %s pools", ErrInvalidContext, id, prev, pool)
		}
		owner[id] = pool
		return nil
	}
	for _, gk := range goalkeepers {
		if err := claim(gk.ID, "goalkeeper"); err != nil {
			return nil, err
		}
	}
	for _, id := range defense.IDs() {
		if err := claim(id, "defense"); err != nil {
			return nil, err
		}
	}
	for _, id := range attack.IDs() {
		if err := claim(id, "attack"); err != nil {
			return nil, err
		}
	}

	return &Context{
		goalkeepers:     slices.Clone(goalkeepers),
		defense:         defense,
		attack:          attack,
		defenseCriteria: defenseCriteria,
		attackCriteria:  attackCriteria,
	}, nil
}

// Goalkeepers returns a copy of the goalkeeper pool in input order.
func (c *Context) Goalkeepers() []model.Goalkeeper { return slices.Clone(c.goalkeepers) }

// Graph returns the similarity graph of a field group.
func (c *Context) Graph(g model.RoleGroup) *playergraph.Graph {
	if g == model.GroupDefense {
		return c.defense
	}
	return c.attack
}

// Criteria returns the criteria vector of a field group.
func (c *Context) Criteria(g model.RoleGroup) scoring.Criteria {
	if g == model.GroupDefense {
		return c.defenseCriteria
	}
	return c.attackCriteria
}

// Goalkeeper looks a goalkeeper up by id.
func (c *Context) Goalkeeper(id int64) (model.Goalkeeper, bool) {
	for _, gk := range c.goalkeepers {
		if gk.ID == id {
			return gk, true
		}
	}
	return model.Goalkeeper{}, false
}

// BestGoalkeeper returns the goalkeeper with the highest mean ability; the
// first one in pool order wins ties.
func (c *Context) BestGoalkeeper() (model.Goalkeeper, error) {
	if len(c.goalkeepers) == 0 {
		return model.Goalkeeper{}, ErrNoGoalkeeper
	}
	best := c.goalkeepers[0]
	bestAbi := scoring.MeanAbility(best.Abilities)
	for _, gk := range c.goalkeepers[1:] {
		if abi := scoring.MeanAbility(gk.Abilities); abi > bestAbi {
			best, bestAbi = gk, abi
		}
	}
	return best, nil
}
