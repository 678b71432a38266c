// Package playergraph builds and serves the weighted social similarity
// graph over a player pool.
package playergraph

import (
	"fmt"
	"slices"

	"github.com/okian/squad/internal/domain/model"
	"gonum.org/v1/gonum/graph/simple"
)

// Graph is an immutable player arena plus a weighted undirected adjacency
// keyed by player id. It is safe for concurrent reads.
type Graph struct {
	g       *simple.WeightedUndirectedGraph
	players map[int64]model.Player
	ids     []int64
	majors  []string
	edges   int
}

func newGraph(players []model.Player, majors []string) (*Graph, error) {
	gr := &Graph{
		g:       simple.NewWeightedUndirectedGraph(0, 0),
		players: make(map[int64]model.Player, len(players)),
		ids:     make([]int64, 0, len(players)),
		majors:  slices.Clone(majors),
	}
	for _, p := range players {
		if p.ID < 0 {
			return nil, fmt.Errorf("%w: negative id %d", ErrInvalidPlayer, p.ID)
		}
		if _, dup := gr.players[p.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicatePlayer, p.ID)
		}
		gr.players[p.ID] = p
		gr.ids = append(gr.ids, p.ID)
		gr.g.AddNode(simple.Node(p.ID))
	}
	slices.Sort(gr.ids)
	return gr, nil
}

func (gr *Graph) addEdge(e Edge) {
	gr.g.SetWeightedEdge(gr.g.NewWeightedEdge(simple.Node(e.From), simple.Node(e.To), e.Weight))
	gr.edges++
}

// Player returns the vertex payload for id.
func (gr *Graph) Player(id int64) (model.Player, bool) {
	p, ok := gr.players[id]
	return p, ok
}

// MustPlayer returns the vertex payload or an ErrUnknownPlayer error.
func (gr *Graph) MustPlayer(id int64) (model.Player, error) {
	p, ok := gr.players[id]
	if !ok {
		return model.Player{}, fmt.Errorf("%w: %d", ErrUnknownPlayer, id)
	}
	return p, nil
}

// IDs returns every vertex id in ascending order.
func (gr *Graph) IDs() []int64 {
	return slices.Clone(gr.ids)
}

// Players returns every vertex ordered by id.
func (gr *Graph) Players() []model.Player {
	out := make([]model.Player, len(gr.ids))
	for i, id := range gr.ids {
		out[i] = gr.players[id]
	}
	return out
}

// Neighbors returns the ids adjacent to id in ascending order.
func (gr *Graph) Neighbors(id int64) []int64 {
	nodes := gr.g.From(id)
	out := make([]int64, 0, nodes.Len())
	for nodes.Next() {
		out = append(out, nodes.Node().ID())
	}
	slices.Sort(out)
	return out
}

// Weight returns the similarity between a and b; ok is false when no edge exists.
func (gr *Graph) Weight(a, b int64) (float64, bool) {
	if a == b {
		return 0, false
	}
	return gr.g.Weight(a, b)
}

// Len is the number of vertices.
func (gr *Graph) Len() int { return len(gr.ids) }

// EdgeCount is the number of undirected edges.
func (gr *Graph) EdgeCount() int { return gr.edges }

// Density is 2|E| / n², the share of ordered pairs that are linked.
func (gr *Graph) Density() float64 {
	n := float64(len(gr.ids))
	if n == 0 {
		return 0
	}
	return 2 * float64(gr.edges) / (n * n)
}

// MajorAbilities lists the abilities kept on every vertex.
func (gr *Graph) MajorAbilities() []string {
	return slices.Clone(gr.majors)
}
