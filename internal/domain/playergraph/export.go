package playergraph

import (
	"fmt"
	"slices"

	"github.com/okian/squad/internal/domain/model"
)

// Export is the plain form of a graph, used for snapshots.
type Export struct {
	Majors  []string
	Players []model.Player
	Edges   []Edge
}

// Export returns the vertices by id and each undirected edge once, From < To.
func (gr *Graph) Export() Export {
	out := Export{
		Majors:  slices.Clone(gr.majors),
		Players: gr.Players(),
		Edges:   make([]Edge, 0, gr.edges),
	}
	for _, id := range gr.ids {
		for _, n := range gr.Neighbors(id) {
			if n <= id {
				continue
			}
			w, _ := gr.g.Weight(id, n)
			out.Edges = append(out.Edges, Edge{From: id, To: n, Weight: w})
		}
	}
	return out
}

// Restore rebuilds a graph from an Export without recomputing similarity.
func Restore(e Export) (*Graph, error) {
	gr, err := newGraph(e.Players, e.Majors)
	if err != nil {
		return nil, err
	}
	seen := make(map[[2]int64]struct{}, len(e.Edges))
	for _, edge := range e.Edges {
		if edge.From > edge.To {
			edge.From, edge.To = edge.To, edge.From
		}
		switch {
		case edge.From == edge.To:
			return nil, fmt.Errorf("%w: self loop on %d", ErrInvalidEdge, edge.From)
		case !(edge.Weight > 0 && edge.Weight <= 1):
			return nil, fmt.Errorf("%w: weight %v on %d-%d", ErrInvalidEdge, edge.Weight, edge.From, edge.To)
		}
		if _, ok := gr.players[edge.From]; !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownPlayer, edge.From)
		}
		if _, ok := gr.players[edge.To]; !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownPlayer, edge.To)
		}
		key := [2]int64{edge.From, edge.To}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: duplicate %d-%d", ErrInvalidEdge, edge.From, edge.To)
		}
		seen[key] = struct{}{}
		gr.addEdge(edge)
	}
	return gr, nil
}
