package playergraph

import "errors"

// Sentinel kinds for graph construction and lookup.
var (
	ErrDuplicatePlayer = errors.New("duplicate player id")
	ErrInvalidPlayer   = errors.New("invalid player record")
	ErrUnknownPlayer   = errors.New("unknown player")
	ErrInvalidEdge     = errors.New("invalid edge")
)
