package dataset

import "errors"

var (
	// ErrMalformed marks a file that cannot be parsed.
	ErrMalformed = errors.New("malformed dataset file")
	// ErrMissingColumn marks a CSV without a required header column.
	ErrMissingColumn = errors.New("missing dataset column")
)
