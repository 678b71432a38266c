package repository

import "errors"

// Sentinel kinds for result store errors.
var (
	ErrNotFound     = errors.New("composition not found")
	ErrDuplicate    = errors.New("composition already submitted")
	ErrInvalidState = errors.New("invalid composition state transition")
	ErrInvalidLimit = errors.New("invalid result limit")
)
