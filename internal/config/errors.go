package config

import "errors"

// ErrInvalidConfig is returned when a loaded value fails validation,
// ErrLoadConfig when a source (file, env) cannot be read.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
