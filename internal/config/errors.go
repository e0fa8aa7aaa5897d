package config

import "errors"

// ErrInvalidConfig is returned by Validate when a setting is out of range.
var ErrInvalidConfig = errors.New("invalid config")
