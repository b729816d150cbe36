package config

import "errors"

var (
	ErrParsingConfig = errors.New("config: failed to parse environment")
	ErrNilPointer    = errors.New("config: Load needs a non-nil pointer")
)
