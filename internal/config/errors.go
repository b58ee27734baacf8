package config

import "errors"

// Sentinel error kinds for this package. Load wraps file, env and unmarshal
// failures in ErrLoadConfig; Validate wraps each problem in ErrInvalidConfig.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
