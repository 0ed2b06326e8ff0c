package health

import "errors"

// Sentinel errors for health checks.
var (
	ErrCheckFailed     = errors.New("health: check failed")
	ErrCheckTimeout    = errors.New("health: check timeout")
	ErrCheckerNotFound = errors.New("health: checker not found")
)
