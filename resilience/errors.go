package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrTimeout is returned when an operation exceeds its time limit.
	ErrTimeout = errors.New("resilience: operation timed out")

	// ErrMaxRetriesExceeded is returned when retry attempts are exhausted
	// without a more specific underlying error.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")
)
