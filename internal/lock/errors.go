package lock

import "errors"

var (
	// ErrNoPath is returned when the guard has no lock file path.
	ErrNoPath = errors.New("lock: no lock file path configured")

	// ErrCancelled is returned when the context ends while waiting.
	ErrCancelled = errors.New("lock: acquisition cancelled")
)
