package process

import "errors"

var (
	// ErrStartFailed indicates the binary could not be started.
	ErrStartFailed = errors.New("process: start failed")

	// ErrNonZeroExit indicates the process ran but exited unsuccessfully.
	ErrNonZeroExit = errors.New("process: non-zero exit")

	// ErrTimeout indicates the process was stopped because it ran past
	// its timeout.
	ErrTimeout = errors.New("process: timed out")

	// ErrCancelled indicates the process was stopped because the caller's
	// context ended.
	ErrCancelled = errors.New("process: cancelled")
)
