package pipeline

import "errors"

// Sentinel errors for chart runs.
var (
	// ErrChartsFailed is returned when at least one chart could not be
	// rendered. Every other chart of the run was still attempted.
	ErrChartsFailed = errors.New("pipeline: one or more charts failed")

	// ErrNoOutputDir is returned when the request names no output directory.
	ErrNoOutputDir = errors.New("pipeline: output directory is required")

	// ErrMissingDependency is returned by New when a required collaborator is nil.
	ErrMissingDependency = errors.New("pipeline: missing dependency")
)
