package render

import "errors"

var (
	// ErrRenderFailed indicates the engine could not produce the image.
	ErrRenderFailed = errors.New("render: chart rendering failed")

	// ErrUnknownEngine is returned by New for an unsupported engine name.
	ErrUnknownEngine = errors.New("render: unknown engine")

	// ErrSeriesMismatch indicates a job whose data files do not pair up
	// with the chart's series.
	ErrSeriesMismatch = errors.New("render: data files do not match series")
)
