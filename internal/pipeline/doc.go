// Package pipeline runs one chart interval end to end.
//
// A run waits for the store endpoint, opens the reading source, takes the
// run lock, then extracts and renders every catalog chart in order:
//
//	output dir -> wait -> open source -> lock -> temp dir -> charts
//
// Extraction errors abort the run so no chart is drawn from a partial
// series. Render errors skip the chart; the run carries on and finally
// reports ErrChartsFailed. The lock, the source and the temporary data
// files are released on every path, including cancellation.
package pipeline
