// Package metrics records the outcome of chart runs as Prometheus metrics.
//
// A run is a short-lived process, so nothing is scraped. At the end of a
// run the metrics are pushed to a Pushgateway and/or written to a
// node-exporter textfile, whichever is configured.
package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/nerrad567/gray-logic-charts/internal/infrastructure/config"
)

const namespace = "graylogic_charts"

// Chart outcome label values.
const (
	StatusRendered = "rendered"
	StatusFailed   = "failed"
)

// Recorder collects run metrics in a private registry.
//
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	cfg      config.MetricsConfig
	registry *prometheus.Registry
	interval string

	lastRunTimestamp prometheus.Gauge
	lastRunDuration  prometheus.Gauge
	lastRunSuccess   prometheus.Gauge
	chartsTotal      *prometheus.CounterVec
	seriesPoints     *prometheus.GaugeVec
}

// NewRecorder creates a Recorder exporting to the targets in cfg.
func NewRecorder(cfg config.MetricsConfig) *Recorder {
	r := &Recorder{
		cfg:      cfg,
		registry: prometheus.NewRegistry(),
		lastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last chart run finished.",
		}),
		lastRunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last chart run.",
		}),
		lastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the last chart run rendered every chart, 0 otherwise.",
		}),
		chartsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charts_total",
			Help:      "Charts processed by interval and outcome.",
		}, []string{"interval", "status"}),
		seriesPoints: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "series_points",
			Help:      "Readings extracted for a chart series in the last run.",
		}, []string{"chart", "sensor"}),
	}

	r.registry.MustRegister(
		r.lastRunTimestamp,
		r.lastRunDuration,
		r.lastRunSuccess,
		r.chartsTotal,
		r.seriesPoints,
	)
	return r
}

// Registry returns the private registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// SetInterval fixes the interval label used for chart counts and the
// Pushgateway grouping key.
func (r *Recorder) SetInterval(name string) {
	if r == nil {
		return
	}
	r.interval = name
}

// ChartRendered counts a chart that was drawn.
func (r *Recorder) ChartRendered() {
	if r == nil {
		return
	}
	r.chartsTotal.WithLabelValues(r.interval, StatusRendered).Inc()
}

// ChartFailed counts a chart that could not be drawn.
func (r *Recorder) ChartFailed() {
	if r == nil {
		return
	}
	r.chartsTotal.WithLabelValues(r.interval, StatusFailed).Inc()
}

// SeriesPoints records how many readings a series contributed.
func (r *Recorder) SeriesPoints(chart string, sensorID, points int) {
	if r == nil {
		return
	}
	r.seriesPoints.WithLabelValues(chart, strconv.Itoa(sensorID)).Set(float64(points))
}

// RunFinished records the run summary.
func (r *Recorder) RunFinished(started, finished time.Time, success bool) {
	if r == nil {
		return
	}
	r.lastRunTimestamp.Set(float64(finished.Unix()))
	r.lastRunDuration.Set(finished.Sub(started).Seconds())
	if success {
		r.lastRunSuccess.Set(1)
	} else {
		r.lastRunSuccess.Set(0)
	}
}

// Enabled reports whether any export target is configured.
func (r *Recorder) Enabled() bool {
	return r != nil && (r.cfg.PushgatewayURL != "" || r.cfg.TextfilePath != "")
}

// Flush exports the collected metrics to every configured target. Both
// targets are attempted; the first error is returned.
func (r *Recorder) Flush(ctx context.Context) error {
	if !r.Enabled() {
		return nil
	}

	var firstErr error
	if r.cfg.PushgatewayURL != "" {
		job := r.cfg.Job
		if job == "" {
			job = namespace
		}
		pusher := push.New(r.cfg.PushgatewayURL, job).Gatherer(r.registry)
		if r.interval != "" {
			pusher = pusher.Grouping("interval", r.interval)
		}
		if err := pusher.PushContext(ctx); err != nil {
			firstErr = fmt.Errorf("pushing metrics to %s: %w", r.cfg.PushgatewayURL, err)
		}
	}

	if r.cfg.TextfilePath != "" {
		if err := prometheus.WriteToTextfile(r.cfg.TextfilePath, r.registry); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("writing metrics textfile: %w", err)
		}
	}

	return firstErr
}
