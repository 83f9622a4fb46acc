package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-charts/internal/catalog"
	"github.com/nerrad567/gray-logic-charts/internal/extract"
	"github.com/nerrad567/gray-logic-charts/internal/infrastructure/metrics"
	"github.com/nerrad567/gray-logic-charts/internal/interval"
	"github.com/nerrad567/gray-logic-charts/internal/lock"
	"github.com/nerrad567/gray-logic-charts/internal/render"
)

// outputDirMode is the permission of a newly created output directory.
const outputDirMode = 0o755

// Logger defines the logging interface for the driver.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Waiter blocks until the store endpoint exists.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Locker serialises runs.
type Locker interface {
	Acquire(ctx context.Context) (*lock.Lock, error)
}

// SourceOpener connects to the reading store. The returned function
// releases the connection.
type SourceOpener func(ctx context.Context) (extract.Source, func() error, error)

// ChartEvent describes a chart image that was written.
type ChartEvent struct {
	RunID      string
	Chart      string
	Title      string
	Interval   string
	Path       string
	Series     int
	Points     int
	RenderedAt time.Time
}

// Notifier is told about rendered charts and finished runs. Notification
// errors are logged and never fail a run.
type Notifier interface {
	ChartRendered(ctx context.Context, event ChartEvent) error
	RunFinished(ctx context.Context, report Report) error
}

// Request selects what one run produces.
type Request struct {
	OutputDir string
	Interval  interval.Interval
}

// Report summarises a run.
type Report struct {
	RunID    string
	Interval string
	Started  time.Time
	Finished time.Time

	// Rendered holds the image paths written, in catalog order.
	Rendered []string

	// Failed holds the output names of charts that could not be rendered.
	Failed []string
}

// Duration returns how long the run took.
func (r Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Config holds driver settings.
type Config struct {
	// Charts are drawn in order.
	Charts []catalog.Chart

	// TempDir is where the per-run data directory is created.
	// Empty means os.TempDir().
	TempDir string

	// Location is the zone data files are written in.
	Location *time.Location

	// QueryTimeout bounds each series query. Zero means no limit.
	QueryTimeout time.Duration
}

// Deps are the collaborators of a Driver. Notifier and Metrics are optional.
type Deps struct {
	Waiter   Waiter
	Open     SourceOpener
	Guard    Locker
	Renderer render.Renderer
	Notifier Notifier
	Metrics  *metrics.Recorder
}

// Driver runs chart intervals.
type Driver struct {
	cfg  Config
	deps Deps

	logger   Logger
	now      func() time.Time
	newRunID func() string
}

// New creates a Driver.
//
// Returns:
//   - *Driver: Ready to Run
//   - error: ErrMissingDependency if Waiter, Open, Guard or Renderer is nil
func New(cfg Config, deps Deps) (*Driver, error) {
	var missing []string
	if deps.Waiter == nil {
		missing = append(missing, "waiter")
	}
	if deps.Open == nil {
		missing = append(missing, "source opener")
	}
	if deps.Guard == nil {
		missing = append(missing, "lock guard")
	}
	if deps.Renderer == nil {
		missing = append(missing, "renderer")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingDependency, strings.Join(missing, ", "))
	}

	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	return &Driver{
		cfg:      cfg,
		deps:     deps,
		logger:   noopLogger{},
		now:      time.Now,
		newRunID: uuid.NewString,
	}, nil
}

// SetLogger sets the logger for the driver.
func (d *Driver) SetLogger(logger Logger) {
	d.logger = logger
}

// Run produces every chart of the catalog for one interval.
//
// Steps:
//  1. Create the output directory if missing
//  2. Wait for the store endpoint
//  3. Open the reading source
//  4. Acquire the run lock
//  5. Create a temporary directory for data files
//  6. Extract and render each chart
//
// All series of a run share one window ending at the run start.
//
// Parameters:
//   - ctx: Cancels waiting, locking, queries and rendering
//   - req: Output directory and resolved interval
//
// Returns:
//   - Report: What was rendered and what failed, also on error
//   - error: The first fatal error, or ErrChartsFailed if any chart was skipped
func (d *Driver) Run(ctx context.Context, req Request) (report Report, err error) {
	report = Report{
		RunID:    d.newRunID(),
		Interval: req.Interval.Name,
		Started:  d.now(),
	}
	d.deps.Metrics.SetInterval(req.Interval.Name)

	defer func() {
		report.Finished = d.now()
		d.deps.Metrics.RunFinished(report.Started, report.Finished, err == nil)
		d.notifyRun(ctx, report)
	}()

	if req.OutputDir == "" {
		return report, ErrNoOutputDir
	}

	log := runLogger{Logger: d.logger, runID: report.RunID}
	log.Info("chart run starting",
		"interval", req.Interval.Name,
		"span", req.Interval.Span.String(),
		"output_dir", req.OutputDir,
		"charts", len(d.cfg.Charts),
	)

	if err := os.MkdirAll(req.OutputDir, outputDirMode); err != nil {
		return report, fmt.Errorf("creating output directory: %w", err)
	}

	if err := d.deps.Waiter.Wait(ctx); err != nil {
		return report, fmt.Errorf("waiting for store: %w", err)
	}

	source, closeSource, err := d.deps.Open(ctx)
	if err != nil {
		return report, fmt.Errorf("opening source: %w", err)
	}
	defer func() {
		if closeSource == nil {
			return
		}
		if closeErr := closeSource(); closeErr != nil {
			log.Warn("closing source failed", "error", closeErr)
		}
	}()

	held, err := d.deps.Guard.Acquire(ctx)
	if err != nil {
		return report, fmt.Errorf("acquiring lock: %w", err)
	}
	defer func() {
		if releaseErr := held.Release(); releaseErr != nil {
			log.Warn("releasing lock failed", "path", held.Path(), "error", releaseErr)
		}
	}()

	tmpDir, err := os.MkdirTemp(d.cfg.TempDir, "graylogic-charts-")
	if err != nil {
		return report, fmt.Errorf("creating temp directory: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			log.Warn("removing temp directory failed", "path", tmpDir, "error", rmErr)
		}
	}()

	extractor := extract.New(source, extract.Config{
		Dir:          tmpDir,
		Location:     d.cfg.Location,
		QueryTimeout: d.cfg.QueryTimeout,
	})
	extractor.SetLogger(log)

	to := report.Started
	from := req.Interval.Span.Start(to)

	for _, chart := range d.cfg.Charts {
		event, err := d.runChart(ctx, extractor, req, chart, from, to)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, fmt.Errorf("chart run cancelled: %w", ctxErr)
			}
			var renderErr *chartRenderError
			if !errors.As(err, &renderErr) {
				return report, err
			}
			log.Warn("chart skipped",
				"chart", chart.OutputName,
				"interval", req.Interval.Name,
				"error", renderErr.err,
			)
			report.Failed = append(report.Failed, chart.OutputName)
			d.deps.Metrics.ChartFailed()
			continue
		}

		event.RunID = report.RunID
		report.Rendered = append(report.Rendered, event.Path)
		d.deps.Metrics.ChartRendered()
		log.Info("chart rendered",
			"chart", chart.OutputName,
			"path", event.Path,
			"points", event.Points,
		)
		d.notifyChart(ctx, log, event)
	}

	if len(report.Failed) > 0 {
		return report, fmt.Errorf("%w: %d of %d (%s)",
			ErrChartsFailed, len(report.Failed), len(d.cfg.Charts), strings.Join(report.Failed, ", "))
	}

	log.Info("chart run complete",
		"interval", req.Interval.Name,
		"rendered", len(report.Rendered),
		"duration", d.now().Sub(report.Started),
	)
	return report, nil
}

// chartRenderError marks a failure that skips one chart rather than
// aborting the run.
type chartRenderError struct {
	err error
}

func (e *chartRenderError) Error() string { return e.err.Error() }
func (e *chartRenderError) Unwrap() error { return e.err }

// runChart extracts every series of chart and renders it. Extraction
// errors are returned as is; render errors come back as *chartRenderError.
func (d *Driver) runChart(ctx context.Context, extractor *extract.Extractor, req Request, chart catalog.Chart, from, to time.Time) (ChartEvent, error) {
	files := make([]string, 0, len(chart.Series))
	points := 0
	for _, series := range chart.Series {
		df, err := extractor.ExtractRange(ctx, series.SensorID, from, to)
		if err != nil {
			return ChartEvent{}, fmt.Errorf("extracting chart %s: %w", chart.OutputName, err)
		}
		d.deps.Metrics.SeriesPoints(chart.OutputName, series.SensorID, df.Count)
		files = append(files, df.Path)
		points += df.Count
	}

	outputPath := filepath.Join(req.OutputDir, chart.FileName(req.Interval.Name))
	job := render.Job{
		Chart:      chart,
		Interval:   req.Interval,
		DataFiles:  files,
		OutputPath: outputPath,
		From:       from,
		To:         to,
		Points:     points,
	}
	if err := d.deps.Renderer.Render(ctx, job); err != nil {
		return ChartEvent{}, &chartRenderError{err: fmt.Errorf("rendering chart %s: %w", chart.OutputName, err)}
	}

	return ChartEvent{
		Chart:      chart.OutputName,
		Title:      chart.Title,
		Interval:   req.Interval.Name,
		Path:       outputPath,
		Series:     len(chart.Series),
		Points:     points,
		RenderedAt: d.now(),
	}, nil
}

func (d *Driver) notifyChart(ctx context.Context, log Logger, event ChartEvent) {
	if d.deps.Notifier == nil {
		return
	}
	if err := d.deps.Notifier.ChartRendered(ctx, event); err != nil {
		log.Warn("chart notification failed", "chart", event.Chart, "error", err)
	}
}

func (d *Driver) notifyRun(ctx context.Context, report Report) {
	if d.deps.Notifier == nil {
		return
	}
	if err := d.deps.Notifier.RunFinished(ctx, report); err != nil {
		d.logger.Warn("run notification failed", "run_id", report.RunID, "error", err)
	}
}

// runLogger adds the run id to every record.
type runLogger struct {
	Logger
	runID string
}

func (l runLogger) Debug(msg string, args ...any) {
	l.Logger.Debug(msg, append(args, "run_id", l.runID)...)
}

func (l runLogger) Info(msg string, args ...any) {
	l.Logger.Info(msg, append(args, "run_id", l.runID)...)
}

func (l runLogger) Warn(msg string, args ...any) {
	l.Logger.Warn(msg, append(args, "run_id", l.runID)...)
}

func (l runLogger) Error(msg string, args ...any) {
	l.Logger.Error(msg, append(args, "run_id", l.runID)...)
}
