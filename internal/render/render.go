package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-charts/internal/catalog"
	"github.com/nerrad567/gray-logic-charts/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-charts/internal/interval"
	"github.com/nerrad567/gray-logic-charts/internal/process"
)

// Job is one chart to draw.
type Job struct {
	Chart    catalog.Chart
	Interval interval.Interval

	// DataFiles holds one data file per chart series, in series order.
	DataFiles []string

	// OutputPath is the final PNG path.
	OutputPath string

	// From and To bound the extraction window. Points is the number of
	// readings across all data files. A chart with no points is drawn
	// over the window so it still yields an image.
	From, To time.Time
	Points   int
}

// emptyWindow reports whether job has no readings but a known window.
func (j Job) emptyWindow() bool {
	return j.Points == 0 && !j.From.IsZero() && j.To.After(j.From)
}

// Renderer draws charts.
type Renderer interface {
	Render(ctx context.Context, job Job) error
}

// Options configures the engines.
type Options struct {
	Engine string

	// Binary is the gnuplot executable.
	Binary string

	Width     int
	Height    int
	Font      string
	FontSize  int
	XLabel    string
	LineWidth int

	// XTicRotation rotates the time axis labels, in degrees.
	XTicRotation int

	// Timeout bounds one chart.
	Timeout time.Duration

	// Location is the zone of the data file timestamps.
	Location *time.Location
}

// OptionsFromConfig maps the render section of the configuration.
func OptionsFromConfig(cfg config.RenderConfig, loc *time.Location) Options {
	return Options{
		Engine:       cfg.Engine,
		Binary:       cfg.Binary,
		Width:        cfg.Width,
		Height:       cfg.Height,
		Font:         cfg.Font,
		FontSize:     cfg.FontSize,
		XLabel:       cfg.XLabel,
		LineWidth:    cfg.LineWidth,
		XTicRotation: cfg.XTicRotation,
		Timeout:      cfg.Timeout,
		Location:     loc,
	}
}

// ProcessRunner runs an external program. *process.Runner satisfies it.
type ProcessRunner interface {
	Run(ctx context.Context, cfg process.Config) (process.Result, error)
}

// Logger defines the logging interface for the engines.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// New returns the engine named by opts.Engine. runner is only used by the
// gnuplot engine and may be nil otherwise.
func New(opts Options, runner ProcessRunner) (Renderer, error) {
	switch opts.Engine {
	case config.EngineGnuplot, "":
		if runner == nil {
			runner = process.NewRunner()
		}
		return NewGnuplot(opts, runner), nil
	case config.EngineGonum:
		return NewGonum(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, opts.Engine)
	}
}

func (j Job) validate() error {
	if len(j.DataFiles) != len(j.Chart.Series) {
		return fmt.Errorf("%w: chart %s has %d series but %d data files",
			ErrSeriesMismatch, j.Chart.OutputName, len(j.Chart.Series), len(j.DataFiles))
	}
	if j.OutputPath == "" {
		return fmt.Errorf("%w: chart %s has no output path", ErrRenderFailed, j.Chart.OutputName)
	}
	return nil
}

// tempPath returns the hidden sibling an image is drawn to before it is
// renamed into place. It keeps the .png extension.
func tempPath(outputPath string) string {
	dir, base := filepath.Split(outputPath)
	return filepath.Join(dir, "."+strings.TrimSuffix(base, ".png")+".tmp.png")
}

// publish moves a finished image into place. A temp file that is missing
// or empty counts as a failed render.
func publish(tmp, outputPath string) error {
	info, err := os.Stat(tmp)
	if err != nil {
		return fmt.Errorf("%w: no image produced: %w", ErrRenderFailed, err)
	}
	if info.Size() == 0 {
		os.Remove(tmp) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("%w: empty image produced", ErrRenderFailed)
	}
	if err := os.Rename(tmp, outputPath); err != nil {
		os.Remove(tmp) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("%w: moving image into place: %w", ErrRenderFailed, err)
	}
	return nil
}
