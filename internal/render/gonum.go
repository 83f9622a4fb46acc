package render

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"os"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/nerrad567/gray-logic-charts/internal/catalog"
	"github.com/nerrad567/gray-logic-charts/internal/extract"
)

const (
	// pngDPI is the resolution gonum's PNG canvas draws at.
	pngDPI = 96

	// smoothWindow is the moving-average width for smoothed series.
	smoothWindow = 5
)

var gridColor = color.RGBA{R: 0xaa, G: 0xaa, B: 0xaa, A: 0xff}

// Gonum renders charts in-process with gonum/plot.
type Gonum struct {
	opts   Options
	logger Logger
}

// NewGonum creates a gonum engine.
func NewGonum(opts Options) *Gonum {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Gonum{opts: opts, logger: noopLogger{}}
}

// SetLogger sets the logger for the engine.
func (g *Gonum) SetLogger(logger Logger) {
	g.logger = logger
}

// Render implements Renderer.
func (g *Gonum) Render(ctx context.Context, job Job) error {
	if err := job.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRenderFailed, job.Chart.OutputName, err)
	}

	p, err := g.buildPlot(job)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRenderFailed, job.Chart.OutputName, err)
	}

	tmp := tempPath(job.OutputPath)
	width := vg.Length(g.opts.Width) * vg.Inch / pngDPI
	height := vg.Length(g.opts.Height) * vg.Inch / pngDPI
	if err := p.Save(width, height, tmp); err != nil {
		os.Remove(tmp) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("%w: %s: %w", ErrRenderFailed, job.Chart.OutputName, err)
	}

	if err := publish(tmp, job.OutputPath); err != nil {
		return fmt.Errorf("%s: %w", job.Chart.OutputName, err)
	}
	g.logger.Debug("chart rendered", "chart", job.Chart.OutputName, "path", job.OutputPath)
	return nil
}

func (g *Gonum) buildPlot(job Job) (*plot.Plot, error) {
	p := plot.New()

	fontSize := vg.Points(float64(g.opts.FontSize))
	p.Title.Text = job.Chart.Title
	p.Title.TextStyle.Font.Size = fontSize
	p.X.Label.Text = g.opts.XLabel
	p.X.Label.TextStyle.Font.Size = fontSize * 3 / 4
	p.Y.Label.Text = job.Chart.YLabel
	p.Y.Label.TextStyle.Font.Size = fontSize * 3 / 4

	p.X.Tick.Marker = plot.TimeTicks{
		Format: job.Interval.Layout,
		Time:   plot.UnixTimeIn(g.opts.Location),
	}
	if g.opts.XTicRotation != 0 {
		p.X.Tick.Label.Rotation = float64(g.opts.XTicRotation) * math.Pi / 180
		p.X.Tick.Label.XAlign = draw.XLeft
	}

	grid := plotter.NewGrid()
	grid.Vertical.Color = gridColor
	grid.Horizontal.Color = gridColor
	p.Add(grid)

	p.Legend.Top = true

	for i, s := range job.Chart.Series {
		readings, err := extract.ReadDataFile(job.DataFiles[i], g.opts.Location)
		if err != nil {
			return nil, err
		}

		xys := toXYs(readings)
		if s.Style == catalog.StyleSmooth {
			xys = movingAverage(xys, smoothWindow)
		}

		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("series %q: %w", s.Label, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(float64(g.opts.LineWidth))

		if len(xys) > 0 {
			p.Add(line)
		} else {
			g.logger.Warn("series has no data", "chart", job.Chart.OutputName, "sensor", s.SensorID)
		}
		p.Legend.Add(s.Label, line)
	}

	if job.emptyWindow() {
		p.X.Min = float64(job.From.Unix())
		p.X.Max = float64(job.To.Unix())
	}

	return p, nil
}

func toXYs(readings []extract.Reading) plotter.XYs {
	xys := make(plotter.XYs, len(readings))
	for i, r := range readings {
		xys[i].X = float64(r.Time.Unix())
		xys[i].Y = r.Value
	}
	return xys
}

// movingAverage replaces each Y with the mean of the window centred on
// it. The window shrinks at the edges.
func movingAverage(xys plotter.XYs, window int) plotter.XYs {
	if window < 2 || len(xys) < 3 {
		return xys
	}
	half := window / 2
	out := make(plotter.XYs, len(xys))
	for i := range xys {
		lo, hi := max(0, i-half), min(len(xys)-1, i+half)
		var sum float64
		for j := lo; j <= hi; j++ {
			sum += xys[j].Y
		}
		out[i].X = xys[i].X
		out[i].Y = sum / float64(hi-lo+1)
	}
	return out
}
