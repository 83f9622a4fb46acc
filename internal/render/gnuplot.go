package render

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-charts/internal/catalog"
	"github.com/nerrad567/gray-logic-charts/internal/extract"
	"github.com/nerrad567/gray-logic-charts/internal/process"
)

// gnuplotTimeFmt is how gnuplot parses the data file timestamps.
const gnuplotTimeFmt = "%Y-%m-%d %H:%M:%S"

// Gnuplot renders charts with an external gnuplot binary.
type Gnuplot struct {
	opts   Options
	runner ProcessRunner
	logger Logger
}

// NewGnuplot creates a gnuplot engine.
func NewGnuplot(opts Options, runner ProcessRunner) *Gnuplot {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Gnuplot{opts: opts, runner: runner, logger: noopLogger{}}
}

// SetLogger sets the logger for the engine.
func (g *Gnuplot) SetLogger(logger Logger) {
	g.logger = logger
}

// Render implements Renderer.
func (g *Gnuplot) Render(ctx context.Context, job Job) error {
	if err := job.validate(); err != nil {
		return err
	}

	tmp := tempPath(job.OutputPath)
	script := g.BuildScript(job, tmp)

	res, err := g.runner.Run(ctx, process.Config{
		Name:    "gnuplot",
		Binary:  g.opts.Binary,
		Stdin:   strings.NewReader(script),
		Timeout: g.opts.Timeout,
	})
	if err != nil {
		os.Remove(tmp) //nolint:errcheck // best-effort cleanup
		if res.Stderr != "" {
			return fmt.Errorf("%w: %s: %w: %s", ErrRenderFailed, job.Chart.OutputName, err, lastLine(res.Stderr))
		}
		return fmt.Errorf("%w: %s: %w", ErrRenderFailed, job.Chart.OutputName, err)
	}
	if res.Stderr != "" {
		g.logger.Warn("gnuplot warnings", "chart", job.Chart.OutputName, "stderr", res.Stderr)
	}

	if err := publish(tmp, job.OutputPath); err != nil {
		return fmt.Errorf("%s: %w", job.Chart.OutputName, err)
	}
	g.logger.Debug("chart rendered", "chart", job.Chart.OutputName, "path", job.OutputPath)
	return nil
}

// BuildScript returns the gnuplot script drawing job into outputPath.
func (g *Gnuplot) BuildScript(job Job, outputPath string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "set terminal png font %s %d size %d,%d\n",
		gnuplotQuote(g.opts.Font), g.opts.FontSize, g.opts.Width, g.opts.Height)
	b.WriteString("set grid lc rgb '#aaaaaa' lt 1 lw 0.5\n")
	fmt.Fprintf(&b, "set title %s\n", gnuplotQuote(job.Chart.Title))
	b.WriteString("set xdata time\n")
	fmt.Fprintf(&b, "set timefmt %s\n", gnuplotQuote(gnuplotTimeFmt))
	fmt.Fprintf(&b, "set format x %s\n", gnuplotQuote(job.Interval.TimeFormat))
	fmt.Fprintf(&b, "set xlabel %s\n", gnuplotQuote(g.opts.XLabel))
	if job.Chart.YLabel != "" {
		fmt.Fprintf(&b, "set ylabel %s\n", gnuplotQuote(job.Chart.YLabel))
	}
	if g.opts.XTicRotation != 0 {
		fmt.Fprintf(&b, "set xtics autofreq rotate by %d\n", g.opts.XTicRotation)
	} else {
		b.WriteString("set xtics autofreq\n")
	}
	b.WriteString("set ytics autofreq\n")
	b.WriteString("set datafile separator \"\\t\"\n")

	// gnuplot refuses to autoscale without points.
	empty := job.emptyWindow()
	if empty {
		fmt.Fprintf(&b, "set xrange [%s:%s]\n",
			gnuplotQuote(job.From.In(g.opts.Location).Format(extract.DataTimeLayout)),
			gnuplotQuote(job.To.In(g.opts.Location).Format(extract.DataTimeLayout)))
		b.WriteString("set yrange [0:1]\n")
	}
	fmt.Fprintf(&b, "set output %s\n", gnuplotQuote(outputPath))

	b.WriteString("plot ")
	for i, s := range job.Chart.Series {
		if i > 0 {
			b.WriteString(", \\\n     ")
		}
		switch {
		case empty:
			b.WriteString("NaN")
		case s.Style == catalog.StyleSmooth:
			fmt.Fprintf(&b, "%s using 1:2 smooth bezier", gnuplotQuote(job.DataFiles[i]))
		default:
			fmt.Fprintf(&b, "%s using 1:2", gnuplotQuote(job.DataFiles[i]))
		}
		fmt.Fprintf(&b, " with lines lw %d title %s", g.opts.LineWidth, gnuplotQuote(s.Label))
	}
	b.WriteString("\n")

	return b.String()
}

// gnuplotQuote returns s as a single-quoted gnuplot string. Inside single
// quotes only the quote itself needs escaping, by doubling.
func gnuplotQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
