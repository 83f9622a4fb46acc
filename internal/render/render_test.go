package render

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gonum.org/v1/plot/plotter"

	"github.com/nerrad567/gray-logic-charts/internal/catalog"
	"github.com/nerrad567/gray-logic-charts/internal/extract"
	"github.com/nerrad567/gray-logic-charts/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-charts/internal/interval"
	"github.com/nerrad567/gray-logic-charts/internal/process"
)

// fakeGnuplot is a shell stand-in that writes a placeholder image to the
// path named by the script's "set output" line.
const fakeGnuplot = `#!/bin/sh
script=$(cat)
out=$(printf '%s\n' "$script" | sed -n "s/^set output '\(.*\)'$/\1/p")
printf 'fakepng' > "$out"
`

func testOptions() Options {
	return Options{
		Engine:       config.EngineGnuplot,
		Binary:       "gnuplot",
		Width:        1000,
		Height:       600,
		Font:         "times",
		FontSize:     16,
		XLabel:       "Datum",
		LineWidth:    2,
		XTicRotation: -45,
		Timeout:      10 * time.Second,
		Location:     time.UTC,
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	path := filepath.Join(t.TempDir(), "gnuplot")
	if err := os.WriteFile(path, []byte(body), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

// writeSeries writes a data file with n hourly readings.
func writeSeries(t *testing.T, dir, name string, n int) string {
	t.Helper()
	start := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	readings := make([]extract.Reading, n)
	for i := range readings {
		readings[i] = extract.Reading{Time: start.Add(time.Duration(i) * time.Hour), Value: float64(20 + i%5)}
	}
	var buf bytes.Buffer
	if err := extract.WriteData(&buf, readings, time.UTC); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func testJob(t *testing.T, chart catalog.Chart, n int) Job {
	t.Helper()
	dataDir := t.TempDir()
	files := make([]string, len(chart.Series))
	for i := range chart.Series {
		files[i] = writeSeries(t, dataDir, "series-"+string(rune('a'+i))+".dat", n)
	}
	iv, err := interval.Resolve("day")
	if err != nil {
		t.Fatal(err)
	}
	return Job{
		Chart:      chart,
		Interval:   iv,
		DataFiles:  files,
		OutputPath: filepath.Join(t.TempDir(), chart.FileName(iv.Name)),
	}
}

func aussentemp() catalog.Chart {
	return catalog.Default()[0]
}

func TestBuildScript(t *testing.T) {
	g := NewGnuplot(testOptions(), nil)
	job := Job{
		Chart:     aussentemp(),
		Interval:  interval.Interval{Name: "week", TimeFormat: "%d.%m (%Hh)"},
		DataFiles: []string{"/tmp/run/series-1.dat", "/tmp/run/series-2.dat"},
	}

	script := g.BuildScript(job, "/srv/charts/.aussentemp-week.tmp.png")

	for _, want := range []string{
		"set terminal png font 'times' 16 size 1000,600\n",
		"set grid lc rgb '#aaaaaa' lt 1 lw 0.5\n",
		"set title 'Aussentemperatur'\n",
		"set xdata time\n",
		"set timefmt '%Y-%m-%d %H:%M:%S'\n",
		"set format x '%d.%m (%Hh)'\n",
		"set xlabel 'Datum'\n",
		"set xtics autofreq rotate by -45\n",
		"set datafile separator \"\\t\"\n",
		"set output '/srv/charts/.aussentemp-week.tmp.png'\n",
		"plot '/tmp/run/series-1.dat' using 1:2 smooth bezier with lines lw 2 title 'Aussentemperatur', \\\n",
		"     '/tmp/run/series-2.dat' using 1:2 with lines lw 2 title 'Ged. Aussentemperatur'\n",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q\n--- script ---\n%s", want, script)
		}
	}
	if !strings.Contains(script, "set ylabel '°C'\n") {
		t.Errorf("default chart should carry its y label\n%s", script)
	}
	if strings.Contains(script, "set xrange") {
		t.Error("xrange pinned for a chart with points")
	}
}

func TestBuildScript_NoYLabel(t *testing.T) {
	g := NewGnuplot(testOptions(), nil)
	chart := aussentemp()
	chart.YLabel = ""

	script := g.BuildScript(Job{Chart: chart, DataFiles: []string{"a", "b"}}, "out.png")
	if strings.Contains(script, "set ylabel") {
		t.Error("ylabel set for a chart without one")
	}
}

func TestBuildScript_EmptyWindow(t *testing.T) {
	g := NewGnuplot(testOptions(), nil)
	job := Job{
		Chart:     aussentemp(),
		Interval:  interval.Interval{Name: "day", TimeFormat: "%H:%M"},
		DataFiles: []string{"/tmp/run/series-1.dat", "/tmp/run/series-2.dat"},
		From:      time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		To:        time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	}

	script := g.BuildScript(job, "out.png")

	for _, want := range []string{
		"set xrange ['2026-03-14 12:00:00':'2026-03-15 12:00:00']\n",
		"set yrange [0:1]\n",
		"plot NaN with lines lw 2 title 'Aussentemperatur', \\\n",
		"     NaN with lines lw 2 title 'Ged. Aussentemperatur'\n",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q\n%s", want, script)
		}
	}
	if strings.Contains(script, "series-1.dat") {
		t.Error("empty data files should not be plotted")
	}
	if strings.Index(script, "set xrange") > strings.Index(script, "plot ") {
		t.Error("xrange must precede the plot command")
	}

	job.Points = 4
	if strings.Contains(g.BuildScript(job, "out.png"), "set xrange") {
		t.Error("xrange pinned although the chart has points")
	}
}

func TestBuildScript_SeriesOrder(t *testing.T) {
	g := NewGnuplot(testOptions(), nil)
	chart := catalog.Default()[2] // kessel, 5 series
	files := []string{"f1", "f2", "f3", "f4", "f5"}

	script := g.BuildScript(Job{Chart: chart, DataFiles: files}, "out.png")

	last := -1
	for i, s := range chart.Series {
		idx := strings.Index(script, "'"+files[i]+"'")
		if idx < 0 || idx < last {
			t.Fatalf("series %d (%s) out of order in\n%s", i, s.Label, script)
		}
		last = idx
	}
	if n := strings.Count(script, "smooth bezier"); n != 4 {
		t.Errorf("smooth bezier count = %d, want 4", n)
	}
}

func TestBuildScript_Quoting(t *testing.T) {
	opts := testOptions()
	opts.XTicRotation = 0
	g := NewGnuplot(opts, nil)
	chart := catalog.Chart{
		Title:  "Kessel's Temperatur",
		YLabel: "°C",
		Series: []catalog.Series{{SensorID: 1, Label: "it's hot", Style: catalog.StyleLine}},
	}

	script := g.BuildScript(Job{Chart: chart, DataFiles: []string{"/tmp/a b.dat"}}, "/out/x.png")

	for _, want := range []string{
		"set title 'Kessel''s Temperatur'\n",
		"set ylabel '°C'\n",
		"set xtics autofreq\n",
		"'/tmp/a b.dat' using 1:2 with lines lw 2 title 'it''s hot'",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q\n%s", want, script)
		}
	}
}

func TestGnuplotRender(t *testing.T) {
	opts := testOptions()
	opts.Binary = writeScript(t, fakeGnuplot)
	g := NewGnuplot(opts, process.NewRunner())

	job := testJob(t, aussentemp(), 24)
	if err := g.Render(context.Background(), job); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	data, err := os.ReadFile(job.OutputPath)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if string(data) != "fakepng" {
		t.Errorf("output = %q", data)
	}
	if _, err := os.Stat(tempPath(job.OutputPath)); !errors.Is(err, os.ErrNotExist) {
		t.Error("temporary image left behind")
	}
}

func TestGnuplotRender_Failure(t *testing.T) {
	opts := testOptions()
	opts.Binary = writeScript(t, "#!/bin/sh\ncat >/dev/null\necho 'line 14: undefined variable: foo' >&2\nexit 1\n")
	g := NewGnuplot(opts, process.NewRunner())

	job := testJob(t, aussentemp(), 3)
	err := g.Render(context.Background(), job)
	if !errors.Is(err, ErrRenderFailed) {
		t.Fatalf("Render() error = %v, want ErrRenderFailed", err)
	}
	if !strings.Contains(err.Error(), "undefined variable") {
		t.Errorf("error %q does not carry gnuplot's message", err)
	}
	if _, statErr := os.Stat(job.OutputPath); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("failed render left an output file")
	}
}

func TestGnuplotRender_NoImage(t *testing.T) {
	opts := testOptions()
	opts.Binary = writeScript(t, "#!/bin/sh\ncat >/dev/null\nexit 0\n")
	g := NewGnuplot(opts, process.NewRunner())

	job := testJob(t, aussentemp(), 3)
	if err := g.Render(context.Background(), job); !errors.Is(err, ErrRenderFailed) {
		t.Fatalf("Render() error = %v, want ErrRenderFailed", err)
	}
}

// recordingRunner captures the invocation instead of running anything.
type recordingRunner struct {
	cfg    process.Config
	script string
}

func (r *recordingRunner) Run(_ context.Context, cfg process.Config) (process.Result, error) {
	r.cfg = cfg
	data, _ := io.ReadAll(cfg.Stdin)
	r.script = string(data)
	return process.Result{}, nil
}

func TestGnuplotRender_Invocation(t *testing.T) {
	runner := &recordingRunner{}
	opts := testOptions()
	opts.Binary = "/usr/local/bin/gnuplot"
	g := NewGnuplot(opts, runner)

	job := testJob(t, aussentemp(), 3)
	_ = g.Render(context.Background(), job) // no image is produced by the recorder

	if runner.cfg.Binary != "/usr/local/bin/gnuplot" {
		t.Errorf("Binary = %q", runner.cfg.Binary)
	}
	if runner.cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v", runner.cfg.Timeout)
	}
	if !strings.Contains(runner.script, "set output '"+tempPath(job.OutputPath)+"'") {
		t.Errorf("script does not draw to the temporary path:\n%s", runner.script)
	}
}

func TestRender_SeriesMismatch(t *testing.T) {
	job := testJob(t, aussentemp(), 3)
	job.DataFiles = job.DataFiles[:1]

	for _, r := range []Renderer{NewGnuplot(testOptions(), &recordingRunner{}), NewGonum(testOptions())} {
		if err := r.Render(context.Background(), job); !errors.Is(err, ErrSeriesMismatch) {
			t.Errorf("%T.Render() error = %v, want ErrSeriesMismatch", r, err)
		}
	}
}

func TestGonumRender(t *testing.T) {
	opts := testOptions()
	opts.Engine = config.EngineGonum
	g := NewGonum(opts)

	job := testJob(t, catalog.Default()[2], 48)
	if err := g.Render(context.Background(), job); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	data, err := os.ReadFile(job.OutputPath)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")) {
		t.Error("output is not a PNG")
	}
	if _, err := os.Stat(tempPath(job.OutputPath)); !errors.Is(err, os.ErrNotExist) {
		t.Error("temporary image left behind")
	}
}

func TestGonumRender_EmptySeries(t *testing.T) {
	g := NewGonum(testOptions())
	job := testJob(t, aussentemp(), 0)

	if err := g.Render(context.Background(), job); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if _, err := os.Stat(job.OutputPath); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestGonumRender_EmptyWindow(t *testing.T) {
	g := NewGonum(testOptions())
	job := testJob(t, aussentemp(), 0)
	job.From = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	job.To = job.From.Add(24 * time.Hour)

	p, err := g.buildPlot(job)
	if err != nil {
		t.Fatalf("buildPlot() error = %v", err)
	}
	if p.X.Min != float64(job.From.Unix()) || p.X.Max != float64(job.To.Unix()) {
		t.Errorf("X range = [%v, %v], want the window", p.X.Min, p.X.Max)
	}
	if err := g.Render(context.Background(), job); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
}

func TestGonumRender_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := testJob(t, aussentemp(), 3)
	if err := NewGonum(testOptions()).Render(ctx, job); !errors.Is(err, context.Canceled) {
		t.Errorf("Render() error = %v, want context.Canceled", err)
	}
}

func TestMovingAverage(t *testing.T) {
	in := plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 10}, {X: 2, Y: 0}, {X: 3, Y: 10}, {X: 4, Y: 0}}
	out := movingAverage(in, 3)

	want := []float64{5, 10.0 / 3, 20.0 / 3, 10.0 / 3, 5}
	for i := range want {
		if diff := out[i].Y - want[i]; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("out[%d].Y = %v, want %v", i, out[i].Y, want[i])
		}
		if out[i].X != in[i].X {
			t.Errorf("out[%d].X = %v, want %v", i, out[i].X, in[i].X)
		}
	}

	short := plotter.XYs{{X: 0, Y: 1}, {X: 1, Y: 3}}
	if got := movingAverage(short, 5); got[0].Y != 1 || got[1].Y != 3 {
		t.Errorf("short input should pass through, got %v", got)
	}
}

func TestNew(t *testing.T) {
	opts := testOptions()

	r, err := New(opts, nil)
	if err != nil {
		t.Fatalf("New(gnuplot) error = %v", err)
	}
	if _, ok := r.(*Gnuplot); !ok {
		t.Errorf("New(gnuplot) = %T", r)
	}

	opts.Engine = config.EngineGonum
	r, err = New(opts, nil)
	if err != nil {
		t.Fatalf("New(gonum) error = %v", err)
	}
	if _, ok := r.(*Gonum); !ok {
		t.Errorf("New(gonum) = %T", r)
	}

	opts.Engine = "svg"
	if _, err := New(opts, nil); !errors.Is(err, ErrUnknownEngine) {
		t.Errorf("New(svg) error = %v, want ErrUnknownEngine", err)
	}
}

func TestTempPath(t *testing.T) {
	if got := tempPath("/srv/charts/kessel-day.png"); got != "/srv/charts/.kessel-day.tmp.png" {
		t.Errorf("tempPath() = %q", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.Default().Render, time.UTC)
	if opts.Width != 1000 || opts.Height != 600 || opts.XLabel != "Datum" || opts.XTicRotation != -45 {
		t.Errorf("OptionsFromConfig() = %+v", opts)
	}
	if opts.Location != time.UTC {
		t.Error("Location not carried over")
	}
}
