package extract

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nerrad567/gray-logic-charts/internal/interval"
)

// Logger defines the logging interface for the extractor.
type Logger interface {
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}

// Config holds extractor settings.
type Config struct {
	// Dir receives the data files. It must exist.
	Dir string

	// Location is the zone data file timestamps are written in.
	Location *time.Location

	// QueryTimeout bounds each source query. Zero means no limit.
	QueryTimeout time.Duration
}

// DataFile is one extracted series on disk.
type DataFile struct {
	Path     string
	SensorID int
	Count    int
	From, To time.Time
}

// Extractor writes sensor series to data files.
type Extractor struct {
	source Source
	cfg    Config
	logger Logger
	now    func() time.Time
}

// New creates an Extractor reading from source.
func New(source Source, cfg Config) *Extractor {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Extractor{
		source: source,
		cfg:    cfg,
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the extractor.
func (e *Extractor) SetLogger(logger Logger) {
	e.logger = logger
}

// Extract writes the readings of sensorID over the trailing span to a new
// file in the configured directory.
//
// The window ends at the current time. Rows are sorted ascending and none
// lies outside the window. An empty window still yields a file holding
// only the header.
//
// Returns:
//   - DataFile: Location and size of the written series
//   - error: A wrapped ErrSourceFailed when the store query fails
func (e *Extractor) Extract(ctx context.Context, sensorID int, span interval.Span) (DataFile, error) {
	to := e.now()
	from := span.Start(to)
	return e.ExtractRange(ctx, sensorID, from, to)
}

// ExtractRange is Extract for an explicit window.
func (e *Extractor) ExtractRange(ctx context.Context, sensorID int, from, to time.Time) (DataFile, error) {
	queryCtx := ctx
	if e.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, e.cfg.QueryTimeout)
		defer cancel()
	}

	readings, err := e.source.Readings(queryCtx, sensorID, from, to)
	if err != nil {
		return DataFile{}, fmt.Errorf("%w: sensor %d: %w", ErrSourceFailed, sensorID, err)
	}
	readings = normalise(readings, from, to)

	f, err := os.CreateTemp(e.cfg.Dir, "series-*.dat")
	if err != nil {
		return DataFile{}, fmt.Errorf("creating data file: %w", err)
	}
	if err := WriteData(f, readings, e.cfg.Location); err != nil {
		f.Close()
		os.Remove(f.Name())
		return DataFile{}, fmt.Errorf("writing data file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return DataFile{}, fmt.Errorf("closing data file: %w", err)
	}

	e.logger.Debug("extracted series", "sensor", sensorID, "points", len(readings), "path", f.Name())

	return DataFile{
		Path:     f.Name(),
		SensorID: sensorID,
		Count:    len(readings),
		From:     from,
		To:       to,
	}, nil
}
