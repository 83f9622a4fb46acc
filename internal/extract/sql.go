package extract

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-charts/internal/infrastructure/config"
)

// sqlTimeLayout is how DATETIME values are passed to and read from the store.
const sqlTimeLayout = "2006-01-02 15:04:05"

// Querier is the query surface SQLSource needs. *database.DB satisfies it
// and rebinds placeholders for the active driver.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// SQLSource reads readings from a relational store.
type SQLSource struct {
	db     Querier
	table  string
	layout string
	loc    *time.Location
}

// NewSQLSource creates a SQLSource.
//
// Parameters:
//   - db: Query surface, usually *database.DB
//   - table: Table name, already validated as an identifier
//   - layout: config.LayoutInterval or config.LayoutPoint
//   - loc: Zone the DATETIME columns are stored in
func NewSQLSource(db Querier, table, layout string, loc *time.Location) (*SQLSource, error) {
	switch layout {
	case config.LayoutInterval, config.LayoutPoint:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLayout, layout)
	}
	if loc == nil {
		loc = time.Local
	}
	return &SQLSource{db: db, table: table, layout: layout, loc: loc}, nil
}

// Readings implements Source.
func (s *SQLSource) Readings(ctx context.Context, sensorID int, from, to time.Time) ([]Reading, error) {
	if s.layout == config.LayoutPoint {
		return s.points(ctx, sensorID, from, to)
	}
	return s.intervals(ctx, sensorID, from, to)
}

// intervals reads rows whose [starttime, endtime] overlaps the window and
// turns each into samples at its clipped start and end.
func (s *SQLSource) intervals(ctx context.Context, sensorID int, from, to time.Time) ([]Reading, error) {
	query := fmt.Sprintf(
		"SELECT value, starttime, endtime FROM %s WHERE sensor = ? AND starttime <= ? AND endtime >= ? ORDER BY starttime",
		s.table)

	rows, err := s.db.QueryContext(ctx, query, sensorID, s.format(to), s.format(from))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []window
	for rows.Next() {
		var w window
		start := wallTime{loc: s.loc}
		end := wallTime{loc: s.loc}
		if err := rows.Scan(&w.value, &start, &end); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", s.table, err)
		}
		w.start, w.end = start.t, end.t
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", s.table, err)
	}

	return expandWindows(windows, from, to), nil
}

// points reads a plain (time, value) table.
func (s *SQLSource) points(ctx context.Context, sensorID int, from, to time.Time) ([]Reading, error) {
	query := fmt.Sprintf(
		"SELECT time, value FROM %s WHERE sensor = ? AND time >= ? AND time <= ? ORDER BY time",
		s.table)

	rows, err := s.db.QueryContext(ctx, query, sensorID, s.format(from), s.format(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []Reading
	for rows.Next() {
		ts := wallTime{loc: s.loc}
		var r Reading
		if err := rows.Scan(&ts, &r.Value); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", s.table, err)
		}
		r.Time = ts.t
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", s.table, err)
	}
	return readings, nil
}

func (s *SQLSource) format(t time.Time) string {
	return t.In(s.loc).Format(sqlTimeLayout)
}

// window is one interval-layout row: value held from start to end.
type window struct {
	value      float64
	start, end time.Time
}

// expandWindows clips each window to [from, to] and emits a sample at the
// clipped start and, when it differs, at the clipped end.
func expandWindows(windows []window, from, to time.Time) []Reading {
	readings := make([]Reading, 0, 2*len(windows))
	for _, w := range windows {
		start, end := w.start, w.end
		if start.Before(from) {
			start = from
		}
		if end.After(to) {
			end = to
		}
		if end.Before(start) {
			continue
		}
		readings = append(readings, Reading{Time: start, Value: w.value})
		if !end.Equal(start) {
			readings = append(readings, Reading{Time: end, Value: w.value})
		}
	}
	return readings
}

// wallTime scans a DATETIME column as wall-clock time in loc. Drivers
// disagree on the zone they attach to zone-less columns (SQLite reports
// UTC), so only the clock fields are trusted.
type wallTime struct {
	loc *time.Location
	t   time.Time
}

// Scan implements sql.Scanner.
func (w *wallTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		w.t = time.Date(v.Year(), v.Month(), v.Day(), v.Hour(), v.Minute(), v.Second(), v.Nanosecond(), w.loc)
		return nil
	case []byte:
		return w.parse(string(v))
	case string:
		return w.parse(v)
	default:
		return fmt.Errorf("unsupported DATETIME value %T", src)
	}
}

func (w *wallTime) parse(s string) error {
	for _, layout := range []string{sqlTimeLayout, "2006-01-02 15:04:05.999999999", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, w.loc); err == nil {
			w.t = t
			return nil
		}
	}
	return fmt.Errorf("unparseable DATETIME %q", s)
}
