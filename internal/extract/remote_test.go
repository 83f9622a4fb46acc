package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-charts/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-charts/internal/infrastructure/tsdb"
)

type fakeInflux struct {
	points []influxdb.Point
	err    error
	sensor int
}

func (f *fakeInflux) QuerySensor(_ context.Context, sensorID int, _, _ time.Time) ([]influxdb.Point, error) {
	f.sensor = sensorID
	return f.points, f.err
}

type fakeTSDB struct {
	samples []tsdb.Sample
	err     error
}

func (f *fakeTSDB) QuerySensor(context.Context, int, time.Time, time.Time) ([]tsdb.Sample, error) {
	return f.samples, f.err
}

func TestInfluxSource(t *testing.T) {
	at := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	fake := &fakeInflux{points: []influxdb.Point{{Time: at, Value: 21.5}}}

	readings, err := NewInfluxSource(fake).Readings(context.Background(), 14, at.Add(-time.Hour), at)
	if err != nil {
		t.Fatalf("Readings() error = %v", err)
	}
	if fake.sensor != 14 {
		t.Errorf("queried sensor %d, want 14", fake.sensor)
	}
	if len(readings) != 1 || readings[0].Value != 21.5 || !readings[0].Time.Equal(at) {
		t.Errorf("readings = %+v", readings)
	}

	fake.err = influxdb.ErrQueryFailed
	if _, err := NewInfluxSource(fake).Readings(context.Background(), 14, at, at); !errors.Is(err, influxdb.ErrQueryFailed) {
		t.Errorf("Readings() error = %v, want ErrQueryFailed", err)
	}
}

func TestTSDBSource(t *testing.T) {
	at := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	fake := &fakeTSDB{samples: []tsdb.Sample{{Time: at, Value: 4}, {Time: at.Add(time.Minute), Value: 5}}}

	readings, err := NewTSDBSource(fake).Readings(context.Background(), 3, at, at.Add(time.Hour))
	if err != nil {
		t.Fatalf("Readings() error = %v", err)
	}
	if len(readings) != 2 || readings[1].Value != 5 {
		t.Errorf("readings = %+v", readings)
	}

	fake.err = tsdb.ErrQueryFailed
	if _, err := NewTSDBSource(fake).Readings(context.Background(), 3, at, at); !errors.Is(err, tsdb.ErrQueryFailed) {
		t.Errorf("Readings() error = %v, want ErrQueryFailed", err)
	}
}
