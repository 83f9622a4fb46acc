package extract

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-charts/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-charts/internal/infrastructure/tsdb"
)

// InfluxQuerier is the part of the InfluxDB client InfluxSource uses.
type InfluxQuerier interface {
	QuerySensor(ctx context.Context, sensorID int, from, to time.Time) ([]influxdb.Point, error)
}

// InfluxSource reads readings from InfluxDB.
type InfluxSource struct {
	client InfluxQuerier
}

// NewInfluxSource creates an InfluxSource over client.
func NewInfluxSource(client InfluxQuerier) *InfluxSource {
	return &InfluxSource{client: client}
}

// Readings implements Source.
func (s *InfluxSource) Readings(ctx context.Context, sensorID int, from, to time.Time) ([]Reading, error) {
	points, err := s.client.QuerySensor(ctx, sensorID, from, to)
	if err != nil {
		return nil, err
	}
	readings := make([]Reading, len(points))
	for i, p := range points {
		readings[i] = Reading{Time: p.Time, Value: p.Value}
	}
	return readings, nil
}

// TSDBQuerier is the part of the VictoriaMetrics client TSDBSource uses.
type TSDBQuerier interface {
	QuerySensor(ctx context.Context, sensorID int, from, to time.Time) ([]tsdb.Sample, error)
}

// TSDBSource reads readings from VictoriaMetrics.
type TSDBSource struct {
	client TSDBQuerier
}

// NewTSDBSource creates a TSDBSource over client.
func NewTSDBSource(client TSDBQuerier) *TSDBSource {
	return &TSDBSource{client: client}
}

// Readings implements Source.
func (s *TSDBSource) Readings(ctx context.Context, sensorID int, from, to time.Time) ([]Reading, error) {
	samples, err := s.client.QuerySensor(ctx, sensorID, from, to)
	if err != nil {
		return nil, err
	}
	readings := make([]Reading, len(samples))
	for i, sm := range samples {
		readings[i] = Reading{Time: sm.Time, Value: sm.Value}
	}
	return readings, nil
}
