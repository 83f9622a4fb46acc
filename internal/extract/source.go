package extract

import (
	"context"
	"sort"
	"time"
)

// Reading is one sample of a sensor.
type Reading struct {
	Time  time.Time
	Value float64
}

// Source returns the readings of a sensor within [from, to]. The result
// need not be ordered; the extractor sorts it.
type Source interface {
	Readings(ctx context.Context, sensorID int, from, to time.Time) ([]Reading, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, sensorID int, from, to time.Time) ([]Reading, error)

// Readings calls f.
func (f SourceFunc) Readings(ctx context.Context, sensorID int, from, to time.Time) ([]Reading, error) {
	return f(ctx, sensorID, from, to)
}

// normalise drops readings outside [from, to] and sorts the rest by time.
// Readings with equal timestamps keep their source order.
func normalise(readings []Reading, from, to time.Time) []Reading {
	out := readings[:0]
	for _, r := range readings {
		if r.Time.Before(from) || r.Time.After(to) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})
	return out
}
