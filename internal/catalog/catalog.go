// Package catalog defines which charts are drawn and which sensors feed
// each of them.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-charts/internal/infrastructure/config"
)

// ErrInvalidChart is returned by FromConfig for an unusable definition.
var ErrInvalidChart = errors.New("catalog: invalid chart definition")

// Style is how a series is drawn.
type Style string

const (
	// StyleLine draws the raw samples connected by straight lines.
	// Used for set-points, which change in steps.
	StyleLine Style = "line"

	// StyleSmooth draws a smoothed curve through the samples.
	// Used for measured values.
	StyleSmooth Style = "smooth"
)

// ParseStyle parses a style name. The empty string means StyleLine.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case StyleLine, "":
		return StyleLine, nil
	case StyleSmooth:
		return StyleSmooth, nil
	default:
		return "", fmt.Errorf("unknown series style %q (want line or smooth)", s)
	}
}

// Series is one sensor drawn on a chart.
type Series struct {
	SensorID int
	Label    string
	Style    Style
}

// Chart is one output image.
type Chart struct {
	Title string

	// OutputName is the file stem; the interval name is appended.
	OutputName string

	// YLabel labels the value axis. May be empty.
	YLabel string

	// Series are drawn in order; order also fixes the legend.
	Series []Series
}

// ReservedOutput cannot name a chart. Run summaries are published under
// it, next to the per-chart notifications.
const ReservedOutput = "run"

// FileName returns the image name for an interval: {output}-{interval}.png.
func (c Chart) FileName(intervalName string) string {
	return c.OutputName + "-" + intervalName + ".png"
}

// Default returns the built-in catalog of the heating installation.
func Default() []Chart {
	return []Chart{
		{
			Title:      "Aussentemperatur",
			OutputName: "aussentemp",
			YLabel:     "°C",
			Series: []Series{
				{SensorID: 11, Label: "Aussentemperatur", Style: StyleSmooth},
				{SensorID: 12, Label: "Ged. Aussentemperatur", Style: StyleLine},
			},
		},
		{
			Title:      "Raumtemperatur",
			OutputName: "raumtemp",
			YLabel:     "°C",
			Series: []Series{
				{SensorID: 13, Label: "Raum-Soll", Style: StyleLine},
				{SensorID: 14, Label: "Raum-Ist", Style: StyleSmooth},
			},
		},
		{
			Title:      "Temperaturen",
			OutputName: "kessel",
			YLabel:     "°C",
			Series: []Series{
				{SensorID: 1, Label: "Kessel-Soll", Style: StyleLine},
				{SensorID: 2, Label: "Kessel-Ist", Style: StyleSmooth},
				{SensorID: 6, Label: "Vorlauf HK1", Style: StyleSmooth},
				{SensorID: 8, Label: "Vorlauf HK2", Style: StyleSmooth},
				{SensorID: 10, Label: "Ruecklauf", Style: StyleSmooth},
			},
		},
		{
			Title:      "Warmwasser",
			OutputName: "ww",
			YLabel:     "°C",
			Series: []Series{
				{SensorID: 3, Label: "Solltemperatur", Style: StyleLine},
				{SensorID: 4, Label: "Isttemperatur", Style: StyleSmooth},
			},
		},
	}
}

// FromConfig builds the catalog from the charts section of the
// configuration. An empty section selects Default.
//
// Returns:
//   - []Chart: Charts in configuration order
//   - error: ErrInvalidChart describing every problem found
func FromConfig(defs []config.ChartConfig) ([]Chart, error) {
	if len(defs) == 0 {
		return Default(), nil
	}

	var (
		charts []Chart
		errs   []string
		seen   = make(map[string]bool, len(defs))
	)

	for i, def := range defs {
		where := fmt.Sprintf("charts[%d]", i)
		if def.Output != "" {
			where = fmt.Sprintf("chart %q", def.Output)
		}

		chart := Chart{
			Title:      def.Title,
			OutputName: def.Output,
			YLabel:     def.YLabel,
		}

		if strings.TrimSpace(def.Title) == "" {
			errs = append(errs, where+": title is required")
		}
		switch {
		case def.Output == "":
			errs = append(errs, where+": output is required")
		case strings.ContainsAny(def.Output, `/\`) || def.Output == "." || def.Output == "..":
			errs = append(errs, where+": output must be a plain file name")
		case def.Output == ReservedOutput:
			errs = append(errs, where+": output name is reserved for run summaries")
		case seen[def.Output]:
			errs = append(errs, where+": output is used by more than one chart")
		}
		seen[def.Output] = true

		if len(def.Series) == 0 {
			errs = append(errs, where+": at least one series is required")
		}
		for j, s := range def.Series {
			style, err := ParseStyle(s.Style)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s series %d: %v", where, j, err))
			}
			if s.Sensor <= 0 {
				errs = append(errs, fmt.Sprintf("%s series %d: sensor must be positive", where, j))
			}
			label := s.Label
			if label == "" {
				label = fmt.Sprintf("Sensor %d", s.Sensor)
			}
			chart.Series = append(chart.Series, Series{SensorID: s.Sensor, Label: label, Style: style})
		}

		charts = append(charts, chart)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidChart, strings.Join(errs, "; "))
	}
	return charts, nil
}
