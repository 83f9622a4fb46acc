// Package interval resolves the symbolic chart windows (day, halfweek,
// week, month) into a query span and the x-axis formats used to draw it.
package interval

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownInterval is returned by Resolve for names outside the table.
var ErrUnknownInterval = errors.New("interval: unknown interval")

// Unit is a calendar unit of a Span.
type Unit int

const (
	Day Unit = iota
	Week
	Month
)

func (u Unit) String() string {
	switch u {
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	default:
		return fmt.Sprintf("unit(%d)", int(u))
	}
}

// Span is a trailing calendar window such as "3 day" or "1 month".
type Span struct {
	Amount int
	Unit   Unit
}

// Start returns the beginning of the window ending at now.
// Months use AddDate normalisation: "1 month" before March 31 is March 3.
func (s Span) Start(now time.Time) time.Time {
	switch s.Unit {
	case Week:
		return now.AddDate(0, 0, -7*s.Amount)
	case Month:
		return now.AddDate(0, -s.Amount, 0)
	default:
		return now.AddDate(0, 0, -s.Amount)
	}
}

// String renders the span the way SQL interval literals read: "1 week".
func (s Span) String() string {
	return fmt.Sprintf("%d %s", s.Amount, s.Unit)
}

// Interval is a resolved chart window.
type Interval struct {
	// Name is the symbolic name, also used in output filenames.
	Name string

	// Span is the trailing window queried from the store.
	Span Span

	// TimeFormat is the strftime pattern for gnuplot's x axis.
	TimeFormat string

	// Layout is the equivalent Go time layout for in-process rendering.
	Layout string
}

// intervals is ordered for display in usage messages.
var intervals = []Interval{
	{Name: "day", Span: Span{1, Day}, TimeFormat: "%H:%M", Layout: "15:04"},
	{Name: "halfweek", Span: Span{3, Day}, TimeFormat: "%d.%m (%Hh)", Layout: "02.01 (15h)"},
	{Name: "week", Span: Span{1, Week}, TimeFormat: "%d.%m (%Hh)", Layout: "02.01 (15h)"},
	{Name: "month", Span: Span{1, Month}, TimeFormat: "%d.%m", Layout: "02.01"},
}

// Resolve looks up an interval by name. Names are case-sensitive, as they
// end up verbatim in output filenames.
func Resolve(name string) (Interval, error) {
	for _, iv := range intervals {
		if iv.Name == name {
			return iv, nil
		}
	}
	return Interval{}, fmt.Errorf("%w %q (valid: %s)", ErrUnknownInterval, name, strings.Join(Names(), ", "))
}

// Names returns the valid interval names in display order.
func Names() []string {
	names := make([]string, len(intervals))
	for i, iv := range intervals {
		names[i] = iv.Name
	}
	return names
}
