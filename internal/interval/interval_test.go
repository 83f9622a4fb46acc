package interval

import (
	"errors"
	"testing"
	"time"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		wantSpan   string
		wantFormat string
		wantLayout string
	}{
		{"day", "1 day", "%H:%M", "15:04"},
		{"halfweek", "3 day", "%d.%m (%Hh)", "02.01 (15h)"},
		{"week", "1 week", "%d.%m (%Hh)", "02.01 (15h)"},
		{"month", "1 month", "%d.%m", "02.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iv, err := Resolve(tt.name)
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.name, err)
			}
			if iv.Name != tt.name {
				t.Errorf("Name = %q, want %q", iv.Name, tt.name)
			}
			if got := iv.Span.String(); got != tt.wantSpan {
				t.Errorf("Span = %q, want %q", got, tt.wantSpan)
			}
			if iv.TimeFormat != tt.wantFormat {
				t.Errorf("TimeFormat = %q, want %q", iv.TimeFormat, tt.wantFormat)
			}
			if iv.Layout != tt.wantLayout {
				t.Errorf("Layout = %q, want %q", iv.Layout, tt.wantLayout)
			}
		})
	}
}

func TestResolve_Unknown(t *testing.T) {
	for _, name := range []string{"", "year", "Day", "DAY", "days", " day", "hour"} {
		t.Run(name, func(t *testing.T) {
			_, err := Resolve(name)
			if !errors.Is(err, ErrUnknownInterval) {
				t.Errorf("Resolve(%q) error = %v, want ErrUnknownInterval", name, err)
			}
		})
	}
}

func TestResolve_Pure(t *testing.T) {
	for _, name := range Names() {
		first, err := Resolve(name)
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", name, err)
		}
		for i := 0; i < 3; i++ {
			again, _ := Resolve(name)
			if again != first {
				t.Errorf("Resolve(%q) changed between calls: %+v vs %+v", name, first, again)
			}
		}
	}
}

func TestSpanStart(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		span Span
		want time.Time
	}{
		{Span{1, Day}, time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC)},
		{Span{3, Day}, time.Date(2026, 3, 12, 12, 30, 0, 0, time.UTC)},
		{Span{1, Week}, time.Date(2026, 3, 8, 12, 30, 0, 0, time.UTC)},
		{Span{1, Month}, time.Date(2026, 2, 15, 12, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.span.String(), func(t *testing.T) {
			if got := tt.span.Start(now); !got.Equal(tt.want) {
				t.Errorf("Start() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNames(t *testing.T) {
	want := []string{"day", "halfweek", "week", "month"}
	got := Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
