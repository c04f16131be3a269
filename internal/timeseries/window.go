// Package timeseries turns raw usage samples into fixed-cardinality,
// chart-ready series and aligned period comparisons.
package timeseries

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownRange is returned for a range label outside the supported set.
var ErrUnknownRange = errors.New("unknown range label")

// Interval is one bucket width of a series.
type Interval struct {
	Slug     string
	Duration time.Duration
}

var (
	IntervalHour     = Interval{Slug: "hour", Duration: time.Hour}
	IntervalSixHours = Interval{Slug: "6h", Duration: 6 * time.Hour}
	IntervalDay      = Interval{Slug: "day", Duration: 24 * time.Hour}
	IntervalThreeDay = Interval{Slug: "3d", Duration: 72 * time.Hour}
)

// Window is a contiguous time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Buckets is the fixed point count of a series over this window:
// ceil((end - start) / interval), independent of data sparsity.
func (w Window) Buckets(interval Interval) int {
	span := w.End.Sub(w.Start)
	if span <= 0 {
		return 0
	}
	return int((span + interval.Duration - 1) / interval.Duration)
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

type rangeSpec struct {
	duration time.Duration
	interval Interval
}

// ranges keeps every label's bucket count in a readable 20-60 band.
var ranges = map[string]rangeSpec{
	"24h": {duration: 24 * time.Hour, interval: IntervalHour},          // 24 buckets
	"48h": {duration: 48 * time.Hour, interval: IntervalHour},          // 48 buckets
	"7d":  {duration: 7 * 24 * time.Hour, interval: IntervalSixHours},  // 28 buckets
	"30d": {duration: 30 * 24 * time.Hour, interval: IntervalDay},      // 30 buckets
	"90d": {duration: 90 * 24 * time.Hour, interval: IntervalThreeDay}, // 30 buckets
}

// RangeLabels lists the supported relative range labels.
func RangeLabels() []string {
	return []string{"24h", "48h", "7d", "30d", "90d"}
}

// ResolveCurrentWindow computes the window for a relative range label.
// The end is now truncated to the interval boundary; the start is one range
// duration earlier, so the bucket count is deterministic per label.
func ResolveCurrentWindow(label string, now time.Time) (Window, Interval, error) {
	spec, ok := ranges[label]
	if !ok {
		return Window{}, Interval{}, fmt.Errorf("%w %q", ErrUnknownRange, label)
	}

	end := now.UTC().Truncate(spec.interval.Duration)
	start := end.Add(-spec.duration)

	return Window{Start: start, End: end}, spec.interval, nil
}

// ResolvePreviousWindow computes the window immediately preceding the current
// one, with no gap. It returns nil when the previous window would begin
// before the account origin: the account did not exist yet, so there is
// nothing meaningful to compare against.
func ResolvePreviousWindow(currentStart time.Time, label string, origin time.Time) (*Window, error) {
	spec, ok := ranges[label]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownRange, label)
	}

	prevEnd := currentStart
	prevStart := prevEnd.Add(-spec.duration)

	if prevStart.Before(origin) {
		return nil, nil
	}

	return &Window{Start: prevStart, End: prevEnd}, nil
}
