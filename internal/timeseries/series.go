package timeseries

import (
	"fmt"
	"time"

	"github.com/nulzo/usage-metrics-api/pkg/api"
)

// Builder buckets samples into a fixed-cardinality series over one window.
// Each partition of a parallel reduction gets its own Builder; Merge folds
// them together under the aggregator's associative contract.
type Builder struct {
	window   Window
	interval Interval
	states   []State
}

func NewBuilder(window Window, interval Interval, agg Aggregator) *Builder {
	n := window.Buckets(interval)
	states := make([]State, n)
	for i := range states {
		states[i] = agg.NewState()
	}
	return &Builder{window: window, interval: interval, states: states}
}

// Add folds one sample into its bucket. Samples outside the window are
// dropped silently; windowing is the caller's query, not an error.
func (b *Builder) Add(ts time.Time, s Sample) {
	if !b.window.Contains(ts) {
		return
	}
	idx := int(ts.Sub(b.window.Start) / b.interval.Duration)
	b.states[idx].Add(s)
}

// Merge folds another builder's partial buckets into this one. Both must
// have been created for the same window and interval.
func (b *Builder) Merge(other *Builder) error {
	if b.window != other.window || b.interval != other.interval {
		return fmt.Errorf("cannot merge builders with different windows")
	}
	for i, s := range other.states {
		b.states[i].Merge(s)
	}
	return nil
}

// Series reads out the final points: exactly Buckets() of them, ascending,
// empty buckets holding the aggregator's identity value.
func (b *Builder) Series(slug string) api.MetricSeries {
	points := make([]api.MetricPoint, len(b.states))
	for i, s := range b.states {
		points[i] = api.MetricPoint{
			Timestamp: b.window.Start.Add(time.Duration(i) * b.interval.Duration),
			Value:     s.Value(),
		}
	}
	return api.MetricSeries{
		Slug:     slug,
		Start:    b.window.Start,
		End:      b.window.End,
		Interval: b.interval.Slug,
		Points:   points,
	}
}

// Compare zips two series by bucket index; absolute timestamps differ
// between periods but positions line up. PercentChange is nil whenever the
// previous bucket is zero; it never produces Inf or NaN.
func Compare(current api.MetricSeries, previous api.MetricSeries) []api.BucketComparison {
	n := len(current.Points)
	if len(previous.Points) < n {
		n = len(previous.Points)
	}

	buckets := make([]api.BucketComparison, n)
	for i := 0; i < n; i++ {
		cur := current.Points[i].Value
		prev := previous.Points[i].Value

		bc := api.BucketComparison{
			Index:    i,
			Current:  cur,
			Previous: prev,
			Delta:    cur - prev,
		}
		if prev != 0 {
			pct := (cur - prev) / prev
			bc.PercentChange = &pct
		}
		buckets[i] = bc
	}
	return buckets
}
