package api

import "time"

// MetricType determines how a metric value is rendered for display.
type MetricType string

const (
	MetricTypeCurrency   MetricType = "currency"
	MetricTypeCount      MetricType = "count"
	MetricTypePercentage MetricType = "percentage"
)

// MetricDescriptor describes a metric exposed by the query API.
type MetricDescriptor struct {
	Slug        string     `json:"slug"`
	DisplayName string     `json:"display_name"`
	Type        MetricType `json:"type"`
	// Currency is the ISO 4217 code for currency metrics ("USD").
	Currency string `json:"currency,omitempty"`
}

// MetricPoint is a single bucket of a time series.
//
// Currency values are carried in nano-units of the currency; the engine
// accumulates them as integers and only converts at this boundary.
type MetricPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// MetricSeries is a fixed-cardinality series over [start, end): one point per
// interval bucket, ascending, regardless of data sparsity.
type MetricSeries struct {
	Slug     string        `json:"slug"`
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Interval string        `json:"interval"`
	Points   []MetricPoint `json:"points"`
}

// BucketComparison pairs the current and previous value of one bucket index.
// PercentChange is null when the previous value is zero.
type BucketComparison struct {
	Index         int      `json:"index"`
	Current       float64  `json:"current"`
	Previous      float64  `json:"previous"`
	Delta         float64  `json:"delta"`
	PercentChange *float64 `json:"percent_change"`
}

// ComparisonResult holds a current series and, when the account existed for
// the full previous window, the immediately preceding series plus per-bucket
// deltas. Previous is null when the comparison is not applicable.
type ComparisonResult struct {
	Metric   MetricDescriptor   `json:"metric"`
	Current  MetricSeries       `json:"current"`
	Previous *MetricSeries      `json:"previous,omitempty"`
	Buckets  []BucketComparison `json:"buckets,omitempty"`

	QuarantinedCount int64 `json:"quarantined_count"`
}

// RollupRow is one group of a usage rollup (per customer or per model).
type RollupRow struct {
	Key           string `json:"key"`
	Requests      int64  `json:"requests"`
	InputTokens   int64  `json:"input_tokens"`
	OutputTokens  int64  `json:"output_tokens"`
	CostNanos     int64  `json:"cost_nanos"`
	CostFormatted string `json:"cost_formatted"`
	// UnpricedCount is the number of requests whose model/provider pair has
	// no published price. Their cost is reported as unknown, never zero.
	UnpricedCount int64 `json:"unpriced_count"`
	ErrorCount    int64 `json:"error_count"`
}

// RollupResponse is the grouped aggregate for a range.
type RollupResponse struct {
	GroupBy string      `json:"group_by"`
	Start   time.Time   `json:"start"`
	End     time.Time   `json:"end"`
	Rows    []RollupRow `json:"rows"`

	// QuarantinedCount is the number of events excluded from the totals
	// (malformed or unresolvable). Non-zero means the rollup is incomplete.
	QuarantinedCount int64 `json:"quarantined_count"`
}
