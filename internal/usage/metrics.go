package usage

import (
	"errors"
	"fmt"
	"sort"

	"github.com/nulzo/usage-metrics-api/internal/ledger"
	"github.com/nulzo/usage-metrics-api/internal/pricing"
	"github.com/nulzo/usage-metrics-api/internal/timeseries"
	"github.com/nulzo/usage-metrics-api/pkg/api"
)

// ErrUnknownMetric is returned for a metric slug outside the supported set.
var ErrUnknownMetric = errors.New("unknown metric")

// metricDef binds a metric slug to its aggregator and to the sample each
// event contributes. sample returns false when the event contributes nothing
// to this metric (an unpriced event has no cost sample, but still counts as
// a request).
type metricDef struct {
	descriptor api.MetricDescriptor
	agg        timeseries.Aggregator
	sample     func(e ledger.UsageEvent, cost pricing.Nanos, priced bool) (timeseries.Sample, bool)
}

var metricDefs = map[string]metricDef{
	"cost": {
		descriptor: api.MetricDescriptor{Slug: "cost", DisplayName: "Cost", Type: api.MetricTypeCurrency, Currency: "USD"},
		agg:        timeseries.Sum{},
		sample: func(e ledger.UsageEvent, cost pricing.Nanos, priced bool) (timeseries.Sample, bool) {
			if !priced {
				return timeseries.Sample{}, false
			}
			return timeseries.Sample{Value: int64(cost)}, true
		},
	},
	"requests": {
		descriptor: api.MetricDescriptor{Slug: "requests", DisplayName: "Requests", Type: api.MetricTypeCount},
		agg:        timeseries.Sum{},
		sample: func(e ledger.UsageEvent, _ pricing.Nanos, _ bool) (timeseries.Sample, bool) {
			return timeseries.Sample{Value: e.RequestCount}, true
		},
	},
	"input_tokens": {
		descriptor: api.MetricDescriptor{Slug: "input_tokens", DisplayName: "Input Tokens", Type: api.MetricTypeCount},
		agg:        timeseries.Sum{},
		sample: func(e ledger.UsageEvent, _ pricing.Nanos, _ bool) (timeseries.Sample, bool) {
			return timeseries.Sample{Value: e.InputTokens}, true
		},
	},
	"output_tokens": {
		descriptor: api.MetricDescriptor{Slug: "output_tokens", DisplayName: "Output Tokens", Type: api.MetricTypeCount},
		agg:        timeseries.Sum{},
		sample: func(e ledger.UsageEvent, _ pricing.Nanos, _ bool) (timeseries.Sample, bool) {
			return timeseries.Sample{Value: e.OutputTokens}, true
		},
	},
	"total_tokens": {
		descriptor: api.MetricDescriptor{Slug: "total_tokens", DisplayName: "Total Tokens", Type: api.MetricTypeCount},
		agg:        timeseries.Sum{},
		sample: func(e ledger.UsageEvent, _ pricing.Nanos, _ bool) (timeseries.Sample, bool) {
			return timeseries.Sample{Value: e.InputTokens + e.OutputTokens}, true
		},
	},
	"unique_customers": {
		descriptor: api.MetricDescriptor{Slug: "unique_customers", DisplayName: "Unique Customers", Type: api.MetricTypeCount},
		agg:        timeseries.Distinct{},
		sample: func(e ledger.UsageEvent, _ pricing.Nanos, _ bool) (timeseries.Sample, bool) {
			return timeseries.Sample{Key: e.CustomerID}, true
		},
	},
	"avg_cost_per_request": {
		descriptor: api.MetricDescriptor{Slug: "avg_cost_per_request", DisplayName: "Avg Cost / Request", Type: api.MetricTypeCurrency, Currency: "USD"},
		agg:        timeseries.Mean{},
		sample: func(e ledger.UsageEvent, cost pricing.Nanos, priced bool) (timeseries.Sample, bool) {
			if !priced {
				return timeseries.Sample{}, false
			}
			return timeseries.Sample{Value: int64(cost)}, true
		},
	},
}

// MetricSlugs lists the supported metric slugs, sorted.
func MetricSlugs() []string {
	slugs := make([]string, 0, len(metricDefs))
	for s := range metricDefs {
		slugs = append(slugs, s)
	}
	sort.Strings(slugs)
	return slugs
}

// Descriptor returns the display descriptor for a metric slug.
func Descriptor(slug string) (api.MetricDescriptor, error) {
	def, ok := metricDefs[slug]
	if !ok {
		return api.MetricDescriptor{}, fmt.Errorf("%w %q", ErrUnknownMetric, slug)
	}
	return def.descriptor, nil
}
