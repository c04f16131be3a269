package usage

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/nulzo/usage-metrics-api/internal/catalog"
	"github.com/nulzo/usage-metrics-api/internal/ledger"
	"github.com/nulzo/usage-metrics-api/internal/pricing"
	"github.com/nulzo/usage-metrics-api/internal/timeseries"
	"github.com/nulzo/usage-metrics-api/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeLedger serves a fixed event slice in pages.
type fakeLedger struct {
	events   []ledger.UsageEvent
	pageSize int
	pages    int // pages served, for pull-based assertions
	failAt   int // fail when serving this page index (0 = never)
}

func (f *fakeLedger) NextPage(ctx context.Context, q ledger.Query, cursor string) (ledger.Page, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Page{}, err
	}

	f.pages++
	if f.failAt > 0 && f.pages == f.failAt {
		return ledger.Page{}, errors.New("ledger unavailable")
	}

	start := 0
	if cursor != "" {
		var err error
		start, err = parseCursor(cursor)
		if err != nil {
			return ledger.Page{}, err
		}
	}

	end := start + f.pageSize
	if end >= len(f.events) {
		return ledger.Page{Events: f.events[start:], Done: true}, nil
	}
	return ledger.Page{Events: f.events[start:end], NextCursor: formatCursor(end)}, nil
}

func parseCursor(c string) (int, error) {
	n := 0
	for _, r := range c {
		if r < '0' || r > '9' {
			return 0, errors.New("bad cursor")
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

func formatCursor(n int) string {
	if n == 0 {
		return "0"
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{byte('0' + n%10)}, buf...)
		n /= 10
	}
	return string(buf)
}

func testCatalogStore(t *testing.T) *catalog.Store {
	t.Helper()

	providers := []api.ProviderDefinition{{ID: "openai", Name: "OpenAI"}}
	models := []api.ModelDefinition{
		{
			ID:   "gpt",
			Name: "GPT",
			Providers: []api.ModelProviderPricing{
				{
					ProviderID:   "openai",
					ModelName:    "gpt",
					InputPrice:   "0.000001",
					OutputPrice:  "0.000002",
					RequestPrice: "0",
				},
			},
		},
		{
			ID:   "custom",
			Name: "Custom",
			Providers: []api.ModelProviderPricing{
				{ProviderID: "openai", ModelName: "custom"},
			},
		},
	}

	c, err := catalog.Load(providers, models)
	require.NoError(t, err)
	return catalog.NewStore(c)
}

func testWindow() (timeseries.Window, timeseries.Interval, ledger.Query) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	w := timeseries.Window{Start: start, End: start.Add(30 * 24 * time.Hour)}
	q := ledger.Query{OrgID: "org-1", Start: w.Start, End: w.End}
	return w, timeseries.IntervalDay, q
}

func event(ts time.Time, customer, model string, in, out int64) ledger.UsageEvent {
	return ledger.UsageEvent{
		ID:           customer + model + ts.String(),
		OrgID:        "org-1",
		CustomerID:   customer,
		ModelID:      model,
		ProviderID:   "openai",
		InputTokens:  in,
		OutputTokens: out,
		RequestCount: 1,
		Timestamp:    ts,
	}
}

func TestSeries_CostAndRequests(t *testing.T) {
	w, interval, q := testWindow()

	l := &fakeLedger{
		events: []ledger.UsageEvent{
			event(w.Start.Add(time.Hour), "cust-a", "gpt", 1000, 500),
			event(w.Start.Add(2*time.Hour), "cust-b", "gpt", 1000, 500),
			event(w.Start.Add(25*time.Hour), "cust-a", "gpt", 2000, 1000),
		},
		pageSize: 2,
	}

	agg := NewAggregator(l, testCatalogStore(t), zap.NewNop())
	report, err := agg.Series(context.Background(), q, w, interval, []string{"cost", "requests"})
	require.NoError(t, err)

	assert.Zero(t, report.QuarantinedCount)
	assert.Zero(t, report.UnpricedCount)
	assert.Equal(t, int64(1), report.CatalogVersion)

	cost := report.Series["cost"]
	require.Len(t, cost.Points, 30)
	// Each 1000/500 event costs 0.002 units = 2e6 nanos.
	assert.Equal(t, float64(4_000_000), cost.Points[0].Value)
	assert.Equal(t, float64(4_000_000), cost.Points[1].Value)
	assert.Equal(t, float64(0), cost.Points[2].Value)

	requests := report.Series["requests"]
	assert.Equal(t, float64(2), requests.Points[0].Value)
	assert.Equal(t, float64(1), requests.Points[1].Value)
}

func TestSeries_UnpricedExcludedFromCostNotCounts(t *testing.T) {
	w, interval, q := testWindow()

	l := &fakeLedger{
		events: []ledger.UsageEvent{
			event(w.Start, "cust-a", "gpt", 1000, 500),
			event(w.Start, "cust-a", "custom", 9999, 9999),
		},
		pageSize: 10,
	}

	agg := NewAggregator(l, testCatalogStore(t), zap.NewNop())
	report, err := agg.Series(context.Background(), q, w, interval, []string{"cost", "requests"})
	require.NoError(t, err)

	// The unpriced event is valid: counted, not quarantined, and its
	// unknown cost is excluded rather than treated as zero.
	assert.Zero(t, report.QuarantinedCount)
	assert.Equal(t, int64(1), report.UnpricedCount)
	assert.Equal(t, float64(2_000_000), report.Series["cost"].Points[0].Value)
	assert.Equal(t, float64(2), report.Series["requests"].Points[0].Value)
}

func TestSeries_QuarantineContinues(t *testing.T) {
	w, interval, q := testWindow()

	bad := event(w.Start, "cust-a", "gpt", 100, 50)
	bad.InputTokens = -1

	unknown := event(w.Start, "cust-a", "no-such-model", 100, 50)

	l := &fakeLedger{
		events: []ledger.UsageEvent{
			bad,
			unknown,
			event(w.Start, "cust-a", "gpt", 1000, 500),
		},
		pageSize: 1,
	}

	agg := NewAggregator(l, testCatalogStore(t), zap.NewNop())
	report, err := agg.Series(context.Background(), q, w, interval, []string{"cost"})
	require.NoError(t, err)

	assert.Equal(t, int64(2), report.QuarantinedCount)
	assert.Equal(t, float64(2_000_000), report.Series["cost"].Points[0].Value)
}

func TestSeries_UnknownMetric(t *testing.T) {
	w, interval, q := testWindow()
	agg := NewAggregator(&fakeLedger{pageSize: 1}, testCatalogStore(t), zap.NewNop())

	_, err := agg.Series(context.Background(), q, w, interval, []string{"nope"})
	assert.Error(t, err)
}

func TestSeries_LedgerErrorAbortsWithoutPartialResult(t *testing.T) {
	w, interval, q := testWindow()

	events := make([]ledger.UsageEvent, 100)
	for i := range events {
		events[i] = event(w.Start.Add(time.Duration(i)*time.Minute), "cust-a", "gpt", 10, 5)
	}

	l := &fakeLedger{events: events, pageSize: 10, failAt: 3}
	agg := NewAggregator(l, testCatalogStore(t), zap.NewNop())

	report, err := agg.Series(context.Background(), q, w, interval, []string{"cost"})
	require.Error(t, err)
	assert.Nil(t, report)
}

func TestSeries_Cancellation(t *testing.T) {
	w, interval, q := testWindow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := &fakeLedger{events: []ledger.UsageEvent{event(w.Start, "c", "gpt", 1, 1)}, pageSize: 1}
	agg := NewAggregator(l, testCatalogStore(t), zap.NewNop())

	report, err := agg.Series(ctx, q, w, interval, []string{"cost"})
	require.Error(t, err)
	assert.Nil(t, report)
}

// The same event set reduced with any worker count must produce identical
// results: the reduction relies only on associative, commutative merges.
func TestSeries_PartitionIndependence(t *testing.T) {
	w, interval, q := testWindow()
	rng := rand.New(rand.NewSource(42))

	events := make([]ledger.UsageEvent, 2000)
	for i := range events {
		customer := string(rune('a' + rng.Intn(10)))
		model := "gpt"
		if rng.Intn(10) == 0 {
			model = "custom"
		}
		events[i] = event(
			w.Start.Add(time.Duration(rng.Int63n(int64(30*24*time.Hour)))),
			"cust-"+customer, model,
			rng.Int63n(5000), rng.Int63n(2000),
		)
	}

	store := testCatalogStore(t)
	slugs := []string{"cost", "requests", "unique_customers"}

	baseline, err := NewAggregator(&fakeLedger{events: events, pageSize: 100}, store, zap.NewNop()).
		WithWorkers(1).
		Series(context.Background(), q, w, interval, slugs)
	require.NoError(t, err)

	for _, workers := range []int{2, 3, 8} {
		for _, pageSize := range []int{1, 7, 500} {
			report, err := NewAggregator(&fakeLedger{events: events, pageSize: pageSize}, store, zap.NewNop()).
				WithWorkers(workers).
				Series(context.Background(), q, w, interval, slugs)
			require.NoError(t, err)

			assert.Equal(t, baseline.Series, report.Series, "workers=%d pageSize=%d", workers, pageSize)
			assert.Equal(t, baseline.UnpricedCount, report.UnpricedCount)
		}
	}
}

// Re-running the same query against the same snapshot is idempotent.
func TestSeries_Restartable(t *testing.T) {
	w, interval, q := testWindow()

	events := []ledger.UsageEvent{
		event(w.Start, "cust-a", "gpt", 1000, 500),
		event(w.Start.Add(time.Hour), "cust-b", "gpt", 200, 100),
	}
	store := testCatalogStore(t)

	first, err := NewAggregator(&fakeLedger{events: events, pageSize: 1}, store, zap.NewNop()).
		Series(context.Background(), q, w, interval, []string{"cost"})
	require.NoError(t, err)

	second, err := NewAggregator(&fakeLedger{events: events, pageSize: 1}, store, zap.NewNop()).
		Series(context.Background(), q, w, interval, []string{"cost"})
	require.NoError(t, err)

	assert.Equal(t, first.Series, second.Series)
}

func TestRollup_ByCustomerAndModel(t *testing.T) {
	w, _, q := testWindow()

	bad := event(w.Start, "cust-b", "gpt", 10, 5)
	bad.OutputTokens = -3

	l := &fakeLedger{
		events: []ledger.UsageEvent{
			event(w.Start, "cust-a", "gpt", 1000, 500),
			event(w.Start.Add(time.Hour), "cust-a", "gpt", 1000, 500),
			event(w.Start.Add(2*time.Hour), "cust-b", "custom", 50, 20),
			bad,
		},
		pageSize: 2,
	}

	agg := NewAggregator(l, testCatalogStore(t), zap.NewNop())

	byCustomer, err := agg.Rollup(context.Background(), q, GroupByCustomer)
	require.NoError(t, err)
	require.Len(t, byCustomer.Rows, 2)

	// cust-a has the highest cost and sorts first.
	top := byCustomer.Rows[0]
	assert.Equal(t, "cust-a", top.Key)
	assert.Equal(t, int64(2), top.Totals.Requests)
	assert.Equal(t, pricing.Nanos(4_000_000), top.Totals.CostNanos)
	assert.Zero(t, top.Totals.ErrorCount)

	other := byCustomer.Rows[1]
	assert.Equal(t, "cust-b", other.Key)
	assert.Equal(t, int64(1), other.Totals.Requests)
	assert.Equal(t, pricing.Nanos(0), other.Totals.CostNanos)
	assert.Equal(t, int64(1), other.Totals.UnpricedCount)
	assert.Equal(t, int64(1), other.Totals.ErrorCount)

	assert.Equal(t, int64(1), byCustomer.QuarantinedCount)

	byModel, err := agg.Rollup(context.Background(), q, GroupByModel)
	require.NoError(t, err)
	require.Len(t, byModel.Rows, 2)
	assert.Equal(t, "gpt", byModel.Rows[0].Key)

	_, err = agg.Rollup(context.Background(), q, GroupBy("team"))
	assert.Error(t, err)
}

func TestRollup_NegativeCountQuarantined(t *testing.T) {
	w, _, q := testWindow()

	bad := event(w.Start, "cust-a", "gpt", 1000, 500)
	bad.InputTokens = -1

	l := &fakeLedger{
		events: []ledger.UsageEvent{
			bad,
			event(w.Start, "cust-a", "gpt", 1000, 500),
		},
		pageSize: 10,
	}

	agg := NewAggregator(l, testCatalogStore(t), zap.NewNop())
	report, err := agg.Rollup(context.Background(), q, GroupByCustomer)
	require.NoError(t, err)

	// The batch survives; the bad event is excluded from totals and counted.
	assert.Equal(t, int64(1), report.QuarantinedCount)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, pricing.Nanos(2_000_000), report.Rows[0].Totals.CostNanos)
	assert.Equal(t, int64(1), report.Rows[0].Totals.Requests)
}
