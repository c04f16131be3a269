// Package usage orchestrates retrieval of usage events from the ledger and
// reduces them into priced series and rollups. Retrieval is pull-based and
// paginated; reduction is partitioned across workers and merged under the
// associative aggregator contract, so any partitioning yields the same
// totals as a single-threaded pass.
package usage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nulzo/usage-metrics-api/internal/catalog"
	"github.com/nulzo/usage-metrics-api/internal/ledger"
	"github.com/nulzo/usage-metrics-api/internal/pricing"
	"github.com/nulzo/usage-metrics-api/internal/timeseries"
	"github.com/nulzo/usage-metrics-api/pkg/api"
	"go.uber.org/zap"
)

const defaultWorkers = 4

// Aggregator prices and reduces usage events. It is stateless between runs:
// cancelling or retrying a run leaves nothing behind, and re-running the
// same query against the same catalog snapshot yields identical results.
type Aggregator struct {
	ledger   ledger.Ledger
	catalogs *catalog.Store
	logger   *zap.Logger
	workers  int
}

func NewAggregator(l ledger.Ledger, catalogs *catalog.Store, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		ledger:   l,
		catalogs: catalogs,
		logger:   logger,
		workers:  defaultWorkers,
	}
}

// WithWorkers overrides the reduction parallelism; mostly for tests.
func (a *Aggregator) WithWorkers(n int) *Aggregator {
	if n > 0 {
		a.workers = n
	}
	return a
}

// SeriesReport is the outcome of one series aggregation run.
type SeriesReport struct {
	Series map[string]api.MetricSeries

	// QuarantinedCount is the number of events dropped from the totals
	// (malformed or referencing an unknown model/provider). Non-zero means
	// the figures are incomplete and should be flagged downstream.
	QuarantinedCount int64
	// UnpricedCount is the number of valid events with no published price.
	// Their cost is unknown: excluded from cost sums, never zeroed.
	UnpricedCount  int64
	CatalogVersion int64
}

// partitionReducer is one worker's private reduction state. Implementations
// must merge associatively so partitions can be combined in any order.
type partitionReducer interface {
	reduce(e ledger.UsageEvent)
}

// seriesPartial is the per-worker state of a Series run.
type seriesPartial struct {
	agg         *Aggregator
	snapshot    *catalog.Catalog
	defs        map[string]metricDef
	builders    map[string]*timeseries.Builder
	quarantined int64
	unpriced    int64
}

func (p *seriesPartial) reduce(e ledger.UsageEvent) {
	cost, priced, ok := p.agg.priceEvent(p.snapshot, e, &p.quarantined)
	if !ok {
		return
	}
	if !priced {
		p.unpriced++
	}
	for slug, def := range p.defs {
		if s, include := def.sample(e, cost, priced); include {
			p.builders[slug].Add(e.Timestamp, s)
		}
	}
}

// Series streams the event range once and builds one series per requested
// metric slug, all against the catalog snapshot taken at the start of the
// run.
func (a *Aggregator) Series(ctx context.Context, q ledger.Query, window timeseries.Window, interval timeseries.Interval, slugs []string) (*SeriesReport, error) {
	defs := make(map[string]metricDef, len(slugs))
	for _, slug := range slugs {
		def, ok := metricDefs[slug]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownMetric, slug)
		}
		defs[slug] = def
	}

	snapshot := a.catalogs.Current()

	partials := make([]*seriesPartial, a.workers)
	reducers := make([]partitionReducer, a.workers)
	for i := range partials {
		builders := make(map[string]*timeseries.Builder, len(defs))
		for slug, def := range defs {
			builders[slug] = timeseries.NewBuilder(window, interval, def.agg)
		}
		partials[i] = &seriesPartial{
			agg:      a,
			snapshot: snapshot,
			defs:     defs,
			builders: builders,
		}
		reducers[i] = partials[i]
	}

	if err := a.forEachEvent(ctx, q, reducers); err != nil {
		return nil, err
	}

	report := &SeriesReport{
		Series:         make(map[string]api.MetricSeries, len(defs)),
		CatalogVersion: snapshot.Version(),
	}

	merged := partials[0]
	for _, p := range partials[1:] {
		for slug := range defs {
			if err := merged.builders[slug].Merge(p.builders[slug]); err != nil {
				return nil, err
			}
		}
		merged.quarantined += p.quarantined
		merged.unpriced += p.unpriced
	}

	for slug := range defs {
		report.Series[slug] = merged.builders[slug].Series(slug)
	}
	report.QuarantinedCount = merged.quarantined
	report.UnpricedCount = merged.unpriced

	return report, nil
}

// priceEvent validates and prices one event. It returns ok=false when the
// event is quarantined; a single bad record never aborts the batch.
func (a *Aggregator) priceEvent(snapshot *catalog.Catalog, e ledger.UsageEvent, quarantined *int64) (cost pricing.Nanos, priced, ok bool) {
	if err := validateEvent(e); err != nil {
		*quarantined++
		a.logger.Debug("Quarantined malformed event", zap.String("event_id", e.ID), zap.Error(err))
		return 0, false, false
	}

	cost, err := pricing.ComputeCost(snapshot, e.ModelID, e.ProviderID, e.InputTokens, e.OutputTokens, e.RequestCount)
	switch {
	case errors.Is(err, pricing.ErrUnpriced):
		return 0, false, true
	case err != nil:
		*quarantined++
		a.logger.Debug("Quarantined event with bad reference", zap.String("event_id", e.ID), zap.Error(err))
		return 0, false, false
	}

	return cost, true, true
}

func validateEvent(e ledger.UsageEvent) error {
	if e.ModelID == "" || e.ProviderID == "" || e.CustomerID == "" {
		return errors.New("missing required field")
	}
	if e.InputTokens < 0 || e.OutputTokens < 0 || e.RequestCount < 0 {
		return errors.New("negative usage count")
	}
	if e.Timestamp.IsZero() {
		return errors.New("missing timestamp")
	}
	return nil
}

// forEachEvent pulls ledger pages and fans batches out to one reducer per
// worker. The page loop is consumer-driven: the next page is requested only
// after the previous batch is handed off, bounding memory. On cancellation
// or a page error the run returns an error and no partial result is ever
// surfaced.
func (a *Aggregator) forEachEvent(ctx context.Context, q ledger.Query, reducers []partitionReducer) error {
	batches := make(chan []ledger.UsageEvent)

	var wg sync.WaitGroup
	for _, r := range reducers {
		wg.Add(1)
		go func(r partitionReducer) {
			defer wg.Done()
			for batch := range batches {
				for _, e := range batch {
					r.reduce(e)
				}
			}
		}(r)
	}

	var runErr error
	cursor := ""
	for {
		page, err := a.ledger.NextPage(ctx, q, cursor)
		if err != nil {
			runErr = fmt.Errorf("failed to fetch ledger page: %w", err)
			break
		}

		if len(page.Events) > 0 {
			select {
			case batches <- page.Events:
			case <-ctx.Done():
				runErr = ctx.Err()
			}
		}

		if runErr != nil || page.Done {
			break
		}
		cursor = page.NextCursor
	}

	close(batches)
	wg.Wait()

	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}
	return runErr
}
