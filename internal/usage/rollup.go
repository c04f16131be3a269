package usage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/nulzo/usage-metrics-api/internal/catalog"
	"github.com/nulzo/usage-metrics-api/internal/ledger"
	"github.com/nulzo/usage-metrics-api/internal/pricing"
)

// GroupBy selects the rollup grouping key.
type GroupBy string

const (
	GroupByCustomer GroupBy = "customer"
	GroupByModel    GroupBy = "model"
)

// ErrUnknownGroupBy is returned for a grouping outside the supported set.
var ErrUnknownGroupBy = errors.New("unknown rollup grouping")

// Totals is the additive aggregate of one rollup group.
type Totals struct {
	Requests     int64
	InputTokens  int64
	OutputTokens int64
	CostNanos    pricing.Nanos
	// UnpricedCount is the number of requests with unknown cost in this
	// group; CostNanos excludes them rather than counting them as zero.
	UnpricedCount int64
	ErrorCount    int64
}

func (t *Totals) merge(o Totals) {
	t.Requests += o.Requests
	t.InputTokens += o.InputTokens
	t.OutputTokens += o.OutputTokens
	t.CostNanos += o.CostNanos
	t.UnpricedCount += o.UnpricedCount
	t.ErrorCount += o.ErrorCount
}

// RollupRow is one group's totals.
type RollupRow struct {
	Key    string
	Totals Totals
}

// RollupReport is a grouped aggregate over the queried range.
type RollupReport struct {
	GroupBy GroupBy
	Rows    []RollupRow

	QuarantinedCount int64
	CatalogVersion   int64
}

// rollupPartial is the per-worker state of a Rollup run.
type rollupPartial struct {
	agg      *Aggregator
	snapshot *catalog.Catalog
	groupBy  GroupBy
	groups   map[string]*Totals
	// keyless counts quarantined events whose grouping key is unusable.
	keyless int64
}

func (p *rollupPartial) key(e ledger.UsageEvent) string {
	if p.groupBy == GroupByModel {
		return e.ModelID
	}
	return e.CustomerID
}

func (p *rollupPartial) group(key string) *Totals {
	t, ok := p.groups[key]
	if !ok {
		t = &Totals{}
		p.groups[key] = t
	}
	return t
}

func (p *rollupPartial) reduce(e ledger.UsageEvent) {
	var quarantined int64
	cost, priced, ok := p.agg.priceEvent(p.snapshot, e, &quarantined)
	if !ok {
		// Attribute the error to its group when the key survived, so the
		// row itself can be flagged; otherwise count it globally.
		if key := p.key(e); key != "" {
			p.group(key).ErrorCount++
		} else {
			p.keyless++
		}
		return
	}

	t := p.group(p.key(e))
	t.Requests += e.RequestCount
	t.InputTokens += e.InputTokens
	t.OutputTokens += e.OutputTokens
	if priced {
		t.CostNanos += cost
	} else {
		t.UnpricedCount += e.RequestCount
	}
}

// Rollup streams the event range once and reduces it into per-group totals.
// Rows are sorted by cost descending, then key, so output is deterministic.
func (a *Aggregator) Rollup(ctx context.Context, q ledger.Query, groupBy GroupBy) (*RollupReport, error) {
	switch groupBy {
	case GroupByCustomer, GroupByModel:
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownGroupBy, groupBy)
	}

	snapshot := a.catalogs.Current()

	partials := make([]*rollupPartial, a.workers)
	reducers := make([]partitionReducer, a.workers)
	for i := range partials {
		partials[i] = &rollupPartial{
			agg:      a,
			snapshot: snapshot,
			groupBy:  groupBy,
			groups:   make(map[string]*Totals),
		}
		reducers[i] = partials[i]
	}

	if err := a.forEachEvent(ctx, q, reducers); err != nil {
		return nil, err
	}

	merged := partials[0]
	for _, p := range partials[1:] {
		for key, t := range p.groups {
			merged.group(key).merge(*t)
		}
		merged.keyless += p.keyless
	}

	report := &RollupReport{
		GroupBy:        groupBy,
		Rows:           make([]RollupRow, 0, len(merged.groups)),
		CatalogVersion: snapshot.Version(),
	}

	report.QuarantinedCount = merged.keyless
	for key, t := range merged.groups {
		report.Rows = append(report.Rows, RollupRow{Key: key, Totals: *t})
		report.QuarantinedCount += t.ErrorCount
	}

	sort.Slice(report.Rows, func(i, j int) bool {
		if report.Rows[i].Totals.CostNanos != report.Rows[j].Totals.CostNanos {
			return report.Rows[i].Totals.CostNanos > report.Rows[j].Totals.CostNanos
		}
		return report.Rows[i].Key < report.Rows[j].Key
	})

	return report, nil
}
