// Package insights is the query layer over the usage engine: it resolves
// windows, runs aggregations, attaches comparisons, and shapes API responses.
package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nulzo/usage-metrics-api/internal/format"
	"github.com/nulzo/usage-metrics-api/internal/ledger"
	"github.com/nulzo/usage-metrics-api/internal/pricing"
	"github.com/nulzo/usage-metrics-api/internal/store/cache"
	"github.com/nulzo/usage-metrics-api/internal/timeseries"
	"github.com/nulzo/usage-metrics-api/internal/usage"
	"github.com/nulzo/usage-metrics-api/pkg/api"
	"go.uber.org/zap"
)

const cacheTTL = 60 * time.Second

type Service interface {
	GetMetrics(ctx context.Context, req MetricsRequest) (*MetricsResponse, error)
	GetComparison(ctx context.Context, req MetricsRequest) (*ComparisonResponse, error)
	GetUsageRollup(ctx context.Context, req RollupRequest) (*api.RollupResponse, error)
}

// MetricsRequest identifies an account, a relative range and the metrics to
// aggregate. Origin is the account creation time; comparison windows never
// reach before it.
type MetricsRequest struct {
	OrgID  string
	Range  string
	Origin time.Time
	Slugs  []string
}

type RollupRequest struct {
	OrgID   string
	Range   string
	GroupBy usage.GroupBy
}

type MetricsResponse struct {
	Range  string                          `json:"range"`
	Start  time.Time                       `json:"start"`
	End    time.Time                       `json:"end"`
	Series map[string]api.MetricSeries     `json:"series"`
	Meta   map[string]api.MetricDescriptor `json:"meta"`

	QuarantinedCount int64 `json:"quarantined_count"`
	UnpricedCount    int64 `json:"unpriced_count"`
	CatalogVersion   int64 `json:"catalog_version"`
}

type ComparisonResponse struct {
	Range   string                 `json:"range"`
	Results []api.ComparisonResult `json:"results"`

	UnpricedCount  int64 `json:"unpriced_count"`
	CatalogVersion int64 `json:"catalog_version"`
}

type service struct {
	agg    *usage.Aggregator
	cache  cache.CacheService
	logger *zap.Logger
	now    func() time.Time
}

func NewService(agg *usage.Aggregator, c cache.CacheService, logger *zap.Logger) Service {
	return &service{
		agg:    agg,
		cache:  c,
		logger: logger,
		now:    time.Now,
	}
}

func (s *service) GetMetrics(ctx context.Context, req MetricsRequest) (*MetricsResponse, error) {
	slugs := req.Slugs
	if len(slugs) == 0 {
		slugs = usage.MetricSlugs()
	}

	window, interval, err := timeseries.ResolveCurrentWindow(req.Range, s.now())
	if err != nil {
		return nil, err
	}

	key := cacheKey("metrics", req.OrgID, req.Range, slugs)
	var cached MetricsResponse
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	q := ledger.Query{OrgID: req.OrgID, Start: window.Start, End: window.End}
	report, err := s.agg.Series(ctx, q, window, interval, slugs)
	if err != nil {
		return nil, err
	}

	resp := &MetricsResponse{
		Range:            req.Range,
		Start:            window.Start,
		End:              window.End,
		Series:           report.Series,
		Meta:             make(map[string]api.MetricDescriptor, len(slugs)),
		QuarantinedCount: report.QuarantinedCount,
		UnpricedCount:    report.UnpricedCount,
		CatalogVersion:   report.CatalogVersion,
	}
	for _, slug := range slugs {
		d, err := usage.Descriptor(slug)
		if err != nil {
			return nil, err
		}
		resp.Meta[slug] = d
	}

	s.cacheSet(ctx, key, resp)
	return resp, nil
}

// GetComparison aggregates the current window and, when the account existed
// for the full preceding window, the previous one, and pairs them bucket by
// bucket. Previous stays null for young accounts rather than comparing
// against a window the account was not live for.
func (s *service) GetComparison(ctx context.Context, req MetricsRequest) (*ComparisonResponse, error) {
	slugs := req.Slugs
	if len(slugs) == 0 {
		slugs = usage.MetricSlugs()
	}

	window, interval, err := timeseries.ResolveCurrentWindow(req.Range, s.now())
	if err != nil {
		return nil, err
	}
	prev, err := timeseries.ResolvePreviousWindow(window.Start, req.Range, req.Origin)
	if err != nil {
		return nil, err
	}

	// The origin decides whether a previous window applies, so responses for
	// different origins must never share a cache entry.
	keyParts := append([]string{req.Origin.UTC().Format(time.RFC3339)}, slugs...)
	key := cacheKey("comparison", req.OrgID, req.Range, keyParts)
	var cached ComparisonResponse
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	current, err := s.agg.Series(ctx, ledger.Query{OrgID: req.OrgID, Start: window.Start, End: window.End}, window, interval, slugs)
	if err != nil {
		return nil, err
	}

	var previous *usage.SeriesReport
	if prev != nil {
		previous, err = s.agg.Series(ctx, ledger.Query{OrgID: req.OrgID, Start: prev.Start, End: prev.End}, *prev, interval, slugs)
		if err != nil {
			return nil, err
		}
	}

	resp := &ComparisonResponse{
		Range:          req.Range,
		Results:        make([]api.ComparisonResult, 0, len(slugs)),
		UnpricedCount:  current.UnpricedCount,
		CatalogVersion: current.CatalogVersion,
	}

	for _, slug := range slugs {
		d, err := usage.Descriptor(slug)
		if err != nil {
			return nil, err
		}

		result := api.ComparisonResult{
			Metric:           d,
			Current:          current.Series[slug],
			QuarantinedCount: current.QuarantinedCount,
		}
		if previous != nil {
			ps := previous.Series[slug]
			result.Previous = &ps
			result.Buckets = timeseries.Compare(result.Current, ps)
			result.QuarantinedCount += previous.QuarantinedCount
		}
		resp.Results = append(resp.Results, result)
	}

	s.cacheSet(ctx, key, resp)
	return resp, nil
}

func (s *service) GetUsageRollup(ctx context.Context, req RollupRequest) (*api.RollupResponse, error) {
	window, _, err := timeseries.ResolveCurrentWindow(req.Range, s.now())
	if err != nil {
		return nil, err
	}

	key := cacheKey("rollup", req.OrgID, req.Range, []string{string(req.GroupBy)})
	var cached api.RollupResponse
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	q := ledger.Query{OrgID: req.OrgID, Start: window.Start, End: window.End}
	report, err := s.agg.Rollup(ctx, q, req.GroupBy)
	if err != nil {
		return nil, err
	}

	resp := &api.RollupResponse{
		GroupBy:          string(report.GroupBy),
		Start:            window.Start,
		End:              window.End,
		Rows:             make([]api.RollupRow, 0, len(report.Rows)),
		QuarantinedCount: report.QuarantinedCount,
	}
	for _, row := range report.Rows {
		resp.Rows = append(resp.Rows, api.RollupRow{
			Key:           row.Key,
			Requests:      row.Totals.Requests,
			InputTokens:   row.Totals.InputTokens,
			OutputTokens:  row.Totals.OutputTokens,
			CostNanos:     int64(row.Totals.CostNanos),
			CostFormatted: formatRowCost(row.Totals),
			UnpricedCount: row.Totals.UnpricedCount,
			ErrorCount:    row.Totals.ErrorCount,
		})
	}

	s.cacheSet(ctx, key, resp)
	return resp, nil
}

// formatRowCost renders a row's cost, or "unknown" when every request in the
// group is unpriced and nothing was summed.
func formatRowCost(t usage.Totals) string {
	if t.CostNanos == 0 && t.UnpricedCount > 0 {
		return "unknown"
	}
	return format.Currency(pricing.Nanos(t.CostNanos), "USD")
}

func (s *service) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	err := s.cache.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	}
	return false
}

func (s *service) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, cacheTTL); err != nil {
		s.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func cacheKey(kind, orgID, rangeLabel string, parts []string) string {
	return fmt.Sprintf("insights:%s:%s:%s:%s", kind, orgID, rangeLabel, strings.Join(parts, ","))
}
