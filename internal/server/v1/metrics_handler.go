package v1

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/usage-metrics-api/internal/insights"
	"github.com/nulzo/usage-metrics-api/internal/server/middleware"
	"github.com/nulzo/usage-metrics-api/internal/server/validator"
	"github.com/nulzo/usage-metrics-api/internal/timeseries"
	"github.com/nulzo/usage-metrics-api/internal/usage"
	"github.com/nulzo/usage-metrics-api/pkg/api"
)

type MetricsHandler struct {
	service insights.Service
}

func NewMetricsHandler(service insights.Service) *MetricsHandler {
	return &MetricsHandler{
		service: service,
	}
}

type metricsQuery struct {
	Range   string `form:"range,default=30d" json:"range" binding:"omitempty,oneof=24h 48h 7d 30d 90d"`
	Metrics string `form:"metrics" json:"metrics"`
	Origin  string `form:"origin" json:"origin" binding:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// parseMetricsRequest extracts the common query parameters shared by the
// series and comparison endpoints.
func parseMetricsRequest(c *gin.Context) (insights.MetricsRequest, bool) {
	org := middleware.OrgID(c)
	if org == "" {
		_ = c.Error(api.BadRequestError("Missing org_id (query parameter or X-Org-ID header)"))
		return insights.MetricsRequest{}, false
	}

	var q metricsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return insights.MetricsRequest{}, false
	}

	req := insights.MetricsRequest{
		OrgID: org,
		Range: q.Range,
	}

	if q.Metrics != "" {
		req.Slugs = strings.Split(q.Metrics, ",")
	}

	if q.Origin != "" {
		// Validated by the datetime binding above.
		req.Origin, _ = time.Parse(time.RFC3339, q.Origin)
	}

	return req, true
}

// GetMetrics returns one fixed-cardinality series per requested metric over
// the resolved window.
// GET /v1/metrics?range=30d&metrics=cost,requests
func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	req, ok := parseMetricsRequest(c)
	if !ok {
		return
	}

	resp, err := h.service.GetMetrics(c.Request.Context(), req)
	if err != nil {
		handleInsightsError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetComparison returns current-vs-previous series with per-bucket deltas.
// GET /v1/metrics/comparison?range=30d&origin=2024-01-01T00:00:00Z
func (h *MetricsHandler) GetComparison(c *gin.Context) {
	req, ok := parseMetricsRequest(c)
	if !ok {
		return
	}

	resp, err := h.service.GetComparison(c.Request.Context(), req)
	if err != nil {
		handleInsightsError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListDescriptors returns the supported metrics and how to render them.
// GET /v1/metrics/descriptors
func (h *MetricsHandler) ListDescriptors(c *gin.Context) {
	slugs := usage.MetricSlugs()
	descriptors := make([]api.MetricDescriptor, 0, len(slugs))
	for _, slug := range slugs {
		d, err := usage.Descriptor(slug)
		if err != nil {
			_ = c.Error(api.InternalError("Failed to list metrics", err))
			return
		}
		descriptors = append(descriptors, d)
	}

	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   descriptors,
	})
}

func handleInsightsError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, timeseries.ErrUnknownRange):
		_ = c.Error(api.BadRequestError(err.Error(), api.WithExtension("supported", timeseries.RangeLabels())))
	case errors.Is(err, usage.ErrUnknownMetric):
		_ = c.Error(api.BadRequestError(err.Error(), api.WithExtension("supported", usage.MetricSlugs())))
	case errors.Is(err, usage.ErrUnknownGroupBy):
		_ = c.Error(api.BadRequestError(err.Error()))
	default:
		_ = c.Error(api.InternalError("Aggregation failed", err))
	}
}
