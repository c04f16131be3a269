package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/usage-metrics-api/internal/insights"
	"github.com/nulzo/usage-metrics-api/internal/server/middleware"
	"github.com/nulzo/usage-metrics-api/internal/usage"
	"github.com/nulzo/usage-metrics-api/pkg/api"
)

type UsageHandler struct {
	service insights.Service
}

func NewUsageHandler(service insights.Service) *UsageHandler {
	return &UsageHandler{
		service: service,
	}
}

// GetRollup returns per-customer or per-model usage totals for a range.
// GET /v1/usage/rollup?range=30d&group_by=customer
func (h *UsageHandler) GetRollup(c *gin.Context) {
	org := middleware.OrgID(c)
	if org == "" {
		_ = c.Error(api.BadRequestError("Missing org_id (query parameter or X-Org-ID header)"))
		return
	}

	req := insights.RollupRequest{
		OrgID:   org,
		Range:   c.DefaultQuery("range", "30d"),
		GroupBy: usage.GroupBy(c.DefaultQuery("group_by", "customer")),
	}

	resp, err := h.service.GetUsageRollup(c.Request.Context(), req)
	if err != nil {
		handleInsightsError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
