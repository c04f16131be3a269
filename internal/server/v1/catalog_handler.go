package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/usage-metrics-api/internal/catalog"
	"github.com/nulzo/usage-metrics-api/pkg/api"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	store  *catalog.Store
	reload func() (*catalog.Catalog, error)
	logger *zap.Logger
}

// NewCatalogHandler serves catalog browsing and reload. reload rebuilds the
// catalog from its configured source; in-flight aggregations keep the
// snapshot they started with.
func NewCatalogHandler(store *catalog.Store, reload func() (*catalog.Catalog, error), logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		store:  store,
		reload: reload,
		logger: logger,
	}
}

type modelView struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Family        string             `json:"family,omitempty"`
	DeprecatedAt  *time.Time         `json:"deprecated_at,omitempty"`
	DeactivatedAt *time.Time         `json:"deactivated_at,omitempty"`
	JSONOutput    bool               `json:"json_output"`
	Providers     []modelProviderView `json:"providers"`
}

type modelProviderView struct {
	ProviderID  string `json:"provider_id"`
	ModelName   string `json:"model_name"`
	Priced      bool   `json:"priced"`
	ContextSize int    `json:"context_size,omitempty"`
	Streaming   bool   `json:"streaming"`
	Vision      bool   `json:"vision"`
	Tools       bool   `json:"tools"`
}

func toModelView(m catalog.Model) modelView {
	v := modelView{
		ID:            m.ID,
		Name:          m.Name,
		Family:        m.Family,
		DeprecatedAt:  m.DeprecatedAt,
		DeactivatedAt: m.DeactivatedAt,
		JSONOutput:    m.JSONOutput,
		Providers:     make([]modelProviderView, 0, len(m.Providers)),
	}
	for _, p := range m.Providers {
		v.Providers = append(v.Providers, modelProviderView{
			ProviderID:  p.ProviderID,
			ModelName:   p.ModelName,
			Priced:      p.Priced,
			ContextSize: p.ContextSize,
			Streaming:   p.Streaming,
			Vision:      p.Vision,
			Tools:       p.Tools,
		})
	}
	return v
}

// ListProviders returns all providers in the current catalog snapshot.
// GET /v1/catalog/providers
func (h *CatalogHandler) ListProviders(c *gin.Context) {
	snapshot := h.store.Current()
	c.JSON(http.StatusOK, gin.H{
		"object":  "list",
		"version": snapshot.Version(),
		"data":    snapshot.Providers(),
	})
}

// ListModels returns models active as of now. Prices stay internal; only the
// priced flag and capability bits are exposed.
// GET /v1/catalog/models
func (h *CatalogHandler) ListModels(c *gin.Context) {
	snapshot := h.store.Current()

	models := snapshot.ActiveModels(time.Now().UTC())
	views := make([]modelView, 0, len(models))
	for _, m := range models {
		views = append(views, toModelView(m))
	}

	c.JSON(http.StatusOK, gin.H{
		"object":  "list",
		"version": snapshot.Version(),
		"data":    views,
	})
}

// GetModel returns one model by id, including deactivated ones so historical
// drill-downs keep working.
// GET /v1/catalog/models/:id
func (h *CatalogHandler) GetModel(c *gin.Context) {
	snapshot := h.store.Current()

	m, ok := snapshot.Model(c.Param("id"))
	if !ok {
		_ = c.Error(api.NotFoundError("No such model"))
		return
	}

	c.JSON(http.StatusOK, toModelView(m))
}

// Reload rebuilds the catalog and swaps it in atomically. A failed load
// keeps the current snapshot serving.
// POST /v1/catalog/reload
func (h *CatalogHandler) Reload(c *gin.Context) {
	next, err := h.reload()
	if err != nil {
		_ = c.Error(api.InternalError("Catalog reload failed", err))
		return
	}

	h.store.Replace(next)
	h.logger.Info("Catalog reloaded", zap.Int64("version", next.Version()))

	c.JSON(http.StatusOK, gin.H{
		"status":  "reloaded",
		"version": next.Version(),
	})
}
