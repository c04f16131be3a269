package catalog

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nulzo/usage-metrics-api/pkg/api"
	"github.com/shopspring/decimal"
)

var (
	ErrModelNotFound    = errors.New("model not found")
	ErrProviderNotFound = errors.New("provider not found")
)

// ProviderPricing is one provider's validated offering of a model. Prices are
// integer nano-units of currency per token (or per request), parsed once at
// load so the hot cost path never touches decimals.
type ProviderPricing struct {
	ProviderID string
	ModelName  string

	// Priced is false when no price is published for this offering. An
	// unpriced offering yields an unknown cost, never zero.
	Priced            bool
	InputPriceNanos   int64
	OutputPriceNanos  int64
	RequestPriceNanos int64

	ContextSize int

	Streaming bool
	Vision    bool
	Tools     bool
}

// Model is a validated catalog model with its per-provider pricing.
type Model struct {
	ID     string
	Name   string
	Family string

	DeprecatedAt  *time.Time
	DeactivatedAt *time.Time

	JSONOutput bool

	Providers []ProviderPricing
}

// Catalog is the immutable, validated set of providers and priced models.
// It is safe for concurrent use without locking; replacements go through
// Store, never through mutation.
type Catalog struct {
	version   int64
	providers map[string]api.ProviderDefinition
	models    map[string]Model
}

// Load validates raw definitions and builds a Catalog. Any inconsistency
// (unknown provider reference, model without providers, partial pricing,
// malformed price) fails the whole load; the process must not start with a
// broken catalog.
func Load(providers []api.ProviderDefinition, models []api.ModelDefinition) (*Catalog, error) {
	validate := validator.New()

	c := &Catalog{
		providers: make(map[string]api.ProviderDefinition, len(providers)),
		models:    make(map[string]Model, len(models)),
	}

	for _, p := range providers {
		if err := validate.Struct(&p); err != nil {
			return nil, fmt.Errorf("provider %q: %w", p.ID, err)
		}
		if _, exists := c.providers[p.ID]; exists {
			return nil, fmt.Errorf("duplicate provider id %q", p.ID)
		}
		c.providers[p.ID] = p
	}

	for _, m := range models {
		if err := validate.Struct(&m); err != nil {
			return nil, fmt.Errorf("model %q: %w", m.ID, err)
		}
		if _, exists := c.models[m.ID]; exists {
			return nil, fmt.Errorf("duplicate model id %q", m.ID)
		}
		if len(m.Providers) == 0 {
			return nil, fmt.Errorf("model %q has no providers", m.ID)
		}

		model := Model{
			ID:            m.ID,
			Name:          m.Name,
			Family:        m.Family,
			DeprecatedAt:  m.DeprecatedAt,
			DeactivatedAt: m.DeactivatedAt,
			JSONOutput:    m.JSONOutput,
			Providers:     make([]ProviderPricing, 0, len(m.Providers)),
		}

		for _, mp := range m.Providers {
			if _, ok := c.providers[mp.ProviderID]; !ok {
				return nil, fmt.Errorf("model %q references unknown provider %q", m.ID, mp.ProviderID)
			}

			pricing, err := parsePricing(mp)
			if err != nil {
				return nil, fmt.Errorf("model %q provider %q: %w", m.ID, mp.ProviderID, err)
			}
			model.Providers = append(model.Providers, pricing)
		}

		c.models[m.ID] = model
	}

	return c, nil
}

// parsePricing enforces the all-or-nothing pricing invariant and converts
// decimal price strings to integer nanos.
func parsePricing(mp api.ModelProviderPricing) (ProviderPricing, error) {
	pricing := ProviderPricing{
		ProviderID:  mp.ProviderID,
		ModelName:   mp.ModelName,
		ContextSize: mp.ContextSize,
		Streaming:   mp.Streaming,
		Vision:      mp.Vision,
		Tools:       mp.Tools,
	}

	set := 0
	for _, s := range []string{mp.InputPrice, mp.OutputPrice, mp.RequestPrice} {
		if s != "" {
			set++
		}
	}
	switch set {
	case 0:
		return pricing, nil // unpriced, a valid state
	case 3:
	default:
		return ProviderPricing{}, fmt.Errorf("partial pricing: %d of 3 price fields set", set)
	}

	var err error
	if pricing.InputPriceNanos, err = priceNanos(mp.InputPrice); err != nil {
		return ProviderPricing{}, fmt.Errorf("input_price: %w", err)
	}
	if pricing.OutputPriceNanos, err = priceNanos(mp.OutputPrice); err != nil {
		return ProviderPricing{}, fmt.Errorf("output_price: %w", err)
	}
	if pricing.RequestPriceNanos, err = priceNanos(mp.RequestPrice); err != nil {
		return ProviderPricing{}, fmt.Errorf("request_price: %w", err)
	}

	pricing.Priced = true
	return pricing, nil
}

func priceNanos(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative price %q", s)
	}

	nanos := d.Shift(9)
	if !nanos.IsInteger() {
		return 0, fmt.Errorf("price %q is finer than nano-unit precision", s)
	}
	return nanos.IntPart(), nil
}

// Lookup resolves the pricing for a model/provider pair. Deactivated models
// stay resolvable so historical costs can be recomputed.
func (c *Catalog) Lookup(modelID, providerID string) (ProviderPricing, error) {
	m, ok := c.models[modelID]
	if !ok {
		return ProviderPricing{}, fmt.Errorf("%w: %s", ErrModelNotFound, modelID)
	}
	for _, p := range m.Providers {
		if p.ProviderID == providerID {
			return p, nil
		}
	}
	return ProviderPricing{}, fmt.Errorf("%w: %s for model %s", ErrProviderNotFound, providerID, modelID)
}

// Model returns a model by id, including deactivated ones.
func (c *Catalog) Model(id string) (Model, bool) {
	m, ok := c.models[id]
	return m, ok
}

// Provider returns a provider definition by id.
func (c *Catalog) Provider(id string) (api.ProviderDefinition, bool) {
	p, ok := c.providers[id]
	return p, ok
}

// Providers lists all providers sorted by id.
func (c *Catalog) Providers() []api.ProviderDefinition {
	out := make([]api.ProviderDefinition, 0, len(c.providers))
	for _, p := range c.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ActiveModels lists models that were not deactivated as of the given time,
// sorted by id. Deactivated models are excluded from browsing but remain
// available through Lookup and Model.
func (c *Catalog) ActiveModels(asOf time.Time) []Model {
	out := make([]Model, 0, len(c.models))
	for _, m := range c.models {
		if m.DeactivatedAt != nil && !m.DeactivatedAt.After(asOf) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Version is the snapshot version assigned by the Store. Zero until stored.
func (c *Catalog) Version() int64 {
	return c.version
}
