package pricing

import (
	"testing"

	"github.com/nulzo/usage-metrics-api/internal/catalog"
	"github.com/nulzo/usage-metrics-api/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	providers := []api.ProviderDefinition{
		{ID: "openai", Name: "OpenAI"},
	}
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
			ID:   "free-form",
			Name: "Free Form",
			Providers: []api.ModelProviderPricing{
				{ProviderID: "openai", ModelName: "free-form"},
			},
		},
		{
			ID:   "metered",
			Name: "Metered",
			Providers: []api.ModelProviderPricing{
				{
					ProviderID:   "openai",
					ModelName:    "metered",
					InputPrice:   "0.000001",
					OutputPrice:  "0.000002",
					RequestPrice: "0.0005",
				},
			},
		},
	}

	c, err := catalog.Load(providers, models)
	require.NoError(t, err)
	return c
}

func TestComputeCost_Exact(t *testing.T) {
	c := testCatalog(t)

	// 1000 * 0.000001 + 500 * 0.000002 = 0.001 + 0.001 = 0.002 currency units
	cost, err := ComputeCost(c, "gpt", "openai", 1000, 500, 1)
	require.NoError(t, err)
	assert.Equal(t, Nanos(2_000_000), cost)
}

func TestComputeCost_RequestPrice(t *testing.T) {
	c := testCatalog(t)

	// 10 requests at 0.0005 each contribute 0.005 on top of token cost.
	cost, err := ComputeCost(c, "metered", "openai", 0, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, Nanos(5_000_000), cost)
}

func TestComputeCost_ZeroUsage(t *testing.T) {
	c := testCatalog(t)

	cost, err := ComputeCost(c, "gpt", "openai", 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, Nanos(0), cost)
}

func TestComputeCost_UnpricedNeverZero(t *testing.T) {
	c := testCatalog(t)

	_, err := ComputeCost(c, "free-form", "openai", 1000, 500, 1)
	assert.ErrorIs(t, err, ErrUnpriced)
}

func TestComputeCost_BadReferences(t *testing.T) {
	c := testCatalog(t)

	_, err := ComputeCost(c, "missing", "openai", 1, 1, 1)
	assert.ErrorIs(t, err, catalog.ErrModelNotFound)

	_, err = ComputeCost(c, "gpt", "missing", 1, 1, 1)
	assert.ErrorIs(t, err, catalog.ErrProviderNotFound)
}

func TestComputeCost_SumsWithoutDrift(t *testing.T) {
	c := testCatalog(t)

	// Summing many per-event costs must equal pricing the combined usage.
	var total Nanos
	for i := 0; i < 10_000; i++ {
		cost, err := ComputeCost(c, "gpt", "openai", 333, 77, 1)
		require.NoError(t, err)
		total += cost
	}

	combined, err := ComputeCost(c, "gpt", "openai", 333*10_000, 77*10_000, 10_000)
	require.NoError(t, err)
	assert.Equal(t, combined, total)
}
