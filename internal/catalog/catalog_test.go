package catalog

import (
	"testing"
	"time"

	"github.com/nulzo/usage-metrics-api/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProviders() []api.ProviderDefinition {
	return []api.ProviderDefinition{
		{ID: "openai", Name: "OpenAI", Streaming: true},
		{ID: "anthropic", Name: "Anthropic", Streaming: true},
	}
}

func pricedModel(id, providerID string) api.ModelDefinition {
	return api.ModelDefinition{
		ID:   id,
		Name: id,
		Providers: []api.ModelProviderPricing{
			{
				ProviderID:   providerID,
				ModelName:    id,
				InputPrice:   "0.000001",
				OutputPrice:  "0.000002",
				RequestPrice: "0",
			},
		},
	}
}

func TestLoad_Valid(t *testing.T) {
	c, err := Load(testProviders(), []api.ModelDefinition{pricedModel("gpt", "openai")})
	require.NoError(t, err)

	pricing, err := c.Lookup("gpt", "openai")
	require.NoError(t, err)
	assert.True(t, pricing.Priced)
	assert.Equal(t, int64(1000), pricing.InputPriceNanos)
	assert.Equal(t, int64(2000), pricing.OutputPriceNanos)
	assert.Equal(t, int64(0), pricing.RequestPriceNanos)
}

func TestLoad_UnknownProviderReference(t *testing.T) {
	_, err := Load(testProviders(), []api.ModelDefinition{pricedModel("gpt", "nonexistent")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestLoad_ModelWithoutProviders(t *testing.T) {
	m := api.ModelDefinition{ID: "orphan", Name: "Orphan"}
	_, err := Load(testProviders(), []api.ModelDefinition{m})
	require.Error(t, err)
}

func TestLoad_PartialPricingRejected(t *testing.T) {
	m := api.ModelDefinition{
		ID:   "partial",
		Name: "Partial",
		Providers: []api.ModelProviderPricing{
			{
				ProviderID: "openai",
				ModelName:  "partial",
				InputPrice: "0.000001",
				// output and request prices missing
			},
		},
	}

	_, err := Load(testProviders(), []api.ModelDefinition{m})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "partial pricing")
}

func TestLoad_UnpricedIsValid(t *testing.T) {
	m := api.ModelDefinition{
		ID:   "custom",
		Name: "Custom",
		Providers: []api.ModelProviderPricing{
			{ProviderID: "openai", ModelName: "custom"},
		},
	}

	c, err := Load(testProviders(), []api.ModelDefinition{m})
	require.NoError(t, err)

	pricing, err := c.Lookup("custom", "openai")
	require.NoError(t, err)
	assert.False(t, pricing.Priced)
}

func TestLoad_MalformedPrice(t *testing.T) {
	m := api.ModelDefinition{
		ID:   "bad",
		Name: "Bad",
		Providers: []api.ModelProviderPricing{
			{
				ProviderID:   "openai",
				ModelName:    "bad",
				InputPrice:   "not-a-number",
				OutputPrice:  "0.1",
				RequestPrice: "0",
			},
		},
	}

	_, err := Load(testProviders(), []api.ModelDefinition{m})
	require.Error(t, err)
}

func TestLoad_DuplicateModelID(t *testing.T) {
	_, err := Load(testProviders(), []api.ModelDefinition{
		pricedModel("gpt", "openai"),
		pricedModel("gpt", "anthropic"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate model id")
}

func TestLookup_NotFound(t *testing.T) {
	c, err := Load(testProviders(), []api.ModelDefinition{pricedModel("gpt", "openai")})
	require.NoError(t, err)

	_, err = c.Lookup("missing", "openai")
	assert.ErrorIs(t, err, ErrModelNotFound)

	_, err = c.Lookup("gpt", "anthropic")
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestActiveModels_ExcludesDeactivated(t *testing.T) {
	deactivated := pricedModel("old", "openai")
	cutoff := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	deactivated.DeactivatedAt = &cutoff

	c, err := Load(testProviders(), []api.ModelDefinition{
		pricedModel("gpt", "openai"),
		deactivated,
	})
	require.NoError(t, err)

	// Before the cutoff both models are active.
	active := c.ActiveModels(cutoff.Add(-time.Hour))
	assert.Len(t, active, 2)

	// After the cutoff the deactivated model drops out of listings...
	active = c.ActiveModels(cutoff.Add(time.Hour))
	require.Len(t, active, 1)
	assert.Equal(t, "gpt", active[0].ID)

	// ...but stays resolvable for historical recomputation.
	_, err = c.Lookup("old", "openai")
	assert.NoError(t, err)
}

func TestDefaultCatalog_Loads(t *testing.T) {
	c, err := Load(DefaultProviders, DefaultModels)
	require.NoError(t, err)
	assert.NotEmpty(t, c.Providers())
	assert.NotEmpty(t, c.ActiveModels(time.Now()))
}

func TestStore_VersionedReplace(t *testing.T) {
	c1, err := Load(testProviders(), []api.ModelDefinition{pricedModel("gpt", "openai")})
	require.NoError(t, err)

	store := NewStore(c1)
	assert.Equal(t, int64(1), store.Current().Version())

	snapshot := store.Current()

	c2, err := Load(testProviders(), []api.ModelDefinition{pricedModel("gpt-2", "openai")})
	require.NoError(t, err)
	v := store.Replace(c2)

	assert.Equal(t, int64(2), v)
	assert.Equal(t, int64(2), store.Current().Version())

	// The old snapshot is untouched: in-flight computations keep using it.
	assert.Equal(t, int64(1), snapshot.Version())
	_, err = snapshot.Lookup("gpt", "openai")
	assert.NoError(t, err)
}
