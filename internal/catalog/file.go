package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nulzo/usage-metrics-api/pkg/api"
)

type catalogFile struct {
	Providers []api.ProviderDefinition `json:"providers"`
	Models    []api.ModelDefinition    `json:"models"`
}

// LoadFile reads provider and model definitions from a JSON file and builds
// a validated Catalog.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var f catalogFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog file %s: %w", path, err)
	}

	return Load(f.Providers, f.Models)
}

// LoadDefault builds a Catalog from the built-in definitions.
func LoadDefault() (*Catalog, error) {
	return Load(DefaultProviders, DefaultModels)
}
