package api

import "time"

// ProviderDefinition describes an upstream inference provider in the catalog
// file.
type ProviderDefinition struct {
	ID          string `mapstructure:"id" json:"id" validate:"required"`
	Name        string `mapstructure:"name" json:"name" validate:"required"`
	Description string `mapstructure:"description" json:"description"`

	// Capability flags
	Streaming    bool `mapstructure:"streaming" json:"streaming"`
	Cancellation bool `mapstructure:"cancellation" json:"cancellation"`
	JSONOutput   bool `mapstructure:"json_output" json:"json_output"`

	Website string `mapstructure:"website" json:"website,omitempty"`
}

// ModelDefinition is the static configuration for a priced model.
// A model is offered by one or more providers, each with its own pricing.
type ModelDefinition struct {
	ID     string `mapstructure:"id" json:"id" validate:"required"`
	Name   string `mapstructure:"name" json:"name" validate:"required"`
	Family string `mapstructure:"family" json:"family"`

	DeprecatedAt  *time.Time `mapstructure:"deprecated_at" json:"deprecated_at,omitempty"`
	DeactivatedAt *time.Time `mapstructure:"deactivated_at" json:"deactivated_at,omitempty"`

	JSONOutput bool `mapstructure:"json_output" json:"json_output"`

	Providers []ModelProviderPricing `mapstructure:"providers" json:"providers" validate:"required,min=1,dive"`
}

// ModelProviderPricing is one provider's offering of a model.
//
// Prices are decimal strings in currency units per single token (or per
// request). All three must be set together or all left empty; an entry with
// no prices is "unpriced", which is a valid state distinct from zero cost.
type ModelProviderPricing struct {
	ProviderID string `mapstructure:"provider_id" json:"provider_id" validate:"required"`
	ModelName  string `mapstructure:"model_name" json:"model_name" validate:"required"`

	InputPrice   string `mapstructure:"input_price" json:"input_price,omitempty"`
	OutputPrice  string `mapstructure:"output_price" json:"output_price,omitempty"`
	RequestPrice string `mapstructure:"request_price" json:"request_price,omitempty"`

	ContextSize int `mapstructure:"context_size" json:"context_size,omitempty"`

	// Capability flags
	Streaming bool `mapstructure:"streaming" json:"streaming"`
	Vision    bool `mapstructure:"vision" json:"vision"`
	Tools     bool `mapstructure:"tools" json:"tools"`
}
