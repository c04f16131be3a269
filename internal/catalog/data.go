package catalog

import (
	"time"

	"github.com/nulzo/usage-metrics-api/pkg/api"
)

func timePtr(t time.Time) *time.Time { return &t }

// DefaultProviders is the built-in provider registry, used when no
// catalog.yaml overrides it.
var DefaultProviders = []api.ProviderDefinition{
	{
		ID:           "openai",
		Name:         "OpenAI",
		Description:  "OpenAI is an AI research and deployment company.",
		Streaming:    true,
		Cancellation: true,
		JSONOutput:   true,
		Website:      "https://openai.com",
	},
	{
		ID:           "anthropic",
		Name:         "Anthropic",
		Description:  "Anthropic is a research and deployment company focused on building safe and useful AI.",
		Streaming:    true,
		Cancellation: true,
		Website:      "https://anthropic.com",
	},
	{
		ID:           "google-vertex",
		Name:         "Google Vertex AI",
		Description:  "Google Vertex AI is a platform for building and deploying large language models.",
		Streaming:    true,
		Cancellation: true,
		Website:      "https://cloud.google.com/vertex-ai",
	},
	{
		ID:           "mistral",
		Name:         "Mistral AI",
		Description:  "Mistral AI's large language models.",
		Streaming:    true,
		Cancellation: true,
		JSONOutput:   true,
		Website:      "https://mistral.ai",
	},
	{
		ID:           "groq",
		Name:         "Groq",
		Description:  "Groq's ultra-fast LPU inference with various models.",
		Streaming:    true,
		Cancellation: true,
		JSONOutput:   true,
		Website:      "https://groq.com",
	},
	{
		ID:           "llmgateway",
		Name:         "Custom",
		Description:  "Custom OpenAI-compatible provider with configurable base URL.",
		Streaming:    true,
		Cancellation: true,
		JSONOutput:   true,
	},
}

// DefaultModels is the built-in priced model catalog. Prices are decimal
// strings in currency units per token (request_price per request); "0" is a
// real zero price, an empty string means unpriced.
var DefaultModels = []api.ModelDefinition{
	// OpenAI
	{
		ID:         "gpt-4o",
		Name:       "GPT-4o",
		Family:     "openai",
		JSONOutput: true,
		Providers: []api.ModelProviderPricing{
			{
				ProviderID:   "openai",
				ModelName:    "gpt-4o",
				InputPrice:   "0.000005",
				OutputPrice:  "0.000015",
				RequestPrice: "0",
				ContextSize:  128000,
				Streaming:    true,
				Vision:       true,
				Tools:        true,
			},
		},
	},
	{
		ID:         "gpt-4-turbo",
		Name:       "GPT-4 Turbo",
		Family:     "openai",
		JSONOutput: true,
		Providers: []api.ModelProviderPricing{
			{
				ProviderID:   "openai",
				ModelName:    "gpt-4-turbo",
				InputPrice:   "0.00001",
				OutputPrice:  "0.00003",
				RequestPrice: "0",
				ContextSize:  128000,
				Streaming:    true,
				Vision:       true,
				Tools:        true,
			},
		},
	},
	{
		ID:         "gpt-3.5-turbo",
		Name:       "GPT-3.5 Turbo",
		Family:     "openai",
		JSONOutput: true,
		// Retired upstream; kept resolvable for historical recomputation.
		DeactivatedAt: timePtr(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
		Providers: []api.ModelProviderPricing{
			{
				ProviderID:   "openai",
				ModelName:    "gpt-3.5-turbo",
				InputPrice:   "0.0000005",
				OutputPrice:  "0.0000015",
				RequestPrice: "0",
				ContextSize:  16385,
				Streaming:    true,
				Tools:        true,
			},
		},
	},

	// Anthropic
	{
		ID:     "claude-3-5-sonnet",
		Name:   "Claude 3.5 Sonnet",
		Family: "claude",
		Providers: []api.ModelProviderPricing{
			{
				ProviderID:   "anthropic",
				ModelName:    "claude-3-5-sonnet-20240620",
				InputPrice:   "0.000003",
				OutputPrice:  "0.000015",
				RequestPrice: "0",
				ContextSize:  200000,
				Streaming:    true,
				Vision:       true,
				Tools:        true,
			},
			{
				ProviderID:   "google-vertex",
				ModelName:    "claude-3-5-sonnet@20240620",
				InputPrice:   "0.000003",
				OutputPrice:  "0.000015",
				RequestPrice: "0",
				ContextSize:  200000,
				Streaming:    true,
				Vision:       true,
				Tools:        true,
			},
		},
	},
	{
		ID:     "claude-3-haiku",
		Name:   "Claude 3 Haiku",
		Family: "claude",
		Providers: []api.ModelProviderPricing{
			{
				ProviderID:   "anthropic",
				ModelName:    "claude-3-haiku-20240307",
				InputPrice:   "0.00000025",
				OutputPrice:  "0.00000125",
				RequestPrice: "0",
				ContextSize:  200000,
				Streaming:    true,
				Vision:       true,
				Tools:        true,
			},
		},
	},

	// Google
	{
		ID:         "gemini-1.5-pro",
		Name:       "Gemini 1.5 Pro",
		Family:     "gemini",
		JSONOutput: true,
		Providers: []api.ModelProviderPricing{
			{
				ProviderID:   "google-vertex",
				ModelName:    "gemini-1.5-pro",
				InputPrice:   "0.0000035",
				OutputPrice:  "0.0000105",
				RequestPrice: "0",
				ContextSize:  2000000,
				Streaming:    true,
				Vision:       true,
				Tools:        true,
			},
		},
	},
	{
		ID:         "gemini-1.5-flash",
		Name:       "Gemini 1.5 Flash",
		Family:     "gemini",
		JSONOutput: true,
		Providers: []api.ModelProviderPricing{
			{
				ProviderID:   "google-vertex",
				ModelName:    "gemini-1.5-flash",
				InputPrice:   "0.00000035",
				OutputPrice:  "0.00000105",
				RequestPrice: "0",
				ContextSize:  1000000,
				Streaming:    true,
				Vision:       true,
				Tools:        true,
			},
		},
	},

	// Open weights via Groq / Mistral
	{
		ID:         "mixtral-8x7b",
		Name:       "Mixtral 8x7B",
		Family:     "mistral",
		JSONOutput: true,
		Providers: []api.ModelProviderPricing{
			{
				ProviderID:   "mistral",
				ModelName:    "open-mixtral-8x7b",
				InputPrice:   "0.0000007",
				OutputPrice:  "0.0000007",
				RequestPrice: "0",
				ContextSize:  32768,
				Streaming:    true,
				Tools:        true,
			},
			{
				ProviderID:   "groq",
				ModelName:    "mixtral-8x7b-32768",
				InputPrice:   "0.00000024",
				OutputPrice:  "0.00000024",
				RequestPrice: "0",
				ContextSize:  32768,
				Streaming:    true,
			},
		},
	},

	// Custom gateway passthrough: no published price, cost is unknown.
	{
		ID:         "custom",
		Name:       "Custom Model",
		Family:     "llmgateway",
		JSONOutput: true,
		Providers: []api.ModelProviderPricing{
			{
				ProviderID: "llmgateway",
				ModelName:  "custom",
				Streaming:  true,
				Vision:     true,
				Tools:      true,
			},
		},
	},
}
