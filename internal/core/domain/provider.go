package domain

import "context"

// ProviderID identifies one of the supported model backends.
type ProviderID string

const (
	ProviderApple      ProviderID = "apple"
	ProviderOpenAI     ProviderID = "openai"
	ProviderOpenRouter ProviderID = "openrouter"
	ProviderOllama     ProviderID = "ollama"
)

// FallbackOrder is the fixed priority used when a preferred provider fails.
// It is defined once and must never be mutated at runtime.
var FallbackOrder = []ProviderID{
	ProviderApple,
	ProviderOpenAI,
	ProviderOpenRouter,
	ProviderOllama,
}

// Valid reports whether id names a known provider.
func (id ProviderID) Valid() bool {
	switch id {
	case ProviderApple, ProviderOpenAI, ProviderOpenRouter, ProviderOllama:
		return true
	}
	return false
}

// Credentials is the per-provider secret bundle read from the credential
// store. The core only ever reads these values; it never persists them.
type Credentials struct {
	APIKey  string
	BaseURL string
}

// Metadata describes a provider's static capabilities and configuration
// requirements.
type Metadata struct {
	ID                ProviderID
	Name              string
	RequiresAPIKey    bool
	RequiresBaseURL   bool
	DefaultModel      string
	SupportsDiscovery bool
}

// ModelHandle is an opaque handle capable of performing a single text
// generation call against one provider+model. Handles are value-like: they
// are never mutated after construction and may be cached and shared.
type ModelHandle interface {
	Provider() ProviderID
	ModelID() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// ProviderStatus is a point-in-time availability snapshot for one provider.
type ProviderStatus struct {
	Provider   ProviderID `json:"provider"`
	Configured bool       `json:"configured"`
}
