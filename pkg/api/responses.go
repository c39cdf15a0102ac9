package api

// ProviderInfo is one row of the provider snapshot.
type ProviderInfo struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Configured        bool   `json:"configured"`
	DefaultModel      string `json:"default_model"`
	RequiresAPIKey    bool   `json:"requires_api_key"`
	RequiresBaseURL   bool   `json:"requires_base_url"`
	SupportsDiscovery bool   `json:"supports_discovery"`
}

// ConnectionTestResponse reports one connectivity check.
type ConnectionTestResponse struct {
	Provider  string `json:"provider"`
	Success   bool   `json:"success"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// GenerateResponse carries the completion plus how it was obtained. When a
// fallback provider served the request, FallbackReason says why.
type GenerateResponse struct {
	Response       string   `json:"response"`
	Provider       string   `json:"provider"`
	Model          string   `json:"model"`
	IsOriginal     bool     `json:"is_original"`
	FallbackReason string   `json:"fallback_reason,omitempty"`
	Attempted      []string `json:"attempted"`
}

// ModelListResponse is a provider's discovered model ids.
type ModelListResponse struct {
	Provider string   `json:"provider"`
	Models   []string `json:"models"`
}

// HealthResponse is the unauthenticated liveness payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
