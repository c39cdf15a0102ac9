package api

// GenerateRequest asks for one completion, naming a preferred provider. The
// model is optional; empty means the provider's default.
type GenerateRequest struct {
	Provider string `json:"provider" binding:"required,oneof=apple openai openrouter ollama"`
	Model    string `json:"model,omitempty"`
	Prompt   string `json:"prompt" binding:"required"`

	// Providers the caller never wants, e.g. because they already failed
	// upstream in this conversation.
	Exclude []string `json:"exclude,omitempty" binding:"omitempty,dive,oneof=apple openai openrouter ollama"`
}

// TestConnectionRequest optionally overrides stored credentials so a key can
// be validated before saving it. Real makes an actual generation round trip
// instead of the cheap probe.
type TestConnectionRequest struct {
	APIKey    string `json:"api_key,omitempty"`
	BaseURL   string `json:"base_url,omitempty"`
	Real      bool   `json:"real,omitempty"`
	TimeoutMs int    `json:"timeout_ms,omitempty" binding:"omitempty,min=100,max=120000"`
}
