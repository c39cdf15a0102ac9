package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/calder-ai/relay/internal/core/domain"
)

func TestLoadConfig_Defaults(t *testing.T) {

	os.Clearenv()
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_ENV", "test")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := LoadConfig()
	assert.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "test", cfg.Server.Env)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "gpt-4o-mini", cfg.Providers["openai"].DefaultModel)
	assert.Equal(t, "llama3.2", cfg.Providers["ollama"].DefaultModel)
}

func TestLoadConfig_APIKeyResolution(t *testing.T) {
	os.Clearenv()
	t.Setenv("PROVIDERS_OPENAI_API_KEY", "sk-test-12345")

	cfg, err := LoadConfig()
	assert.NoError(t, err)

	assert.Equal(t, "sk-test-12345", cfg.Providers["openai"].APIKey)
}

func TestCredentials_IsConfigured(t *testing.T) {
	enabled := false
	creds := NewCredentials(&Config{
		Providers: map[string]ProviderSettings{
			"openai": {APIKey: "sk-live", DefaultModel: "gpt-4o-mini"},
			"apple":  {Enabled: &enabled},
			"ollama": {BaseURL: "http://localhost:11434"},
		},
	})

	assert.True(t, creds.IsConfigured(domain.ProviderOpenAI))
	assert.False(t, creds.IsConfigured(domain.ProviderOpenRouter), "no key set")
	assert.False(t, creds.IsConfigured(domain.ProviderApple), "explicitly disabled")
	assert.True(t, creds.IsConfigured(domain.ProviderOllama), "base url set, no key needed")
}

func TestCredentials_SetProviderAuth(t *testing.T) {
	creds := NewCredentials(&Config{Providers: map[string]ProviderSettings{}})

	assert.False(t, creds.IsConfigured(domain.ProviderOpenRouter))

	creds.SetProviderAuth(domain.ProviderOpenRouter, domain.Credentials{APIKey: "or-key"})

	assert.True(t, creds.IsConfigured(domain.ProviderOpenRouter))
	assert.Equal(t, "or-key", creds.ProviderAuth(domain.ProviderOpenRouter).APIKey)
}

func TestCredentials_SetEnabled(t *testing.T) {
	creds := NewCredentials(&Config{Providers: map[string]ProviderSettings{}})

	assert.True(t, creds.IsConfigured(domain.ProviderApple), "enabled by default")

	creds.SetEnabled(domain.ProviderApple, false)
	assert.False(t, creds.IsConfigured(domain.ProviderApple))
}
