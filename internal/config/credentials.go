package config

import (
	"sync"

	"github.com/calder-ai/relay/internal/core/domain"
)

// Credentials adapts the loaded configuration to the credential store the
// core reads from. Updates through Set* take effect on the next read; the
// core re-checks configuration on every resolution, so no cache of these
// values ever goes stale silently.
type Credentials struct {
	mu        sync.RWMutex
	providers map[string]ProviderSettings
}

func NewCredentials(cfg *Config) *Credentials {
	providers := make(map[string]ProviderSettings, len(cfg.Providers))
	for name, p := range cfg.Providers {
		providers[name] = p
	}
	return &Credentials{providers: providers}
}

func (c *Credentials) ProviderAuth(id domain.ProviderID) domain.Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p := c.providers[string(id)]
	return domain.Credentials{APIKey: p.APIKey, BaseURL: p.BaseURL}
}

func (c *Credentials) IsConfigured(id domain.ProviderID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p := c.providers[string(id)]

	switch id {
	case domain.ProviderApple:
		// On-device: no credentials exist, only an enable switch. Absent
		// means enabled.
		return p.Enabled == nil || *p.Enabled
	case domain.ProviderOllama:
		// A local server needs no key, just a reachable base URL.
		return p.BaseURL != "" && (p.Enabled == nil || *p.Enabled)
	default:
		return p.APIKey != ""
	}
}

func (c *Credentials) DefaultModel(id domain.ProviderID) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.providers[string(id)].DefaultModel
}

// SetProviderAuth replaces the stored credentials for a provider. Callers
// must invalidate the model cache for the provider afterwards.
func (c *Credentials) SetProviderAuth(id domain.ProviderID, creds domain.Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.providers[string(id)]
	p.APIKey = creds.APIKey
	p.BaseURL = creds.BaseURL
	c.providers[string(id)] = p
}

// SetEnabled flips a provider's enable switch.
func (c *Credentials) SetEnabled(id domain.ProviderID, enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.providers[string(id)]
	p.Enabled = &enabled
	c.providers[string(id)] = p
}
