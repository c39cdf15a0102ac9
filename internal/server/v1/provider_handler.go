package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/calder-ai/relay/internal/core/domain"
	"github.com/calder-ai/relay/internal/core/ports"
	"github.com/calder-ai/relay/internal/core/services"
	"github.com/calder-ai/relay/internal/server/validator"
	"github.com/calder-ai/relay/pkg/api"
)

// modelLister is implemented by adapters that can enumerate their server's
// installed models.
type modelLister interface {
	ListModels(ctx context.Context) []string
}

type ProviderHandler struct {
	factory *services.Factory
	chain   *services.Chain
	creds   ports.CredentialStore
}

func NewProviderHandler(factory *services.Factory, chain *services.Chain, creds ports.CredentialStore) *ProviderHandler {
	return &ProviderHandler{factory: factory, chain: chain, creds: creds}
}

// List returns the priority-ordered provider snapshot.
func (h *ProviderHandler) List(c *gin.Context) {
	statuses := h.chain.AvailableProviders()

	infos := make([]api.ProviderInfo, 0, len(statuses))
	for _, st := range statuses {
		adapter, ok := h.factory.Adapter(st.Provider)
		if !ok {
			continue
		}
		meta := adapter.Metadata()
		infos = append(infos, api.ProviderInfo{
			ID:                string(meta.ID),
			Name:              meta.Name,
			Configured:        st.Configured,
			DefaultModel:      meta.DefaultModel,
			RequiresAPIKey:    meta.RequiresAPIKey,
			RequiresBaseURL:   meta.RequiresBaseURL,
			SupportsDiscovery: meta.SupportsDiscovery,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   infos,
	})
}

// TestAll real-tests every configured provider concurrently.
func (h *ProviderHandler) TestAll(c *gin.Context) {
	results := h.factory.TestAllProviders(c.Request.Context(), services.DefaultRealTestTimeout)

	out := make([]api.ConnectionTestResponse, 0, len(results))
	for _, id := range domain.FallbackOrder {
		res := results[id]
		out = append(out, api.ConnectionTestResponse{
			Provider:  string(id),
			Success:   res.Success,
			LatencyMs: res.Latency.Milliseconds(),
			Error:     res.Error,
			ErrorKind: string(res.ErrorKind),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   out,
	})
}

// Test checks connectivity for one provider. The body may override stored
// credentials, so a key can be validated before it is saved.
func (h *ProviderHandler) Test(c *gin.Context) {
	id := domain.ProviderID(c.Param("provider"))
	if !id.Valid() {
		c.Error(api.NotFoundError("unknown provider: " + c.Param("provider")))
		return
	}

	var req api.TestConnectionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(api.ValidationError(validator.ParseValidationError(err)))
			return
		}
	}

	var override *domain.Credentials
	if req.APIKey != "" || req.BaseURL != "" {
		override = &domain.Credentials{APIKey: req.APIKey, BaseURL: req.BaseURL}
	}

	if !req.Real {
		creds := h.creds.ProviderAuth(id)
		if override != nil {
			creds = *override
		}
		ok := h.factory.TestProviderConnection(c.Request.Context(), id, creds)
		c.JSON(http.StatusOK, api.ConnectionTestResponse{Provider: string(id), Success: ok})
		return
	}

	timeout := time.Duration(req.TimeoutMs) * time.Millisecond
	res := h.factory.TestProviderConnectionReal(c.Request.Context(), id, override, timeout)

	c.JSON(http.StatusOK, api.ConnectionTestResponse{
		Provider:  string(id),
		Success:   res.Success,
		LatencyMs: res.Latency.Milliseconds(),
		Error:     res.Error,
		ErrorKind: string(res.ErrorKind),
	})
}

// Invalidate drops cached model handles for one provider.
func (h *ProviderHandler) Invalidate(c *gin.Context) {
	id := domain.ProviderID(c.Param("provider"))
	if !id.Valid() {
		c.Error(api.NotFoundError("unknown provider: " + c.Param("provider")))
		return
	}

	h.factory.InvalidateProvider(id)
	c.Status(http.StatusNoContent)
}

// OllamaModels lists the models installed on the local ollama server.
func (h *ProviderHandler) OllamaModels(c *gin.Context) {
	adapter, ok := h.factory.Adapter(domain.ProviderOllama)
	if !ok {
		c.Error(api.NotFoundError("ollama provider is not registered"))
		return
	}

	lister, ok := adapter.(modelLister)
	if !ok {
		c.Error(api.InternalError("ollama adapter does not support discovery", nil))
		return
	}

	c.JSON(http.StatusOK, api.ModelListResponse{
		Provider: string(domain.ProviderOllama),
		Models:   lister.ListModels(c.Request.Context()),
	})
}
