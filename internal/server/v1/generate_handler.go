package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/calder-ai/relay/internal/core/domain"
	"github.com/calder-ai/relay/internal/core/services"
	"github.com/calder-ai/relay/internal/server/validator"
	"github.com/calder-ai/relay/pkg/api"
)

type GenerateHandler struct {
	chain *services.Chain
}

func NewGenerateHandler(chain *services.Chain) *GenerateHandler {
	return &GenerateHandler{chain: chain}
}

// Generate resolves a model through the fallback chain and runs one
// completion on it.
func (h *GenerateHandler) Generate(c *gin.Context) {
	var req api.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return
	}

	exclude := make([]domain.ProviderID, 0, len(req.Exclude))
	for _, e := range req.Exclude {
		exclude = append(exclude, domain.ProviderID(e))
	}

	result := h.chain.GetModelWithFallback(c.Request.Context(), domain.ProviderID(req.Provider), req.Model, exclude)
	if result.Model == nil {
		c.Error(api.UpstreamUnavailableError(result.Error,
			api.WithExtension("attempted", providerStrings(result.Attempted))))
		return
	}

	text, err := result.Model.Generate(c.Request.Context(), req.Prompt)
	if err != nil {
		classification := services.Classify(err)
		c.Error(api.ProviderError(classification.Message,
			api.WithExtension("category", string(classification.Category)),
			api.WithExtension("retryable", classification.Retryable),
			api.WithExtension("provider", string(result.Provider)),
			api.WithLog(err)))
		return
	}

	c.JSON(http.StatusOK, api.GenerateResponse{
		Response:       text,
		Provider:       string(result.Provider),
		Model:          result.ModelID,
		IsOriginal:     result.IsOriginal,
		FallbackReason: result.FallbackReason,
		Attempted:      providerStrings(result.Attempted),
	})
}

func providerStrings(ids []domain.ProviderID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}
