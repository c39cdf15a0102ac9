// Package openrouter adapts the OpenRouter aggregation API, which speaks the
// OpenAI chat completions dialect with its own attribution headers.
package openrouter

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/calder-ai/relay/internal/core/domain"
	"github.com/calder-ai/relay/internal/core/ports"
	"github.com/calder-ai/relay/internal/httpclient"
	"github.com/calder-ai/relay/internal/logger"
	"github.com/calder-ai/relay/internal/provider"
)

const (
	DefaultModel   = "openai/gpt-4o-mini"
	defaultBaseURL = "https://openrouter.ai/api/v1"

	probeTimeout = 10 * time.Second

	refererHeader = "https://github.com/calder-ai/relay"
	titleHeader   = "relay"
)

func init() {
	provider.Register(domain.ProviderOpenRouter, func(creds ports.CredentialStore) ports.Adapter {
		return NewAdapter(creds)
	})
}

type Adapter struct {
	creds  ports.CredentialStore
	client *http.Client
}

func NewAdapter(creds ports.CredentialStore) *Adapter {
	return &Adapter{
		creds:  creds,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (a *Adapter) ID() domain.ProviderID { return domain.ProviderOpenRouter }

func (a *Adapter) Metadata() domain.Metadata {
	return domain.Metadata{
		ID:             domain.ProviderOpenRouter,
		Name:           "OpenRouter",
		RequiresAPIKey: true,
		DefaultModel:   DefaultModel,
	}
}

func (a *Adapter) IsConfigured() bool {
	return strings.TrimSpace(a.creds.ProviderAuth(domain.ProviderOpenRouter).APIKey) != ""
}

func (a *Adapter) CreateModel(modelID string) domain.ModelHandle {
	return a.CreateModelWith(a.creds.ProviderAuth(domain.ProviderOpenRouter), modelID)
}

func (a *Adapter) CreateModelWith(creds domain.Credentials, modelID string) domain.ModelHandle {
	apiKey := strings.TrimSpace(creds.APIKey)
	if apiKey == "" {
		logger.Debug("openrouter: no api key, skipping handle construction")
		return nil
	}
	if modelID == "" {
		modelID = DefaultModel
	}
	baseURL := strings.TrimRight(creds.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &handle{
		apiKey:  apiKey,
		baseURL: baseURL,
		modelID: modelID,
		client:  a.client,
	}
}

func (a *Adapter) TestConnection(ctx context.Context, creds domain.Credentials) bool {
	apiKey := strings.TrimSpace(creds.APIKey)
	if apiKey == "" {
		return false
	}
	baseURL := strings.TrimRight(creds.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	err := httpclient.SendRequest(ctx, a.client, http.MethodGet, baseURL+"/models",
		headers(apiKey), nil, nil)
	if err != nil {
		logger.Debug("openrouter: connection probe failed", zap.Error(err))
		return false
	}
	return true
}

func headers(apiKey string) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + apiKey,
		"HTTP-Referer":  refererHeader,
		"X-Title":       titleHeader,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type handle struct {
	apiKey  string
	baseURL string
	modelID string
	client  *http.Client
}

func (h *handle) Provider() domain.ProviderID { return domain.ProviderOpenRouter }
func (h *handle) ModelID() string             { return h.modelID }

func (h *handle) Generate(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model:    h.modelID,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}

	var resp chatResponse
	err := httpclient.SendRequest(ctx, h.client, http.MethodPost, h.baseURL+"/chat/completions",
		headers(h.apiKey), req, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openrouter: empty completion for model %s", h.modelID)
	}
	return resp.Choices[0].Message.Content, nil
}
