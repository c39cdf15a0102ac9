// Package openai adapts the OpenAI chat completions API.
package openai

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
	DefaultModel   = "gpt-4o-mini"
	defaultBaseURL = "https://api.openai.com/v1"

	// Model-listing probes are cheap but can be slow on cold edges.
	probeTimeout = 10 * time.Second
)

func init() {
	provider.Register(domain.ProviderOpenAI, func(creds ports.CredentialStore) ports.Adapter {
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

func (a *Adapter) ID() domain.ProviderID { return domain.ProviderOpenAI }

func (a *Adapter) Metadata() domain.Metadata {
	return domain.Metadata{
		ID:             domain.ProviderOpenAI,
		Name:           "OpenAI",
		RequiresAPIKey: true,
		DefaultModel:   DefaultModel,
	}
}

func (a *Adapter) IsConfigured() bool {
	return strings.TrimSpace(a.creds.ProviderAuth(domain.ProviderOpenAI).APIKey) != ""
}

// CreateModel builds a handle from stored credentials. Missing credentials
// are a normal outcome, not an error: the result is nil.
func (a *Adapter) CreateModel(modelID string) domain.ModelHandle {
	return a.CreateModelWith(a.creds.ProviderAuth(domain.ProviderOpenAI), modelID)
}

func (a *Adapter) CreateModelWith(creds domain.Credentials, modelID string) domain.ModelHandle {
	apiKey := strings.TrimSpace(creds.APIKey)
	if apiKey == "" {
		logger.Debug("openai: no api key, skipping handle construction")
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

// TestConnection probes the model-listing endpoint. Any failure, including a
// timeout, degrades to false.
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
		map[string]string{"Authorization": "Bearer " + apiKey}, nil, nil)
	if err != nil {
		logger.Debug("openai: connection probe failed", zap.Error(err))
		return false
	}
	return true
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

func (h *handle) Provider() domain.ProviderID { return domain.ProviderOpenAI }
func (h *handle) ModelID() string             { return h.modelID }

func (h *handle) Generate(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model:    h.modelID,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}

	var resp chatResponse
	err := httpclient.SendRequest(ctx, h.client, http.MethodPost, h.baseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + h.apiKey}, req, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty completion for model %s", h.modelID)
	}
	return resp.Choices[0].Message.Content, nil
}
