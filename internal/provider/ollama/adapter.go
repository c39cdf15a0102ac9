// Package ollama adapts a self-hosted Ollama server. Unlike the hosted
// backends it is configured with a base URL instead of an API key, and it
// supports discovering which models the server actually has pulled.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goversion "github.com/hashicorp/go-version"
	"go.uber.org/zap"

	"github.com/calder-ai/relay/internal/core/domain"
	"github.com/calder-ai/relay/internal/core/ports"
	"github.com/calder-ai/relay/internal/httpclient"
	"github.com/calder-ai/relay/internal/logger"
	"github.com/calder-ai/relay/internal/provider"
	cachestore "github.com/calder-ai/relay/internal/store/cache"
)

const (
	DefaultModel   = "llama3.2"
	defaultBaseURL = "http://localhost:11434"

	// Tag-listing is the cheapest endpoint the server exposes, so the
	// connectivity probe uses it with a tight deadline. Full model listing
	// gets a little more room.
	probeTimeout = 5 * time.Second
	listTimeout  = 10 * time.Second

	// The /api/chat endpoint landed in 0.1.14; older servers only speak
	// /api/generate and are rejected by the version gate.
	MinServerVersion = "0.1.14"

	modelListCacheKey = "ollama:models"
	modelListCacheTTL = time.Minute
)

func init() {
	provider.Register(domain.ProviderOllama, func(creds ports.CredentialStore) ports.Adapter {
		return NewAdapter(creds, nil)
	})
}

// NormalizeBaseURL canonicalizes a configured base URL to exactly one
// trailing "/api" with no trailing slash, so "http://host:11434",
// "http://host:11434/", "http://host:11434/api" and "http://host:11434/api/"
// are all treated identically.
func NormalizeBaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = defaultBaseURL
	}
	raw = strings.TrimRight(raw, "/")
	if !strings.HasSuffix(raw, "/api") {
		raw += "/api"
	}
	return raw
}

type Adapter struct {
	creds  ports.CredentialStore
	client *http.Client
	cache  cachestore.CacheService // optional; caches discovered model lists
}

// NewAdapter builds the adapter. cache may be nil, in which case every
// ListModels call hits the server.
func NewAdapter(creds ports.CredentialStore, cache cachestore.CacheService) *Adapter {
	return &Adapter{
		creds:  creds,
		client: &http.Client{Timeout: 120 * time.Second},
		cache:  cache,
	}
}

func (a *Adapter) ID() domain.ProviderID { return domain.ProviderOllama }

func (a *Adapter) Metadata() domain.Metadata {
	return domain.Metadata{
		ID:                domain.ProviderOllama,
		Name:              "Ollama",
		RequiresBaseURL:   true,
		DefaultModel:      DefaultModel,
		SupportsDiscovery: true,
	}
}

func (a *Adapter) IsConfigured() bool {
	return strings.TrimSpace(a.creds.ProviderAuth(domain.ProviderOllama).BaseURL) != ""
}

func (a *Adapter) CreateModel(modelID string) domain.ModelHandle {
	return a.CreateModelWith(a.creds.ProviderAuth(domain.ProviderOllama), modelID)
}

func (a *Adapter) CreateModelWith(creds domain.Credentials, modelID string) domain.ModelHandle {
	if strings.TrimSpace(creds.BaseURL) == "" {
		logger.Debug("ollama: no base url, skipping handle construction")
		return nil
	}
	if modelID == "" {
		modelID = DefaultModel
	}
	return &handle{
		baseURL: NormalizeBaseURL(creds.BaseURL),
		modelID: modelID,
		client:  a.client,
	}
}

func (a *Adapter) TestConnection(ctx context.Context, creds domain.Credentials) bool {
	if strings.TrimSpace(creds.BaseURL) == "" {
		return false
	}
	baseURL := NormalizeBaseURL(creds.BaseURL)

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	err := httpclient.SendRequest(ctx, a.client, http.MethodGet, baseURL+"/tags", nil, nil, nil)
	if err != nil {
		logger.Debug("ollama: connection probe failed", zap.Error(err))
		return false
	}
	return true
}

// ListModels fetches the names of locally available models from the server's
// tag listing, deduplicated and in server order. Any network or parse
// failure yields an empty list, never an error. Results are cached briefly
// when a cache service is attached.
func (a *Adapter) ListModels(ctx context.Context) []string {
	if a.cache != nil {
		var cached []string
		if err := a.cache.Get(ctx, modelListCacheKey, &cached); err == nil {
			return cached
		}
	}

	baseURL := a.creds.ProviderAuth(domain.ProviderOllama).BaseURL
	if strings.TrimSpace(baseURL) == "" {
		return []string{}
	}

	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	models, err := fetchTags(ctx, a.client, NormalizeBaseURL(baseURL))
	if err != nil {
		logger.Warn("ollama: model discovery failed", zap.Error(err))
		return []string{}
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, modelListCacheKey, models, modelListCacheTTL); err != nil {
			logger.Debug("ollama: failed to cache model list", zap.Error(err))
		}
	}
	return models
}

// ServerVersion probes the running server's version and reports whether it
// meets the minimum this adapter supports.
func (a *Adapter) ServerVersion(ctx context.Context) (string, bool, error) {
	baseURL := a.creds.ProviderAuth(domain.ProviderOllama).BaseURL
	if strings.TrimSpace(baseURL) == "" {
		return "", false, fmt.Errorf("ollama: not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var resp struct {
		Version string `json:"version"`
	}
	err := httpclient.SendRequest(ctx, a.client, http.MethodGet,
		NormalizeBaseURL(baseURL)+"/version", nil, nil, &resp)
	if err != nil {
		return "", false, err
	}

	current, err := goversion.NewVersion(resp.Version)
	if err != nil {
		return resp.Version, false, fmt.Errorf("ollama: unparseable server version %q: %w", resp.Version, err)
	}
	minimum := goversion.Must(goversion.NewVersion(MinServerVersion))
	return resp.Version, current.GreaterThanOrEqual(minimum), nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

type handle struct {
	baseURL string
	modelID string
	client  *http.Client
}

func (h *handle) Provider() domain.ProviderID { return domain.ProviderOllama }
func (h *handle) ModelID() string             { return h.modelID }

func (h *handle) Generate(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model:    h.modelID,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   false,
	}

	var resp chatResponse
	err := httpclient.SendRequest(ctx, h.client, http.MethodPost, h.baseURL+"/chat", nil, req, &resp)
	if err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}
