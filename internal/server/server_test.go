package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/calder-ai/relay/internal/config"
	"github.com/calder-ai/relay/internal/core/domain"
	"github.com/calder-ai/relay/internal/core/ports"
	"github.com/calder-ai/relay/internal/core/services"
	"github.com/calder-ai/relay/internal/modelcache"
	"github.com/calder-ai/relay/internal/server"
	"github.com/calder-ai/relay/internal/server/validator"
	"github.com/calder-ai/relay/pkg/api"
)

type stubHandle struct {
	provider domain.ProviderID
	modelID  string
	reply    string
	err      error
}

func (h *stubHandle) Provider() domain.ProviderID { return h.provider }
func (h *stubHandle) ModelID() string             { return h.modelID }

func (h *stubHandle) Generate(ctx context.Context, prompt string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return h.reply, nil
}

type stubAdapter struct {
	id         domain.ProviderID
	configured bool
	reply      string
	genErr     error
}

func (a *stubAdapter) ID() domain.ProviderID { return a.id }

func (a *stubAdapter) Metadata() domain.Metadata {
	return domain.Metadata{
		ID:           a.id,
		Name:         string(a.id),
		DefaultModel: "default-" + string(a.id),
	}
}

func (a *stubAdapter) CreateModel(modelID string) domain.ModelHandle {
	if !a.configured {
		return nil
	}
	return &stubHandle{provider: a.id, modelID: modelID, reply: a.reply, err: a.genErr}
}

func (a *stubAdapter) CreateModelWith(creds domain.Credentials, modelID string) domain.ModelHandle {
	return a.CreateModel(modelID)
}

func (a *stubAdapter) IsConfigured() bool { return a.configured }

func (a *stubAdapter) TestConnection(ctx context.Context, creds domain.Credentials) bool {
	return a.configured
}

type stubCreds struct{}

func (stubCreds) ProviderAuth(id domain.ProviderID) domain.Credentials { return domain.Credentials{} }
func (stubCreds) IsConfigured(id domain.ProviderID) bool               { return false }
func (stubCreds) DefaultModel(id domain.ProviderID) string             { return "default-" + string(id) }

func newTestServer(t *testing.T, configured map[domain.ProviderID]bool, apiKeys []string) *server.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validator.InitValidator()

	adapters := make(map[domain.ProviderID]ports.Adapter, len(domain.FallbackOrder))
	for _, id := range domain.FallbackOrder {
		adapters[id] = &stubAdapter{id: id, configured: configured[id], reply: "hello from " + string(id)}
	}

	cache := modelcache.New(modelcache.Config{SweepInterval: -1})
	t.Cleanup(cache.Close)

	creds := stubCreds{}
	factory := services.NewFactory(adapters, creds, cache, zap.NewNop())
	chain := services.NewChain(factory, creds, nil, zap.NewNop())

	cfg := &config.Config{
		Server:    config.ServerConfig{Port: "0", Env: "test"},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		APIKeys:   apiKeys,
	}

	return server.New(cfg, zap.NewNop(), factory, chain, creds, nil)
}

func doJSON(t *testing.T, s *server.Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := doJSON(t, s, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestListProviders(t *testing.T) {
	s := newTestServer(t, map[domain.ProviderID]bool{
		domain.ProviderApple:  true,
		domain.ProviderOllama: true,
	}, nil)

	w := doJSON(t, s, http.MethodGet, "/v1/providers", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []api.ProviderInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 4)

	assert.Equal(t, "apple", resp.Data[0].ID)
	assert.True(t, resp.Data[0].Configured)
	assert.Equal(t, "openai", resp.Data[1].ID)
	assert.False(t, resp.Data[1].Configured)
}

func TestGenerate_FallsBack(t *testing.T) {
	s := newTestServer(t, map[domain.ProviderID]bool{
		domain.ProviderApple: true,
	}, nil)

	w := doJSON(t, s, http.MethodPost, "/v1/generate", api.GenerateRequest{
		Provider: "openai",
		Model:    "gpt-4o",
		Prompt:   "Hi",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "apple", resp.Provider)
	assert.False(t, resp.IsOriginal)
	assert.Equal(t, "openai unavailable, using apple", resp.FallbackReason)
	assert.Equal(t, "hello from apple", resp.Response)
	assert.Equal(t, []string{"openai", "apple"}, resp.Attempted)
}

func TestGenerate_Exhausted(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := doJSON(t, s, http.MethodPost, "/v1/generate", api.GenerateRequest{
		Provider: "openai",
		Prompt:   "Hi",
	})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "No configured providers available")
}

func TestGenerate_InvalidBody(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := doJSON(t, s, http.MethodPost, "/v1/generate", map[string]string{
		"provider": "bedrock",
		"prompt":   "Hi",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvalidateUnknownProvider(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := doJSON(t, s, http.MethodPost, "/v1/providers/bedrock/invalidate", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, nil, []string{"secret-key"})

	w := doJSON(t, s, http.MethodGet, "/v1/providers", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req, _ := http.NewRequest(http.MethodGet, "/v1/providers", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
