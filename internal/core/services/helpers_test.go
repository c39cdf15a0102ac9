package services

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/calder-ai/relay/internal/core/domain"
	"github.com/calder-ai/relay/internal/core/ports"
	"github.com/calder-ai/relay/internal/modelcache"
	"github.com/calder-ai/relay/internal/store"
	"github.com/calder-ai/relay/internal/store/model"
)

type fakeHandle struct {
	provider domain.ProviderID
	modelID  string
	reply    string
	err      error
}

func (h *fakeHandle) Provider() domain.ProviderID { return h.provider }
func (h *fakeHandle) ModelID() string             { return h.modelID }

func (h *fakeHandle) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if h.err != nil {
		return "", h.err
	}
	if h.reply != "" {
		return h.reply, nil
	}
	return "OK", nil
}

// fakeAdapter is a mutable in-memory adapter for wiring factory and chain
// tests without network.
type fakeAdapter struct {
	mu          sync.Mutex
	id          domain.ProviderID
	configured  bool
	probeOK     bool
	generateErr error
	creates     int
}

func newFakeAdapter(id domain.ProviderID, configured bool) *fakeAdapter {
	return &fakeAdapter{id: id, configured: configured, probeOK: configured}
}

func (a *fakeAdapter) ID() domain.ProviderID { return a.id }

func (a *fakeAdapter) Metadata() domain.Metadata {
	return domain.Metadata{ID: a.id, Name: string(a.id), DefaultModel: "fake-default"}
}

func (a *fakeAdapter) CreateModel(modelID string) domain.ModelHandle {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.creates++
	if !a.configured {
		return nil
	}
	return &fakeHandle{provider: a.id, modelID: modelID, err: a.generateErr}
}

func (a *fakeAdapter) CreateModelWith(creds domain.Credentials, modelID string) domain.ModelHandle {
	if creds.APIKey == "" {
		return nil
	}
	return &fakeHandle{provider: a.id, modelID: modelID, err: a.generateErr}
}

func (a *fakeAdapter) IsConfigured() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.configured
}

func (a *fakeAdapter) TestConnection(ctx context.Context, creds domain.Credentials) bool {
	return a.probeOK
}

func (a *fakeAdapter) setConfigured(v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configured = v
}

func (a *fakeAdapter) createCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.creates
}

type fakeCredStore struct {
	auth     map[domain.ProviderID]domain.Credentials
	defaults map[domain.ProviderID]string
}

func newFakeCredStore() *fakeCredStore {
	return &fakeCredStore{
		auth:     make(map[domain.ProviderID]domain.Credentials),
		defaults: make(map[domain.ProviderID]string),
	}
}

func (s *fakeCredStore) ProviderAuth(id domain.ProviderID) domain.Credentials { return s.auth[id] }

func (s *fakeCredStore) IsConfigured(id domain.ProviderID) bool {
	return s.auth[id].APIKey != ""
}

func (s *fakeCredStore) DefaultModel(id domain.ProviderID) string {
	if m, ok := s.defaults[id]; ok {
		return m
	}
	return "fake-default"
}

// fakeRepo records attempts in memory and signals each write.
type fakeRepo struct {
	mu       sync.Mutex
	attempts []*model.Attempt
	recorded chan struct{}
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{recorded: make(chan struct{}, 16)}
}

func (r *fakeRepo) Attempts() store.AttemptRepository { return r }
func (r *fakeRepo) Close() error                      { return nil }

func (r *fakeRepo) Record(ctx context.Context, a *model.Attempt) error {
	r.mu.Lock()
	r.attempts = append(r.attempts, a)
	r.mu.Unlock()
	r.recorded <- struct{}{}
	return nil
}

func (r *fakeRepo) Recent(ctx context.Context, limit int) ([]model.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Attempt, 0, len(r.attempts))
	for _, a := range r.attempts {
		out = append(out, *a)
	}
	return out, nil
}

func newTestFactory(adapters map[domain.ProviderID]ports.Adapter, creds ports.CredentialStore) (*Factory, *modelcache.Cache) {
	cache := modelcache.New(modelcache.Config{SweepInterval: -1})
	return NewFactory(adapters, creds, cache, zap.NewNop()), cache
}
