package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/calder-ai/relay/internal/core/domain"
	"github.com/calder-ai/relay/internal/core/ports"
	"github.com/calder-ai/relay/internal/store"
)

type chainFixture struct {
	chain    *Chain
	adapters map[domain.ProviderID]*fakeAdapter
	creds    *fakeCredStore
	repo     *fakeRepo
}

func newChainFixture(t *testing.T, configured map[domain.ProviderID]bool, repo *fakeRepo) *chainFixture {
	t.Helper()

	fakes := make(map[domain.ProviderID]*fakeAdapter, len(domain.FallbackOrder))
	adapters := make(map[domain.ProviderID]ports.Adapter, len(domain.FallbackOrder))
	creds := newFakeCredStore()
	for _, id := range domain.FallbackOrder {
		fa := newFakeAdapter(id, configured[id])
		fakes[id] = fa
		adapters[id] = fa
		creds.defaults[id] = "default-" + string(id)
	}

	factory, cache := newTestFactory(adapters, creds)
	t.Cleanup(cache.Close)

	// A typed nil *fakeRepo must not reach the interface field.
	var repoPort store.Repository
	if repo != nil {
		repoPort = repo
	}

	chain := NewChain(factory, creds, repoPort, zap.NewNop())
	return &chainFixture{chain: chain, adapters: fakes, creds: creds, repo: repo}
}

func TestGetModelWithFallbackPrefersRequestedProvider(t *testing.T) {
	fx := newChainFixture(t, map[domain.ProviderID]bool{
		domain.ProviderOpenAI: true,
		domain.ProviderOllama: true,
	}, nil)

	res := fx.chain.GetModelWithFallback(context.Background(), domain.ProviderOpenAI, "gpt-4o", nil)

	require.NotNil(t, res.Model)
	assert.True(t, res.IsOriginal)
	assert.Equal(t, domain.ProviderOpenAI, res.Provider)
	assert.Equal(t, "gpt-4o", res.ModelID)
	assert.Empty(t, res.FallbackReason)
	assert.Equal(t, []domain.ProviderID{domain.ProviderOpenAI}, res.Attempted)
}

func TestGetModelWithFallbackWalksPriorityOrder(t *testing.T) {
	// openai requested but unconfigured; apple and ollama are available.
	// Apple is first in priority order so it must win.
	fx := newChainFixture(t, map[domain.ProviderID]bool{
		domain.ProviderApple:  true,
		domain.ProviderOllama: true,
	}, nil)

	res := fx.chain.GetModelWithFallback(context.Background(), domain.ProviderOpenAI, "gpt-4o", nil)

	require.NotNil(t, res.Model)
	assert.False(t, res.IsOriginal)
	assert.Equal(t, domain.ProviderApple, res.Provider)
	assert.Equal(t, "openai unavailable, using apple", res.FallbackReason)
	assert.Equal(t, []domain.ProviderID{domain.ProviderOpenAI, domain.ProviderApple}, res.Attempted)
}

func TestGetModelWithFallbackUsesCandidateDefaultModel(t *testing.T) {
	// The requested model id belongs to openai; the fallback provider must
	// not inherit it.
	fx := newChainFixture(t, map[domain.ProviderID]bool{
		domain.ProviderOllama: true,
	}, nil)

	res := fx.chain.GetModelWithFallback(context.Background(), domain.ProviderOpenAI, "gpt-4o", nil)

	require.NotNil(t, res.Model)
	assert.Equal(t, domain.ProviderOllama, res.Provider)
	assert.Equal(t, "default-ollama", res.ModelID)
}

func TestGetModelWithFallbackHonorsExclusions(t *testing.T) {
	fx := newChainFixture(t, map[domain.ProviderID]bool{
		domain.ProviderApple:      true,
		domain.ProviderOpenRouter: true,
	}, nil)

	res := fx.chain.GetModelWithFallback(context.Background(), domain.ProviderOpenAI, "gpt-4o",
		[]domain.ProviderID{domain.ProviderApple})

	require.NotNil(t, res.Model)
	assert.Equal(t, domain.ProviderOpenRouter, res.Provider)
	assert.NotContains(t, res.Attempted, domain.ProviderApple)
}

func TestGetModelWithFallbackExcludedPreferredIsNeverTried(t *testing.T) {
	fx := newChainFixture(t, map[domain.ProviderID]bool{
		domain.ProviderOpenAI: true,
		domain.ProviderOllama: true,
	}, nil)

	res := fx.chain.GetModelWithFallback(context.Background(), domain.ProviderOpenAI, "gpt-4o",
		[]domain.ProviderID{domain.ProviderOpenAI})

	require.NotNil(t, res.Model)
	assert.Equal(t, domain.ProviderOllama, res.Provider)
	assert.Equal(t, []domain.ProviderID{domain.ProviderOllama}, res.Attempted)
}

func TestGetModelWithFallbackExhaustion(t *testing.T) {
	fx := newChainFixture(t, nil, nil)

	res := fx.chain.GetModelWithFallback(context.Background(), domain.ProviderOpenAI, "gpt-4o", nil)

	assert.Nil(t, res.Model)
	assert.Equal(t, "No configured providers available", res.Error)
	assert.Equal(t, domain.ProviderOpenAI, res.Provider)
	assert.Equal(t, "gpt-4o", res.ModelID)
	// The preferred provider is always actually tried; unconfigured fallback
	// candidates are pre-skipped and therefore not counted.
	assert.Equal(t, []domain.ProviderID{domain.ProviderOpenAI}, res.Attempted)
}

func TestGetModelWithFallbackRecordsAttempt(t *testing.T) {
	repo := newFakeRepo()
	fx := newChainFixture(t, map[domain.ProviderID]bool{
		domain.ProviderApple: true,
	}, repo)

	fx.chain.GetModelWithFallback(context.Background(), domain.ProviderOpenAI, "gpt-4o", nil)

	select {
	case <-repo.recorded:
	case <-time.After(2 * time.Second):
		t.Fatal("attempt was never recorded")
	}

	attempts, err := repo.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, attempts, 1)

	a := attempts[0]
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "openai", a.PreferredProvider)
	assert.Equal(t, "gpt-4o", a.PreferredModel)
	assert.Equal(t, "apple", a.ChosenProvider)
	assert.Equal(t, "default-apple", a.ChosenModel)
	assert.False(t, a.IsOriginal)
	assert.Equal(t, "openai,apple", a.Attempted)
	assert.Empty(t, a.Error)
}

func TestNextFallbackProvider(t *testing.T) {
	fx := newChainFixture(t, map[domain.ProviderID]bool{
		domain.ProviderOpenRouter: true,
		domain.ProviderOllama:     true,
	}, nil)

	t.Run("switches on fallback-worthy error", func(t *testing.T) {
		next := fx.chain.NextFallbackProvider(domain.ProviderOpenAI, nil, errors.New("connection refused"))
		require.NotNil(t, next)
		assert.Equal(t, domain.ProviderOpenRouter, next.Provider)
		assert.Equal(t, "default-openrouter", next.Model)
	})

	t.Run("skips already-failed providers", func(t *testing.T) {
		next := fx.chain.NextFallbackProvider(domain.ProviderOpenAI,
			[]domain.ProviderID{domain.ProviderOpenRouter}, errors.New("connection refused"))
		require.NotNil(t, next)
		assert.Equal(t, domain.ProviderOllama, next.Provider)
	})

	t.Run("nil when the error says retry instead", func(t *testing.T) {
		err := &retryableErr{msg: "transient hiccup", retryable: true}
		assert.Nil(t, fx.chain.NextFallbackProvider(domain.ProviderOpenAI, nil, err))
	})

	t.Run("nil when everything failed", func(t *testing.T) {
		next := fx.chain.NextFallbackProvider(domain.ProviderOpenAI,
			[]domain.ProviderID{domain.ProviderOpenRouter, domain.ProviderOllama},
			errors.New("connection refused"))
		assert.Nil(t, next)
	})
}

func TestHasFallbackAvailable(t *testing.T) {
	fx := newChainFixture(t, map[domain.ProviderID]bool{
		domain.ProviderOllama: true,
	}, nil)

	assert.True(t, fx.chain.HasFallbackAvailable(domain.ProviderOpenAI, nil))
	assert.False(t, fx.chain.HasFallbackAvailable(domain.ProviderOllama, nil))
	assert.False(t, fx.chain.HasFallbackAvailable(domain.ProviderOpenAI,
		[]domain.ProviderID{domain.ProviderOllama}))
}

func TestAvailableProvidersSnapshot(t *testing.T) {
	fx := newChainFixture(t, map[domain.ProviderID]bool{
		domain.ProviderApple:  true,
		domain.ProviderOllama: true,
	}, nil)

	statuses := fx.chain.AvailableProviders()
	require.Len(t, statuses, len(domain.FallbackOrder))

	byProvider := make(map[domain.ProviderID]bool, len(statuses))
	for i, st := range statuses {
		assert.Equal(t, domain.FallbackOrder[i], st.Provider, "priority order preserved")
		byProvider[st.Provider] = st.Configured
	}
	assert.True(t, byProvider[domain.ProviderApple])
	assert.False(t, byProvider[domain.ProviderOpenAI])
	assert.False(t, byProvider[domain.ProviderOpenRouter])
	assert.True(t, byProvider[domain.ProviderOllama])
}
