package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/calder-ai/relay/internal/core/domain"
	"github.com/calder-ai/relay/internal/core/ports"
	"github.com/calder-ai/relay/internal/store"
	"github.com/calder-ai/relay/internal/store/model"
)

// terminalError is the only "fatal" outcome of a fallback run. It is data,
// not an exception; the caller decides whether to surface it.
const terminalError = "No configured providers available"

// Chain walks the fixed provider priority order when a preferred provider
// fails. Each run is ephemeral: no state is carried between calls.
type Chain struct {
	factory *Factory
	creds   ports.CredentialStore
	repo    store.Repository // optional; attempt history for diagnostics
	log     *zap.Logger
}

func NewChain(factory *Factory, creds ports.CredentialStore, repo store.Repository, log *zap.Logger) *Chain {
	return &Chain{
		factory: factory,
		creds:   creds,
		repo:    repo,
		log:     log,
	}
}

// GetModelWithFallback resolves a working model handle, preferring the given
// provider+model, then walking the fixed fallback order. Fallback candidates
// always use their own default model: the originally requested id may be
// meaningless on a different backend.
//
// Attempted lists only providers for which resolution was actually invoked;
// candidates skipped by the availability pre-check are not counted.
func (c *Chain) GetModelWithFallback(ctx context.Context, preferred domain.ProviderID, preferredModel string, exclude []domain.ProviderID) domain.FallbackResult {
	start := time.Now()
	result := c.run(preferred, preferredModel, exclude)
	c.recordAttempt(preferred, preferredModel, result, time.Since(start))
	return result
}

func (c *Chain) run(preferred domain.ProviderID, preferredModel string, exclude []domain.ProviderID) domain.FallbackResult {
	excluded := make(map[domain.ProviderID]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	var attempted []domain.ProviderID
	tried := make(map[domain.ProviderID]bool)

	if !excluded[preferred] {
		attempted = append(attempted, preferred)
		tried[preferred] = true

		res := c.factory.GetProviderModel(preferred, preferredModel)
		if res.Model != nil && res.Configured {
			return domain.FallbackResult{
				Model:      res.Model,
				Provider:   preferred,
				ModelID:    res.Model.ModelID(),
				IsOriginal: true,
				Attempted:  attempted,
			}
		}

		c.log.Warn("preferred provider unavailable, walking fallback chain",
			zap.String("provider", string(preferred)),
			zap.String("model", preferredModel),
			zap.String("reason", res.Err),
		)
	}

	for _, candidate := range domain.FallbackOrder {
		if candidate == preferred || excluded[candidate] || tried[candidate] {
			continue
		}
		// Skip silently: no point constructing an adapter call for a
		// provider that reports itself unconfigured.
		if !c.factory.IsProviderAvailable(candidate) {
			continue
		}

		attempted = append(attempted, candidate)
		tried[candidate] = true

		modelID := c.creds.DefaultModel(candidate)
		res := c.factory.GetProviderModel(candidate, modelID)
		if res.Model != nil && res.Configured {
			reason := fmt.Sprintf("%s unavailable, using %s", preferred, candidate)
			c.log.Info("fallback provider selected",
				zap.String("from", string(preferred)),
				zap.String("to", string(candidate)),
				zap.String("model", res.Model.ModelID()),
			)
			return domain.FallbackResult{
				Model:          res.Model,
				Provider:       candidate,
				ModelID:        res.Model.ModelID(),
				IsOriginal:     false,
				FallbackReason: reason,
				Attempted:      attempted,
			}
		}
	}

	return domain.FallbackResult{
		Provider:   preferred,
		ModelID:    preferredModel,
		IsOriginal: true,
		Attempted:  attempted,
		Error:      terminalError,
	}
}

// NextFallbackProvider picks the provider to switch to after an error on the
// current one. A nil result with a retryable classification means the caller
// should retry the same provider rather than switch.
func (c *Chain) NextFallbackProvider(current domain.ProviderID, failed []domain.ProviderID, err error) *domain.ProviderModel {
	classification := Classify(err)
	if !classification.ShouldFallback {
		return nil
	}

	failedSet := make(map[domain.ProviderID]bool, len(failed))
	for _, id := range failed {
		failedSet[id] = true
	}

	for _, candidate := range domain.FallbackOrder {
		if candidate == current || failedSet[candidate] {
			continue
		}
		if !c.factory.IsProviderAvailable(candidate) {
			continue
		}
		return &domain.ProviderModel{
			Provider: candidate,
			Model:    c.creds.DefaultModel(candidate),
		}
	}
	return nil
}

// HasFallbackAvailable reports whether any provider beyond current and the
// already-failed set could still be tried.
func (c *Chain) HasFallbackAvailable(current domain.ProviderID, failed []domain.ProviderID) bool {
	failedSet := make(map[domain.ProviderID]bool, len(failed))
	for _, id := range failed {
		failedSet[id] = true
	}

	for _, candidate := range domain.FallbackOrder {
		if candidate == current || failedSet[candidate] {
			continue
		}
		if c.factory.IsProviderAvailable(candidate) {
			return true
		}
	}
	return false
}

// AvailableProviders returns a priority-ordered availability snapshot. Pure
// read, no side effects; meant for display.
func (c *Chain) AvailableProviders() []domain.ProviderStatus {
	statuses := make([]domain.ProviderStatus, 0, len(domain.FallbackOrder))
	for _, id := range domain.FallbackOrder {
		statuses = append(statuses, domain.ProviderStatus{
			Provider:   id,
			Configured: c.factory.IsProviderAvailable(id),
		})
	}
	return statuses
}

// recordAttempt persists the run asynchronously so the resolution hot path
// never waits on the database.
func (c *Chain) recordAttempt(preferred domain.ProviderID, preferredModel string, result domain.FallbackResult, latency time.Duration) {
	if c.repo == nil {
		return
	}

	attempted := make([]string, 0, len(result.Attempted))
	for _, id := range result.Attempted {
		attempted = append(attempted, string(id))
	}

	chosenProvider := ""
	chosenModel := ""
	if result.Model != nil {
		chosenProvider = string(result.Provider)
		chosenModel = result.ModelID
	}

	attempt := &model.Attempt{
		ID:                uuid.NewString(),
		PreferredProvider: string(preferred),
		PreferredModel:    preferredModel,
		ChosenProvider:    chosenProvider,
		ChosenModel:       chosenModel,
		IsOriginal:        result.IsOriginal,
		Attempted:         strings.Join(attempted, ","),
		Error:             result.Error,
		LatencyMs:         latency.Milliseconds(),
		CreatedAt:         time.Now().UTC(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.repo.Attempts().Record(ctx, attempt); err != nil {
			c.log.Warn("failed to record fallback attempt", zap.Error(err))
		}
	}()
}
