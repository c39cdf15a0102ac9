package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/calder-ai/relay/internal/core/domain"
	"github.com/calder-ai/relay/internal/core/ports"
	"github.com/calder-ai/relay/internal/modelcache"
)

const (
	// DefaultRealTestTimeout bounds the heavyweight connection test, which
	// makes one real generation round trip.
	DefaultRealTestTimeout = 15 * time.Second

	// connectivityPrompt is the minimal generation request used by real
	// connection tests. The reply content is ignored; only the round trip
	// matters.
	connectivityPrompt = "Reply with exactly: OK"
)

var errProviderNotConfigured = errors.New("provider not configured")

var tracer = otel.Tracer("relay/providers")

// Factory resolves working model handles for providers, composing the
// adapter set with the model cache. It never panics and never returns Go
// errors to callers: outcomes are value types.
type Factory struct {
	adapters map[domain.ProviderID]ports.Adapter
	creds    ports.CredentialStore
	cache    *modelcache.Cache
	log      *zap.Logger
}

func NewFactory(adapters map[domain.ProviderID]ports.Adapter, creds ports.CredentialStore, cache *modelcache.Cache, log *zap.Logger) *Factory {
	return &Factory{
		adapters: adapters,
		creds:    creds,
		cache:    cache,
		log:      log,
	}
}

// Adapter exposes the underlying adapter for a provider.
func (f *Factory) Adapter(id domain.ProviderID) (ports.Adapter, bool) {
	a, ok := f.adapters[id]
	return a, ok
}

// GetProviderModel resolves a handle for provider+model, consulting the
// cache for remote providers. Configured always reflects the provider's
// current credentials: a handle cached before a credential change is never
// reported as configured once the check fails.
func (f *Factory) GetProviderModel(id domain.ProviderID, modelID string) domain.ModelResult {
	adapter, ok := f.adapters[id]
	if !ok {
		return domain.ModelResult{Err: "unknown provider: " + string(id)}
	}

	if modelID == "" {
		modelID = f.creds.DefaultModel(id)
	}

	configured := adapter.IsConfigured()

	// Apple handles carry no credentials that could go stale, so they are
	// constructed fresh on every call and never cached.
	if id == domain.ProviderApple {
		handle := adapter.CreateModel(modelID)
		res := domain.ModelResult{Model: handle, Configured: configured}
		if handle == nil {
			res.Err = errProviderNotConfigured.Error()
		}
		return res
	}

	handle, err := f.cache.GetOrCreate(id, modelID, func() (domain.ModelHandle, error) {
		h := adapter.CreateModel(modelID)
		if h == nil {
			return nil, errProviderNotConfigured
		}
		return h, nil
	})

	res := domain.ModelResult{Model: handle, Configured: configured}
	if err != nil {
		res.Err = err.Error()
	}
	return res
}

// IsProviderAvailable reports whether a provider can be attempted at all.
func (f *Factory) IsProviderAvailable(id domain.ProviderID) bool {
	adapter, ok := f.adapters[id]
	if !ok {
		return false
	}
	return adapter.IsConfigured()
}

// TestProviderConnection is the lightweight probe: no generation, just a
// cheap endpoint round trip through the adapter.
func (f *Factory) TestProviderConnection(ctx context.Context, id domain.ProviderID, creds domain.Credentials) bool {
	adapter, ok := f.adapters[id]
	if !ok {
		return false
	}
	return adapter.TestConnection(ctx, creds)
}

// TestProviderConnectionReal constructs a handle (from override credentials
// when given, else stored ones) and issues one real minimal generation call
// bounded by timeout. Latency is wall-clock and measured regardless of
// outcome.
func (f *Factory) TestProviderConnectionReal(ctx context.Context, id domain.ProviderID, override *domain.Credentials, timeout time.Duration) domain.ConnectionTestResult {
	if timeout <= 0 {
		timeout = DefaultRealTestTimeout
	}

	ctx, span := tracer.Start(ctx, "provider.test_real")
	span.SetAttributes(attribute.String("provider", string(id)))
	defer span.End()

	adapter, ok := f.adapters[id]
	if !ok {
		return domain.ConnectionTestResult{
			Success:   false,
			Error:     "unknown provider: " + string(id),
			ErrorKind: domain.ErrorKindUnknown,
		}
	}

	creds := f.creds.ProviderAuth(id)
	if override != nil {
		creds = *override
	}

	start := time.Now()

	handle := adapter.CreateModelWith(creds, "")
	if handle == nil {
		return domain.ConnectionTestResult{
			Success:   false,
			Latency:   time.Since(start),
			Error:     errProviderNotConfigured.Error(),
			ErrorKind: domain.ErrorKindAuth,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := handle.Generate(ctx, connectivityPrompt)
	latency := time.Since(start)

	if err != nil {
		kind := classifyTestError(err)
		f.log.Debug("real connection test failed",
			zap.String("provider", string(id)),
			zap.String("kind", string(kind)),
			zap.Duration("latency", latency),
			zap.Error(err),
		)
		return domain.ConnectionTestResult{
			Success:   false,
			Latency:   latency,
			Error:     err.Error(),
			ErrorKind: kind,
		}
	}

	return domain.ConnectionTestResult{Success: true, Latency: latency}
}

// TestAllProviders real-tests every configured provider concurrently. The
// checks are independent read-only probes, so no ordering is guaranteed.
// Unconfigured providers get a placeholder without any network cost.
func (f *Factory) TestAllProviders(ctx context.Context, timeout time.Duration) map[domain.ProviderID]domain.ConnectionTestResult {
	results := make(map[domain.ProviderID]domain.ConnectionTestResult, len(domain.FallbackOrder))
	var mu sync.Mutex

	// Placeholders are written before any goroutine starts; once the group
	// is running, every write to results goes through mu.
	var toTest []domain.ProviderID
	for _, id := range domain.FallbackOrder {
		if !f.IsProviderAvailable(id) {
			results[id] = domain.ConnectionTestResult{Success: false, Error: "not tested"}
			continue
		}
		toTest = append(toTest, id)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, id := range toTest {
		g.Go(func() error {
			res := f.TestProviderConnectionReal(ctx, id, nil, timeout)
			mu.Lock()
			results[id] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// BestAvailableProvider picks a provider to use right now. Apple wins
// outright when available: on-device, no network, no latency. Otherwise the
// first configured provider to pass a real test wins. When every health
// check fails the first configured provider is still returned: callers get
// a provider whenever one is nominally configured, and only a fully
// unconfigured system yields none.
func (f *Factory) BestAvailableProvider(ctx context.Context, timeout time.Duration) (domain.ProviderID, bool) {
	if f.IsProviderAvailable(domain.ProviderApple) {
		return domain.ProviderApple, true
	}

	var configured []domain.ProviderID
	for _, id := range domain.FallbackOrder {
		if f.IsProviderAvailable(id) {
			configured = append(configured, id)
		}
	}
	if len(configured) == 0 {
		return "", false
	}

	for _, id := range configured {
		if res := f.TestProviderConnectionReal(ctx, id, nil, timeout); res.Success {
			return id, true
		}
	}

	f.log.Warn("no provider passed the health check, degrading to first configured",
		zap.String("provider", string(configured[0])),
	)
	return configured[0], true
}

// InvalidateProvider drops cached handles for a provider. Call it whenever
// that provider's stored credentials change.
func (f *Factory) InvalidateProvider(id domain.ProviderID) {
	f.cache.InvalidateProvider(id)
	f.log.Info("provider cache invalidated", zap.String("provider", string(id)))
}
