package ports

import (
	"context"

	"github.com/calder-ai/relay/internal/core/domain"
)

// Adapter is the contract every provider backend implements.
//
// Adapters never surface errors for the normal "not configured" outcome:
// CreateModel returns nil and TestConnection returns false. Construction-time
// failures are likewise swallowed (logged, then nil) so no exception-style
// control flow crosses the adapter boundary.
type Adapter interface {
	ID() domain.ProviderID
	Metadata() domain.Metadata

	// CreateModel builds a handle from the stored credentials. Construction
	// is synchronous and performs no network I/O.
	CreateModel(modelID string) domain.ModelHandle

	// CreateModelWith builds a handle from explicit credentials, bypassing
	// the credential store. Used by real connection tests with overrides.
	CreateModelWith(creds domain.Credentials, modelID string) domain.ModelHandle

	// IsConfigured reports whether the minimum required credential fields
	// are currently present.
	IsConfigured() bool

	// TestConnection performs a cheap, side-effect-free probe with a short
	// timeout. It returns false on any error, non-2xx response, or timeout.
	TestConnection(ctx context.Context, creds domain.Credentials) bool
}

// CredentialStore is the external secure-storage collaborator. Reads are
// synchronous and side-effect free; the core never writes through it.
type CredentialStore interface {
	ProviderAuth(id domain.ProviderID) domain.Credentials
	IsConfigured(id domain.ProviderID) bool
	DefaultModel(id domain.ProviderID) string
}
