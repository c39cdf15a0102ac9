// Package store defines the persistence ports for the gateway. The only
// durable data is the fallback attempt history used for diagnostics; model
// handles and credentials are never persisted.
package store

import (
	"context"

	"github.com/calder-ai/relay/internal/store/model"
)

// Repository is the storage entry point.
type Repository interface {
	Attempts() AttemptRepository
	Close() error
}

// AttemptRepository records and queries fallback chain runs.
type AttemptRepository interface {
	Record(ctx context.Context, a *model.Attempt) error
	Recent(ctx context.Context, limit int) ([]model.Attempt, error)
}
