package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/calder-ai/relay/internal/store"
	"github.com/calder-ai/relay/internal/store/model"
)

// Repository implements store.Repository on sqlite.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Attempts() store.AttemptRepository {
	return &attemptRepo{db: r.db}
}

type attemptRepo struct {
	db *sqlx.DB
}

func (r *attemptRepo) Record(ctx context.Context, a *model.Attempt) error {
	query := `
	INSERT INTO attempts (
		id, preferred_provider, preferred_model,
		chosen_provider, chosen_model, is_original,
		attempted, error, latency_ms, created_at
	) VALUES (
		:id, :preferred_provider, :preferred_model,
		:chosen_provider, :chosen_model, :is_original,
		:attempted, :error, :latency_ms, :created_at
	)`
	_, err := r.db.NamedExecContext(ctx, query, a)
	return err
}

func (r *attemptRepo) Recent(ctx context.Context, limit int) ([]model.Attempt, error) {
	if limit <= 0 {
		limit = 50
	}
	attempts := make([]model.Attempt, 0, limit)
	err := r.db.SelectContext(ctx, &attempts,
		`SELECT * FROM attempts ORDER BY created_at DESC, id LIMIT ?`, limit)
	return attempts, err
}
