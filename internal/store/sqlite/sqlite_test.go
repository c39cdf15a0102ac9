package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder-ai/relay/internal/store/model"
)

func openTestStore(t *testing.T) *Repository {
	t.Helper()

	repo, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo.(*Repository)
}

func TestRecordAndRecent(t *testing.T) {
	repo := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a1", "a2", "a3"} {
		err := repo.Attempts().Record(ctx, &model.Attempt{
			ID:                id,
			PreferredProvider: "openai",
			PreferredModel:    "gpt-4o",
			ChosenProvider:    "apple",
			ChosenModel:       "apple-on-device",
			IsOriginal:        false,
			Attempted:         "openai,apple",
			LatencyMs:         int64(10 + i),
			CreatedAt:         base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	attempts, err := repo.Attempts().Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, attempts, 2)

	// Newest first.
	assert.Equal(t, "a3", attempts[0].ID)
	assert.Equal(t, "a2", attempts[1].ID)
	assert.Equal(t, "openai,apple", attempts[0].Attempted)
	assert.False(t, attempts[0].IsOriginal)
}

func TestRecentDefaultLimit(t *testing.T) {
	repo := openTestStore(t)

	attempts, err := repo.Attempts().Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, attempts)
}

func TestRecordExhaustedRun(t *testing.T) {
	repo := openTestStore(t)
	ctx := context.Background()

	err := repo.Attempts().Record(ctx, &model.Attempt{
		ID:                "exhausted-1",
		PreferredProvider: "openai",
		PreferredModel:    "gpt-4o",
		IsOriginal:        true,
		Attempted:         "openai",
		Error:             "No configured providers available",
		LatencyMs:         3,
		CreatedAt:         time.Now().UTC(),
	})
	require.NoError(t, err)

	attempts, err := repo.Attempts().Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Empty(t, attempts[0].ChosenProvider)
	assert.Equal(t, "No configured providers available", attempts[0].Error)
}
