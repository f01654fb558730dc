//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/skimzy/skimzy/internal/domain"
	"github.com/skimzy/skimzy/internal/testutil"
)

func newTestPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	pc := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { _ = pc.Terminate(context.Background()) })

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	t.Cleanup(pool.Close)
	return pool
}

func setupUser(ctx context.Context, t *testing.T, userRepo *UserRepository) *domain.User {
	t.Helper()
	user := &domain.User{
		Email:     fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		Name:      "Test User",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, userRepo.Create(ctx, user))
	return user
}

func setupLibraryItem(ctx context.Context, t *testing.T, itemRepo *LibraryItemRepository, userID int64, createdAt time.Time) *domain.LibraryItem {
	t.Helper()
	material := &domain.StudyMaterial{
		Title:   "The Sun",
		Summary: "The sun is a star.",
		Flashcards: []domain.Flashcard{
			{Question: "What is the sun?", Answer: "A star"},
		},
		MCQs: []domain.MCQ{
			{Question: "The sun is a?", Options: []string{"Planet", "Star", "Moon", "Comet"}, Answer: "Star"},
		},
	}
	item := domain.NewLibraryItem(userID, "https://example.com/sun", domain.ContentTypeURL, material, "The sun is a star.", createdAt)
	require.NoError(t, itemRepo.Create(ctx, item))
	return item
}
