//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skimzy/skimzy/internal/domain"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(ctx, t)
	userRepo := NewUserRepository(pool)

	user := &domain.User{
		Email:     "ada@example.com",
		Name:      "Ada",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, userRepo.Create(ctx, user))
	assert.NotZero(t, user.ID)

	byID, err := userRepo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)
	assert.Equal(t, user.Name, byID.Name)

	byEmail, err := userRepo.GetByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
}

func TestUserRepository_Create_Duplicate(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(ctx, t)
	userRepo := NewUserRepository(pool)

	user := &domain.User{Email: "dup@example.com", CreatedAt: time.Now().UTC()}
	require.NoError(t, userRepo.Create(ctx, user))

	err := userRepo.Create(ctx, &domain.User{Email: "dup@example.com", CreatedAt: time.Now().UTC()})
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(ctx, t)
	userRepo := NewUserRepository(pool)

	_, err := userRepo.GetByID(ctx, 424242)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
