//go:build integration

package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skimzy/skimzy/internal/domain"
)

func keyHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newKey(userID int64, name string, createdAt time.Time) *domain.APIKey {
	return &domain.APIKey{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		KeyHash:   keyHash(name + uuid.NewString()),
		CreatedAt: createdAt.UTC().Truncate(time.Microsecond),
	}
}

func TestAPIKeyRepository_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(ctx, t)
	keyRepo := NewAPIKeyRepository(pool)
	user := setupUser(ctx, t, NewUserRepository(pool))

	key := newKey(user.ID, "laptop", time.Now())
	require.NoError(t, keyRepo.Create(ctx, key))

	byID, err := keyRepo.GetByID(ctx, key.ID)
	require.NoError(t, err)
	assert.Equal(t, key.UserID, byID.UserID)
	assert.Equal(t, key.Name, byID.Name)
	assert.Equal(t, key.KeyHash, byID.KeyHash)
	assert.True(t, key.CreatedAt.Equal(byID.CreatedAt))
	assert.Nil(t, byID.RevokedAt)

	byHash, err := keyRepo.GetByHash(ctx, key.KeyHash)
	require.NoError(t, err)
	assert.Equal(t, key.ID, byHash.ID)

	_, err = keyRepo.GetByHash(ctx, keyHash("unknown"))
	assert.ErrorIs(t, err, domain.ErrAPIKeyNotFound)

	_, err = keyRepo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrAPIKeyNotFound)
}

func TestAPIKeyRepository_Create_Conflicts(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(ctx, t)
	keyRepo := NewAPIKeyRepository(pool)
	user := setupUser(ctx, t, NewUserRepository(pool))

	key := newKey(user.ID, "laptop", time.Now())
	require.NoError(t, keyRepo.Create(ctx, key))

	dup := newKey(user.ID, "desktop", time.Now())
	dup.KeyHash = key.KeyHash
	assert.ErrorIs(t, keyRepo.Create(ctx, dup), domain.ErrAPIKeyAlreadyExists)

	orphan := newKey(999999, "orphan", time.Now())
	err := keyRepo.Create(ctx, orphan)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrAPIKeyAlreadyExists)
}

func TestAPIKeyRepository_ListByUser(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(ctx, t)
	userRepo := NewUserRepository(pool)
	keyRepo := NewAPIKeyRepository(pool)
	owner := setupUser(ctx, t, userRepo)
	other := setupUser(ctx, t, userRepo)

	now := time.Now()
	require.NoError(t, keyRepo.Create(ctx, newKey(owner.ID, "first", now)))
	require.NoError(t, keyRepo.Create(ctx, newKey(owner.ID, "second", now.Add(time.Second))))
	require.NoError(t, keyRepo.Create(ctx, newKey(other.ID, "elsewhere", now)))

	keys, err := keyRepo.ListByUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "second", keys[0].Name)
	assert.Equal(t, "first", keys[1].Name)

	none, err := keyRepo.ListByUser(ctx, owner.ID+other.ID+1)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAPIKeyRepository_Revoke(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(ctx, t)
	keyRepo := NewAPIKeyRepository(pool)
	user := setupUser(ctx, t, NewUserRepository(pool))

	key := newKey(user.ID, "to revoke", time.Now())
	require.NoError(t, keyRepo.Create(ctx, key))
	require.NoError(t, keyRepo.Revoke(ctx, key.ID))

	retrieved, err := keyRepo.GetByID(ctx, key.ID)
	require.NoError(t, err)
	assert.True(t, retrieved.IsRevoked())
	assert.Equal(t, "revoked", retrieved.Status())

	assert.ErrorIs(t, keyRepo.Revoke(ctx, key.ID), domain.ErrAPIKeyNotFound, "second revoke")
	assert.ErrorIs(t, keyRepo.Revoke(ctx, uuid.NewString()), domain.ErrAPIKeyNotFound)
}
