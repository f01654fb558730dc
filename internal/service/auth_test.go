package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/skimzy/skimzy/internal/domain"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type MockAPIKeyRepository struct {
	mock.Mock
}

func (m *MockAPIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockAPIKeyRepository) GetByID(ctx context.Context, id string) (*domain.APIKey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) GetByHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.APIKey, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) Revoke(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

const validToken = "skz_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func testUser() *domain.User {
	return &domain.User{ID: 7, Email: "ada@example.com", Name: "Ada", CreatedAt: time.Now().UTC()}
}

func TestAuthService_CreateUser(t *testing.T) {
	ctx := context.Background()
	mockUserRepo := new(MockUserRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)

	mockUserRepo.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "ada@example.com" && u.Name == "Ada"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.User).ID = 7
	}).Return(nil)

	service := NewAuthService(mockUserRepo, mockAPIKeyRepo, NewMockUUIDGenerator())
	user, err := service.CreateUser(ctx, " ada@example.com ", "Ada")

	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_CreateUser_InvalidEmail(t *testing.T) {
	ctx := context.Background()
	service := NewAuthService(new(MockUserRepository), new(MockAPIKeyRepository), NewMockUUIDGenerator())

	_, err := service.CreateUser(ctx, "", "Ada")
	assert.Equal(t, domain.ErrCodeValidation, domain.ErrorCode(err))

	_, err = service.CreateUser(ctx, "not-an-email", "Ada")
	assert.Equal(t, domain.ErrCodeValidation, domain.ErrorCode(err))
}

func TestAuthService_CreateUser_Duplicate(t *testing.T) {
	ctx := context.Background()
	mockUserRepo := new(MockUserRepository)
	mockUserRepo.On("Create", ctx, mock.Anything).Return(domain.ErrUserAlreadyExists)

	service := NewAuthService(mockUserRepo, new(MockAPIKeyRepository), NewMockUUIDGenerator())
	_, err := service.CreateUser(ctx, "ada@example.com", "Ada")

	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
}

func TestAuthService_Signup(t *testing.T) {
	ctx := context.Background()
	mockUserRepo := new(MockUserRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)

	mockUserRepo.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.User).ID = 7
	}).Return(nil)
	mockUserRepo.On("GetByID", ctx, int64(7)).Return(testUser(), nil)
	mockAPIKeyRepo.On("Create", ctx, mock.MatchedBy(func(key *domain.APIKey) bool {
		return key.ID == "key-1" && key.UserID == 7 && key.Name == "default"
	})).Return(nil)

	service := NewAuthService(mockUserRepo, mockAPIKeyRepo, NewMockUUIDGenerator("key-1"))
	user, token, err := service.Signup(ctx, "ada@example.com", "Ada")

	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.True(t, IsValidAPIToken(token))
	mockAPIKeyRepo.AssertExpectations(t)
}

func TestAuthService_Signup_RunsInOneTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("key failure fails the unit of work", func(t *testing.T) {
		poolUsers := new(MockUserRepository)
		poolKeys := new(MockAPIKeyRepository)
		txUsers := new(MockUserRepository)
		txKeys := new(MockAPIKeyRepository)
		tx := &inlineTx{users: txUsers, keys: txKeys}

		txUsers.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.User).ID = 7
		}).Return(nil)
		txUsers.On("GetByID", ctx, int64(7)).Return(testUser(), nil)
		txKeys.On("Create", ctx, mock.Anything).Return(errors.New("connection reset"))

		svc := NewAuthService(poolUsers, poolKeys, NewMockUUIDGenerator("key-1")).WithTxRunner(tx)
		user, token, err := svc.Signup(ctx, "ada@example.com", "Ada")

		require.Error(t, err)
		assert.Nil(t, user)
		assert.Empty(t, token)
		assert.Equal(t, 1, tx.runs)
		poolUsers.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		poolKeys.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("success writes through the transaction", func(t *testing.T) {
		txUsers := new(MockUserRepository)
		txKeys := new(MockAPIKeyRepository)
		tx := &inlineTx{users: txUsers, keys: txKeys}

		txUsers.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.User).ID = 7
		}).Return(nil)
		txUsers.On("GetByID", ctx, int64(7)).Return(testUser(), nil)
		txKeys.On("Create", ctx, mock.MatchedBy(func(key *domain.APIKey) bool {
			return key.UserID == 7 && key.Name == "default"
		})).Return(nil)

		svc := NewAuthService(new(MockUserRepository), new(MockAPIKeyRepository), NewMockUUIDGenerator("key-1")).WithTxRunner(tx)
		user, token, err := svc.Signup(ctx, "ada@example.com", "Ada")

		require.NoError(t, err)
		assert.Equal(t, int64(7), user.ID)
		assert.True(t, IsValidAPIToken(token))
		assert.Equal(t, 1, tx.runs)
		txKeys.AssertExpectations(t)
	})
}

func TestAuthService_CreateAPIKey_GeneratesSkzToken(t *testing.T) {
	ctx := context.Background()
	mockUserRepo := new(MockUserRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)

	mockUserRepo.On("GetByID", ctx, int64(7)).Return(testUser(), nil)

	var capturedKey *domain.APIKey
	mockAPIKeyRepo.On("Create", ctx, mock.MatchedBy(func(key *domain.APIKey) bool {
		capturedKey = key
		return key.ID == "key-123" && len(key.KeyHash) == 64
	})).Return(nil)

	service := NewAuthService(mockUserRepo, mockAPIKeyRepo, NewMockUUIDGenerator("key-123"))
	token, err := service.CreateAPIKey(ctx, 7, "laptop")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "skz_"), "token should start with skz_")
	assert.Equal(t, 68, len(token), "token should be skz_ + 64 hex chars")
	require.NotNil(t, capturedKey)
	assert.NotEqual(t, token, capturedKey.KeyHash)
	mockAPIKeyRepo.AssertExpectations(t)
}

func TestAuthService_CreateAPIKey_UnknownUser(t *testing.T) {
	ctx := context.Background()
	mockUserRepo := new(MockUserRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)

	mockUserRepo.On("GetByID", ctx, int64(9)).Return(nil, domain.ErrUserNotFound)

	service := NewAuthService(mockUserRepo, mockAPIKeyRepo, NewMockUUIDGenerator())
	_, err := service.CreateAPIKey(ctx, 9, "laptop")

	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	mockAPIKeyRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_CreateAPIKey_Validation(t *testing.T) {
	ctx := context.Background()
	service := NewAuthService(new(MockUserRepository), new(MockAPIKeyRepository), NewMockUUIDGenerator())

	_, err := service.CreateAPIKey(ctx, 0, "laptop")
	assert.Equal(t, domain.ErrCodeValidation, domain.ErrorCode(err))

	_, err = service.CreateAPIKey(ctx, 7, "")
	assert.Equal(t, domain.ErrCodeValidation, domain.ErrorCode(err))

	err = service.CreateAPIKeyWithToken(ctx, 7, "laptop", "invalid-token")
	assert.Equal(t, domain.ErrCodeValidation, domain.ErrorCode(err))
}

func TestAuthService_CreateAPIKeyWithToken(t *testing.T) {
	ctx := context.Background()
	mockUserRepo := new(MockUserRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)

	mockUserRepo.On("GetByID", ctx, int64(7)).Return(testUser(), nil)
	mockAPIKeyRepo.On("Create", ctx, mock.MatchedBy(func(key *domain.APIKey) bool {
		return key.UserID == 7 && key.Name == "bootstrap" && key.KeyHash == hashToken(validToken)
	})).Return(nil)

	service := NewAuthService(mockUserRepo, mockAPIKeyRepo, NewMockUUIDGenerator("key-1"))
	err := service.CreateAPIKeyWithToken(ctx, 7, "bootstrap", validToken)

	require.NoError(t, err)
	mockAPIKeyRepo.AssertExpectations(t)
}

func TestAuthService_Bootstrap_CreatesUserAndKey(t *testing.T) {
	ctx := context.Background()
	mockUserRepo := new(MockUserRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)

	mockUserRepo.On("GetByEmail", ctx, "ada@example.com").Return(nil, domain.ErrUserNotFound)
	mockUserRepo.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.User).ID = 7
	}).Return(nil)
	mockUserRepo.On("GetByID", ctx, int64(7)).Return(testUser(), nil)
	mockAPIKeyRepo.On("GetByHash", ctx, hashToken(validToken)).Return(nil, domain.ErrAPIKeyNotFound)
	mockAPIKeyRepo.On("Create", ctx, mock.MatchedBy(func(key *domain.APIKey) bool {
		return key.UserID == 7 && key.Name == "bootstrap"
	})).Return(nil)

	service := NewAuthService(mockUserRepo, mockAPIKeyRepo, NewMockUUIDGenerator("key-1"))
	user, err := service.Bootstrap(ctx, "ada@example.com", validToken)

	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	mockUserRepo.AssertExpectations(t)
	mockAPIKeyRepo.AssertExpectations(t)
}

func TestAuthService_Bootstrap_Idempotent(t *testing.T) {
	ctx := context.Background()
	mockUserRepo := new(MockUserRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)

	mockUserRepo.On("GetByEmail", ctx, "ada@example.com").Return(testUser(), nil)
	mockAPIKeyRepo.On("GetByHash", ctx, hashToken(validToken)).Return(&domain.APIKey{ID: "key-1", UserID: 7}, nil)

	service := NewAuthService(mockUserRepo, mockAPIKeyRepo, NewMockUUIDGenerator())
	user, err := service.Bootstrap(ctx, "ada@example.com", validToken)

	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	mockUserRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockAPIKeyRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_Bootstrap_KeyOwnedByOtherUser(t *testing.T) {
	ctx := context.Background()
	mockUserRepo := new(MockUserRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)

	mockUserRepo.On("GetByEmail", ctx, "ada@example.com").Return(testUser(), nil)
	mockAPIKeyRepo.On("GetByHash", ctx, hashToken(validToken)).Return(&domain.APIKey{ID: "key-1", UserID: 99}, nil)

	service := NewAuthService(mockUserRepo, mockAPIKeyRepo, NewMockUUIDGenerator())
	_, err := service.Bootstrap(ctx, "ada@example.com", validToken)

	assert.ErrorIs(t, err, domain.ErrAPIKeyAlreadyExists)
}

func TestAuthService_Bootstrap_InvalidToken(t *testing.T) {
	ctx := context.Background()
	mockUserRepo := new(MockUserRepository)

	mockUserRepo.On("GetByEmail", ctx, "ada@example.com").Return(testUser(), nil)

	service := NewAuthService(mockUserRepo, new(MockAPIKeyRepository), NewMockUUIDGenerator())
	_, err := service.Bootstrap(ctx, "ada@example.com", "key_short")

	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeValidation, domain.ErrorCode(err))
}

func TestAuthService_ValidateAPIKey(t *testing.T) {
	ctx := context.Background()
	revokedAt := time.Now().UTC()

	tests := []struct {
		name    string
		token   string
		key     *domain.APIKey
		repoErr error
		wantID  int64
		wantErr error
	}{
		{
			name:   "valid token",
			token:  validToken,
			key:    &domain.APIKey{ID: "k", UserID: 7, Name: "n", KeyHash: hashToken(validToken)},
			wantID: 7,
		},
		{
			name:    "malformed token",
			token:   "invalid-token",
			wantErr: domain.ErrInvalidAPIKey,
		},
		{
			name:    "unknown token",
			token:   validToken,
			repoErr: domain.ErrAPIKeyNotFound,
			wantErr: domain.ErrInvalidAPIKey,
		},
		{
			name:    "revoked key",
			token:   validToken,
			key:     &domain.APIKey{ID: "k", UserID: 7, Name: "n", KeyHash: hashToken(validToken), RevokedAt: &revokedAt},
			wantErr: domain.ErrAPIKeyRevoked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAPIKeyRepo := new(MockAPIKeyRepository)
			if tt.key != nil || tt.repoErr != nil {
				var key any
				if tt.key != nil {
					key = tt.key
				}
				mockAPIKeyRepo.On("GetByHash", ctx, hashToken(tt.token)).Return(key, tt.repoErr)
			}

			service := NewAuthService(new(MockUserRepository), mockAPIKeyRepo, NewMockUUIDGenerator())
			userID, err := service.ValidateAPIKey(ctx, tt.token)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, userID)
		})
	}
}

func TestAuthService_RevokeAPIKey(t *testing.T) {
	ctx := context.Background()
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockAPIKeyRepo.On("Revoke", ctx, "key-123").Return(nil)
	mockAPIKeyRepo.On("Revoke", ctx, "missing").Return(domain.ErrAPIKeyNotFound)

	service := NewAuthService(new(MockUserRepository), mockAPIKeyRepo, NewMockUUIDGenerator())

	assert.NoError(t, service.RevokeAPIKey(ctx, "key-123"))
	assert.ErrorIs(t, service.RevokeAPIKey(ctx, "missing"), domain.ErrAPIKeyNotFound)
	assert.Equal(t, domain.ErrCodeValidation, domain.ErrorCode(service.RevokeAPIKey(ctx, "")))
}

func TestAuthService_ListAPIKeys(t *testing.T) {
	ctx := context.Background()
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	keys := []*domain.APIKey{{ID: "a", UserID: 7}, {ID: "b", UserID: 7}}
	mockAPIKeyRepo.On("ListByUser", ctx, int64(7)).Return(keys, nil)

	service := NewAuthService(new(MockUserRepository), mockAPIKeyRepo, NewMockUUIDGenerator())
	got, err := service.ListAPIKeys(ctx, 7)

	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = service.ListAPIKeys(ctx, 0)
	assert.Equal(t, domain.ErrCodeValidation, domain.ErrorCode(err))
}

func TestIsValidAPIToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"valid token", validToken, true},
		{"valid uppercase", "skz_0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF", true},
		{"missing prefix", "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", false},
		{"wrong prefix", "key_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", false},
		{"too short", "skz_0123456789abcdef", false},
		{"too long", validToken + "00", false},
		{"invalid chars", "skz_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdeg", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidAPIToken(tt.token))
		})
	}
}
