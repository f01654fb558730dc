package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/skimzy/skimzy/internal/domain"
)

const apiKeyPrefix = "skz_"

type UserRepositoryInterface interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type APIKeyRepositoryInterface interface {
	Create(ctx context.Context, key *domain.APIKey) error
	GetByID(ctx context.Context, id string) (*domain.APIKey, error)
	GetByHash(ctx context.Context, hash string) (*domain.APIKey, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.APIKey, error)
	Revoke(ctx context.Context, id string) error
}

type AuthService struct {
	userRepo UserRepositoryInterface
	keyRepo  APIKeyRepositoryInterface
	uuidGen  UUIDGenerator
	tx       TxRunner
}

func NewAuthService(userRepo UserRepositoryInterface, keyRepo APIKeyRepositoryInterface, uuidGen UUIDGenerator) *AuthService {
	if uuidGen == nil {
		uuidGen = &DefaultUUIDGenerator{}
	}
	return &AuthService{
		userRepo: userRepo,
		keyRepo:  keyRepo,
		uuidGen:  uuidGen,
	}
}

// WithTxRunner makes Signup create the user and its first key in one
// transaction.
func (s *AuthService) WithTxRunner(tx TxRunner) *AuthService {
	s.tx = tx
	return s
}

func (s *AuthService) CreateUser(ctx context.Context, email, name string) (*domain.User, error) {
	return s.createUser(ctx, s.userRepo, email, name)
}

func (s *AuthService) createUser(ctx context.Context, users UserRepositoryInterface, email, name string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "email is required")
	}

	user := &domain.User{
		Email:     email,
		Name:      strings.TrimSpace(name),
		CreatedAt: time.Now().UTC(),
	}
	if err := domain.ValidateUser(user); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid user", err)
	}

	if err := users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Signup creates a user together with a first API key and returns the key's
// plaintext token. The token is not stored and cannot be recovered. With a
// TxRunner set, a failed key insert leaves no user behind.
func (s *AuthService) Signup(ctx context.Context, email, name string) (*domain.User, string, error) {
	token, err := generateAPIToken()
	if err != nil {
		return nil, "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate API key", err)
	}

	var user *domain.User
	signup := func(users UserRepositoryInterface, keys APIKeyRepositoryInterface) error {
		created, err := s.createUser(ctx, users, email, name)
		if err != nil {
			return err
		}
		if err := s.createAPIKey(ctx, users, keys, created.ID, "default", token); err != nil {
			return err
		}
		user = created
		return nil
	}

	if s.tx == nil {
		err = signup(s.userRepo, s.keyRepo)
	} else {
		err = s.tx.WithTx(ctx, func(repos TxRepositories) error {
			return signup(repos.Users(), repos.APIKeys())
		})
	}
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "email is required")
	}
	return s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
}

func (s *AuthService) CreateAPIKey(ctx context.Context, userID int64, name string) (string, error) {
	token, err := generateAPIToken()
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate API key", err)
	}

	if err := s.CreateAPIKeyWithToken(ctx, userID, name, token); err != nil {
		return "", err
	}
	return token, nil
}

func (s *AuthService) CreateAPIKeyWithToken(ctx context.Context, userID int64, name, token string) error {
	return s.createAPIKey(ctx, s.userRepo, s.keyRepo, userID, name, token)
}

func (s *AuthService) createAPIKey(ctx context.Context, users UserRepositoryInterface, keys APIKeyRepositoryInterface, userID int64, name, token string) error {
	if userID <= 0 {
		return domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}
	if name == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "API key name is required")
	}
	if !IsValidAPIToken(token) {
		return domain.NewDomainError(domain.ErrCodeValidation, "invalid API key format (expected skz_<64 hex chars>)")
	}

	if _, err := users.GetByID(ctx, userID); err != nil {
		return err
	}

	key := &domain.APIKey{
		ID:        s.uuidGen.NewString(),
		UserID:    userID,
		Name:      name,
		KeyHash:   hashToken(token),
		CreatedAt: time.Now().UTC(),
	}
	if err := domain.ValidateAPIKey(key); err != nil {
		return err
	}

	return keys.Create(ctx, key)
}

// Bootstrap makes sure a user with email exists and, when token is set, owns
// that API key. It is safe to call on every startup.
func (s *AuthService) Bootstrap(ctx context.Context, email, token string) (*domain.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		user, err = s.CreateUser(ctx, email, "")
	}
	if err != nil {
		return nil, err
	}

	if token == "" {
		return user, nil
	}
	if !IsValidAPIToken(token) {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid API key format (expected skz_<64 hex chars>)")
	}

	existing, err := s.keyRepo.GetByHash(ctx, hashToken(token))
	switch {
	case err == nil:
		if existing.UserID != user.ID {
			return nil, domain.ErrAPIKeyAlreadyExists
		}
		return user, nil
	case !errors.Is(err, domain.ErrAPIKeyNotFound):
		return nil, err
	}

	if err := s.CreateAPIKeyWithToken(ctx, user.ID, "bootstrap", token); err != nil {
		return nil, err
	}
	return user, nil
}

// ValidateAPIKey returns the ID of the user owning token.
func (s *AuthService) ValidateAPIKey(ctx context.Context, token string) (int64, error) {
	if !IsValidAPIToken(token) {
		return 0, domain.ErrInvalidAPIKey
	}

	key, err := s.keyRepo.GetByHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrAPIKeyNotFound) {
			return 0, domain.ErrInvalidAPIKey
		}
		return 0, err
	}

	if key.IsRevoked() {
		return 0, domain.ErrAPIKeyRevoked
	}

	return key.UserID, nil
}

func (s *AuthService) RevokeAPIKey(ctx context.Context, keyID string) error {
	if keyID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "API key ID is required")
	}
	return s.keyRepo.Revoke(ctx, keyID)
}

func (s *AuthService) ListAPIKeys(ctx context.Context, userID int64) ([]*domain.APIKey, error) {
	if userID <= 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}
	return s.keyRepo.ListByUser(ctx, userID)
}

func generateAPIToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(bytes), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func IsValidAPIToken(token string) bool {
	if !strings.HasPrefix(token, apiKeyPrefix) {
		return false
	}
	hexPart := token[len(apiKeyPrefix):]
	if len(hexPart) != 64 {
		return false
	}
	for _, c := range hexPart {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
