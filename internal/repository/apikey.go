package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skimzy/skimzy/internal/domain"
)

// apiKeyColumns follows the field order of domain.APIKey, which lets rows be
// collected by position.
const apiKeyColumns = `id, user_id, name, key_hash, created_at, revoked_at`

type APIKeyRepository struct {
	db dbtx
}

func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{db: pool}
}

func NewAPIKeyRepositoryWithTx(tx pgx.Tx) *APIKeyRepository {
	return &APIKeyRepository{db: tx}
}

func (r *APIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO api_keys (`+apiKeyColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		key.ID, key.UserID, key.Name, key.KeyHash, key.CreatedAt, key.RevokedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrAPIKeyAlreadyExists
	}
	return err
}

func (r *APIKeyRepository) GetByID(ctx context.Context, id string) (*domain.APIKey, error) {
	return r.getOne(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1`, id)
}

// GetByHash looks a key up by the SHA-256 of its token, the only form in
// which tokens are stored.
func (r *APIKeyRepository) GetByHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	return r.getOne(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = $1`, hash)
}

func (r *APIKeyRepository) getOne(ctx context.Context, query string, arg any) (*domain.APIKey, error) {
	rows, _ := r.db.Query(ctx, query, arg)
	key, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByPos[domain.APIKey])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAPIKeyNotFound
	}
	return key, err
}

// ListByUser returns every key of the user, revoked ones included, newest
// first.
func (r *APIKeyRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.APIKey, error) {
	rows, _ := r.db.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC, id`,
		userID,
	)
	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByPos[domain.APIKey])
}

// Revoke stamps revoked_at once. Revoking an unknown or already revoked key
// reports ErrAPIKeyNotFound.
func (r *APIKeyRepository) Revoke(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE api_keys SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAPIKeyNotFound
	}
	return nil
}
