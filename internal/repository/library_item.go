package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skimzy/skimzy/internal/domain"
	"github.com/skimzy/skimzy/internal/pagination"
	"github.com/skimzy/skimzy/internal/service"
)

const libraryItemColumns = `id, user_id, source, object_key, content_type, title, summary, flashcards, mcqs,
	content, chunk_count, index_status, created_at, updated_at`

type LibraryItemRepository struct {
	db dbtx
}

func NewLibraryItemRepository(pool *pgxpool.Pool) *LibraryItemRepository {
	return &LibraryItemRepository{db: pool}
}

func NewLibraryItemRepositoryWithTx(tx pgx.Tx) *LibraryItemRepository {
	return &LibraryItemRepository{db: tx}
}

// Create inserts the item and sets its generated ID.
func (r *LibraryItemRepository) Create(ctx context.Context, item *domain.LibraryItem) error {
	flashcards, err := json.Marshal(item.Flashcards)
	if err != nil {
		return fmt.Errorf("encode flashcards: %w", err)
	}
	mcqs, err := json.Marshal(item.MCQs)
	if err != nil {
		return fmt.Errorf("encode mcqs: %w", err)
	}

	return r.db.QueryRow(ctx,
		`INSERT INTO library_items
			(user_id, source, object_key, content_type, title, summary, flashcards, mcqs, content, chunk_count, index_status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id`,
		item.UserID, item.Source, nullableString(item.ObjectKey), item.ContentType, item.Title, item.Summary,
		flashcards, mcqs, item.Content, item.ChunkCount, item.IndexStatus, item.CreatedAt, item.UpdatedAt,
	).Scan(&item.ID)
}

func (r *LibraryItemRepository) GetByID(ctx context.Context, id int64) (*domain.LibraryItem, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+libraryItemColumns+` FROM library_items WHERE id = $1`,
		id,
	)
	return scanLibraryItem(row)
}

// GetForUser returns the item only when it belongs to userID.
func (r *LibraryItemRepository) GetForUser(ctx context.Context, userID, id int64) (*domain.LibraryItem, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+libraryItemColumns+` FROM library_items WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	return scanLibraryItem(row)
}

func (r *LibraryItemRepository) ListByUserWithCursor(ctx context.Context, userID int64, cursor *pagination.Cursor, limit int) (*service.LibraryItemPageResult, error) {
	limit = pagination.ClampLimit(limit)

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+libraryItemColumns+`
			 FROM library_items
			 WHERE user_id = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			userID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+libraryItemColumns+`
			 FROM library_items
			 WHERE user_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			userID, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*domain.LibraryItem, 0, limit)
	for rows.Next() {
		item, err := scanLibraryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items, hasMore := pagination.Trim(items, limit)

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}

	return &service.LibraryItemPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *LibraryItemRepository) UpdateIndexStatus(ctx context.Context, id int64, status domain.IndexStatus, chunkCount int) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE library_items SET index_status = $1, chunk_count = $2, updated_at = $3 WHERE id = $4`,
		status, chunkCount, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrLibraryItemNotFound
	}
	return nil
}

// Delete removes the item owned by userID. Chat history and reindex jobs cascade.
func (r *LibraryItemRepository) Delete(ctx context.Context, userID, id int64) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM library_items WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrLibraryItemNotFound
	}
	return nil
}

func scanLibraryItem(row pgx.Row) (*domain.LibraryItem, error) {
	var item domain.LibraryItem
	var objectKey *string
	var flashcards, mcqs []byte
	err := row.Scan(
		&item.ID, &item.UserID, &item.Source, &objectKey, &item.ContentType, &item.Title, &item.Summary,
		&flashcards, &mcqs, &item.Content, &item.ChunkCount, &item.IndexStatus, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLibraryItemNotFound
		}
		return nil, err
	}
	if objectKey != nil {
		item.ObjectKey = *objectKey
	}
	if err := json.Unmarshal(flashcards, &item.Flashcards); err != nil {
		return nil, fmt.Errorf("decode flashcards of item %d: %w", item.ID, err)
	}
	if err := json.Unmarshal(mcqs, &item.MCQs); err != nil {
		return nil, fmt.Errorf("decode mcqs of item %d: %w", item.ID, err)
	}
	return &item, nil
}
