package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skimzy/skimzy/internal/domain"
)

type ChatTurnRepository struct {
	db dbtx
}

func NewChatTurnRepository(pool *pgxpool.Pool) *ChatTurnRepository {
	return &ChatTurnRepository{db: pool}
}

func NewChatTurnRepositoryWithTx(tx pgx.Tx) *ChatTurnRepository {
	return &ChatTurnRepository{db: tx}
}

// Create inserts the turn and sets its generated ID.
func (r *ChatTurnRepository) Create(ctx context.Context, turn *domain.ChatTurn) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO chat_history (user_id, library_item_id, question, answer, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		turn.UserID, turn.LibraryItemID, turn.Question, turn.Answer, turn.CreatedAt,
	).Scan(&turn.ID)
}

// ListByItem returns the user's turns for one library item, oldest first.
func (r *ChatTurnRepository) ListByItem(ctx context.Context, userID, libraryItemID int64) ([]*domain.ChatTurn, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, library_item_id, question, answer, created_at
		 FROM chat_history
		 WHERE user_id = $1 AND library_item_id = $2
		 ORDER BY created_at ASC, id ASC`,
		userID, libraryItemID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	turns := make([]*domain.ChatTurn, 0)
	for rows.Next() {
		var turn domain.ChatTurn
		if err := rows.Scan(&turn.ID, &turn.UserID, &turn.LibraryItemID, &turn.Question, &turn.Answer, &turn.CreatedAt); err != nil {
			return nil, err
		}
		turns = append(turns, &turn)
	}
	return turns, rows.Err()
}
