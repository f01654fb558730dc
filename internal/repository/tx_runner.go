package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skimzy/skimzy/internal/logging"
	"github.com/skimzy/skimzy/internal/service"
)

// TxRunner runs a unit of work against repositories bound to a single
// read-committed transaction.
type TxRunner struct {
	pool *pgxpool.Pool
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// WithTx commits when fn returns nil. Any error or panic rolls back.
func (r *TxRunner) WithTx(ctx context.Context, fn func(repos service.TxRepositories) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logging.Ctx(ctx).Warn().Err(rbErr).Msg("transaction rollback failed")
		}
	}()

	if err := fn(&txRepos{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

type txRepos struct {
	tx pgx.Tx
}

func (r *txRepos) LibraryItems() service.LibraryItemRepositoryInterface {
	return NewLibraryItemRepositoryWithTx(r.tx)
}

func (r *txRepos) ReindexJobs() service.ReindexJobRepositoryInterface {
	return NewReindexJobRepositoryWithTx(r.tx)
}

func (r *txRepos) Users() service.UserRepositoryInterface {
	return NewUserRepositoryWithTx(r.tx)
}

func (r *txRepos) APIKeys() service.APIKeyRepositoryInterface {
	return NewAPIKeyRepositoryWithTx(r.tx)
}
