package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skimzy/skimzy/internal/domain"
)

const reindexJobColumns = `id, library_item_id, status, retries, error, created_at, processed_at`

type ReindexJobRepository struct {
	db dbtx
}

func NewReindexJobRepository(pool *pgxpool.Pool) *ReindexJobRepository {
	return &ReindexJobRepository{db: pool}
}

func NewReindexJobRepositoryWithTx(tx pgx.Tx) *ReindexJobRepository {
	return &ReindexJobRepository{db: tx}
}

func (r *ReindexJobRepository) Create(ctx context.Context, job *domain.ReindexJob) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO reindex_jobs (id, library_item_id, status, retries, error, created_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.LibraryItemID, job.Status, job.Retries, nullableString(job.Error), job.CreatedAt, job.ProcessedAt,
	)
	return err
}

func (r *ReindexJobRepository) GetByID(ctx context.Context, id string) (*domain.ReindexJob, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+reindexJobColumns+` FROM reindex_jobs WHERE id = $1`,
		id,
	)
	job, err := scanReindexJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrReindexJobNotFound
	}
	return job, err
}

// ClaimPending moves up to limit pending jobs to processing and returns them.
// Concurrent workers never claim the same job.
func (r *ReindexJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.ReindexJob, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM reindex_jobs
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE reindex_jobs
		 SET status = $3,
		     error = NULL,
		     processed_at = NULL
		 FROM cte
		 WHERE reindex_jobs.id = cte.id
		 RETURNING reindex_jobs.id, reindex_jobs.library_item_id, reindex_jobs.status, reindex_jobs.retries,
		           reindex_jobs.error, reindex_jobs.created_at, reindex_jobs.processed_at`,
		domain.ReindexJobStatusPending, limit, domain.ReindexJobStatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.ReindexJob
	for rows.Next() {
		job, err := scanReindexJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *ReindexJobRepository) UpdateStatus(ctx context.Context, id string, status domain.ReindexJobStatus, errMsg string) error {
	var processedAt *time.Time
	if status == domain.ReindexJobStatusCompleted || status == domain.ReindexJobStatusFailed {
		now := time.Now().UTC()
		processedAt = &now
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE reindex_jobs SET status = $1, error = $2, processed_at = $3 WHERE id = $4`,
		status, nullableString(errMsg), processedAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrReindexJobNotFound
	}
	return nil
}

func (r *ReindexJobRepository) IncrementRetries(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE reindex_jobs SET retries = retries + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrReindexJobNotFound
	}
	return nil
}

func scanReindexJob(row pgx.Row) (*domain.ReindexJob, error) {
	var job domain.ReindexJob
	var errMsg pgtype.Text
	if err := row.Scan(&job.ID, &job.LibraryItemID, &job.Status, &job.Retries, &errMsg, &job.CreatedAt, &job.ProcessedAt); err != nil {
		return nil, err
	}
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	return &job, nil
}
