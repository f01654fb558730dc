package jobs

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/skimzy/skimzy/internal/domain"
	"github.com/skimzy/skimzy/internal/metrics"
)

const (
	// MaxRetries is the maximum number of attempts for a reindex job
	MaxRetries = 3

	// DefaultBatchSize is how many jobs one poll claims
	DefaultBatchSize = 10
)

// ReindexJobRepository is the job persistence the worker needs.
type ReindexJobRepository interface {
	ClaimPending(ctx context.Context, limit int) ([]*domain.ReindexJob, error)
	UpdateStatus(ctx context.Context, id string, status domain.ReindexJobStatus, errMsg string) error
	IncrementRetries(ctx context.Context, id string) error
}

// Reindexer rebuilds the vector points of one library item.
type Reindexer interface {
	Reindex(ctx context.Context, libraryItemID int64) error
}

// ReindexWorker drains the reindex queue.
type ReindexWorker struct {
	repo      ReindexJobRepository
	reindexer Reindexer
	batchSize int
}

func NewReindexWorker(repo ReindexJobRepository, reindexer Reindexer, batchSize int) *ReindexWorker {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &ReindexWorker{
		repo:      repo,
		reindexer: reindexer,
		batchSize: batchSize,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *ReindexWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.ClaimPending(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Info().Int("count", len(jobs)).Msg("processing reindex jobs")

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Error().Err(err).Str("job_id", job.ID).Msg("error processing reindex job")
		}
	}

	return nil
}

func (w *ReindexWorker) processJob(ctx context.Context, job *domain.ReindexJob) error {
	logger := log.With().Str("job_id", job.ID).Int64("library_item_id", job.LibraryItemID).Logger()
	logger.Debug().Int32("retries", job.Retries).Msg("reindexing library item")

	if err := w.reindexer.Reindex(ctx, job.LibraryItemID); err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateStatus(ctx, job.ID, domain.ReindexJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	metrics.RecordReindexJob(metrics.OutcomeSuccess)
	logger.Info().Msg("reindex job completed")
	return nil
}

func (w *ReindexWorker) handleJobFailure(ctx context.Context, job *domain.ReindexJob, jobErr error) error {
	logger := log.With().Str("job_id", job.ID).Logger()
	logger.Warn().Err(jobErr).Msg("reindex job failed")

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	// A missing item will never succeed.
	if domain.ErrorCode(jobErr) == domain.ErrCodeNotFound || job.Retries+1 >= MaxRetries {
		errMsg := fmt.Sprintf("giving up after %d attempts: %v", job.Retries+1, jobErr)
		if err := w.repo.UpdateStatus(ctx, job.ID, domain.ReindexJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		metrics.RecordReindexJob(metrics.OutcomeError)
		logger.Error().Int("max_retries", MaxRetries).Msg("reindex job marked failed")
		return nil
	}

	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateStatus(ctx, job.ID, domain.ReindexJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	logger.Info().Int32("attempt", job.Retries+1).Int("max_retries", MaxRetries).Msg("reindex job will be retried")
	return nil
}
