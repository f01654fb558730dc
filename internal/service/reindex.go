package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/skimzy/skimzy/internal/domain"
	"github.com/skimzy/skimzy/internal/logging"
	"github.com/skimzy/skimzy/internal/telemetry"
	"github.com/skimzy/skimzy/internal/vectorindex"
)

// ReindexJobRepositoryInterface defines the repository interface for reindex job persistence
type ReindexJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.ReindexJob) error
	GetByID(ctx context.Context, id string) (*domain.ReindexJob, error)
	ClaimPending(ctx context.Context, limit int) ([]*domain.ReindexJob, error)
	UpdateStatus(ctx context.Context, id string, status domain.ReindexJobStatus, errMsg string) error
	IncrementRetries(ctx context.Context, id string) error
}

// ReindexService rebuilds the vector points of a library item from its stored text.
type ReindexService struct {
	items    LibraryItemRepositoryInterface
	jobs     ReindexJobRepositoryInterface
	embedder Embedder
	index    vectorindex.Index
	chunkCfg ChunkConfig
	timeouts Timeouts
	uuidGen  UUIDGenerator
}

func NewReindexService(
	items LibraryItemRepositoryInterface,
	jobs ReindexJobRepositoryInterface,
	embedder Embedder,
	index vectorindex.Index,
	chunkCfg ChunkConfig,
	timeouts Timeouts,
) *ReindexService {
	return NewReindexServiceWithUUIDGen(items, jobs, embedder, index, chunkCfg, timeouts, &DefaultUUIDGenerator{})
}

// NewReindexServiceWithUUIDGen creates a ReindexService with custom UUID generator (for testing)
func NewReindexServiceWithUUIDGen(
	items LibraryItemRepositoryInterface,
	jobs ReindexJobRepositoryInterface,
	embedder Embedder,
	index vectorindex.Index,
	chunkCfg ChunkConfig,
	timeouts Timeouts,
	uuidGen UUIDGenerator,
) *ReindexService {
	if chunkCfg.Size <= 0 {
		chunkCfg = DefaultChunkConfig()
	}
	return &ReindexService{
		items:    items,
		jobs:     jobs,
		embedder: embedder,
		index:    index,
		chunkCfg: chunkCfg,
		timeouts: timeouts,
		uuidGen:  uuidGen,
	}
}

// Enqueue queues a reindex job for an existing library item.
func (s *ReindexService) Enqueue(ctx context.Context, libraryItemID int64) (*domain.ReindexJob, error) {
	if libraryItemID <= 0 {
		return nil, domain.ErrMissingLibraryItemID
	}
	if _, err := s.items.GetByID(ctx, libraryItemID); err != nil {
		return nil, err
	}

	job := domain.NewReindexJob(s.uuidGen.NewString(), libraryItemID, domain.ReindexJobStatusPending, 0, "", time.Now().UTC(), nil)
	if err := domain.ValidateReindexJob(job); err != nil {
		return nil, err
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Reindex replaces the item's vector points with freshly embedded chunks of
// its stored content and marks it indexed. The existing points stay
// searchable until the new ones are written, so a failed run leaves an
// indexed item as it was.
func (s *ReindexService) Reindex(ctx context.Context, libraryItemID int64) error {
	ctx, span := telemetry.StartSpan(ctx, "ReindexService.Reindex", telemetry.SpanAttributes{
		LibraryItemID: libraryItemID,
		Operation:     "reindex",
	})
	defer span.End()

	item, err := s.items.GetByID(ctx, libraryItemID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(item.Content) == "" {
		return domain.ErrEmptyDocument
	}

	logger := logging.Ctx(ctx).With().
		Int64("user_id", item.UserID).
		Int64("library_item_id", item.ID).
		Logger()

	if err := s.rebuild(ctx, item); err != nil {
		span.SetError(err)
		if item.IndexStatus != domain.IndexStatusIndexed && !errors.Is(err, domain.ErrLibraryItemNotFound) {
			if statusErr := s.items.UpdateIndexStatus(ctx, item.ID, domain.IndexStatusFailed, 0); statusErr != nil {
				logger.Warn().Err(statusErr).Msg("failed to mark item unindexed")
			}
		}
		return err
	}

	logger.Info().Msg("library item reindexed")
	return nil
}

// rebuild overwrites the points in place, their ids being derived from the
// chunk position, then drops the points past the new last chunk.
func (s *ReindexService) rebuild(ctx context.Context, item *domain.LibraryItem) error {
	chunks := ChunkText(item.Content, s.chunkCfg)
	vectors, err := embedTexts(ctx, s.embedder, s.timeouts.Embed, chunks)
	if err != nil {
		return err
	}

	points, err := vectorindex.NewPoints(item.UserID, item.ID, chunks, vectors)
	if err != nil {
		return err
	}
	if err := upsertPoints(ctx, s.index, s.timeouts.Vector, points); err != nil {
		return err
	}

	owner := vectorindex.Filter{UserID: item.UserID, LibraryItemID: item.ID}
	stale := owner
	stale.FromChunk = len(chunks)
	if err := deletePoints(ctx, s.index, s.timeouts.Vector, stale); err != nil {
		return err
	}

	err = s.items.UpdateIndexStatus(ctx, item.ID, domain.IndexStatusIndexed, len(chunks))
	if errors.Is(err, domain.ErrLibraryItemNotFound) {
		// Deleted while the points were being written.
		if cleanupErr := deletePoints(ctx, s.index, s.timeouts.Vector, owner); cleanupErr != nil {
			return cleanupErr
		}
	}
	return err
}
