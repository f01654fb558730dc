package service

import (
	"context"
	"time"

	"github.com/skimzy/skimzy/internal/domain"
	"github.com/skimzy/skimzy/internal/logging"
	"github.com/skimzy/skimzy/internal/metrics"
	"github.com/skimzy/skimzy/internal/pagination"
	"github.com/skimzy/skimzy/internal/telemetry"
	"github.com/skimzy/skimzy/internal/vectorindex"
)

// LibraryItemRepositoryInterface defines the repository interface for library item persistence
type LibraryItemRepositoryInterface interface {
	Create(ctx context.Context, item *domain.LibraryItem) error
	GetByID(ctx context.Context, id int64) (*domain.LibraryItem, error)
	GetForUser(ctx context.Context, userID, id int64) (*domain.LibraryItem, error)
	ListByUserWithCursor(ctx context.Context, userID int64, cursor *pagination.Cursor, limit int) (*LibraryItemPageResult, error)
	UpdateIndexStatus(ctx context.Context, id int64, status domain.IndexStatus, chunkCount int) error
	Delete(ctx context.Context, userID, id int64) error
}

type LibraryItemPageResult struct {
	Items      []*domain.LibraryItem
	NextCursor string
	HasMore    bool
}

// LibraryService exposes a user's stored study material.
type LibraryService struct {
	items         LibraryItemRepositoryInterface
	index         vectorindex.Index
	storage       StorageClientInterface
	vectorTimeout time.Duration
}

// NewLibraryService creates a LibraryService. storage may be nil when uploads
// are not configured.
func NewLibraryService(
	items LibraryItemRepositoryInterface,
	index vectorindex.Index,
	storage StorageClientInterface,
	vectorTimeout time.Duration,
) *LibraryService {
	return &LibraryService{
		items:         items,
		index:         index,
		storage:       storage,
		vectorTimeout: vectorTimeout,
	}
}

type ListLibraryInput struct {
	UserID int64
	Cursor string
	Limit  int
}

type ListLibraryOutput struct {
	Items   []*domain.LibraryItem
	Cursor  string
	HasMore bool
}

// List returns the user's items, newest first.
func (s *LibraryService) List(ctx context.Context, input ListLibraryInput) (*ListLibraryOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "LibraryService.List", telemetry.SpanAttributes{
		UserID:    input.UserID,
		Operation: "list",
	})
	defer span.End()

	var cursor *pagination.Cursor
	if input.Cursor != "" {
		c, err := pagination.DecodeCursor(input.Cursor)
		if err != nil {
			return nil, domain.NewValidationError("invalid cursor")
		}
		cursor = c
	}

	page, err := s.items.ListByUserWithCursor(ctx, input.UserID, cursor, input.Limit)
	if err != nil {
		return nil, err
	}

	return &ListLibraryOutput{
		Items:   page.Items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	}, nil
}

// Get returns the item when it belongs to userID. Items owned by other users
// are reported as not found.
func (s *LibraryService) Get(ctx context.Context, userID, id int64) (*domain.LibraryItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "LibraryService.Get", telemetry.SpanAttributes{
		UserID:        userID,
		LibraryItemID: id,
		Operation:     "get",
	})
	defer span.End()

	if id <= 0 {
		return nil, domain.ErrMissingLibraryItemID
	}
	return s.items.GetForUser(ctx, userID, id)
}

// Delete removes the item, its vector points and its uploaded file. The row
// is kept when the points cannot be deleted.
func (s *LibraryService) Delete(ctx context.Context, userID, id int64) error {
	ctx, span := telemetry.StartSpan(ctx, "LibraryService.Delete", telemetry.SpanAttributes{
		UserID:        userID,
		LibraryItemID: id,
		Operation:     "delete",
	})
	defer span.End()

	item, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	filter := vectorindex.Filter{UserID: userID, LibraryItemID: id}
	if err := deletePoints(ctx, s.index, s.vectorTimeout, filter); err != nil {
		span.SetError(err)
		return err
	}

	if err := s.items.Delete(ctx, userID, id); err != nil {
		return err
	}

	if item.ObjectKey != "" && s.storage != nil {
		start := time.Now()
		err := s.storage.DeleteObject(ctx, item.ObjectKey)
		metrics.ObserveDependency(metrics.DependencyStorage, start)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).
				Int64("library_item_id", id).
				Str("object_key", item.ObjectKey).
				Msg("failed to delete uploaded file")
		}
	}

	return nil
}

// PresignedSource returns a temporary download URL for an uploaded PDF.
func (s *LibraryService) PresignedSource(ctx context.Context, userID, id int64) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "LibraryService.PresignedSource", telemetry.SpanAttributes{
		UserID:        userID,
		LibraryItemID: id,
		Operation:     "presign",
	})
	defer span.End()

	item, err := s.Get(ctx, userID, id)
	if err != nil {
		return "", err
	}
	if item.ObjectKey == "" || s.storage == nil {
		return "", domain.ErrSourceNotAvailable
	}

	url, err := s.storage.GenerateDownloadURL(ctx, item.ObjectKey)
	if err != nil {
		return "", domain.NewExternalServiceError(ServiceObjectStore, err)
	}
	return url, nil
}
