package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/skimzy/skimzy/internal/domain"
	"github.com/skimzy/skimzy/internal/extract"
	"github.com/skimzy/skimzy/internal/logging"
	"github.com/skimzy/skimzy/internal/metrics"
	"github.com/skimzy/skimzy/internal/telemetry"
	"github.com/skimzy/skimzy/internal/vectorindex"
)

const (
	maxLoggedRawOutput = 2000
	defaultPDFName     = "document.pdf"
)

// IngestionDeps are the collaborators of IngestionService. Storage may be nil
// when uploads are not configured.
type IngestionDeps struct {
	Items     LibraryItemRepositoryInterface
	TxRunner  TxRunner
	Generator ContentGenerator
	Embedder  Embedder
	Index     vectorindex.Index
	Extractor TextExtractor
	PDF       PDFExtractor
	Storage   StorageClientInterface
	// Notifier, when set, is woken after a reindex job is queued.
	Notifier JobNotifier
}

// JobNotifier wakes whatever drains the reindex queue.
type JobNotifier interface {
	Notify()
}

type IngestionConfig struct {
	Chunk    ChunkConfig
	Timeouts Timeouts
}

// IngestionService turns a document into stored study material and indexed chunks.
type IngestionService struct {
	deps    IngestionDeps
	cfg     IngestionConfig
	uuidGen UUIDGenerator
	now     func() time.Time
}

func NewIngestionService(deps IngestionDeps, cfg IngestionConfig) *IngestionService {
	return NewIngestionServiceWithUUIDGen(deps, cfg, &DefaultUUIDGenerator{})
}

// NewIngestionServiceWithUUIDGen creates an IngestionService with custom UUID generator (for testing)
func NewIngestionServiceWithUUIDGen(deps IngestionDeps, cfg IngestionConfig, uuidGen UUIDGenerator) *IngestionService {
	if cfg.Chunk.Size <= 0 {
		cfg.Chunk = DefaultChunkConfig()
	}
	return &IngestionService{
		deps:    deps,
		cfg:     cfg,
		uuidGen: uuidGen,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// IngestInput is an extracted document ready for ingestion.
type IngestInput struct {
	UserID      int64
	Text        string
	Source      string
	ObjectKey   string
	ContentType domain.ContentType
	// FallbackTitle is used when the generator returns no title.
	FallbackTitle string
}

type IngestResult struct {
	Item       *domain.LibraryItem
	ChunkCount int
}

// IngestURL extracts the readable text of rawURL and ingests it.
func (s *IngestionService) IngestURL(ctx context.Context, userID int64, rawURL string) (*IngestResult, error) {
	rawURL = strings.TrimSpace(rawURL)
	if !isHTTPURL(rawURL) {
		return nil, domain.ErrInvalidURL
	}

	start := time.Now()
	text := s.deps.Extractor.Extract(ctx, rawURL)
	metrics.ObserveDependency(metrics.DependencyFetcher, start)
	if strings.TrimSpace(text) == "" {
		metrics.RecordIngestion(string(domain.ContentTypeURL), metrics.OutcomeError)
		return nil, domain.ErrEmptyDocument
	}

	return s.Ingest(ctx, IngestInput{
		UserID:      userID,
		Text:        text,
		Source:      rawURL,
		ContentType: domain.ContentTypeURL,
	})
}

// IngestPDF extracts the text of an uploaded PDF, stores the file and ingests
// the text. The stored file is removed again when nothing was persisted.
func (s *IngestionService) IngestPDF(ctx context.Context, userID int64, filename string, data []byte) (*IngestResult, error) {
	if len(data) == 0 || !extract.IsPDF(data) {
		return nil, domain.ErrInvalidPDF
	}
	if strings.TrimSpace(filename) == "" {
		filename = defaultPDFName
	}

	text, err := s.deps.PDF.ExtractPDF(data)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrInvalidPDF.Message, err)
	}
	if strings.TrimSpace(text) == "" {
		metrics.RecordIngestion(string(domain.ContentTypePDF), metrics.OutcomeError)
		return nil, domain.ErrEmptyDocument
	}

	title := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	input := IngestInput{
		UserID:        userID,
		Text:          text,
		Source:        "upload:" + path.Base(filename),
		ContentType:   domain.ContentTypePDF,
		FallbackTitle: title,
	}

	if s.deps.Storage != nil {
		start := time.Now()
		obj, err := s.deps.Storage.PutPDF(ctx, userID, filename, data)
		metrics.ObserveDependency(metrics.DependencyStorage, start)
		if err != nil {
			return nil, domain.NewExternalServiceError(ServiceObjectStore, err)
		}
		input.Source = obj.URL
		input.ObjectKey = obj.Key
	}

	result, err := s.Ingest(ctx, input)
	if err != nil {
		var partial *domain.PartialIngestionError
		if input.ObjectKey != "" && !errors.As(err, &partial) {
			if delErr := s.deps.Storage.DeleteObject(context.WithoutCancel(ctx), input.ObjectKey); delErr != nil {
				logging.Ctx(ctx).Warn().Err(delErr).Str("object_key", input.ObjectKey).Msg("failed to remove uploaded file")
			}
		}
		return nil, err
	}
	return result, nil
}

// Ingest generates study material for the text, stores it and indexes the
// text's chunks under the user and the new library item. Nothing is written
// when generation or embedding fails. When only indexing fails the item is
// kept, marked failed, queued for reindexing and a PartialIngestionError is
// returned.
func (s *IngestionService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.Ingest", telemetry.SpanAttributes{
		UserID:      input.UserID,
		ContentType: string(input.ContentType),
		Operation:   "ingest",
	})
	defer span.End()

	result, err := s.ingest(ctx, input)
	switch {
	case err == nil:
		metrics.RecordIngestion(string(input.ContentType), metrics.OutcomeSuccess)
	case domain.ErrorCode(err) == domain.ErrCodePartialIngestion:
		metrics.RecordIngestion(string(input.ContentType), metrics.OutcomePartial)
		span.SetError(err)
	default:
		metrics.RecordIngestion(string(input.ContentType), metrics.OutcomeError)
		if isServerFault(err) {
			span.SetError(err)
		}
	}
	return result, err
}

func (s *IngestionService) ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	if input.UserID <= 0 {
		return nil, domain.NewValidationError("user id is required")
	}
	if !domain.IsValidContentType(input.ContentType) {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid content type %q", input.ContentType))
	}
	if strings.TrimSpace(input.Text) == "" {
		return nil, domain.ErrEmptyDocument
	}

	logger := logging.Ctx(ctx).With().
		Int64("user_id", input.UserID).
		Str("content_type", string(input.ContentType)).
		Logger()

	chunks := ChunkText(input.Text, s.cfg.Chunk)

	var material *domain.StudyMaterial
	var vectors [][]float32

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := s.generate(gctx, input.Text)
		if err != nil {
			return err
		}
		m, err := domain.ParseStudyMaterial(raw)
		if err != nil {
			logger.Error().Err(err).Str("raw", truncate(raw, maxLoggedRawOutput)).Msg("generator returned malformed study material")
			return err
		}
		material = m
		return nil
	})
	g.Go(func() error {
		v, err := embedTexts(gctx, s.deps.Embedder, s.cfg.Timeouts.Embed, chunks)
		if err != nil {
			return err
		}
		vectors = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	telemetry.Breadcrumb(ctx, "ingest", "study material generated", map[string]any{
		"chunks":     len(chunks),
		"flashcards": len(material.Flashcards),
	})

	item := domain.NewLibraryItem(input.UserID, input.Source, input.ContentType, material, input.Text, s.now())
	item.ObjectKey = input.ObjectKey
	if material.Title == "" && input.FallbackTitle != "" {
		item.Title = input.FallbackTitle
	}
	if err := domain.ValidateLibraryItem(item); err != nil {
		return nil, err
	}

	if err := s.deps.Items.Create(ctx, item); err != nil {
		return nil, err
	}
	logger = logger.With().Int64("library_item_id", item.ID).Logger()
	telemetry.Breadcrumb(ctx, "ingest", "library item stored", map[string]any{"library_item_id": item.ID})

	points, err := vectorindex.NewPoints(input.UserID, item.ID, chunks, vectors)
	if err == nil {
		err = upsertPoints(ctx, s.deps.Index, s.cfg.Timeouts.Vector, points)
	}
	if err != nil {
		logger.Error().Err(err).Int("chunks", len(chunks)).Msg("failed to index chunks")
		return nil, s.markUnindexed(ctx, item, err)
	}

	if err := s.deps.Items.UpdateIndexStatus(ctx, item.ID, domain.IndexStatusIndexed, len(chunks)); err != nil {
		logger.Warn().Err(err).Msg("chunks indexed but status update failed")
	} else {
		item.IndexStatus = domain.IndexStatusIndexed
		item.ChunkCount = len(chunks)
	}

	logger.Info().Int("chunks", len(chunks)).Str("title", item.Title).Msg("document ingested")

	return &IngestResult{Item: item, ChunkCount: len(chunks)}, nil
}

func (s *IngestionService) generate(ctx context.Context, text string) (string, error) {
	ctx, cancel := withTimeout(ctx, s.cfg.Timeouts.LLM)
	defer cancel()

	start := time.Now()
	raw, err := s.deps.Generator.Generate(ctx, text)
	metrics.ObserveDependency(metrics.DependencyGenerator, start)
	if err != nil {
		return "", domain.NewExternalServiceError(ServiceGenerator, err)
	}
	return raw, nil
}

// markUnindexed records that item has no searchable chunks and queues it for
// reindexing.
func (s *IngestionService) markUnindexed(ctx context.Context, item *domain.LibraryItem, cause error) error {
	ctx = context.WithoutCancel(ctx)
	job := domain.NewReindexJob(s.uuidGen.NewString(), item.ID, domain.ReindexJobStatusPending, 0, "", s.now(), nil)

	err := s.deps.TxRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.LibraryItems().UpdateIndexStatus(ctx, item.ID, domain.IndexStatusFailed, 0); err != nil {
			return err
		}
		return repos.ReindexJobs().Create(ctx, job)
	})
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Int64("library_item_id", item.ID).Msg("failed to queue reindex job")
	} else if s.deps.Notifier != nil {
		s.deps.Notifier.Notify()
	}

	item.IndexStatus = domain.IndexStatusFailed
	return domain.NewPartialIngestionError(item.ID, cause)
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
