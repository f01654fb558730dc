package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skimzy/skimzy/internal/domain"
	"github.com/skimzy/skimzy/internal/metrics"
	"github.com/skimzy/skimzy/internal/storage"
	"github.com/skimzy/skimzy/internal/vectorindex"
)

// Service names carried by ExternalServiceError.
const (
	ServiceEmbedder    = "embedder"
	ServiceGenerator   = "content generator"
	ServiceAnswerer    = "answerer"
	ServiceVectorIndex = "vector index"
	ServiceObjectStore = "object store"
)

// TextExtractor returns the readable text of a web page, or "" when the page
// cannot be fetched or has no readable content. It never fails.
type TextExtractor interface {
	Extract(ctx context.Context, url string) string
}

// PDFExtractor returns the plain text of a PDF document.
type PDFExtractor interface {
	ExtractPDF(data []byte) (string, error)
}

// Embedder returns one vector per text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// QueryEmbedder is implemented by embedders that encode a question
// differently from the documents it is searched against.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ContentGenerator returns the raw study-material JSON for a document.
type ContentGenerator interface {
	Generate(ctx context.Context, text string) (string, error)
}

// Answerer answers a question using only the given context chunks.
type Answerer interface {
	Answer(ctx context.Context, question string, chunks []string) (string, error)
}

type StorageClientInterface interface {
	PutPDF(ctx context.Context, userID int64, filename string, data []byte) (*storage.StoredObject, error)
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// Timeouts bounds every call to a remote collaborator. A zero value means no
// extra deadline beyond the caller's context.
type Timeouts struct {
	LLM    time.Duration
	Embed  time.Duration
	Vector time.Duration
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// embedTexts calls the embedder under its timeout and checks that it returned
// exactly one vector per text.
func embedTexts(ctx context.Context, embedder Embedder, timeout time.Duration, texts []string) ([][]float32, error) {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	vectors, err := embedder.Embed(ctx, texts)
	metrics.ObserveDependency(metrics.DependencyEmbedder, start)
	if err != nil {
		return nil, domain.NewExternalServiceError(ServiceEmbedder, err)
	}
	if len(vectors) != len(texts) {
		return nil, domain.NewExternalServiceError(ServiceEmbedder,
			fmt.Errorf("expected %d vectors, got %d", len(texts), len(vectors)))
	}
	return vectors, nil
}

// embedQuestion prefers the embedder's query encoding when it has one.
func embedQuestion(ctx context.Context, embedder Embedder, timeout time.Duration, question string) ([]float32, error) {
	qe, ok := embedder.(QueryEmbedder)
	if !ok {
		vectors, err := embedTexts(ctx, embedder, timeout, []string{question})
		if err != nil {
			return nil, err
		}
		return vectors[0], nil
	}

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	vector, err := qe.EmbedQuery(ctx, question)
	metrics.ObserveDependency(metrics.DependencyEmbedder, start)
	if err != nil {
		return nil, domain.NewExternalServiceError(ServiceEmbedder, err)
	}
	if len(vector) == 0 {
		return nil, domain.NewExternalServiceError(ServiceEmbedder, errors.New("empty query vector"))
	}
	return vector, nil
}

func upsertPoints(ctx context.Context, index vectorindex.Index, timeout time.Duration, points []vectorindex.Point) error {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := index.Upsert(ctx, points)
	metrics.ObserveDependency(metrics.DependencyVector, start)
	if err != nil {
		return domain.NewExternalServiceError(ServiceVectorIndex, err)
	}
	return nil
}

func deletePoints(ctx context.Context, index vectorindex.Index, timeout time.Duration, filter vectorindex.Filter) error {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := index.DeleteByFilter(ctx, filter)
	metrics.ObserveDependency(metrics.DependencyVector, start)
	if err != nil {
		return domain.NewExternalServiceError(ServiceVectorIndex, err)
	}
	return nil
}

// isServerFault reports whether err should be captured to Sentry.
func isServerFault(err error) bool {
	switch domain.ErrorCode(err) {
	case domain.ErrCodeValidation, domain.ErrCodeNotFound, domain.ErrCodeAlreadyExists, domain.ErrCodeUnauthorized:
		return false
	default:
		return true
	}
}
