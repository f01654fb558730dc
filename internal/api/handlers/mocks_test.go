package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"

	"github.com/skimzy/skimzy/internal/api/middleware"
	"github.com/skimzy/skimzy/internal/domain"
	"github.com/skimzy/skimzy/internal/service"
)

type MockIngestionService struct {
	mock.Mock
}

func (m *MockIngestionService) IngestURL(ctx context.Context, userID int64, rawURL string) (*service.IngestResult, error) {
	args := m.Called(ctx, userID, rawURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

func (m *MockIngestionService) IngestPDF(ctx context.Context, userID int64, filename string, data []byte) (*service.IngestResult, error) {
	args := m.Called(ctx, userID, filename, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

type MockLibraryService struct {
	mock.Mock
}

func (m *MockLibraryService) List(ctx context.Context, input service.ListLibraryInput) (*service.ListLibraryOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListLibraryOutput), args.Error(1)
}

func (m *MockLibraryService) Get(ctx context.Context, userID, id int64) (*domain.LibraryItem, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LibraryItem), args.Error(1)
}

func (m *MockLibraryService) Delete(ctx context.Context, userID, id int64) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockLibraryService) PresignedSource(ctx context.Context, userID, id int64) (string, error) {
	args := m.Called(ctx, userID, id)
	return args.String(0), args.Error(1)
}

type MockReindexer struct {
	mock.Mock
}

func (m *MockReindexer) Enqueue(ctx context.Context, libraryItemID int64) (*domain.ReindexJob, error) {
	args := m.Called(ctx, libraryItemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReindexJob), args.Error(1)
}

type MockQueryService struct {
	mock.Mock
}

func (m *MockQueryService) Ask(ctx context.Context, input service.AskInput) (*service.AskResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AskResult), args.Error(1)
}

func (m *MockQueryService) History(ctx context.Context, userID, libraryItemID int64) ([]*domain.ChatTurn, error) {
	args := m.Called(ctx, userID, libraryItemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ChatTurn), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Signup(ctx context.Context, email, name string) (*domain.User, string, error) {
	args := m.Called(ctx, email, name)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*domain.User), args.String(1), args.Error(2)
}

func (m *MockAuthService) CreateAPIKey(ctx context.Context, userID int64, name string) (string, error) {
	args := m.Called(ctx, userID, name)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) ListAPIKeys(ctx context.Context, userID int64) ([]*domain.APIKey, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.APIKey), args.Error(1)
}

const testUserID int64 = 456

func newTestItem() *domain.LibraryItem {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.LibraryItem{
		ID:          17,
		UserID:      testUserID,
		Source:      "https://example.com/sun",
		ContentType: domain.ContentTypeURL,
		Title:       "The Sun",
		Summary:     "The sun is a star.",
		Flashcards:  []domain.Flashcard{{Question: "What is the sun?", Answer: "A star"}},
		MCQs: []domain.MCQ{{
			Question: "The sun is a?",
			Options:  []string{"star", "planet", "moon", "comet"},
			Answer:   "star",
		}},
		ChunkCount:  2,
		IndexStatus: domain.IndexStatusIndexed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func requestWithUserID(method, url string, body []byte) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	return req.WithContext(middleware.WithUserID(req.Context(), testUserID))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
