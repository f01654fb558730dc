package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/skimzy/skimzy/internal/domain"
	"github.com/skimzy/skimzy/internal/pagination"
	"github.com/skimzy/skimzy/internal/storage"
	"github.com/skimzy/skimzy/internal/vectorindex"
)

// MockLibraryItemRepository is a mock implementation of LibraryItemRepositoryInterface
type MockLibraryItemRepository struct {
	mock.Mock
}

func (m *MockLibraryItemRepository) Create(ctx context.Context, item *domain.LibraryItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockLibraryItemRepository) GetByID(ctx context.Context, id int64) (*domain.LibraryItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LibraryItem), args.Error(1)
}

func (m *MockLibraryItemRepository) GetForUser(ctx context.Context, userID, id int64) (*domain.LibraryItem, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LibraryItem), args.Error(1)
}

func (m *MockLibraryItemRepository) ListByUserWithCursor(ctx context.Context, userID int64, cursor *pagination.Cursor, limit int) (*LibraryItemPageResult, error) {
	args := m.Called(ctx, userID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*LibraryItemPageResult), args.Error(1)
}

func (m *MockLibraryItemRepository) UpdateIndexStatus(ctx context.Context, id int64, status domain.IndexStatus, chunkCount int) error {
	args := m.Called(ctx, id, status, chunkCount)
	return args.Error(0)
}

func (m *MockLibraryItemRepository) Delete(ctx context.Context, userID, id int64) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

// MockChatTurnRepository is a mock implementation of ChatTurnRepositoryInterface
type MockChatTurnRepository struct {
	mock.Mock
}

func (m *MockChatTurnRepository) Create(ctx context.Context, turn *domain.ChatTurn) error {
	args := m.Called(ctx, turn)
	return args.Error(0)
}

func (m *MockChatTurnRepository) ListByItem(ctx context.Context, userID, libraryItemID int64) ([]*domain.ChatTurn, error) {
	args := m.Called(ctx, userID, libraryItemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ChatTurn), args.Error(1)
}

// MockReindexJobRepository is a mock implementation of ReindexJobRepositoryInterface
type MockReindexJobRepository struct {
	mock.Mock
}

func (m *MockReindexJobRepository) Create(ctx context.Context, job *domain.ReindexJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockReindexJobRepository) GetByID(ctx context.Context, id string) (*domain.ReindexJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReindexJob), args.Error(1)
}

func (m *MockReindexJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.ReindexJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ReindexJob), args.Error(1)
}

func (m *MockReindexJobRepository) UpdateStatus(ctx context.Context, id string, status domain.ReindexJobStatus, errMsg string) error {
	args := m.Called(ctx, id, status, errMsg)
	return args.Error(0)
}

func (m *MockReindexJobRepository) IncrementRetries(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockQueryEmbedder also encodes questions on their own.
type MockQueryEmbedder struct {
	MockEmbedder
}

func (m *MockQueryEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockContentGenerator struct {
	mock.Mock
}

func (m *MockContentGenerator) Generate(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}

type MockAnswerer struct {
	mock.Mock
}

func (m *MockAnswerer) Answer(ctx context.Context, question string, chunks []string) (string, error) {
	args := m.Called(ctx, question, chunks)
	return args.String(0), args.Error(1)
}

type MockTextExtractor struct {
	mock.Mock
}

func (m *MockTextExtractor) Extract(ctx context.Context, url string) string {
	args := m.Called(ctx, url)
	return args.String(0)
}

type MockPDFExtractor struct {
	mock.Mock
}

func (m *MockPDFExtractor) ExtractPDF(data []byte) (string, error) {
	args := m.Called(data)
	return args.String(0), args.Error(1)
}

type MockStorageClient struct {
	mock.Mock
}

func (m *MockStorageClient) PutPDF(ctx context.Context, userID int64, filename string, data []byte) (*storage.StoredObject, error) {
	args := m.Called(ctx, userID, filename, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.StoredObject), args.Error(1)
}

func (m *MockStorageClient) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockStorageClient) DeleteObject(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockIndex is a mock implementation of vectorindex.Index
type MockIndex struct {
	mock.Mock
}

func (m *MockIndex) EnsureCollection(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockIndex) Upsert(ctx context.Context, points []vectorindex.Point) error {
	args := m.Called(ctx, points)
	return args.Error(0)
}

func (m *MockIndex) Search(ctx context.Context, req vectorindex.SearchRequest) ([]vectorindex.ScoredPoint, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]vectorindex.ScoredPoint), args.Error(1)
}

func (m *MockIndex) DeleteByFilter(ctx context.Context, filter vectorindex.Filter) error {
	args := m.Called(ctx, filter)
	return args.Error(0)
}

// MockUUIDGenerator is a mock implementation of UUIDGenerator
type MockUUIDGenerator struct {
	mock.Mock
	callCount int
	uuids     []string
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	if m.callCount < len(m.uuids) {
		uuid := m.uuids[m.callCount]
		m.callCount++
		return uuid
	}
	return "default-uuid"
}
