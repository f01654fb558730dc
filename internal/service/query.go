package service

import (
	"context"
	"strings"
	"time"

	"github.com/skimzy/skimzy/internal/domain"
	"github.com/skimzy/skimzy/internal/logging"
	"github.com/skimzy/skimzy/internal/metrics"
	"github.com/skimzy/skimzy/internal/prompt"
	"github.com/skimzy/skimzy/internal/telemetry"
	"github.com/skimzy/skimzy/internal/vectorindex"
)

// ChatTurnRepositoryInterface defines the repository interface for chat history persistence
type ChatTurnRepositoryInterface interface {
	Create(ctx context.Context, turn *domain.ChatTurn) error
	ListByItem(ctx context.Context, userID, libraryItemID int64) ([]*domain.ChatTurn, error)
}

type QueryConfig struct {
	SearchLimit int
	Timeouts    Timeouts
}

// QueryService answers questions about one library item from its indexed chunks.
type QueryService struct {
	items    LibraryItemRepositoryInterface
	turns    ChatTurnRepositoryInterface
	embedder Embedder
	index    vectorindex.Index
	answerer Answerer
	cfg      QueryConfig
	now      func() time.Time
}

func NewQueryService(
	items LibraryItemRepositoryInterface,
	turns ChatTurnRepositoryInterface,
	embedder Embedder,
	index vectorindex.Index,
	answerer Answerer,
	cfg QueryConfig,
) *QueryService {
	if cfg.SearchLimit <= 0 || cfg.SearchLimit > prompt.MaxContextChunks {
		cfg.SearchLimit = prompt.MaxContextChunks
	}
	return &QueryService{
		items:    items,
		turns:    turns,
		embedder: embedder,
		index:    index,
		answerer: answerer,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type AskInput struct {
	UserID        int64
	LibraryItemID int64
	Question      string
}

type AskResult struct {
	Answer string
	// Turn is nil when no relevant content was found.
	Turn              *domain.ChatTurn
	SourceCount       int
	NoRelevantContent bool
}

// Ask retrieves the chunks of the item most similar to the question and
// answers from them. When no chunk matches, a fixed answer is returned
// without calling the answerer or recording a chat turn.
func (s *QueryService) Ask(ctx context.Context, input AskInput) (*AskResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryService.Ask", telemetry.SpanAttributes{
		UserID:        input.UserID,
		LibraryItemID: input.LibraryItemID,
		Operation:     "ask",
	})
	defer span.End()

	result, err := s.ask(ctx, input)
	switch {
	case err != nil:
		metrics.RecordQuestion(metrics.OutcomeError)
		if isServerFault(err) {
			span.SetError(err)
		}
	case result.NoRelevantContent:
		metrics.RecordQuestion(metrics.OutcomeNoContent)
	default:
		metrics.RecordQuestion(metrics.OutcomeSuccess)
	}
	return result, err
}

func (s *QueryService) ask(ctx context.Context, input AskInput) (*AskResult, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}
	if input.LibraryItemID <= 0 {
		return nil, domain.ErrMissingLibraryItemID
	}

	if _, err := s.items.GetForUser(ctx, input.UserID, input.LibraryItemID); err != nil {
		return nil, err
	}

	vector, err := embedQuestion(ctx, s.embedder, s.cfg.Timeouts.Embed, question)
	if err != nil {
		return nil, err
	}

	hits, err := s.search(ctx, vectorindex.SearchRequest{
		Vector: vector,
		Filter: vectorindex.Filter{UserID: input.UserID, LibraryItemID: input.LibraryItemID},
		Limit:  s.cfg.SearchLimit,
	})
	if err != nil {
		return nil, err
	}

	logger := logging.Ctx(ctx).With().
		Int64("user_id", input.UserID).
		Int64("library_item_id", input.LibraryItemID).
		Logger()

	chunks := make([]string, 0, len(hits))
	for _, hit := range hits {
		if len(chunks) == prompt.MaxContextChunks {
			break
		}
		if strings.TrimSpace(hit.Payload.TextChunk) == "" {
			continue
		}
		chunks = append(chunks, hit.Payload.TextChunk)
	}

	if len(chunks) == 0 {
		logger.Info().Int("hits", len(hits)).Msg("no relevant content for question")
		return &AskResult{Answer: domain.NoRelevantContentAnswer, NoRelevantContent: true}, nil
	}

	answer, err := s.answer(ctx, question, chunks)
	if err != nil {
		return nil, err
	}

	turn := domain.NewChatTurn(input.UserID, input.LibraryItemID, question, answer, s.now())
	if err := domain.ValidateChatTurn(turn); err != nil {
		return nil, err
	}
	if err := s.turns.Create(ctx, turn); err != nil {
		return nil, err
	}

	logger.Info().Int("sources", len(chunks)).Int64("chat_turn_id", turn.ID).Msg("question answered")

	return &AskResult{Answer: answer, Turn: turn, SourceCount: len(chunks)}, nil
}

// History returns the chat turns of an item, oldest first.
func (s *QueryService) History(ctx context.Context, userID, libraryItemID int64) ([]*domain.ChatTurn, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryService.History", telemetry.SpanAttributes{
		UserID:        userID,
		LibraryItemID: libraryItemID,
		Operation:     "history",
	})
	defer span.End()

	if libraryItemID <= 0 {
		return nil, domain.ErrMissingLibraryItemID
	}
	if _, err := s.items.GetForUser(ctx, userID, libraryItemID); err != nil {
		return nil, err
	}
	return s.turns.ListByItem(ctx, userID, libraryItemID)
}

func (s *QueryService) search(ctx context.Context, req vectorindex.SearchRequest) ([]vectorindex.ScoredPoint, error) {
	ctx, cancel := withTimeout(ctx, s.cfg.Timeouts.Vector)
	defer cancel()

	start := time.Now()
	hits, err := s.index.Search(ctx, req)
	metrics.ObserveDependency(metrics.DependencyVector, start)
	if err != nil {
		return nil, domain.NewExternalServiceError(ServiceVectorIndex, err)
	}
	return hits, nil
}

func (s *QueryService) answer(ctx context.Context, question string, chunks []string) (string, error) {
	ctx, cancel := withTimeout(ctx, s.cfg.Timeouts.LLM)
	defer cancel()

	start := time.Now()
	answer, err := s.answerer.Answer(ctx, question, chunks)
	metrics.ObserveDependency(metrics.DependencyAnswerer, start)
	if err != nil {
		return "", domain.NewExternalServiceError(ServiceAnswerer, err)
	}
	return answer, nil
}
