package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skimzy/skimzy/internal/api"
	"github.com/skimzy/skimzy/internal/api/middleware"
	"github.com/skimzy/skimzy/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z"

type LibraryItemSummaryResponse struct {
	ID          int64  `json:"id"`
	Source      string `json:"source"`
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	IndexStatus string `json:"index_status"`
	CreatedAt   string `json:"created_at"`
}

type LibraryItemResponse struct {
	LibraryItemSummaryResponse
	Flashcards []domain.Flashcard `json:"flashcards"`
	MCQs       []domain.MCQ       `json:"mcqs"`
	ChunkCount int                `json:"chunk_count"`
	UpdatedAt  string             `json:"updated_at"`
}

type ChatTurnResponse struct {
	ID            int64  `json:"id"`
	LibraryItemID int64  `json:"library_item_id"`
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	CreatedAt     string `json:"created_at"`
}

func libraryItemToSummary(item *domain.LibraryItem) LibraryItemSummaryResponse {
	return LibraryItemSummaryResponse{
		ID:          item.ID,
		Source:      item.Source,
		ContentType: string(item.ContentType),
		Title:       item.Title,
		Summary:     item.Summary,
		IndexStatus: string(item.IndexStatus),
		CreatedAt:   formatTime(item.CreatedAt),
	}
}

func libraryItemToResponse(item *domain.LibraryItem) *LibraryItemResponse {
	flashcards := item.Flashcards
	if flashcards == nil {
		flashcards = []domain.Flashcard{}
	}
	mcqs := item.MCQs
	if mcqs == nil {
		mcqs = []domain.MCQ{}
	}
	return &LibraryItemResponse{
		LibraryItemSummaryResponse: libraryItemToSummary(item),
		Flashcards:                 flashcards,
		MCQs:                       mcqs,
		ChunkCount:                 item.ChunkCount,
		UpdatedAt:                  formatTime(item.UpdatedAt),
	}
}

func chatTurnToResponse(turn *domain.ChatTurn) ChatTurnResponse {
	return ChatTurnResponse{
		ID:            turn.ID,
		LibraryItemID: turn.LibraryItemID,
		Question:      turn.Question,
		Answer:        turn.Answer,
		CreatedAt:     formatTime(turn.CreatedAt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// requireUser writes 401 and returns false when the request is unauthenticated.
func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return 0, false
	}
	return userID, true
}

// pathID parses a positive integer URL parameter, writing 400 otherwise.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		api.Error(w, http.StatusBadRequest, name+" is required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		api.Error(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}
