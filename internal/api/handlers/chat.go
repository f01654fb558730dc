package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/skimzy/skimzy/internal/api"
	"github.com/skimzy/skimzy/internal/domain"
	"github.com/skimzy/skimzy/internal/service"
)

type QueryService interface {
	Ask(ctx context.Context, input service.AskInput) (*service.AskResult, error)
	History(ctx context.Context, userID, libraryItemID int64) ([]*domain.ChatTurn, error)
}

type ChatHandler struct {
	svc QueryService
}

func NewChatHandler(svc QueryService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type AskRequest struct {
	LibraryItemID int64  `json:"library_item_id"`
	Question      string `json:"question"`
}

type AskResponse struct {
	Answer            string `json:"answer"`
	ChatTurnID        int64  `json:"chat_turn_id,omitempty"`
	SourceCount       int    `json:"source_count"`
	NoRelevantContent bool   `json:"no_relevant_content"`
}

func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Ask(r.Context(), service.AskInput{
		UserID:        userID,
		LibraryItemID: req.LibraryItemID,
		Question:      req.Question,
	})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	resp := AskResponse{
		Answer:            result.Answer,
		SourceCount:       result.SourceCount,
		NoRelevantContent: result.NoRelevantContent,
	}
	if result.Turn != nil {
		resp.ChatTurnID = result.Turn.ID
	}
	api.Success(w, http.StatusOK, resp)
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "library_item_id")
	if !ok {
		return
	}

	turns, err := h.svc.History(r.Context(), userID, id)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	out := make([]ChatTurnResponse, 0, len(turns))
	for _, turn := range turns {
		out = append(out, chatTurnToResponse(turn))
	}
	api.Success(w, http.StatusOK, out)
}
