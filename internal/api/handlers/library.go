package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/skimzy/skimzy/internal/api"
	"github.com/skimzy/skimzy/internal/domain"
	"github.com/skimzy/skimzy/internal/service"
)

type LibraryService interface {
	List(ctx context.Context, input service.ListLibraryInput) (*service.ListLibraryOutput, error)
	Get(ctx context.Context, userID, id int64) (*domain.LibraryItem, error)
	Delete(ctx context.Context, userID, id int64) error
	PresignedSource(ctx context.Context, userID, id int64) (string, error)
}

type Reindexer interface {
	Enqueue(ctx context.Context, libraryItemID int64) (*domain.ReindexJob, error)
}

type LibraryHandler struct {
	svc       LibraryService
	reindexer Reindexer
}

func NewLibraryHandler(svc LibraryService, reindexer Reindexer) *LibraryHandler {
	return &LibraryHandler{svc: svc, reindexer: reindexer}
}

type ListLibraryResponse struct {
	Items   []LibraryItemSummaryResponse `json:"items"`
	Cursor  string                       `json:"cursor,omitempty"`
	HasMore bool                         `json:"has_more"`
}

type SourceResponse struct {
	DownloadURL string `json:"download_url"`
}

type ReindexResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

func (h *LibraryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	input := service.ListLibraryInput{
		UserID: userID,
		Cursor: r.URL.Query().Get("cursor"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		input.Limit = limit
	}

	out, err := h.svc.List(r.Context(), input)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	items := make([]LibraryItemSummaryResponse, 0, len(out.Items))
	for _, item := range out.Items {
		items = append(items, libraryItemToSummary(item))
	}

	api.Success(w, http.StatusOK, ListLibraryResponse{
		Items:   items,
		Cursor:  out.Cursor,
		HasMore: out.HasMore,
	})
}

func (h *LibraryHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	item, err := h.svc.Get(r.Context(), userID, id)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, libraryItemToResponse(item))
}

func (h *LibraryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), userID, id); err != nil {
		api.HandleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *LibraryHandler) Source(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	url, err := h.svc.PresignedSource(r.Context(), userID, id)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, SourceResponse{DownloadURL: url})
}

// Reindex queues a rebuild of the item's vector points.
func (h *LibraryHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.svc.Get(r.Context(), userID, id); err != nil {
		api.HandleError(w, r, err)
		return
	}

	job, err := h.reindexer.Enqueue(r.Context(), id)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusAccepted, ReindexResponse{JobID: job.ID, Status: string(job.Status)})
}
