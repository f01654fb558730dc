package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/skimzy/skimzy/internal/api"
	"github.com/skimzy/skimzy/internal/service"
)

// MaxPDFBytes bounds an uploaded PDF.
const MaxPDFBytes int64 = 20 * 1024 * 1024

type IngestionService interface {
	IngestURL(ctx context.Context, userID int64, rawURL string) (*service.IngestResult, error)
	IngestPDF(ctx context.Context, userID int64, filename string, data []byte) (*service.IngestResult, error)
}

type IngestHandler struct {
	svc IngestionService
}

func NewIngestHandler(svc IngestionService) *IngestHandler {
	return &IngestHandler{svc: svc}
}

type IngestURLRequest struct {
	URL string `json:"url"`
}

func (h *IngestHandler) IngestURL(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req IngestURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		api.Error(w, http.StatusBadRequest, "url is required")
		return
	}

	result, err := h.svc.IngestURL(r.Context(), userID, req.URL)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusCreated, libraryItemToResponse(result.Item))
}

func (h *IngestHandler) IngestPDF(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxPDFBytes+1024*1024)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.Error(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/pdf" && ct != "application/octet-stream" {
		api.Error(w, http.StatusBadRequest, "only PDF files are supported")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxPDFBytes+1))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if int64(len(data)) > MaxPDFBytes {
		api.Error(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	if len(data) == 0 {
		api.Error(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	result, err := h.svc.IngestPDF(r.Context(), userID, header.Filename, data)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusCreated, libraryItemToResponse(result.Item))
}
