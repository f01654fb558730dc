package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"

	"github.com/skimzy/skimzy/internal/domain"
	"github.com/skimzy/skimzy/internal/logging"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error         string `json:"error"`
	Code          string `json:"code,omitempty"`
	LibraryItemID int64  `json:"library_item_id,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP maps domain errors to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch domain.ErrorCode(err) {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeAlreadyExists:
		return http.StatusConflict
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrCodeExternalService, domain.ErrCodeGenerationFormat:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes an error response for err. Client errors carry the
// domain message; server errors carry a generic message and the cause is
// logged and reported to Sentry instead.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	status := DomainErrorToHTTP(err)
	code := domain.ErrorCode(err)

	if status < http.StatusInternalServerError {
		JSON(w, status, ErrorResponse{Error: clientMessage(err), Code: code})
		return
	}

	logging.Ctx(r.Context()).Error().Err(err).
		Str("code", code).
		Str("path", r.URL.Path).
		Msg("request failed")
	if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
		hub.CaptureException(err)
	}

	resp := ErrorResponse{Error: serverMessage(err), Code: code}
	var partial *domain.PartialIngestionError
	if errors.As(err, &partial) {
		resp.LibraryItemID = partial.LibraryItemID
	}
	JSON(w, status, resp)
}

func clientMessage(err error) string {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		if domainErr.Err != nil && domainErr.Code == domain.ErrCodeValidation {
			return domainErr.Message + ": " + domainErr.Err.Error()
		}
		return domainErr.Message
	}
	return err.Error()
}

func serverMessage(err error) string {
	var ext *domain.ExternalServiceError
	var partial *domain.PartialIngestionError
	switch {
	case errors.As(err, &partial):
		return "document stored but not yet searchable; indexing will be retried"
	case errors.As(err, &ext):
		if ext.Timeout {
			return ext.Service + " timed out"
		}
		return ext.Service + " unavailable"
	case domain.ErrorCode(err) == domain.ErrCodeGenerationFormat:
		return "content generator returned malformed output"
	default:
		return "internal server error"
	}
}
