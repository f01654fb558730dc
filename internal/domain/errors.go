package domain

import (
	"context"
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewValidationError reports malformed or empty input.
func NewValidationError(message string) *DomainError {
	return NewDomainError(ErrCodeValidation, message)
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeExternalService  = "EXTERNAL_SERVICE_ERROR"
	ErrCodeGenerationFormat = "GENERATION_FORMAT_ERROR"
	ErrCodePartialIngestion = "PARTIAL_INGESTION"
)

// Validation errors
var (
	ErrEmptyDocument        = NewDomainError(ErrCodeValidation, "document has no extractable content")
	ErrEmptyQuestion        = NewDomainError(ErrCodeValidation, "question is required")
	ErrMissingLibraryItemID = NewDomainError(ErrCodeValidation, "library item id is required")
	ErrInvalidPDF           = NewDomainError(ErrCodeValidation, "file is not a valid PDF")
	ErrInvalidURL           = NewDomainError(ErrCodeValidation, "url must be an absolute http(s) URL")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors. A library item owned by another user is reported the
// same way as a missing one.
var (
	ErrLibraryItemNotFound = NewDomainError(ErrCodeNotFound, "library item not found")
	ErrUserNotFound        = NewDomainError(ErrCodeNotFound, "user not found")
	ErrAPIKeyNotFound      = NewDomainError(ErrCodeNotFound, "api key not found")
	ErrReindexJobNotFound  = NewDomainError(ErrCodeNotFound, "reindex job not found")
	ErrSourceNotAvailable  = NewDomainError(ErrCodeNotFound, "library item has no stored source file")
)

// Already exists errors
var (
	ErrUserAlreadyExists   = NewDomainError(ErrCodeAlreadyExists, "user already exists")
	ErrAPIKeyAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "api key already exists")
)

// Authorization errors
var (
	ErrAPIKeyRevoked = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

var ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")

// ExternalServiceError wraps a failure of a remote collaborator: embedder,
// generator, answerer, vector index, object store or fetcher.
type ExternalServiceError struct {
	Service string
	Timeout bool
	Err     error
}

func (e *ExternalServiceError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("[%s] %s timed out: %v", ErrCodeExternalService, e.Service, e.Err)
	}
	return fmt.Sprintf("[%s] %s failed: %v", ErrCodeExternalService, e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// NewExternalServiceError wraps err, flagging deadline expiry as a timeout.
// An error that already is an ExternalServiceError is returned unchanged.
func NewExternalServiceError(service string, err error) error {
	var ext *ExternalServiceError
	if errors.As(err, &ext) {
		return err
	}
	return &ExternalServiceError{
		Service: service,
		Timeout: errors.Is(err, context.DeadlineExceeded),
		Err:     err,
	}
}

// GenerationFormatError means the content generator returned text that is
// not the expected JSON object. Raw keeps the offending output for logs.
type GenerationFormatError struct {
	Raw string
	Err error
}

func (e *GenerationFormatError) Error() string {
	return fmt.Sprintf("[%s] generated content is malformed: %v", ErrCodeGenerationFormat, e.Err)
}

func (e *GenerationFormatError) Unwrap() error {
	return e.Err
}

func NewGenerationFormatError(raw string, err error) *GenerationFormatError {
	return &GenerationFormatError{Raw: raw, Err: err}
}

// PartialIngestionError means the library item was stored but its chunks
// were not indexed. The item is queued for reindexing.
type PartialIngestionError struct {
	LibraryItemID int64
	Err           error
}

func (e *PartialIngestionError) Error() string {
	return fmt.Sprintf("[%s] library item %d stored but not indexed: %v", ErrCodePartialIngestion, e.LibraryItemID, e.Err)
}

func (e *PartialIngestionError) Unwrap() error {
	return e.Err
}

func NewPartialIngestionError(libraryItemID int64, err error) *PartialIngestionError {
	return &PartialIngestionError{LibraryItemID: libraryItemID, Err: err}
}

// ErrorCode returns the code for any error in the taxonomy, INTERNAL_ERROR otherwise.
func ErrorCode(err error) string {
	var partial *PartialIngestionError
	var format *GenerationFormatError
	var ext *ExternalServiceError
	var domainErr *DomainError

	switch {
	case errors.As(err, &partial):
		return ErrCodePartialIngestion
	case errors.As(err, &format):
		return ErrCodeGenerationFormat
	case errors.As(err, &ext):
		return ErrCodeExternalService
	case errors.As(err, &domainErr):
		return domainErr.Code
	default:
		return ErrCodeInternalError
	}
}
