package domain

import (
	"fmt"
	"time"
)

// ReindexJobStatus represents the status of a reindex job
type ReindexJobStatus string

const (
	ReindexJobStatusPending    ReindexJobStatus = "pending"
	ReindexJobStatusProcessing ReindexJobStatus = "processing"
	ReindexJobStatusCompleted  ReindexJobStatus = "completed"
	ReindexJobStatusFailed     ReindexJobStatus = "failed"
)

// ReindexJob asks the background worker to rebuild the vector points of a
// library item whose indexing failed or was requested manually.
type ReindexJob struct {
	ID            string
	LibraryItemID int64
	Status        ReindexJobStatus
	Retries       int32
	Error         string
	CreatedAt     time.Time
	ProcessedAt   *time.Time
}

// NewReindexJob creates a new ReindexJob instance
func NewReindexJob(
	id string,
	libraryItemID int64,
	status ReindexJobStatus,
	retries int32,
	errMsg string,
	createdAt time.Time,
	processedAt *time.Time,
) *ReindexJob {
	return &ReindexJob{
		ID:            id,
		LibraryItemID: libraryItemID,
		Status:        status,
		Retries:       retries,
		Error:         errMsg,
		CreatedAt:     createdAt,
		ProcessedAt:   processedAt,
	}
}

// ValidateReindexJob validates a ReindexJob instance
func ValidateReindexJob(j *ReindexJob) error {
	if j == nil {
		return fmt.Errorf("reindex job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("reindex job ID is required")
	}

	if j.LibraryItemID <= 0 {
		return fmt.Errorf("reindex job LibraryItemID is required")
	}

	if !isValidReindexJobStatus(j.Status) {
		return fmt.Errorf("reindex job Status is invalid: %s", j.Status)
	}

	if j.Retries < 0 {
		return fmt.Errorf("reindex job Retries cannot be negative")
	}

	return nil
}

func isValidReindexJobStatus(s ReindexJobStatus) bool {
	switch s {
	case ReindexJobStatusPending, ReindexJobStatusProcessing,
		ReindexJobStatusCompleted, ReindexJobStatusFailed:
		return true
	}
	return false
}
