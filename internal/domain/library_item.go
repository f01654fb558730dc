package domain

import (
	"fmt"
	"time"
)

// ContentType records where a library item's text came from.
type ContentType string

const (
	ContentTypeURL ContentType = "url"
	ContentTypePDF ContentType = "pdf"
)

// IndexStatus tracks whether a library item's chunks are searchable.
type IndexStatus string

const (
	IndexStatusPending IndexStatus = "pending"
	IndexStatusIndexed IndexStatus = "indexed"
	IndexStatusFailed  IndexStatus = "failed"
)

const DefaultTitle = "Untitled"

// LibraryItem is one ingested document together with its generated study material.
type LibraryItem struct {
	ID          int64
	UserID      int64
	Source      string // original URL or object-store URL of the uploaded PDF
	ObjectKey   string // object-store key of the uploaded PDF, empty for URLs
	ContentType ContentType
	Title       string
	Summary     string
	Flashcards  []Flashcard
	MCQs        []MCQ
	Content     string // extracted text, kept for reindexing
	ChunkCount  int
	IndexStatus IndexStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewLibraryItem builds a pending library item from generated study material.
func NewLibraryItem(userID int64, source string, contentType ContentType, material *StudyMaterial, content string, now time.Time) *LibraryItem {
	item := &LibraryItem{
		UserID:      userID,
		Source:      source,
		ContentType: contentType,
		Title:       DefaultTitle,
		Content:     content,
		IndexStatus: IndexStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if material != nil {
		if material.Title != "" {
			item.Title = material.Title
		}
		item.Summary = material.Summary
		item.Flashcards = material.Flashcards
		item.MCQs = material.MCQs
	}
	if item.Flashcards == nil {
		item.Flashcards = []Flashcard{}
	}
	if item.MCQs == nil {
		item.MCQs = []MCQ{}
	}
	return item
}

// IsSearchable reports whether chat questions can be answered from this item.
func (l *LibraryItem) IsSearchable() bool {
	return l.IndexStatus == IndexStatusIndexed && l.ChunkCount > 0
}

// ValidateLibraryItem validates a LibraryItem before it is persisted.
func ValidateLibraryItem(l *LibraryItem) error {
	if l == nil {
		return fmt.Errorf("library item cannot be nil")
	}

	if l.UserID <= 0 {
		return fmt.Errorf("library item UserID is required")
	}

	if l.Source == "" {
		return fmt.Errorf("library item Source is required")
	}

	if !IsValidContentType(l.ContentType) {
		return fmt.Errorf("library item ContentType is invalid: %s", l.ContentType)
	}

	if !IsValidIndexStatus(l.IndexStatus) {
		return fmt.Errorf("library item IndexStatus is invalid: %s", l.IndexStatus)
	}

	if l.Summary == "" {
		return fmt.Errorf("library item Summary is required")
	}

	return nil
}

func IsValidContentType(t ContentType) bool {
	switch t {
	case ContentTypeURL, ContentTypePDF:
		return true
	}
	return false
}

func IsValidIndexStatus(s IndexStatus) bool {
	switch s {
	case IndexStatusPending, IndexStatusIndexed, IndexStatusFailed:
		return true
	}
	return false
}
