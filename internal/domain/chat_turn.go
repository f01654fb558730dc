package domain

import (
	"fmt"
	"time"
)

// NoRelevantContentAnswer is returned when retrieval finds no chunks for the
// question. No chat turn is recorded in that case.
const NoRelevantContentAnswer = "I couldn't find anything relevant to that question in this document."

// ChatTurn is one persisted question/answer exchange about a library item.
type ChatTurn struct {
	ID            int64
	UserID        int64
	LibraryItemID int64
	Question      string
	Answer        string
	CreatedAt     time.Time
}

// NewChatTurn creates a new ChatTurn instance
func NewChatTurn(userID, libraryItemID int64, question, answer string, createdAt time.Time) *ChatTurn {
	return &ChatTurn{
		UserID:        userID,
		LibraryItemID: libraryItemID,
		Question:      question,
		Answer:        answer,
		CreatedAt:     createdAt,
	}
}

// ValidateChatTurn validates a ChatTurn instance
func ValidateChatTurn(c *ChatTurn) error {
	if c == nil {
		return fmt.Errorf("chat turn cannot be nil")
	}

	if c.UserID <= 0 {
		return fmt.Errorf("chat turn UserID is required")
	}

	if c.LibraryItemID <= 0 {
		return fmt.Errorf("chat turn LibraryItemID is required")
	}

	if c.Question == "" {
		return fmt.Errorf("chat turn Question is required")
	}

	if c.Answer == "" {
		return fmt.Errorf("chat turn Answer is required")
	}

	return nil
}
