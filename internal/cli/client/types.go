package client

// Flashcard is a study question with its answer.
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type MCQ struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

type LibraryItemSummary struct {
	ID          int64  `json:"id"`
	Source      string `json:"source"`
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	IndexStatus string `json:"index_status"`
	CreatedAt   string `json:"created_at"`
}

type LibraryItem struct {
	LibraryItemSummary
	Flashcards []Flashcard `json:"flashcards"`
	MCQs       []MCQ       `json:"mcqs"`
	ChunkCount int         `json:"chunk_count"`
	UpdatedAt  string      `json:"updated_at"`
}

type LibraryPage struct {
	Items   []LibraryItemSummary `json:"items"`
	Cursor  string               `json:"cursor,omitempty"`
	HasMore bool                 `json:"has_more"`
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

type ChatTurn struct {
	ID            int64  `json:"id"`
	LibraryItemID int64  `json:"library_item_id"`
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	CreatedAt     string `json:"created_at"`
}
