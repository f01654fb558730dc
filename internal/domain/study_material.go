package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Flashcard is a single question/answer card.
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// MCQ is a multiple-choice question. Answer holds the text of the correct option.
type MCQ struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// StudyMaterial is the structured output of the content generator.
type StudyMaterial struct {
	Title      string      `json:"title"`
	Summary    string      `json:"summary"`
	Flashcards []Flashcard `json:"flashcards"`
	MCQs       []MCQ       `json:"mcqs"`
}

var errMissingSummary = errors.New("summary field is missing or empty")

// ParseStudyMaterial decodes the generator's raw output. Markdown code fences
// around the JSON object are tolerated. Any decoding failure or a missing
// summary yields a GenerationFormatError carrying the raw text.
func ParseStudyMaterial(raw string) (*StudyMaterial, error) {
	body := stripCodeFence(raw)
	if body == "" {
		return nil, NewGenerationFormatError(raw, errors.New("empty generator output"))
	}

	var material StudyMaterial
	if err := json.Unmarshal([]byte(body), &material); err != nil {
		return nil, NewGenerationFormatError(raw, fmt.Errorf("decode generator output: %w", err))
	}

	material.Title = strings.TrimSpace(material.Title)
	if strings.TrimSpace(material.Summary) == "" {
		return nil, NewGenerationFormatError(raw, errMissingSummary)
	}
	if material.Flashcards == nil {
		material.Flashcards = []Flashcard{}
	}
	if material.MCQs == nil {
		material.MCQs = []MCQ{}
	}

	return &material, nil
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
