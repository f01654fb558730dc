// Package prompt holds the instructions sent to the content generator and
// the answering model. Providers share them so output shape is identical.
package prompt

import (
	"fmt"
	"strings"
)

// MaxContextChunks caps how many retrieved chunks reach the answering model.
const MaxContextChunks = 5

const StudyMaterialSystem = `You are an assistant helping students learn from articles efficiently.
Respond with a single JSON object and nothing else. The object has these keys:
  "title":      a short title for the document
  "summary":    a Markdown summary using ## headings and bullet or numbered lists
  "flashcards": an array of 5 objects {"question": string, "answer": string}
  "mcqs":       an array of 5 objects {"question": string, "options": [4 strings], "answer": string}
The "answer" of each mcq must be exactly one of its options.`

const AnswerSystem = `You are a helpful assistant. First, try to answer the user's question strictly using the provided context. ` +
	`If the answer is not found in the context, then you may use your broader knowledge, but make it clear by starting your answer with: ` +
	`"NOTE: This answer is not in the provided context. However, based on my wider knowledge, here is a possible answer:"`

// StudyMaterialUser wraps the document text for the content generator.
func StudyMaterialUser(text string) string {
	return fmt.Sprintf("ARTICLE:\n%s", text)
}

// AnswerUser joins at most MaxContextChunks chunks with blank lines, in the order given.
func AnswerUser(question string, chunks []string) string {
	if len(chunks) > MaxContextChunks {
		chunks = chunks[:MaxContextChunks]
	}
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", strings.Join(chunks, "\n\n"), question)
}
