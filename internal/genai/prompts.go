package genai

import "strings"

// CampusPreamble scopes the model to campus questions.
const CampusPreamble = "You are a helpful campus assistant for a university. " +
	"Provide clear, concise, and polite answers to student questions related to college services, " +
	"academics, and campus facilities. If a question is completely unrelated to college/campus life, " +
	"politely decline to answer. Keep answers short and helpful."

// MaxQuestionLength bounds the question text sent upstream, in runes.
const MaxQuestionLength = 1000

// BuildPrompt returns the full prompt for question.
func BuildPrompt(question string) string {
	q := strings.TrimSpace(question)
	if r := []rune(q); len(r) > MaxQuestionLength {
		q = string(r[:MaxQuestionLength])
	}

	var b strings.Builder
	b.Grow(len(CampusPreamble) + len(q) + 32)
	b.WriteString(CampusPreamble)
	b.WriteString("\n\nStudent Question: ")
	b.WriteString(q)
	return b.String()
}
