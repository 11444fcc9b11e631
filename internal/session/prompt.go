package session

import (
	"strings"

	"contractqa/internal/domain"
)

// SystemPrompt restricts the model to the retrieved excerpts.
const SystemPrompt = `You are a helpful contract assistant. Use ONLY the provided context (document excerpts) to answer.
If the answer isn't present in the context, say: "` + NotFoundAnswer + `" Keep answers concise and cite the chunk id.`

// NotFoundAnswer is the sentence the model is told to use when the context
// does not contain the answer.
const NotFoundAnswer = "I cannot find that information in the contract."

// BuildUserPrompt lays out the question followed by each retrieved chunk,
// cut to maxContextChars characters.
func BuildUserPrompt(query string, results []domain.RetrievalResult, maxContextChars int) string {
	var b strings.Builder
	b.WriteString("QUESTION:\n")
	b.WriteString(query)
	b.WriteString("\n\nCONTEXT:\n")
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("CHUNK_ID: ")
		b.WriteString(r.ChunkID)
		b.WriteString("\n")
		b.WriteString(Truncate(r.Text, maxContextChars))
	}
	return b.String()
}

// Truncate returns the first max characters of text. It slices by rune and
// may cut mid-word. A non-positive max leaves text unchanged.
func Truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	n := 0
	for i := range text {
		if n == max {
			return text[:i]
		}
		n++
	}
	return text
}
