// Package summarizer builds the short document overview shown above the chat.
package summarizer

import (
	"math"
	"sort"
	"strings"

	"contractqa/internal/domain"
	"contractqa/internal/textutil"
)

// DefaultMaxSentences is used when Summarize is called with a non-positive limit.
const DefaultMaxSentences = 5

// FrequencySummarizer ranks sentences by normalized term frequency and keeps
// the best ones in document order.
type FrequencySummarizer struct{}

var _ domain.Summarizer = (*FrequencySummarizer)(nil)

// NewFrequencySummarizer creates a frequency-based sentence ranker summarizer.
func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{}
}

// Summarize returns at most maxSentences sentences of text.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	sentences := textutil.Sentences(text)
	if len(sentences) <= 1 {
		return strings.Join(sentences, ""), nil
	}

	terms := make([][]string, len(sentences))
	freq := map[string]float64{}
	maxF := 0.0
	for i, sent := range sentences {
		terms[i] = textutil.Terms(sent)
		for _, t := range terms[i] {
			freq[t]++
			maxF = math.Max(maxF, freq[t])
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, sent := range sentences {
		sum := 0.0
		for _, t := range terms[i] {
			sum += freq[t] / maxF
		}
		// Long sentences would otherwise always win.
		if n := len(textutil.Words(sent)); n > 0 {
			sum /= math.Sqrt(float64(n))
		}
		scores[i] = scored{i, sum}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if maxSentences > len(scores) {
		maxSentences = len(scores)
	}
	selected := make([]int, maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, len(selected))
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " "), nil
}

// None disables the overview.
type None struct{}

func (None) Summarize(string, int) (string, error) { return "", nil }
