package questions

import (
	"math/rand/v2"
	"strings"

	"study-assistant/internal/models"
)

const (
	// NumDistractors keeps every MCQ at one option per letter.
	NumDistractors = len(models.OptionLetters) - 1
	MaxOptionWords = 12
)

// ClipWords shortens text to at most n words so options stay short.
func ClipWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return text
	}
	return strings.Join(words[:n], " ")
}

// Distractors picks topK wrong options for answer, each clipped to maxWords.
// Candidates equal to the answer ignoring case are dropped. When fewer than
// topK usable candidates remain, every pick comes from
// models.FallbackDistractors instead.
func Distractors(candidates []string, answer string, topK, maxWords int, rng *rand.Rand) []string {
	seen := make(map[string]bool, len(candidates))
	pool := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = ClipWords(strings.TrimSpace(c), maxWords)
		if c == "" || strings.EqualFold(c, answer) || seen[c] {
			continue
		}
		seen[c] = true
		pool = append(pool, c)
	}

	if len(pool) >= topK {
		return sample(pool, topK, rng)
	}

	fallback := make([]string, 0, len(models.FallbackDistractors))
	for _, f := range models.FallbackDistractors {
		if !strings.EqualFold(f, answer) {
			fallback = append(fallback, f)
		}
	}
	return sample(fallback, topK, rng)
}

// sample draws k values without replacement.
func sample(values []string, k int, rng *rand.Rand) []string {
	k = min(k, len(values))
	out := make([]string, k)
	for i, idx := range rng.Perm(len(values))[:k] {
		out[i] = values[idx]
	}
	return out
}
