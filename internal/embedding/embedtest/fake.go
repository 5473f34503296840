// Package embedtest provides a deterministic embedder for tests.
package embedtest

import (
	"context"
	"strings"
)

// BagOfWords embeds text as counts over a fixed vocabulary, so texts sharing
// words score higher.
type BagOfWords struct {
	Vocabulary []string
	Err        error
}

func (b BagOfWords) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if b.Err != nil {
		return nil, b.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = b.vector(t)
	}
	return out, nil
}

func (b BagOfWords) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if b.Err != nil {
		return nil, b.Err
	}
	return b.vector(text), nil
}

func (b BagOfWords) vector(text string) []float32 {
	vec := make([]float32, len(b.Vocabulary))
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,?!")
		for i, v := range b.Vocabulary {
			if w == v {
				vec[i]++
			}
		}
	}
	return vec
}
