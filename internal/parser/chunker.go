package parser

import (
	"errors"
	"regexp"
	"strings"

	"study-assistant/internal/models"
)

const DefaultWordsPerChunk = 1000

var ErrInvalidChunkSize = errors.New("words per chunk must be a positive integer")

var blankLinesRe = regexp.MustCompile(`\n{2,}`)

// Clean strips carriage returns, collapses runs of newlines and trims the result.
func Clean(txt string) string {
	txt = strings.ReplaceAll(txt, "\r", " ")
	txt = blankLinesRe.ReplaceAllString(txt, "\n")
	return strings.TrimSpace(txt)
}

// ChunkText splits txt on whitespace into windows of wordsPerChunk words. The
// last window may be shorter. Ids start at 1.
func ChunkText(txt string, wordsPerChunk int) ([]models.Chunk, error) {
	if wordsPerChunk <= 0 {
		return nil, ErrInvalidChunkSize
	}

	words := strings.Fields(txt)
	chunks := make([]models.Chunk, 0, (len(words)+wordsPerChunk-1)/wordsPerChunk)
	for start := 0; start < len(words); start += wordsPerChunk {
		end := min(start+wordsPerChunk, len(words))
		chunks = append(chunks, models.Chunk{
			ID:   start/wordsPerChunk + 1,
			Text: strings.Join(words[start:end], " "),
		})
	}
	return chunks, nil
}

// JoinChunks reassembles chunk text in order.
func JoinChunks(chunks []models.Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Text
	}
	return strings.Join(parts, " ")
}
