package chromemdb

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-assistant/internal/embedding"
	"study-assistant/internal/models"
)

func sample() ([]models.Chunk, [][]float32) {
	chunks := []models.Chunk{{ID: 1, Text: "cells"}, {ID: 2, Text: "enzymes"}, {ID: 3, Text: "osmosis"}}
	vectors := [][]float32{{1, 2, 0}, {0, 3, 4}, {5, 0, 0}}
	return chunks, vectors
}

func TestEmbeddingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	chunks, vectors := sample()
	key := strings.Repeat("k", 32)

	path, err := SaveEmbeddings(ctx, filepath.Join(t.TempDir(), "doc.chromem"), chunks, vectors, true, key)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".gz"))

	gotChunks, gotVectors, err := LoadEmbeddings(ctx, path, key)
	require.NoError(t, err)
	assert.Equal(t, chunks, gotChunks)
	require.Len(t, gotVectors, len(vectors))
	for i := range vectors {
		assert.InDelta(t, 1.0, embedding.CosineSimilarity(vectors[i], gotVectors[i]), 1e-5)
	}
}

func TestSaveEmbeddingsValidates(t *testing.T) {
	ctx := context.Background()
	chunks, vectors := sample()
	dir := t.TempDir()

	_, err := SaveEmbeddings(ctx, filepath.Join(dir, "a"), chunks, vectors[:2], false, "")
	assert.ErrorIs(t, err, ErrLengthsDiffer)

	_, err = SaveEmbeddings(ctx, filepath.Join(dir, "b"), chunks, vectors, false, "short")
	assert.ErrorIs(t, err, ErrBadKey)
}

func TestLoadEmbeddingsMissingFile(t *testing.T) {
	_, _, err := LoadEmbeddings(context.Background(), filepath.Join(t.TempDir(), "none"), "")
	assert.Error(t, err)
}
