package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"study-assistant/internal/helper"
	"study-assistant/internal/models"
)

const collectionName = "chunks"

var (
	ErrBadKey        = errors.New("encryption key must be empty or 32 bytes")
	ErrLengthsDiffer = errors.New("chunks and embeddings differ in length")
)

// SaveEmbeddings exports chunks and their vectors as a chromem collection
// file. A non-empty encryptionKey encrypts the file; compress gzips it and
// forces a .gz suffix. The written path is returned.
func SaveEmbeddings(ctx context.Context, path string, chunks []models.Chunk, vectors [][]float32, compress bool, encryptionKey string) (string, error) {
	if len(chunks) != len(vectors) {
		return "", ErrLengthsDiffer
	}
	if err := checkKey(encryptionKey); err != nil {
		return "", err
	}
	if compress && !strings.HasSuffix(path, ".gz") {
		path += ".gz"
	}
	if err := helper.CreateParent(path); err != nil {
		return "", err
	}

	db := chromem.NewDB()
	c, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create collection: %v", err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(chunk.ID),
			Content:   chunk.Text,
			Metadata:  map[string]string{"chunk_id": strconv.Itoa(chunk.ID)},
			Embedding: vectors[i],
		}
	}
	if len(docs) > 0 {
		if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return "", fmt.Errorf("failed to add documents: %v", err)
		}
	}

	if err := db.ExportToFile(path, compress, encryptionKey, collectionName); err != nil {
		return "", fmt.Errorf("failed to export database: %v", err)
	}
	log.Debug().Str("path", path).Int("chunks", len(chunks)).Bool("compress", compress).Msg("Exported embeddings")
	return path, nil
}

// LoadEmbeddings reads a file written by SaveEmbeddings. Chunk ids are
// contiguous from 1, so they come back in id order. chromem stores vectors
// normalized, which leaves cosine scores unchanged.
func LoadEmbeddings(ctx context.Context, path, encryptionKey string) ([]models.Chunk, [][]float32, error) {
	if err := checkKey(encryptionKey); err != nil {
		return nil, nil, err
	}
	db := chromem.NewDB()
	if err := db.ImportFromFile(path, encryptionKey, collectionName); err != nil {
		return nil, nil, fmt.Errorf("failed to import database: %v", err)
	}
	c := db.GetCollection(collectionName, nil)
	if c == nil {
		return nil, nil, fmt.Errorf("collection %q missing from %s", collectionName, path)
	}

	count := c.Count()
	chunks := make([]models.Chunk, 0, count)
	vectors := make([][]float32, 0, count)
	for id := 1; id <= count; id++ {
		doc, err := c.GetByID(ctx, strconv.Itoa(id))
		if err != nil {
			return nil, nil, fmt.Errorf("chunk %d: %w", id, err)
		}
		chunks = append(chunks, models.Chunk{ID: id, Text: doc.Content})
		vectors = append(vectors, doc.Embedding)
	}
	return chunks, vectors, nil
}

func checkKey(key string) error {
	if key != "" && len(key) != 32 {
		return ErrBadKey
	}
	return nil
}
