package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"study-assistant/internal/embedding"
	"study-assistant/internal/inference"
	"study-assistant/internal/llmservice"
	"study-assistant/internal/models"
)

var ErrNoEmbeddings = errors.New("embeddings have not been created")

// RAG answers questions over a document's chunks using their embeddings.
type RAG struct {
	registry *inference.Registry
	topK     int
}

func NewRAG(registry *inference.Registry, topK int) *RAG {
	return &RAG{registry: registry, topK: topK}
}

// Search returns the chunks most similar to query.
func (r *RAG) Search(ctx context.Context, chunks []models.Chunk, vectors [][]float32, query string) ([]models.SearchResult, error) {
	if len(vectors) == 0 {
		return nil, ErrNoEmbeddings
	}
	embedder, err := r.registry.Embedder()
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	results, err := embedding.Search(ctx, embedder, query, texts, vectors, r.topK)
	if err != nil {
		return nil, err
	}
	// positions map back to the chunk's own id
	for i := range results {
		results[i].ID = chunks[results[i].ID-1].ID
	}
	log.Debug().Str("query", query).Int("results", len(results)).Msg("Semantic search")
	return results, nil
}

// Query searches, then has the generation model answer from the hits.
func (r *RAG) Query(ctx context.Context, chunks []models.Chunk, vectors [][]float32, query string) (*models.PromptResponse, error) {
	results, err := r.Search(ctx, chunks, vectors, query)
	if err != nil {
		return nil, err
	}

	llm, err := r.registry.LLM()
	if err != nil {
		return nil, err
	}

	var context strings.Builder
	for i, res := range results {
		if i > 0 {
			context.WriteString(models.ContextSeparator)
		}
		context.WriteString(res.Text)
	}

	prompt := fmt.Sprintf(models.ChatPromptTemplate, context.String(), query)
	answer, err := llmservice.GenerateChat(ctx, llm, models.ChatSystemPrompt, prompt, llms.WithTemperature(0))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &models.PromptResponse{
		Query:   query,
		Sources: results,
		Content: answer,
	}, nil
}
