// Package inference owns the process-wide model clients. Each one is built on
// first use and shared read-only afterwards.
package inference

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"

	"study-assistant/internal/config"
	"study-assistant/internal/embedding"
	"study-assistant/internal/llmservice"
	"study-assistant/internal/questions"
	"study-assistant/internal/summarizer"
)

type Registry struct {
	cfg *config.Config

	// constructors, replaceable in tests
	newLLM      func(*config.LLMConfig) (llms.Model, error)
	newEmbedder func(*config.LLMConfig) (embeddings.Embedder, error)

	mu         sync.Mutex
	llm        llms.Model
	embedder   embeddings.Embedder
	summarizer *summarizer.Summarizer
	pipeline   *questions.Pipeline
}

func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{
		cfg:         cfg,
		newLLM:      llmservice.NewLLM,
		newEmbedder: embedding.NewEmbedder,
	}
}

// NewStaticRegistry serves the given clients instead of building them from
// configuration.
func NewStaticRegistry(cfg *config.Config, llm llms.Model, embedder embeddings.Embedder) *Registry {
	r := NewRegistry(cfg)
	r.newLLM = func(*config.LLMConfig) (llms.Model, error) { return llm, nil }
	r.newEmbedder = func(*config.LLMConfig) (embeddings.Embedder, error) { return embedder, nil }
	return r
}

// LLM returns the shared generation model. A failed build is retried on the
// next call.
func (r *Registry) LLM() (llms.Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.llmLocked()
}

func (r *Registry) llmLocked() (llms.Model, error) {
	if r.llm != nil {
		return r.llm, nil
	}
	llm, err := r.newLLM(&r.cfg.LLM)
	if err != nil {
		return nil, err
	}
	log.Info().Str("model", r.cfg.LLM.Model).Msg("Loaded generation model")
	r.llm = llm
	return llm, nil
}

func (r *Registry) Embedder() (embeddings.Embedder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.embedder != nil {
		return r.embedder, nil
	}
	embedder, err := r.newEmbedder(&r.cfg.EmbedLLM)
	if err != nil {
		return nil, err
	}
	log.Info().Str("model", r.cfg.EmbedLLM.Model).Msg("Loaded embedding model")
	r.embedder = embedder
	return embedder, nil
}

func (r *Registry) Summarizer() (*summarizer.Summarizer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.summarizer != nil {
		return r.summarizer, nil
	}
	llm, err := r.llmLocked()
	if err != nil {
		return nil, err
	}
	r.summarizer = summarizer.New(llm)
	return r.summarizer, nil
}

// Pipeline returns the MCQ pipeline: question generator, answer extractor and
// phrase tagger.
func (r *Registry) Pipeline() (*questions.Pipeline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pipeline != nil {
		return r.pipeline, nil
	}
	llm, err := r.llmLocked()
	if err != nil {
		return nil, err
	}
	r.pipeline = questions.NewPipeline(
		questions.NewGenerator(llm, r.cfg.Questions),
		questions.NewAnswerExtractor(llm),
		questions.NewPhraseExtractor(),
		r.cfg.Questions,
	)
	return r.pipeline, nil
}
