package questions

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"study-assistant/internal/config"
	"study-assistant/internal/models"
)

type QuestionGenerator interface {
	Generate(ctx context.Context, text string, n int) ([]string, error)
}

type AnswerFinder interface {
	Answer(ctx context.Context, question, passage string) (string, error)
}

type PhraseFinder interface {
	Phrases(text string) ([]string, error)
}

// Pipeline turns a passage into multiple-choice questions: generate questions,
// extract each answer from the passage, then mine distractors from the
// passage's noun phrases and entities.
type Pipeline struct {
	questions   QuestionGenerator
	answers     AnswerFinder
	phrases     PhraseFinder
	distractors int
	maxWords    int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPipeline wires the three models together. cfg.Seed fixes every random
// choice; zero seeds from the clock.
func NewPipeline(q QuestionGenerator, a AnswerFinder, p PhraseFinder, cfg config.QuestionConfig) *Pipeline {
	seed := uint64(cfg.Seed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	maxWords := cfg.MaxWords
	if maxWords <= 0 {
		maxWords = MaxOptionWords
	}
	return &Pipeline{
		questions:   q,
		answers:     a,
		phrases:     p,
		distractors: NumDistractors,
		maxWords:    maxWords,
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Generate returns numQ questions for text, each with the answer and its
// distractors in shuffled order.
func (p *Pipeline) Generate(ctx context.Context, text string, numQ int) ([]models.MCQ, error) {
	questions, err := p.questions.Generate(ctx, text, numQ)
	if err != nil {
		return nil, err
	}

	candidates, err := p.phrases.Phrases(text)
	if err != nil {
		return nil, fmt.Errorf("extract phrases: %w", err)
	}

	mcqs := make([]models.MCQ, 0, len(questions))
	for _, q := range questions {
		answer, err := p.answers.Answer(ctx, q, text)
		if err != nil {
			return nil, fmt.Errorf("answer %q: %w", q, err)
		}
		answer = ClipWords(answer, p.maxWords)

		p.mu.Lock()
		options := append([]string{answer}, Distractors(candidates, answer, p.distractors, p.maxWords, p.rng)...)
		p.rng.Shuffle(len(options), func(i, j int) {
			options[i], options[j] = options[j], options[i]
		})
		p.mu.Unlock()

		mcqs = append(mcqs, models.MCQ{
			Question: q,
			Options:  options,
			Answer:   answer,
		})
	}
	log.Debug().Int("mcqs", len(mcqs)).Int("candidates", len(candidates)).Msg("Generated MCQs")
	return mcqs, nil
}
