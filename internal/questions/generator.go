package questions

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"study-assistant/internal/config"
	"study-assistant/internal/llmservice"
	"study-assistant/internal/models"
	"study-assistant/internal/summarizer"
)

var (
	ErrTooFewQuestions = errors.New("model returned too few questions")
	ErrNoAnswer        = errors.New("model returned an empty answer")
)

var listMarkerRe = regexp.MustCompile(`^\s*(?:(?:Q(?:uestion)?\s*)?\d+\s*[.):-]|[-*•])\s*`)

// Generator writes candidate questions for a passage. It is the only question
// generation entry point.
type Generator struct {
	llm           llms.Model
	maxLength     int
	maxInputWords int
}

func NewGenerator(llm llms.Model, cfg config.QuestionConfig) *Generator {
	return &Generator{llm: llm, maxLength: cfg.MaxLength, maxInputWords: cfg.MaxInputWords}
}

// Generate asks for exactly n questions. Extra lines are dropped; fewer than n
// is an error. Duplicates are passed through.
func (g *Generator) Generate(ctx context.Context, text string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	text = summarizer.TruncateWords(text, g.maxInputWords)
	prompt := fmt.Sprintf(models.QuestionPromptTemplate, text, n, g.maxLength)

	res, err := llmservice.GenerateText(ctx, g.llm, prompt,
		llms.WithMaxTokens(g.maxLength*n),
	)
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	questions := parseQuestions(res)
	if len(questions) < n {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrTooFewQuestions, n, len(questions))
	}
	log.Debug().Int("count", n).Msg("Generated questions")
	return questions[:n], nil
}

func parseQuestions(res string) []string {
	var questions []string
	for _, line := range strings.Split(res, "\n") {
		line = strings.TrimSpace(listMarkerRe.ReplaceAllString(line, ""))
		if line != "" {
			questions = append(questions, line)
		}
	}
	return questions
}

// AnswerExtractor finds the span of a context that answers a question.
type AnswerExtractor struct {
	llm llms.Model
}

func NewAnswerExtractor(llm llms.Model) *AnswerExtractor {
	return &AnswerExtractor{llm: llm}
}

// Answer returns the span of passage answering question. When the model's
// reply occurs in the passage ignoring case, the passage's own spelling is used.
func (a *AnswerExtractor) Answer(ctx context.Context, question, passage string) (string, error) {
	prompt := fmt.Sprintf(models.AnswerPromptTemplate, passage, question)
	res, err := llmservice.GenerateText(ctx, a.llm, prompt, llms.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("extract answer: %w", err)
	}

	answer := strings.Trim(strings.TrimSpace(res), "\"'`")
	if answer == "" {
		return "", ErrNoAnswer
	}
	if strings.Contains(passage, answer) {
		return answer, nil
	}
	lowerPassage, lowerAnswer := strings.ToLower(passage), strings.ToLower(answer)
	if len(lowerPassage) != len(passage) || len(lowerAnswer) != len(answer) {
		return answer, nil
	}
	if idx := strings.Index(lowerPassage, lowerAnswer); idx >= 0 {
		answer = passage[idx : idx+len(answer)]
	}
	return answer, nil
}
