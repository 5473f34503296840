package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"study-assistant/internal/llmservice"
	"study-assistant/internal/models"
)

// MaxInputWords approximates the model's input token budget by word count.
const MaxInputWords = 400

type Summarizer struct {
	llm      llms.Model
	maxWords int
}

func New(llm llms.Model) *Summarizer {
	return &Summarizer{llm: llm, maxWords: MaxInputWords}
}

// Summarize returns an abstractive summary of text bounded by minLength and
// maxLength tokens. It never fails: errors come back as an inline
// "[Summarization Error]" string.
func (s *Summarizer) Summarize(ctx context.Context, text string, maxLength, minLength int) string {
	text = TruncateWords(text, s.maxWords)
	prompt := fmt.Sprintf(models.SummaryPromptTemplate, text, minLength, maxLength)

	summary, err := llmservice.GenerateText(ctx, s.llm, prompt,
		llms.WithMaxLength(maxLength),
		llms.WithMinLength(minLength),
		llms.WithMaxTokens(maxLength),
		llms.WithTemperature(0),
	)
	if err != nil {
		log.Warn().Err(err).Msg("Summarization failed")
		return fmt.Sprintf("%s %s", models.SummaryErrorPrefix, err)
	}
	return summary
}

// TruncateWords keeps the first n whitespace-separated words of text. Text
// with n words or fewer is returned unchanged.
func TruncateWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return text
	}
	return strings.Join(words[:n], " ")
}
