package llmservice

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"study-assistant/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

var ErrEmptyResponse = errors.New("llm returned no choices")

var thinkTagRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// NewLLM builds the chat model described by llmConfig.
func NewLLM(llmConfig *config.LLMConfig) (llms.Model, error) {
	log.Debug().Str("provider", llmConfig.Provider).Str("model", llmConfig.Model).Msg("Initializing LLM")
	switch llmConfig.Provider {
	case config.ProviderOllama:
		llm, err := ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
		)
		if err != nil {
			return nil, err
		}
		return llm, nil
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, err
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", llmConfig.Provider)
	}
}

// GenerateText sends prompt as a single human message and returns the first
// choice with any reasoning block removed.
func GenerateText(ctx context.Context, llm llms.Model, prompt string, options ...llms.CallOption) (string, error) {
	return generate(ctx, llm, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, options...)
}

// GenerateChat is GenerateText with a system message ahead of the prompt.
func GenerateChat(ctx context.Context, llm llms.Model, system, prompt string, options ...llms.CallOption) (string, error) {
	return generate(ctx, llm, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, options...)
}

func generate(ctx context.Context, llm llms.Model, msgContent []llms.MessageContent, options ...llms.CallOption) (string, error) {
	res, err := llm.GenerateContent(ctx, msgContent, options...)
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(thinkTagRe.ReplaceAllString(res.Choices[0].Content, "")), nil
}
