// Package llmtest provides an in-memory llms.Model for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// FakeLLM answers every prompt with Respond and records what it was sent.
type FakeLLM struct {
	Respond func(prompt string) (string, error)

	mu      sync.Mutex
	Prompts []string
	Options []llms.CallOptions
}

var _ llms.Model = (*FakeLLM)(nil)

// Reply returns a FakeLLM that always answers with text.
func Reply(text string) *FakeLLM {
	return &FakeLLM{Respond: func(string) (string, error) { return text, nil }}
}

func (f *FakeLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var prompt strings.Builder
	for _, m := range messages {
		for _, part := range m.Parts {
			if tc, ok := part.(llms.TextContent); ok {
				prompt.WriteString(tc.Text)
			}
		}
	}

	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}

	f.mu.Lock()
	f.Prompts = append(f.Prompts, prompt.String())
	f.Options = append(f.Options, opts)
	f.mu.Unlock()

	text, err := f.Respond(prompt.String())
	if err != nil {
		return nil, err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}, nil
}

func (f *FakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

// LastPrompt returns the most recent prompt, or "" when none was sent.
func (f *FakeLLM) LastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Prompts) == 0 {
		return ""
	}
	return f.Prompts[len(f.Prompts)-1]
}

// Between returns the text between the first open tag and its close tag.
func Between(prompt, open, close string) string {
	start := strings.Index(prompt, open)
	if start < 0 {
		return ""
	}
	rest := prompt[start+len(open):]
	end := strings.Index(rest, close)
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}
