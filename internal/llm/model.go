// Package llm wraps the langchaingo model providers used for chat
// streaming and suggestion completion.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/parrotlabs/parrot/internal/config"
	"github.com/parrotlabs/parrot/internal/models"
)

const systemPrompt = `You are Parrot, a friendly conversational assistant.
Answer concisely and directly. When you need to reason before answering,
wrap your reasoning in <think> and </think> markers and put the final
answer after the closing marker.`

const suggestPrompt = `Complete the user's partially typed query into the
most likely full question they are about to ask. Reply with up to three
completions, one per line, each starting with the text already typed.
No numbering, no commentary.`

// Model wraps a langchaingo LLM for streaming chat and suggestions.
type Model struct {
	llm       llms.Model
	modelName string
}

// NewModel creates an LLM model based on configuration.
func NewModel(cfg *config.Config) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case "ollama":
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return &Model{llm: model, modelName: cfg.LLMModel}, nil
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

// StreamChat generates the assistant reply for the conversation and
// calls onChunk with each raw text chunk as the model produces it.
// Chunks pass through verbatim, including any <think> markers the model
// emits.
func (m *Model) StreamChat(ctx context.Context, history []models.Message, input string, onChunk func(string) error) error {
	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt))
	for _, msg := range history {
		role := llms.ChatMessageTypeHuman
		if msg.Role == models.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, msg.Content))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, input))

	_, err := m.llm.GenerateContent(ctx, messages,
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			return onChunk(string(chunk))
		}),
	)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	return nil
}

// Suggest asks the model to complete a partial query. Results are
// trimmed, deduplicated and capped at three.
func (m *Model) Suggest(ctx context.Context, query string) ([]string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, suggestPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, query),
	}

	resp, err := m.llm.GenerateContent(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool)
	var suggestions []string
	for _, line := range strings.Split(resp.Choices[0].Content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		suggestions = append(suggestions, line)
		if len(suggestions) == 3 {
			break
		}
	}
	return suggestions, nil
}
