package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic option keys.
const (
	KeyAnthropicAPIKey  = "ANTHROPIC_API_KEY"
	KeyAnthropicBaseURL = "ANTHROPIC_BASE_URL"
)

// Anthropic returns the definition of the Claude Messages API provider.
// An empty API key falls back to the ANTHROPIC_API_KEY environment variable.
func Anthropic() Definition {
	return Definition{
		Name:    "anthropic",
		Options: []string{KeyAnthropicAPIKey, KeyModel, KeyTemperature, KeyMaxTokens},
		Defaults: map[string]string{
			KeyModel:       "claude-sonnet-4-5",
			KeyTemperature: "0.7",
			KeyMaxTokens:   "4096",
		},
		New: newAnthropic,
	}
}

type anthropicProvider struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

func newAnthropic(settings Settings) (Provider, error) {
	var opts []option.RequestOption
	if key := settings.Trimmed(KeyAnthropicAPIKey, ""); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}
	if baseURL := settings.Trimmed(KeyAnthropicBaseURL, ""); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, option.WithMaxRetries(settings.Int(KeyMaxRetries, 2)))

	return &anthropicProvider{
		client:      anthropic.NewClient(opts...),
		model:       settings.Trimmed(KeyModel, "claude-sonnet-4-5"),
		maxTokens:   int64(settings.Int(KeyMaxTokens, 4096)),
		temperature: settings.Float(KeyTemperature, 0.7),
	}, nil
}

func (p *anthropicProvider) Name() string { return "anthropic" }

func (p *anthropicProvider) Instruct(ctx context.Context, prompt string) (string, error) {
	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   p.maxTokens,
		Temperature: anthropic.Float(p.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if t, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(t.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("anthropic: %w", ErrEmptyResponse)
	}
	return text.String(), nil
}
