package provider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI option keys.
const (
	KeyOpenAIAPIKey  = "OPENAI_API_KEY"
	KeyOpenAIBaseURL = "OPENAI_BASE_URL"
)

// OpenAI returns the definition of the Chat Completions provider. Setting
// OPENAI_BASE_URL points it at any OpenAI-compatible service.
func OpenAI() Definition {
	return Definition{
		Name:    "openai",
		Options: []string{KeyOpenAIAPIKey, KeyOpenAIBaseURL, KeyModel, KeyTemperature, KeyMaxTokens},
		Defaults: map[string]string{
			KeyModel:       "gpt-4o",
			KeyTemperature: "0.7",
			KeyMaxTokens:   "4096",
		},
		New: newOpenAI,
	}
}

type openAIProvider struct {
	client      openai.Client
	model       string
	maxTokens   int64
	temperature float64
}

func newOpenAI(settings Settings) (Provider, error) {
	var opts []option.RequestOption
	if key := settings.Trimmed(KeyOpenAIAPIKey, ""); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}
	if baseURL := settings.Trimmed(KeyOpenAIBaseURL, ""); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, option.WithMaxRetries(settings.Int(KeyMaxRetries, 2)))

	return &openAIProvider{
		client:      openai.NewClient(opts...),
		model:       settings.Trimmed(KeyModel, "gpt-4o"),
		maxTokens:   int64(settings.Int(KeyMaxTokens, 4096)),
		temperature: settings.Float(KeyTemperature, 0.7),
	}, nil
}

func (p *openAIProvider) Name() string { return "openai" }

func (p *openAIProvider) Instruct(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               p.model,
		MaxCompletionTokens: openai.Int(p.maxTokens),
		Temperature:         openai.Float(p.temperature),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai: %w", ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}
