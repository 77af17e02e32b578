package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// Ollama option keys.
const KeyOllamaHost = "OLLAMA_HOST"

// Ollama returns the definition of the local Ollama provider.
func Ollama() Definition {
	return Definition{
		Name:    "ollama",
		Options: []string{KeyOllamaHost, KeyModel, KeyTemperature, KeyMaxTokens},
		Defaults: map[string]string{
			KeyOllamaHost:  "http://localhost:11434",
			KeyModel:       "llama3.2",
			KeyTemperature: "0.7",
			KeyMaxTokens:   "4096",
		},
		New: newOllama,
	}
}

type ollamaProvider struct {
	client      *api.Client
	model       string
	maxTokens   int
	temperature float64
}

func newOllama(settings Settings) (Provider, error) {
	host, err := url.Parse(settings.Trimmed(KeyOllamaHost, "http://localhost:11434"))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyOllamaHost, err)
	}
	if host.Scheme == "" || host.Host == "" {
		return nil, fmt.Errorf("invalid %s: %q needs a scheme and host", KeyOllamaHost, host.String())
	}

	return &ollamaProvider{
		client:      api.NewClient(host, http.DefaultClient),
		model:       settings.Trimmed(KeyModel, "llama3.2"),
		maxTokens:   settings.Int(KeyMaxTokens, 4096),
		temperature: settings.Float(KeyTemperature, 0.7),
	}, nil
}

func (p *ollamaProvider) Name() string { return "ollama" }

func (p *ollamaProvider) Instruct(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  p.model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]any{
			"temperature": p.temperature,
			"num_predict": p.maxTokens,
		},
	}

	var text strings.Builder
	err := p.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		text.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("ollama: %w", ErrEmptyResponse)
	}
	return text.String(), nil
}
