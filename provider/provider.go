// Package provider defines the LLM backends agents talk to.
//
// A provider is selected per agent by the "provider" setting. Each provider
// declares the setting keys it reads (its options); the settings form shows
// one input per option. Built-in providers are anthropic, openai and ollama.
package provider

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Provider errors.
var (
	// ErrUnknownProvider is returned for a provider name that is not registered.
	ErrUnknownProvider = errors.New("provider: unknown provider")

	// ErrEmptyResponse is returned when a backend answered without text.
	ErrEmptyResponse = errors.New("provider: empty response")
)

// Common option keys shared by the built-in providers.
const (
	KeyModel       = "AI_MODEL"
	KeyTemperature = "AI_TEMPERATURE"
	KeyMaxTokens   = "MAX_TOKENS"
	KeyMaxRetries  = "MAX_RETRIES"
)

// Provider sends a single prompt to a model and returns its text answer.
type Provider interface {
	Name() string
	Instruct(ctx context.Context, prompt string) (string, error)
}

// Definition describes a registrable provider.
type Definition struct {
	Name string

	// Options lists the setting keys the provider reads, in display order.
	Options []string

	// Defaults holds default values for some options.
	Defaults map[string]string

	// New builds a provider from agent settings.
	New func(settings Settings) (Provider, error)
}

// Registry holds provider definitions by name.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry creates a registry with the given definitions.
func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{defs: make(map[string]Definition)}
	for _, def := range defs {
		r.defs[def.Name] = def
	}
	return r
}

// DefaultRegistry returns a registry with every built-in provider.
func DefaultRegistry() *Registry {
	return NewRegistry(Anthropic(), OpenAI(), Ollama())
}

// Register adds a definition. Registering a name twice is an error.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" || def.New == nil {
		return errors.New("provider: definition needs a name and a constructor")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.defs[def.Name]; ok {
		return fmt.Errorf("provider: %q already registered", def.Name)
	}
	r.defs[def.Name] = def
	return nil
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.defs))
}

// Options returns the option keys of a provider.
func (r *Registry) Options(name string) ([]string, error) {
	def, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return slices.Clone(def.Options), nil
}

// Defaults returns the default option values of a provider.
func (r *Registry) Defaults(name string) (map[string]string, error) {
	def, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return maps.Clone(def.Defaults), nil
}

// New builds the named provider. Missing options take their defaults.
func (r *Registry) New(name string, settings Settings) (Provider, error) {
	def, err := r.lookup(name)
	if err != nil {
		return nil, err
	}

	merged := make(Settings, len(settings)+len(def.Defaults))
	for k, v := range def.Defaults {
		merged[k] = v
	}
	for k, v := range settings {
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		merged[k] = v
	}

	p, err := def.New(merged)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", name, err)
	}
	return p, nil
}

func (r *Registry) lookup(name string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return def, nil
}

// Settings are an agent's raw settings as stored.
type Settings map[string]any

// String returns the setting verbatim, or def when missing or blank.
func (s Settings) String(key, def string) string {
	v, ok := s[key]
	if !ok || v == nil {
		return def
	}
	str := fmt.Sprint(v)
	if strings.TrimSpace(str) == "" {
		return def
	}
	return str
}

// Trimmed is String with surrounding whitespace removed, for keys, hosts
// and model names.
func (s Settings) Trimmed(key, def string) string {
	return strings.TrimSpace(s.String(key, def))
}

// Int returns the setting as an int, or def when missing or unparsable.
func (s Settings) Int(key string, def int) int {
	switch v := s[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// Float returns the setting as a float64, or def when missing or unparsable.
func (s Settings) Float(key string, def float64) float64 {
	switch v := s[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}
