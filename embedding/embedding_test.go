package embedding

import (
	"slices"
	"testing"
)

func TestProviders(t *testing.T) {
	got := Providers()
	if !slices.IsSorted(got) {
		t.Errorf("Providers() not sorted: %v", got)
	}
	if !slices.Contains(got, Default) {
		t.Errorf("Providers() missing %q", Default)
	}

	got[0] = "mutated"
	if Providers()[0] == "mutated" {
		t.Error("Providers() exposed the catalog slice")
	}
}

func TestSelected(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		want     string
	}{
		{"map form", map[string]any{"embedder": map[string]any{"name": "openai"}}, "openai"},
		{"string form", map[string]any{"embedder": "cohere"}, "cohere"},
		{"missing", map[string]any{}, ""},
		{"malformed", map[string]any{"embedder": 42}, ""},
		{"round trip", map[string]any{"embedder": Setting("llamacpp")}, "llamacpp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Selected(tt.settings); got != tt.want {
				t.Errorf("Selected() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKnown(t *testing.T) {
	if !Known("azure") {
		t.Error("Known(azure) = false")
	}
	if Known("pinecone") {
		t.Error("Known(pinecone) = true")
	}
}
