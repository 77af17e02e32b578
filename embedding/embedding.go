// Package embedding lists the embedding providers an agent can select.
//
// Only the catalog lives here; agents store the selection as
// settings["embedder"] = {"name": <provider>}.
package embedding

import (
	"slices"
)

// Default is the embedder used when an agent selected none.
const Default = "default"

var providers = []string{
	Default,
	"azure",
	"cohere",
	"google_vertex",
	"llamacpp",
	"openai",
}

// Providers returns the embedding provider names, sorted.
func Providers() []string {
	out := slices.Clone(providers)
	slices.Sort(out)
	return out
}

// Known reports whether name is a catalog entry.
func Known(name string) bool {
	return slices.Contains(providers, name)
}

// Selected extracts the embedder name from agent settings. The value may be
// stored as {"name": "..."} or as a bare string.
func Selected(settings map[string]any) string {
	switch v := settings["embedder"].(type) {
	case string:
		return v
	case map[string]any:
		if name, ok := v["name"].(string); ok {
			return name
		}
	}
	return ""
}

// Setting returns the settings value that records name as the embedder.
func Setting(name string) map[string]any {
	return map[string]any{"name": name}
}
