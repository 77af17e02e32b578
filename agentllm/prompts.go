package agentllm

import (
	"embed"
	"io/fs"
	"maps"
	"path"
	"slices"
	"strings"
)

// Built-in prompt names.
const (
	PromptChat     = "Chat"
	PromptInstruct = "instruct"
	PromptExecute  = "execute"
	PromptTask     = "task"
	PromptPriority = "priority"
)

//go:embed prompts/*.txt
var promptFS embed.FS

var defaultPrompts = loadDefaultPrompts()

func loadDefaultPrompts() map[string]string {
	entries, err := fs.ReadDir(promptFS, "prompts")
	if err != nil {
		panic("agentllm: reading embedded prompts: " + err.Error())
	}

	prompts := make(map[string]string, len(entries))
	for _, entry := range entries {
		data, err := promptFS.ReadFile(path.Join("prompts", entry.Name()))
		if err != nil {
			panic("agentllm: reading embedded prompt: " + err.Error())
		}
		prompts[strings.TrimSuffix(entry.Name(), ".txt")] = string(data)
	}
	return prompts
}

// DefaultPrompts returns a copy of the built-in prompt templates by name.
func DefaultPrompts() map[string]string {
	return maps.Clone(defaultPrompts)
}

// DefaultPromptNames returns the built-in prompt names, sorted.
func DefaultPromptNames() []string {
	return slices.Sorted(maps.Keys(defaultPrompts))
}

// DefaultPrompt returns the built-in template for name.
func DefaultPrompt(name string) (string, bool) {
	p, ok := defaultPrompts[name]
	return p, ok
}

func smartPrompt(mode, stage string) string {
	return mode + "-" + stage
}

// vars holds template placeholder values without braces.
type vars map[string]string

// fill replaces every {key} in tmpl. Placeholders without a value are left
// untouched.
func fill(tmpl string, v vars) string {
	keys := slices.Sorted(maps.Keys(v))
	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", v[k])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
