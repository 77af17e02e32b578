package agentllm

import (
	"fmt"
	"regexp"
	"strings"
)

var numberedLine = regexp.MustCompile(`^\s*\d+\s*[.)]\s*(.+?)\s*$`)

// ParseList extracts the items of a numbered list ("1. foo", "2) bar").
// Lines that are not numbered are ignored.
func ParseList(text string) []string {
	var items []string
	for line := range strings.Lines(text) {
		m := numberedLine.FindStringSubmatch(line)
		if m == nil || m[1] == "" {
			continue
		}
		items = append(items, m[1])
	}
	return items
}

// formatList renders items as a numbered list.
func formatList(items []string) string {
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}
	return strings.TrimRight(b.String(), "\n")
}

// appendNew appends the items of add not already in list.
func appendNew(list, add []string) []string {
	seen := make(map[string]struct{}, len(list))
	for _, item := range list {
		seen[strings.ToLower(item)] = struct{}{}
	}
	for _, item := range add {
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		list = append(list, item)
	}
	return list
}
