// Package commands holds the catalog of commands an agent may be allowed to
// use, and merges it with an agent's stored enabled flags.
package commands

import (
	"maps"
	"slices"
	"sync"
)

// Command is a catalog entry with an agent's enabled flag.
type Command struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// DefaultNames is the built-in command catalog.
var DefaultNames = []string{
	"Browse Website",
	"Clone GitHub Repository",
	"Evaluate Code",
	"Execute Python File",
	"Execute Shell",
	"Generate Image",
	"Google Search",
	"Read File",
	"Search Files",
	"Web Search",
	"Write to File",
}

// Catalog is a set of command names.
type Catalog struct {
	mu    sync.RWMutex
	names map[string]struct{}
}

// NewCatalog creates a catalog with the given command names.
func NewCatalog(names ...string) *Catalog {
	c := &Catalog{names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		c.names[name] = struct{}{}
	}
	return c
}

// DefaultCatalog returns a catalog of DefaultNames.
func DefaultCatalog() *Catalog {
	return NewCatalog(DefaultNames...)
}

// Add registers additional command names.
func (c *Catalog) Add(names ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range names {
		c.names[name] = struct{}{}
	}
}

// Names returns every command name, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.names))
}

// Has reports whether name is in the catalog.
func (c *Catalog) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.names[name]
	return ok
}

// Merge returns every catalog command, sorted by name, with its flag from
// enabled. Commands missing from enabled are disabled; names in enabled
// that are not in the catalog are dropped.
func (c *Catalog) Merge(enabled map[string]bool) []Command {
	names := c.Names()
	out := make([]Command, len(names))
	for i, name := range names {
		out[i] = Command{Name: name, Enabled: enabled[name]}
	}
	return out
}

// Flags converts a command list back into the stored form, keeping only
// catalog commands.
func (c *Catalog) Flags(cmds []Command) map[string]bool {
	flags := make(map[string]bool, len(cmds))
	for _, cmd := range cmds {
		if c.Has(cmd.Name) {
			flags[cmd.Name] = cmd.Enabled
		}
	}
	return flags
}

// FromChecked builds flags for every catalog command from the set of names
// checked in a form. Unchecked catalog commands are stored as disabled.
func (c *Catalog) FromChecked(checked []string) map[string]bool {
	flags := make(map[string]bool)
	for _, name := range c.Names() {
		flags[name] = false
	}
	for _, name := range checked {
		if _, ok := flags[name]; ok {
			flags[name] = true
		}
	}
	return flags
}
