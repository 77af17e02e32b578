package commands

import (
	"testing"
)

func TestCatalog_Merge(t *testing.T) {
	c := NewCatalog("Web Search", "Read File", "Execute Shell")

	got := c.Merge(map[string]bool{
		"Read File":   true,
		"Web Search":  false,
		"Old Command": true,
	})

	want := []Command{
		{Name: "Execute Shell", Enabled: false},
		{Name: "Read File", Enabled: true},
		{Name: "Web Search", Enabled: false},
	}
	if len(got) != len(want) {
		t.Fatalf("Merge() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Merge()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestCatalog_Merge_NilFlags(t *testing.T) {
	for _, cmd := range DefaultCatalog().Merge(nil) {
		if cmd.Enabled {
			t.Errorf("command %q enabled with no stored flags", cmd.Name)
		}
	}
}

func TestCatalog_Flags(t *testing.T) {
	c := NewCatalog("A", "B")
	flags := c.Flags([]Command{{Name: "A", Enabled: true}, {Name: "Z", Enabled: true}})

	if len(flags) != 1 || !flags["A"] {
		t.Errorf("Flags() = %v, want map[A:true]", flags)
	}
}

func TestCatalog_FromChecked(t *testing.T) {
	c := NewCatalog("A", "B", "C")
	flags := c.FromChecked([]string{"B", "unknown"})

	want := map[string]bool{"A": false, "B": true, "C": false}
	if len(flags) != len(want) {
		t.Fatalf("FromChecked() = %v, want %v", flags, want)
	}
	for k, v := range want {
		if flags[k] != v {
			t.Errorf("FromChecked()[%q] = %v, want %v", k, flags[k], v)
		}
	}
}

func TestCatalog_Add(t *testing.T) {
	c := NewCatalog()
	c.Add("Custom")
	if !c.Has("Custom") {
		t.Error("Add() did not register the command")
	}
	if names := c.Names(); len(names) != 1 {
		t.Errorf("Names() = %v", names)
	}
}
