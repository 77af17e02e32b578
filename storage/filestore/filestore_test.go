package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/youssefsiam38/agentdesk/storage"
	"github.com/youssefsiam38/agentdesk/storage/storagetest"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s := New(t.TempDir(), opts...)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return s
}

func TestStore_Conformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return newTestStore(t)
	})
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := New(dir)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	settings := map[string]any{
		"provider":        "ollama",
		"custom_settings": []any{"temperature:0.2"},
	}
	if _, err := s.CreateAgent(ctx, "writer", settings); err != nil {
		t.Fatalf("CreateAgent() error = %v", err)
	}
	if _, err := s.CreateChain(ctx, "daily"); err != nil {
		t.Fatalf("CreateChain() error = %v", err)
	}
	if _, err := s.AddChainStep(ctx, "daily", &storage.ChainStep{AgentName: "writer", PromptType: "chat", Prompt: "hi"}); err != nil {
		t.Fatalf("AddChainStep() error = %v", err)
	}

	reopened := New(dir)
	if err := reopened.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() reopen error = %v", err)
	}

	agent, err := reopened.GetAgent(ctx, "writer")
	if err != nil {
		t.Fatalf("GetAgent() error = %v", err)
	}
	if agent.Settings["provider"] != "ollama" {
		t.Errorf("GetAgent() provider = %v, want ollama", agent.Settings["provider"])
	}
	custom, ok := agent.Settings["custom_settings"].([]any)
	if !ok || len(custom) != 1 || custom[0] != "temperature:0.2" {
		t.Errorf("GetAgent() custom_settings = %#v", agent.Settings["custom_settings"])
	}

	chain, err := reopened.GetChain(ctx, "daily")
	if err != nil {
		t.Fatalf("GetChain() error = %v", err)
	}
	if len(chain.Steps) != 1 || chain.Steps[0].AgentName != "writer" {
		t.Errorf("GetChain() steps = %+v", chain.Steps)
	}
}

func TestStore_MigrateRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("agents: [not, a, map"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := New(dir).Migrate(context.Background())
	if err == nil || !strings.Contains(err.Error(), "failed to parse data file") {
		t.Errorf("Migrate() error = %v, want parse error", err)
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.CreateAgent(ctx, "writer", map[string]any{"provider": "openai"}); err != nil {
		t.Fatalf("CreateAgent() error = %v", err)
	}

	agent, _ := s.GetAgent(ctx, "writer")
	agent.Settings["provider"] = "mutated"
	agent.Commands["Injected"] = true

	again, _ := s.GetAgent(ctx, "writer")
	if again.Settings["provider"] != "openai" {
		t.Errorf("stored settings were mutated through a returned agent")
	}
	if len(again.Commands) != 0 {
		t.Errorf("stored commands were mutated through a returned agent")
	}
}

func TestStore_MaxMemories(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, WithMaxMemories(2))

	for _, content := range []string{"a", "b", "c"} {
		if err := s.SaveMemory(ctx, "writer", content); err != nil {
			t.Fatalf("SaveMemory() error = %v", err)
		}
	}

	memories, err := s.RecentMemories(ctx, "writer", 10)
	if err != nil {
		t.Fatalf("RecentMemories() error = %v", err)
	}
	if len(memories) != 2 || memories[0].Content != "c" || memories[1].Content != "b" {
		t.Errorf("RecentMemories() kept wrong memories: %d", len(memories))
	}
}

func TestStore_FailedWriteRestoresState(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := New(dir)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// Point the store at a directory that no longer exists so flush fails.
	s.path = filepath.Join(dir, "gone", FileName)

	if _, err := s.CreateAgent(ctx, "writer", nil); err == nil {
		t.Fatal("CreateAgent() error = nil, want write error")
	}
	if _, err := s.GetAgent(ctx, "writer"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetAgent() after failed write error = %v, want ErrNotFound", err)
	}
}
