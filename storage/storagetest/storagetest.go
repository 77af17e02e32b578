// Package storagetest provides a behavioral test suite that every
// storage.Store implementation must pass.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/youssefsiam38/agentdesk/runstate"
	"github.com/youssefsiam38/agentdesk/storage"
)

// Run executes the suite. newStore must return an empty, migrated store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("Agents", func(t *testing.T) { testAgents(t, newStore(t)) })
	t.Run("DeleteAgent", func(t *testing.T) { testDeleteAgent(t, newStore(t)) })
	t.Run("Chains", func(t *testing.T) { testChains(t, newStore(t)) })
	t.Run("Prompts", func(t *testing.T) { testPrompts(t, newStore(t)) })
	t.Run("Memories", func(t *testing.T) { testMemories(t, newStore(t)) })
	t.Run("TaskRuns", func(t *testing.T) { testTaskRuns(t, newStore(t)) })
}

func testAgents(t *testing.T, store storage.Store) {
	ctx := context.Background()

	agent, err := store.CreateAgent(ctx, "writer", map[string]any{"provider": "openai"})
	if err != nil {
		t.Fatalf("CreateAgent() error = %v", err)
	}
	if agent.ID == "" {
		t.Error("CreateAgent() returned empty ID")
	}
	if agent.CreatedAt.IsZero() {
		t.Error("CreateAgent() returned zero CreatedAt")
	}

	if _, err := store.CreateAgent(ctx, "writer", nil); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Errorf("CreateAgent() duplicate error = %v, want ErrAlreadyExists", err)
	}
	if _, err := store.CreateAgent(ctx, "analyst", nil); err != nil {
		t.Fatalf("CreateAgent() error = %v", err)
	}

	agents, err := store.ListAgents(ctx)
	if err != nil {
		t.Fatalf("ListAgents() error = %v", err)
	}
	if len(agents) != 2 || agents[0].Name != "analyst" || agents[1].Name != "writer" {
		t.Fatalf("ListAgents() = %v, want [analyst writer]", agentNames(agents))
	}

	settings := map[string]any{"provider": "anthropic", "MAX_TOKENS": "2048"}
	if err := store.UpdateAgentSettings(ctx, "writer", settings); err != nil {
		t.Fatalf("UpdateAgentSettings() error = %v", err)
	}
	if err := store.UpdateAgentCommands(ctx, "writer", map[string]bool{"Web Search": true, "Write File": false}); err != nil {
		t.Fatalf("UpdateAgentCommands() error = %v", err)
	}

	got, err := store.GetAgent(ctx, "writer")
	if err != nil {
		t.Fatalf("GetAgent() error = %v", err)
	}
	if got.Settings["provider"] != "anthropic" || got.Settings["MAX_TOKENS"] != "2048" {
		t.Errorf("GetAgent() settings = %v", got.Settings)
	}
	if !got.Commands["Web Search"] || got.Commands["Write File"] {
		t.Errorf("GetAgent() commands = %v", got.Commands)
	}
	if _, ok := got.Commands["Write File"]; !ok {
		t.Error("GetAgent() dropped disabled command")
	}

	if _, err := store.GetAgent(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetAgent() missing error = %v, want ErrNotFound", err)
	}
	if err := store.UpdateAgentSettings(ctx, "missing", nil); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("UpdateAgentSettings() missing error = %v, want ErrNotFound", err)
	}
	if err := store.UpdateAgentCommands(ctx, "missing", nil); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("UpdateAgentCommands() missing error = %v, want ErrNotFound", err)
	}
}

func testDeleteAgent(t *testing.T, store storage.Store) {
	ctx := context.Background()

	for _, name := range []string{"keep", "drop"} {
		if _, err := store.CreateAgent(ctx, name, nil); err != nil {
			t.Fatalf("CreateAgent() error = %v", err)
		}
		if err := store.SaveMemory(ctx, name, "note for "+name); err != nil {
			t.Fatalf("SaveMemory() error = %v", err)
		}
	}

	if err := store.DeleteAgent(ctx, "drop"); err != nil {
		t.Fatalf("DeleteAgent() error = %v", err)
	}
	if _, err := store.GetAgent(ctx, "drop"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetAgent() after delete error = %v, want ErrNotFound", err)
	}

	dropped, err := store.RecentMemories(ctx, "drop", 10)
	if err != nil {
		t.Fatalf("RecentMemories() error = %v", err)
	}
	if len(dropped) != 0 {
		t.Errorf("RecentMemories() after delete = %d, want 0", len(dropped))
	}
	kept, err := store.RecentMemories(ctx, "keep", 10)
	if err != nil {
		t.Fatalf("RecentMemories() error = %v", err)
	}
	if len(kept) != 1 {
		t.Errorf("RecentMemories() for other agent = %d, want 1", len(kept))
	}

	if err := store.DeleteAgent(ctx, "drop"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("DeleteAgent() twice error = %v, want ErrNotFound", err)
	}
}

func testChains(t *testing.T, store storage.Store) {
	ctx := context.Background()

	chain, err := store.CreateChain(ctx, "research")
	if err != nil {
		t.Fatalf("CreateChain() error = %v", err)
	}
	if chain.ID == "" || chain.Name != "research" {
		t.Errorf("CreateChain() = %+v", chain)
	}
	if _, err := store.CreateChain(ctx, "research"); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Errorf("CreateChain() duplicate error = %v, want ErrAlreadyExists", err)
	}

	for i, agent := range []string{"a1", "a2", "a3"} {
		step, err := store.AddChainStep(ctx, "research", &storage.ChainStep{
			AgentName:  agent,
			PromptType: "instruct",
			Prompt:     "step for " + agent,
		})
		if err != nil {
			t.Fatalf("AddChainStep() error = %v", err)
		}
		if step.StepNumber != i+1 {
			t.Errorf("AddChainStep() step number = %d, want %d", step.StepNumber, i+1)
		}
	}

	if _, err := store.AddChainStep(ctx, "missing", &storage.ChainStep{AgentName: "a"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("AddChainStep() missing chain error = %v, want ErrNotFound", err)
	}

	if err := store.DeleteChainStep(ctx, "research", 2); err != nil {
		t.Fatalf("DeleteChainStep() error = %v", err)
	}
	if err := store.DeleteChainStep(ctx, "research", 9); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("DeleteChainStep() missing step error = %v, want ErrNotFound", err)
	}

	got, err := store.GetChain(ctx, "research")
	if err != nil {
		t.Fatalf("GetChain() error = %v", err)
	}
	if len(got.Steps) != 2 {
		t.Fatalf("GetChain() steps = %d, want 2", len(got.Steps))
	}
	if got.Steps[0].StepNumber != 1 || got.Steps[0].AgentName != "a1" {
		t.Errorf("GetChain() step 1 = %+v", got.Steps[0])
	}
	if got.Steps[1].StepNumber != 2 || got.Steps[1].AgentName != "a3" {
		t.Errorf("GetChain() step 2 = %+v, want renumbered a3", got.Steps[1])
	}

	if _, err := store.CreateChain(ctx, "alpha"); err != nil {
		t.Fatalf("CreateChain() error = %v", err)
	}
	chains, err := store.ListChains(ctx)
	if err != nil {
		t.Fatalf("ListChains() error = %v", err)
	}
	if len(chains) != 2 || chains[0].Name != "alpha" || chains[1].Name != "research" {
		t.Errorf("ListChains() returned %d chains in wrong order", len(chains))
	}

	if err := store.DeleteChain(ctx, "research"); err != nil {
		t.Fatalf("DeleteChain() error = %v", err)
	}
	if _, err := store.GetChain(ctx, "research"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetChain() after delete error = %v, want ErrNotFound", err)
	}
	if err := store.DeleteChain(ctx, "research"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("DeleteChain() twice error = %v, want ErrNotFound", err)
	}
}

func testPrompts(t *testing.T, store storage.Store) {
	ctx := context.Background()

	if err := store.CreatePrompt(ctx, "summary", "Summarize {task}"); err != nil {
		t.Fatalf("CreatePrompt() error = %v", err)
	}
	if err := store.CreatePrompt(ctx, "summary", "again"); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Errorf("CreatePrompt() duplicate error = %v, want ErrAlreadyExists", err)
	}
	if err := store.UpdatePrompt(ctx, "summary", "Summarize briefly: {task}"); err != nil {
		t.Fatalf("UpdatePrompt() error = %v", err)
	}

	p, err := store.GetPrompt(ctx, "summary")
	if err != nil {
		t.Fatalf("GetPrompt() error = %v", err)
	}
	if p.Content != "Summarize briefly: {task}" {
		t.Errorf("GetPrompt() content = %q", p.Content)
	}

	if err := store.CreatePrompt(ctx, "critique", "Critique {task}"); err != nil {
		t.Fatalf("CreatePrompt() error = %v", err)
	}
	prompts, err := store.ListPrompts(ctx)
	if err != nil {
		t.Fatalf("ListPrompts() error = %v", err)
	}
	if len(prompts) != 2 || prompts[0].Name != "critique" {
		t.Errorf("ListPrompts() returned %d prompts in wrong order", len(prompts))
	}

	if err := store.UpdatePrompt(ctx, "missing", "x"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("UpdatePrompt() missing error = %v, want ErrNotFound", err)
	}
	if err := store.DeletePrompt(ctx, "summary"); err != nil {
		t.Fatalf("DeletePrompt() error = %v", err)
	}
	if _, err := store.GetPrompt(ctx, "summary"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetPrompt() after delete error = %v, want ErrNotFound", err)
	}
	if err := store.DeletePrompt(ctx, "summary"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("DeletePrompt() twice error = %v, want ErrNotFound", err)
	}
}

func testMemories(t *testing.T, store storage.Store) {
	ctx := context.Background()

	for _, content := range []string{"first", "second", "third"} {
		if err := store.SaveMemory(ctx, "writer", content); err != nil {
			t.Fatalf("SaveMemory() error = %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	if err := store.SaveMemory(ctx, "other", "unrelated"); err != nil {
		t.Fatalf("SaveMemory() error = %v", err)
	}

	memories, err := store.RecentMemories(ctx, "writer", 2)
	if err != nil {
		t.Fatalf("RecentMemories() error = %v", err)
	}
	if len(memories) != 2 {
		t.Fatalf("RecentMemories() = %d, want 2", len(memories))
	}
	if memories[0].Content != "third" || memories[1].Content != "second" {
		t.Errorf("RecentMemories() = [%q %q], want [third second]", memories[0].Content, memories[1].Content)
	}

	none, err := store.RecentMemories(ctx, "writer", 0)
	if err != nil {
		t.Fatalf("RecentMemories() error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("RecentMemories(limit 0) = %d, want 0", len(none))
	}
}

func testTaskRuns(t *testing.T, store storage.Store) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	runs := []*storage.TaskRun{
		{ID: "run-1", AgentName: "writer", Objective: "old", State: runstate.StateRunning, StartedAt: base.Add(-3 * time.Hour)},
		{ID: "run-2", AgentName: "writer", Objective: "recent", State: runstate.StateRunning, StartedAt: base.Add(-time.Minute)},
		{ID: "run-3", AgentName: "analyst", Objective: "pending", State: runstate.StatePending, StartedAt: base},
	}
	for _, run := range runs {
		if err := store.CreateTaskRun(ctx, run); err != nil {
			t.Fatalf("CreateTaskRun() error = %v", err)
		}
	}
	if err := store.CreateTaskRun(ctx, runs[0]); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Errorf("CreateTaskRun() duplicate error = %v, want ErrAlreadyExists", err)
	}

	finished := base.Add(-2 * time.Hour)
	err := store.FinishTaskRun(ctx, "run-1", storage.FinishTaskRunParams{
		State:      runstate.StateCompleted,
		Iterations: 4,
		FinishedAt: finished,
	})
	if err != nil {
		t.Fatalf("FinishTaskRun() error = %v", err)
	}
	if err := store.FinishTaskRun(ctx, "missing", storage.FinishTaskRunParams{State: runstate.StateStopped, FinishedAt: base}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("FinishTaskRun() missing error = %v, want ErrNotFound", err)
	}
	if err := store.FinishTaskRun(ctx, "run-2", storage.FinishTaskRunParams{State: runstate.StateRunning}); err == nil {
		t.Error("FinishTaskRun() with non-terminal state should fail")
	}

	writerRuns, err := store.ListTaskRuns(ctx, "writer", 10)
	if err != nil {
		t.Fatalf("ListTaskRuns() error = %v", err)
	}
	if len(writerRuns) != 2 || writerRuns[0].ID != "run-2" || writerRuns[1].ID != "run-1" {
		t.Fatalf("ListTaskRuns(writer) returned wrong runs")
	}
	old := writerRuns[1]
	if old.State != runstate.StateCompleted || old.Iterations != 4 || old.FinishedAt == nil {
		t.Errorf("ListTaskRuns() finished run = %+v", old)
	}

	all, err := store.ListTaskRuns(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListTaskRuns() error = %v", err)
	}
	if len(all) != 3 || all[0].ID != "run-3" {
		t.Errorf("ListTaskRuns(all) = %d runs, want 3 newest first", len(all))
	}

	n, err := store.FailInterruptedTaskRuns(ctx, "server restarted")
	if err != nil {
		t.Fatalf("FailInterruptedTaskRuns() error = %v", err)
	}
	if n != 2 {
		t.Errorf("FailInterruptedTaskRuns() = %d, want 2", n)
	}

	all, err = store.ListTaskRuns(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListTaskRuns() error = %v", err)
	}
	for _, run := range all {
		if !run.State.IsTerminal() || run.FinishedAt == nil {
			t.Errorf("run %s state = %s after reconcile, want terminal", run.ID, run.State)
		}
		if run.ID != "run-1" && run.Error != "server restarted" {
			t.Errorf("run %s error = %q", run.ID, run.Error)
		}
	}

	deleted, err := store.DeleteTaskRunsBefore(ctx, base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("DeleteTaskRunsBefore() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("DeleteTaskRunsBefore() = %d, want 1", deleted)
	}
}

func agentNames(agents []*storage.Agent) []string {
	names := make([]string, len(agents))
	for i, a := range agents {
		names[i] = a.Name
	}
	return names
}
