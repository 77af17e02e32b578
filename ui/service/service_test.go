package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/youssefsiam38/agentdesk/internal/testutil"
	"github.com/youssefsiam38/agentdesk/storage"
	"github.com/youssefsiam38/agentdesk/tasks"
)

func newTestService(t *testing.T, reply testutil.ReplyFunc, agents ...string) *Service {
	t.Helper()
	return New(testutil.NewClient(t, reply, agents...))
}

func wantFormError(t *testing.T, err error, message string) {
	t.Helper()
	var fe *FormError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FormError", err)
	}
	if fe.Message != message {
		t.Errorf("message = %q, want %q", fe.Message, message)
	}
}

func TestValidateLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-1, MinPageLimit},
		{0, MinPageLimit},
		{25, 25},
		{MaxPageLimit + 1, MaxPageLimit},
	}
	for _, tt := range tests {
		if got := ValidateLimit(tt.in); got != tt.want {
			t.Errorf("ValidateLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestService_Tasks(t *testing.T) {
	svc := newTestService(t, testutil.Block, "agent1")
	ctx := context.Background()

	t.Run("missing input", func(t *testing.T) {
		_, err := svc.StartTask(ctx, "", "objective")
		wantFormError(t, err, "Agent name and task objective are required.")
		_, err = svc.StartTask(ctx, "agent1", "  ")
		wantFormError(t, err, MsgTaskInputRequired)
		if got := svc.TaskStatus("agent1").Status; got != tasks.StatusNotRunning {
			t.Errorf("status = %q after rejected start", got)
		}
	})

	t.Run("stop without task", func(t *testing.T) {
		_, err := svc.StopTask("agent2")
		wantFormError(t, err, "No task is running for the selected agent.")
	})

	t.Run("start and stop", func(t *testing.T) {
		msg, err := svc.StartTask(ctx, "agent1", "summarize doc")
		if err != nil {
			t.Fatalf("StartTask() error = %v", err)
		}
		if msg != "Task started for agent 'agent1'." {
			t.Errorf("message = %q", msg)
		}

		status := svc.TaskStatus("agent1")
		if !status.Running || status.Run == nil || status.Run.Objective != "summarize doc" {
			t.Errorf("status = %+v, want running summarize doc", status)
		}

		_, err = svc.StartTask(ctx, "agent1", "again")
		wantFormError(t, err, MsgTaskAlreadyRunning)

		msg, err = svc.StopTask("agent1")
		if err != nil {
			t.Fatalf("StopTask() error = %v", err)
		}
		if msg != "Task stopped for agent 'agent1'." {
			t.Errorf("message = %q", msg)
		}
		if svc.TaskStatus("agent1").Running {
			t.Error("still running after stop")
		}
	})

	t.Run("unknown agent", func(t *testing.T) {
		_, err := svc.StartTask(ctx, "ghost", "objective")
		var fe *FormError
		if !errors.As(err, &fe) || !strings.HasPrefix(fe.Message, "Error loading agent configuration:") {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("tasks page", func(t *testing.T) {
		deadline := time.Now().Add(5 * time.Second)
		var view *TasksView
		for {
			var err error
			view, err = svc.LoadTasks(ctx, "", 10)
			if err != nil {
				t.Fatalf("LoadTasks() error = %v", err)
			}
			if len(view.Runs) > 0 && view.Runs[0].FinishedAt != nil {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("run history not finished: %+v", view.Runs)
			}
			time.Sleep(10 * time.Millisecond)
		}
		if view.Agent != "agent1" {
			t.Errorf("selected agent = %q", view.Agent)
		}
		if view.Runs[0].State != "stopped" {
			t.Errorf("run state = %q, want stopped", view.Runs[0].State)
		}
	})
}

func TestService_ChatAndInstruct(t *testing.T) {
	svc := newTestService(t, func(_ context.Context, prompt string) (string, error) {
		return "answer", nil
	}, "helper")
	ctx := context.Background()

	_, err := svc.Chat(ctx, "helper", " ", false)
	wantFormError(t, err, "Agent name and message are required.")
	_, err = svc.Instruct(ctx, "", "do it", false)
	wantFormError(t, err, "Agent name and instruction are required.")

	res, err := svc.Chat(ctx, "helper", " hello ", false)
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if res.Output != "answer" || res.Input != "hello" {
		t.Errorf("result = %+v", res)
	}

	res, err = svc.Instruct(ctx, "helper", "write a haiku", true)
	if err != nil {
		t.Fatalf("Instruct() error = %v", err)
	}
	if !res.Smart || res.Output != "answer" {
		t.Errorf("result = %+v", res)
	}
}

func TestService_AgentSettings(t *testing.T) {
	svc := newTestService(t, testutil.Echo, "alpha", "beta")
	ctx := context.Background()

	view := svc.LoadAgentSettings(ctx, "", "")
	if view.LoadError != "" {
		t.Fatalf("LoadError = %q", view.LoadError)
	}
	if view.Agent != "alpha" {
		t.Errorf("default agent = %q, want alpha", view.Agent)
	}
	if view.Provider != testutil.ScriptedProviderName {
		t.Errorf("provider = %q", view.Provider)
	}
	if len(view.ProviderFields) != 2 || view.ProviderFields[0].Placeholder != "tiny" {
		t.Errorf("fields = %+v", view.ProviderFields)
	}
	if len(view.Commands) != 2 {
		t.Errorf("commands = %+v", view.Commands)
	}

	form := &AgentSettingsForm{
		Action:   ActionAddCustom,
		Agent:    "beta",
		Provider: testutil.ScriptedProviderName,
		Options:  map[string]string{"AI_MODEL": "big", "API_KEY": "k"},
		CustomSettings: []CustomSetting{
			{Key: "region", Value: "eu"},
		},
		Commands: []string{"Web Search"},
	}
	view, msg, err := svc.UpdateAgentSettings(ctx, form)
	if err != nil || msg != "" {
		t.Fatalf("add_custom = %q, %v", msg, err)
	}
	if len(view.CustomSettings) != 2 {
		t.Errorf("custom rows = %+v, want 2", view.CustomSettings)
	}

	form.Action = ActionRemoveCustom
	form.CustomSettings = view.CustomSettings
	view, _, _ = svc.UpdateAgentSettings(ctx, form)
	if len(view.CustomSettings) != 1 {
		t.Errorf("custom rows after remove = %+v, want 1", view.CustomSettings)
	}

	// nothing persisted yet
	stored := svc.LoadAgentSettings(ctx, "beta", "")
	if len(stored.CustomSettings) != 0 {
		t.Errorf("custom settings persisted before update: %+v", stored.CustomSettings)
	}

	form.Action = ActionUpdate
	form.Embedder = "openai"
	form.CustomSettings = view.CustomSettings
	_, msg, err = svc.UpdateAgentSettings(ctx, form)
	if err != nil {
		t.Fatalf("update error = %v", err)
	}
	if msg != "Agent 'beta' updated." {
		t.Errorf("message = %q", msg)
	}

	stored = svc.LoadAgentSettings(ctx, "beta", "")
	if stored.ProviderFields[0].Value != "big" {
		t.Errorf("AI_MODEL = %q, want big", stored.ProviderFields[0].Value)
	}
	if stored.Embedder != "openai" {
		t.Errorf("embedder = %q", stored.Embedder)
	}
	if len(stored.CustomSettings) != 1 || stored.CustomSettings[0].String() != "region:eu" {
		t.Errorf("custom settings = %+v", stored.CustomSettings)
	}
	for _, cmd := range stored.Commands {
		if cmd.Enabled != (cmd.Name == "Web Search") {
			t.Errorf("command %q enabled = %v", cmd.Name, cmd.Enabled)
		}
	}

	_, _, err = svc.UpdateAgentSettings(ctx, &AgentSettingsForm{Action: ActionUpdate})
	wantFormError(t, err, "Agent name is required.")
}

func TestService_AgentSettingsKeepsStoredKeys(t *testing.T) {
	svc := newTestService(t, testutil.Echo, "alpha")
	ctx := context.Background()

	err := svc.client.UpdateAgentConfig(ctx, "alpha", storage.SectionSettings, map[string]any{
		"provider":       "openai",
		"OPENAI_API_KEY": "sk-keep",
		"AI_TEMPERATURE": "0.2",
	})
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = svc.UpdateAgentSettings(ctx, &AgentSettingsForm{
		Action:   ActionUpdate,
		Agent:    "alpha",
		Provider: testutil.ScriptedProviderName,
		Options:  map[string]string{"AI_MODEL": "big"},
	})
	if err != nil {
		t.Fatalf("update error = %v", err)
	}

	cfg, err := svc.client.AgentConfig(ctx, "alpha")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		key  string
		want any
	}{
		{"provider", testutil.ScriptedProviderName},
		{"AI_MODEL", "big"},
		{"OPENAI_API_KEY", "sk-keep"},
		{"AI_TEMPERATURE", "0.2"},
	}
	for _, tt := range tests {
		if got := cfg.Settings[tt.key]; got != tt.want {
			t.Errorf("settings[%s] = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestService_AgentSettingsErrors(t *testing.T) {
	svc := newTestService(t, testutil.Echo, "alpha")
	ctx := context.Background()

	view := svc.LoadAgentSettings(ctx, "ghost", "")
	if !strings.HasPrefix(view.LoadError, "Error loading agent configuration:") {
		t.Errorf("LoadError = %q", view.LoadError)
	}
	if len(view.Agents) != 1 {
		t.Errorf("agents = %v, page should still list agents", view.Agents)
	}

	view = svc.LoadAgentSettings(ctx, "alpha", "missing")
	if view.Provider != testutil.ScriptedProviderName {
		t.Errorf("unknown override should fall back to the first provider, got %q", view.Provider)
	}

	fields, msg := svc.ProviderFields(ctx, "alpha", "missing")
	if fields != nil || !strings.HasPrefix(msg, "Error loading provider settings: expected a list, but got") {
		t.Errorf("ProviderFields(missing) = %v, %q", fields, msg)
	}

	_, _, err := svc.UpdateAgentSettings(ctx, &AgentSettingsForm{Action: ActionUpdate, Agent: "ghost"})
	var fe *FormError
	if !errors.As(err, &fe) || !strings.HasPrefix(fe.Message, "Error updating agent:") {
		t.Errorf("update ghost error = %v", err)
	}
}

func TestService_CreateDeleteAgent(t *testing.T) {
	svc := newTestService(t, testutil.Echo)
	ctx := context.Background()

	_, err := svc.CreateAgent(ctx, " ")
	wantFormError(t, err, MsgAgentNameRequired)
	_, err = svc.CreateAgent(ctx, "bad name")
	wantFormError(t, err, MsgAgentNameInvalid)

	msg, err := svc.CreateAgent(ctx, "gamma")
	if err != nil || msg != "Agent 'gamma' created." {
		t.Fatalf("CreateAgent() = %q, %v", msg, err)
	}
	msg, err = svc.DeleteAgent(ctx, "gamma")
	if err != nil || msg != "Agent 'gamma' deleted." {
		t.Fatalf("DeleteAgent() = %q, %v", msg, err)
	}
	if _, err := svc.DeleteAgent(ctx, "gamma"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteAgent() error = %v, want ErrNotFound", err)
	}
}

func TestService_Chains(t *testing.T) {
	svc := newTestService(t, testutil.Echo, "writer")
	ctx := context.Background()

	_, err := svc.ChainAction(ctx, "", ActionCreate)
	wantFormError(t, err, "Chain name is required.")

	msg, err := svc.ChainAction(ctx, "pipeline", ActionCreate)
	if err != nil || msg != "Chain 'pipeline' created." {
		t.Fatalf("create = %q, %v", msg, err)
	}

	_, err = svc.AddChainStep(ctx, "pipeline", storage.ChainStep{AgentName: "writer"})
	wantFormError(t, err, MsgChainStepRequired)

	msg, err = svc.AddChainStep(ctx, "pipeline", storage.ChainStep{AgentName: "writer", PromptType: "instruct", Prompt: "draft"})
	if err != nil || msg != "Step 1 added to chain 'pipeline'." {
		t.Fatalf("add step = %q, %v", msg, err)
	}

	chain, err := svc.GetChain(ctx, "pipeline")
	if err != nil || len(chain.Steps) != 1 {
		t.Fatalf("GetChain() = %+v, %v", chain, err)
	}
	if _, err := svc.GetChain(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetChain(nope) error = %v", err)
	}

	if _, err := svc.DeleteChainStep(ctx, "pipeline", 1); err != nil {
		t.Fatalf("DeleteChainStep() error = %v", err)
	}

	view, err := svc.LoadChains(ctx)
	if err != nil || len(view.Chains) != 1 || len(view.Agents) != 1 {
		t.Fatalf("LoadChains() = %+v, %v", view, err)
	}

	msg, err = svc.ChainAction(ctx, "pipeline", ActionDelete)
	if err != nil || msg != "Chain 'pipeline' deleted." {
		t.Fatalf("delete = %q, %v", msg, err)
	}

	_, err = svc.ChainAction(ctx, "pipeline", "Rename")
	wantFormError(t, err, MsgUnknownAction)
}

func TestService_Prompts(t *testing.T) {
	svc := newTestService(t, testutil.Echo)
	ctx := context.Background()

	_, err := svc.PromptAction(ctx, "greeting", "", ActionAdd)
	wantFormError(t, err, "Prompt name and content are required.")

	tests := []struct {
		action string
		want   string
	}{
		{ActionAdd, "Prompt 'greeting' added."},
		{ActionEdit, "Prompt 'greeting' updated."},
		{ActionDelete, "Prompt 'greeting' deleted."},
	}
	for _, tt := range tests {
		msg, err := svc.PromptAction(ctx, "greeting", "Hello {task}", tt.action)
		if err != nil {
			t.Fatalf("%s error = %v", tt.action, err)
		}
		if msg != tt.want {
			t.Errorf("%s message = %q, want %q", tt.action, msg, tt.want)
		}
	}

	view, err := svc.LoadPrompts(ctx, "Chat")
	if err != nil {
		t.Fatalf("LoadPrompts() error = %v", err)
	}
	if view.Selected == nil || view.Selected.Name != "Chat" {
		t.Errorf("selected = %+v, want seeded Chat prompt", view.Selected)
	}
}

func TestMessage(t *testing.T) {
	if got := Message(formError("shown", errors.New("hidden"))); got != "shown" {
		t.Errorf("Message(FormError) = %q", got)
	}
	if got := Message(errors.New("plain")); got != "plain" {
		t.Errorf("Message(plain) = %q", got)
	}
}
