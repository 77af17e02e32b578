package service

import (
	"time"

	"github.com/youssefsiam38/agentdesk/commands"
	"github.com/youssefsiam38/agentdesk/storage"
	"github.com/youssefsiam38/agentdesk/tasks"
)

// Validation constants for query parameters
const (
	// MaxPageLimit is the maximum allowed page size to prevent resource exhaustion
	MaxPageLimit = 1000
	// MinPageLimit is the minimum allowed page size
	MinPageLimit = 1
)

// ValidateLimit ensures limit is within acceptable bounds.
func ValidateLimit(limit int) int {
	if limit < MinPageLimit {
		return MinPageLimit
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}

// Settings form actions.
const (
	ActionUpdate       = "update"
	ActionAddCustom    = "add_custom"
	ActionRemoveCustom = "remove_custom"
)

// Chain and prompt form actions, as labelled on their buttons.
const (
	ActionCreate = "Create"
	ActionDelete = "Delete"
	ActionAdd    = "Add"
	ActionEdit   = "Update"
)

// ProviderField is one provider option input.
type ProviderField struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Placeholder string `json:"placeholder,omitempty"`
}

// CustomSetting is one key/value row of an agent's custom settings.
type CustomSetting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// String returns the stored "key:value" form.
func (c CustomSetting) String() string {
	return c.Key + ":" + c.Value
}

// AgentSettingsView is the agent settings page.
type AgentSettingsView struct {
	Agents []string `json:"agents"`
	Agent  string   `json:"agent"`

	Providers      []string        `json:"providers"`
	Provider       string          `json:"provider"`
	ProviderFields []ProviderField `json:"provider_fields"`
	ProviderError  string          `json:"provider_error,omitempty"`

	Embedders []string `json:"embedders"`
	Embedder  string   `json:"embedder"`

	CustomSettings []CustomSetting    `json:"custom_settings"`
	Commands       []commands.Command `json:"commands"`

	// LoadError is set when the agent configuration could not be loaded.
	// The rest of the view is then partial.
	LoadError string `json:"load_error,omitempty"`
}

// AgentSettingsForm is a submitted agent settings form.
type AgentSettingsForm struct {
	Action         string
	Agent          string
	Provider       string
	Options        map[string]string
	Embedder       string
	CustomSettings []CustomSetting
	Commands       []string
}

// InteractionResult is the answer to a chat message or instruction.
type InteractionResult struct {
	Agent    string        `json:"agent"`
	Input    string        `json:"input"`
	Output   string        `json:"output"`
	Smart    bool          `json:"smart"`
	Duration time.Duration `json:"duration"`
}

// TaskRunView is one row of the run history table.
type TaskRunView struct {
	ID         string        `json:"id"`
	AgentName  string        `json:"agent_name"`
	Objective  string        `json:"objective"`
	State      string        `json:"state"`
	Error      string        `json:"error,omitempty"`
	Iterations int           `json:"iterations"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Duration   time.Duration `json:"duration"`
}

func newTaskRunView(run *storage.TaskRun) *TaskRunView {
	return &TaskRunView{
		ID:         run.ID,
		AgentName:  run.AgentName,
		Objective:  run.Objective,
		State:      run.State.String(),
		Error:      run.Error,
		Iterations: run.Iterations,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Duration:   run.Duration(),
	}
}

// TaskStatusView is the live status of one agent's task.
type TaskStatusView struct {
	Agent   string          `json:"agent"`
	Status  tasks.Status    `json:"status"`
	Running bool            `json:"running"`
	Run     *tasks.Snapshot `json:"run,omitempty"`
}

// TasksView is the tasks page.
type TasksView struct {
	Agents  []string         `json:"agents"`
	Agent   string           `json:"agent"`
	Status  *TaskStatusView  `json:"status,omitempty"`
	Running []tasks.Snapshot `json:"running"`
	Runs    []*TaskRunView   `json:"runs"`
}

// ChainsView is the chains page.
type ChainsView struct {
	Chains []*storage.Chain `json:"chains"`
	Agents []string         `json:"agents"`
}

// PromptsView is the custom prompts page.
type PromptsView struct {
	Prompts  []*storage.Prompt `json:"prompts"`
	Selected *storage.Prompt   `json:"selected,omitempty"`
}
