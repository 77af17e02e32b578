// Package storage defines the persistence contract for agentdesk.
//
// A Store holds agent configurations, chains, custom prompts, agent memories
// and task run history. Implementations live in driver/sqlstore (PostgreSQL
// through pgx/v5 or database/sql) and storage/filestore (YAML files).
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/youssefsiam38/agentdesk/runstate"
)

// Storage errors.
var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrAlreadyExists is returned when a record with the same name exists.
	ErrAlreadyExists = errors.New("storage: already exists")
)

// Agent config section names.
const (
	SectionSettings = "settings"
	SectionCommands = "commands"
)

// Store defines the storage interface for agentdesk.
type Store interface {
	// Migrate prepares the backing storage (tables, directories).
	Migrate(ctx context.Context) error

	// Agent operations
	CreateAgent(ctx context.Context, name string, settings map[string]any) (*Agent, error)
	GetAgent(ctx context.Context, name string) (*Agent, error)
	ListAgents(ctx context.Context) ([]*Agent, error)
	UpdateAgentSettings(ctx context.Context, name string, settings map[string]any) error
	UpdateAgentCommands(ctx context.Context, name string, commands map[string]bool) error
	// DeleteAgent removes the agent and its memories.
	DeleteAgent(ctx context.Context, name string) error

	// Chain operations
	CreateChain(ctx context.Context, name string) (*Chain, error)
	GetChain(ctx context.Context, name string) (*Chain, error)
	ListChains(ctx context.Context) ([]*Chain, error)
	DeleteChain(ctx context.Context, name string) error
	// AddChainStep appends a step and returns it with its assigned step number.
	AddChainStep(ctx context.Context, chainName string, step *ChainStep) (*ChainStep, error)
	DeleteChainStep(ctx context.Context, chainName string, stepNumber int) error

	// Prompt operations
	CreatePrompt(ctx context.Context, name, content string) error
	GetPrompt(ctx context.Context, name string) (*Prompt, error)
	ListPrompts(ctx context.Context) ([]*Prompt, error)
	UpdatePrompt(ctx context.Context, name, content string) error
	DeletePrompt(ctx context.Context, name string) error

	// Memory operations
	SaveMemory(ctx context.Context, agentName, content string) error
	// RecentMemories returns up to limit memories, newest first.
	RecentMemories(ctx context.Context, agentName string, limit int) ([]*Memory, error)

	// Task run operations
	CreateTaskRun(ctx context.Context, run *TaskRun) error
	FinishTaskRun(ctx context.Context, id string, params FinishTaskRunParams) error
	// ListTaskRuns returns runs newest first. An empty agentName lists all agents.
	ListTaskRuns(ctx context.Context, agentName string, limit int) ([]*TaskRun, error)
	// FailInterruptedTaskRuns marks every non-terminal run as failed and
	// returns how many were updated.
	FailInterruptedTaskRuns(ctx context.Context, reason string) (int, error)
	// DeleteTaskRunsBefore removes finished runs that ended before the cutoff.
	DeleteTaskRunsBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Agent is a configured agent.
type Agent struct {
	ID        string          `json:"id" yaml:"id"`
	Name      string          `json:"name" yaml:"name"`
	Settings  map[string]any  `json:"settings" yaml:"settings"`
	Commands  map[string]bool `json:"commands" yaml:"commands"`
	CreatedAt time.Time       `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" yaml:"updated_at"`
}

// Chain is a named sequence of agent prompts.
type Chain struct {
	ID        string       `json:"id" yaml:"id"`
	Name      string       `json:"name" yaml:"name"`
	Steps     []*ChainStep `json:"steps" yaml:"steps"`
	CreatedAt time.Time    `json:"created_at" yaml:"created_at"`
}

// ChainStep is one step of a chain.
type ChainStep struct {
	StepNumber int    `json:"step_number" yaml:"step_number"`
	AgentName  string `json:"agent_name" yaml:"agent_name"`
	PromptType string `json:"prompt_type" yaml:"prompt_type"`
	Prompt     string `json:"prompt" yaml:"prompt"`
}

// Prompt is a stored custom prompt template.
type Prompt struct {
	Name      string    `json:"name" yaml:"name"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Memory is a stored interaction result used as context for later prompts.
type Memory struct {
	ID        string    `json:"id" yaml:"id"`
	AgentName string    `json:"agent_name" yaml:"agent_name"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// TaskRun is the persisted record of one objective task execution.
type TaskRun struct {
	ID         string         `json:"id" yaml:"id"`
	AgentName  string         `json:"agent_name" yaml:"agent_name"`
	Objective  string         `json:"objective" yaml:"objective"`
	State      runstate.State `json:"state" yaml:"state"`
	Error      string         `json:"error,omitempty" yaml:"error,omitempty"`
	Iterations int            `json:"iterations" yaml:"iterations"`
	StartedAt  time.Time      `json:"started_at" yaml:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

// Duration returns how long the run took, or has been running so far.
func (r *TaskRun) Duration() time.Duration {
	if r.FinishedAt != nil {
		return r.FinishedAt.Sub(r.StartedAt)
	}
	return time.Since(r.StartedAt)
}

// FinishTaskRunParams holds the terminal fields of a task run.
type FinishTaskRunParams struct {
	State      runstate.State
	Error      string
	Iterations int
	FinishedAt time.Time
}
