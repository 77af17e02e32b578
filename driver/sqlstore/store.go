// Package sqlstore implements storage.Store on PostgreSQL through the
// driver.Executor abstraction, so the same SQL serves both the pgx/v5 and
// the database/sql drivers.
package sqlstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/youssefsiam38/agentdesk/driver"
	"github.com/youssefsiam38/agentdesk/runstate"
	"github.com/youssefsiam38/agentdesk/storage"
)

//go:embed schema.sql
var schema string

// Source is the subset of driver.Driver the store needs.
type Source interface {
	GetExecutor() driver.Executor
	Begin(ctx context.Context) (driver.ExecutorTx, error)
}

// Store implements storage.Store on PostgreSQL.
type Store struct {
	src Source
}

// New creates a Store over the given driver.
func New(src Source) *Store {
	return &Store{src: src}
}

// getExecutor returns the executor from context if present, otherwise the default pool executor.
func (s *Store) getExecutor(ctx context.Context) driver.Executor {
	if exec := driver.ExecutorFromContext(ctx); exec != nil {
		return exec
	}
	return s.src.GetExecutor()
}

// inTx runs fn inside a transaction, nesting into the context transaction if one exists.
func (s *Store) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := s.getExecutor(ctx).Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(driver.WithExecutor(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Migrate creates the agentdesk tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	return s.inTx(ctx, func(ctx context.Context) error {
		exec := s.getExecutor(ctx)
		for _, stmt := range strings.Split(schema, ";\n") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := exec.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
		}
		return nil
	})
}

// =========================================================================
// Agents
// =========================================================================

// CreateAgent inserts a new agent with the given settings.
func (s *Store) CreateAgent(ctx context.Context, name string, settings map[string]any) (*storage.Agent, error) {
	if settings == nil {
		settings = map[string]any{}
	}
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}

	agent := &storage.Agent{
		ID:       uuid.New().String(),
		Name:     name,
		Settings: settings,
		Commands: map[string]bool{},
	}

	query := `
		INSERT INTO agentdesk_agents (id, name, settings, commands, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, '{}'::jsonb, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err = s.getExecutor(ctx).QueryRow(ctx, query, agent.ID, name, string(settingsJSON)).
		Scan(&agent.CreatedAt, &agent.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", translate(err))
	}
	return agent, nil
}

// GetAgent retrieves an agent by name.
func (s *Store) GetAgent(ctx context.Context, name string) (*storage.Agent, error) {
	query := `
		SELECT id, name, settings, commands, created_at, updated_at
		FROM agentdesk_agents
		WHERE name = $1
	`
	agent, err := scanAgent(s.getExecutor(ctx).QueryRow(ctx, query, name))
	if err != nil {
		return nil, fmt.Errorf("failed to get agent %q: %w", name, err)
	}
	return agent, nil
}

// ListAgents returns all agents ordered by name.
func (s *Store) ListAgents(ctx context.Context) ([]*storage.Agent, error) {
	query := `
		SELECT id, name, settings, commands, created_at, updated_at
		FROM agentdesk_agents
		ORDER BY name
	`
	rows, err := s.getExecutor(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query agents: %w", err)
	}
	defer rows.Close()

	var agents []*storage.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate agents: %w", err)
	}
	return agents, nil
}

// UpdateAgentSettings replaces the settings section of an agent.
func (s *Store) UpdateAgentSettings(ctx context.Context, name string, settings map[string]any) error {
	if settings == nil {
		settings = map[string]any{}
	}
	return s.updateAgentSection(ctx, name, "settings", settings)
}

// UpdateAgentCommands replaces the commands section of an agent.
func (s *Store) UpdateAgentCommands(ctx context.Context, name string, commands map[string]bool) error {
	if commands == nil {
		commands = map[string]bool{}
	}
	return s.updateAgentSection(ctx, name, "commands", commands)
}

// updateAgentSection writes one JSONB column. column is never user input.
func (s *Store) updateAgentSection(ctx context.Context, name, column string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", column, err)
	}

	query := fmt.Sprintf(`
		UPDATE agentdesk_agents
		SET %s = $2::jsonb, updated_at = NOW()
		WHERE name = $1
	`, column)

	n, err := s.getExecutor(ctx).Exec(ctx, query, name, string(raw))
	if err != nil {
		return fmt.Errorf("failed to update agent %s: %w", column, err)
	}
	if n == 0 {
		return fmt.Errorf("failed to update agent %q: %w", name, storage.ErrNotFound)
	}
	return nil
}

// DeleteAgent removes the agent and its memories in one transaction.
func (s *Store) DeleteAgent(ctx context.Context, name string) error {
	return s.inTx(ctx, func(ctx context.Context) error {
		affected, err := driver.ExecBatch(ctx, s.getExecutor(ctx), []driver.BatchItem{
			{Query: `DELETE FROM agentdesk_memories WHERE agent_name = $1`, Args: []any{name}},
			{Query: `DELETE FROM agentdesk_agents WHERE name = $1`, Args: []any{name}},
		})
		if err != nil {
			return fmt.Errorf("failed to delete agent: %w", err)
		}
		if affected[1] == 0 {
			return fmt.Errorf("failed to delete agent %q: %w", name, storage.ErrNotFound)
		}
		return nil
	})
}

func scanAgent(row driver.Row) (*storage.Agent, error) {
	var agent storage.Agent
	var settingsJSON, commandsJSON []byte

	err := row.Scan(
		&agent.ID,
		&agent.Name,
		&settingsJSON,
		&commandsJSON,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}

	if err := json.Unmarshal(settingsJSON, &agent.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if err := json.Unmarshal(commandsJSON, &agent.Commands); err != nil {
		return nil, fmt.Errorf("failed to unmarshal commands: %w", err)
	}
	if agent.Settings == nil {
		agent.Settings = map[string]any{}
	}
	if agent.Commands == nil {
		agent.Commands = map[string]bool{}
	}
	return &agent, nil
}

// =========================================================================
// Chains
// =========================================================================

// CreateChain inserts an empty chain.
func (s *Store) CreateChain(ctx context.Context, name string) (*storage.Chain, error) {
	chain := &storage.Chain{
		ID:    uuid.New().String(),
		Name:  name,
		Steps: []*storage.ChainStep{},
	}

	query := `
		INSERT INTO agentdesk_chains (id, name, created_at)
		VALUES ($1, $2, NOW())
		RETURNING created_at
	`
	if err := s.getExecutor(ctx).QueryRow(ctx, query, chain.ID, name).Scan(&chain.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create chain: %w", translate(err))
	}
	return chain, nil
}

// GetChain retrieves a chain and its steps.
func (s *Store) GetChain(ctx context.Context, name string) (*storage.Chain, error) {
	exec := s.getExecutor(ctx)

	var chain storage.Chain
	err := exec.QueryRow(ctx, `
		SELECT id, name, created_at FROM agentdesk_chains WHERE name = $1
	`, name).Scan(&chain.ID, &chain.Name, &chain.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain %q: %w", name, translate(err))
	}

	rows, err := exec.Query(ctx, `
		SELECT step_number, agent_name, prompt_type, prompt
		FROM agentdesk_chain_steps
		WHERE chain_id = $1
		ORDER BY step_number
	`, chain.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chain steps: %w", err)
	}
	defer rows.Close()

	chain.Steps = []*storage.ChainStep{}
	for rows.Next() {
		var step storage.ChainStep
		if err := rows.Scan(&step.StepNumber, &step.AgentName, &step.PromptType, &step.Prompt); err != nil {
			return nil, fmt.Errorf("failed to scan chain step: %w", err)
		}
		chain.Steps = append(chain.Steps, &step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chain steps: %w", err)
	}
	return &chain, nil
}

// ListChains returns all chains ordered by name, without steps.
func (s *Store) ListChains(ctx context.Context) ([]*storage.Chain, error) {
	rows, err := s.getExecutor(ctx).Query(ctx, `
		SELECT id, name, created_at FROM agentdesk_chains ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query chains: %w", err)
	}
	defer rows.Close()

	var chains []*storage.Chain
	for rows.Next() {
		var chain storage.Chain
		if err := rows.Scan(&chain.ID, &chain.Name, &chain.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chain: %w", err)
		}
		chains = append(chains, &chain)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chains: %w", err)
	}
	return chains, nil
}

// DeleteChain removes a chain; its steps cascade.
func (s *Store) DeleteChain(ctx context.Context, name string) error {
	n, err := s.getExecutor(ctx).Exec(ctx, `DELETE FROM agentdesk_chains WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete chain: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("failed to delete chain %q: %w", name, storage.ErrNotFound)
	}
	return nil
}

// AddChainStep appends a step after the current last step.
func (s *Store) AddChainStep(ctx context.Context, chainName string, step *storage.ChainStep) (*storage.ChainStep, error) {
	added := *step
	err := s.inTx(ctx, func(ctx context.Context) error {
		exec := s.getExecutor(ctx)

		var chainID string
		err := exec.QueryRow(ctx, `
			SELECT id FROM agentdesk_chains WHERE name = $1 FOR UPDATE
		`, chainName).Scan(&chainID)
		if err != nil {
			return fmt.Errorf("failed to get chain %q: %w", chainName, translate(err))
		}

		err = exec.QueryRow(ctx, `
			INSERT INTO agentdesk_chain_steps (chain_id, step_number, agent_name, prompt_type, prompt)
			SELECT $1, COALESCE(MAX(step_number), 0) + 1, $2, $3, $4
			FROM agentdesk_chain_steps
			WHERE chain_id = $1
			RETURNING step_number
		`, chainID, step.AgentName, step.PromptType, step.Prompt).Scan(&added.StepNumber)
		if err != nil {
			return fmt.Errorf("failed to add chain step: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// DeleteChainStep removes a step and renumbers the steps after it.
func (s *Store) DeleteChainStep(ctx context.Context, chainName string, stepNumber int) error {
	return s.inTx(ctx, func(ctx context.Context) error {
		exec := s.getExecutor(ctx)

		var chainID string
		err := exec.QueryRow(ctx, `
			SELECT id FROM agentdesk_chains WHERE name = $1 FOR UPDATE
		`, chainName).Scan(&chainID)
		if err != nil {
			return fmt.Errorf("failed to get chain %q: %w", chainName, translate(err))
		}

		affected, err := driver.ExecBatch(ctx, exec, []driver.BatchItem{
			{
				Query: `DELETE FROM agentdesk_chain_steps WHERE chain_id = $1 AND step_number = $2`,
				Args:  []any{chainID, stepNumber},
			},
			{
				Query: `UPDATE agentdesk_chain_steps SET step_number = step_number - 1 WHERE chain_id = $1 AND step_number > $2`,
				Args:  []any{chainID, stepNumber},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete chain step: %w", err)
		}
		if affected[0] == 0 {
			return fmt.Errorf("failed to delete step %d of chain %q: %w", stepNumber, chainName, storage.ErrNotFound)
		}
		return nil
	})
}

// =========================================================================
// Prompts
// =========================================================================

// CreatePrompt inserts a new custom prompt.
func (s *Store) CreatePrompt(ctx context.Context, name, content string) error {
	_, err := s.getExecutor(ctx).Exec(ctx, `
		INSERT INTO agentdesk_prompts (name, content, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
	`, name, content)
	if err != nil {
		return fmt.Errorf("failed to create prompt: %w", translate(err))
	}
	return nil
}

// GetPrompt retrieves a prompt by name.
func (s *Store) GetPrompt(ctx context.Context, name string) (*storage.Prompt, error) {
	var p storage.Prompt
	err := s.getExecutor(ctx).QueryRow(ctx, `
		SELECT name, content, created_at, updated_at FROM agentdesk_prompts WHERE name = $1
	`, name).Scan(&p.Name, &p.Content, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get prompt %q: %w", name, translate(err))
	}
	return &p, nil
}

// ListPrompts returns all prompts ordered by name.
func (s *Store) ListPrompts(ctx context.Context) ([]*storage.Prompt, error) {
	rows, err := s.getExecutor(ctx).Query(ctx, `
		SELECT name, content, created_at, updated_at FROM agentdesk_prompts ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query prompts: %w", err)
	}
	defer rows.Close()

	var prompts []*storage.Prompt
	for rows.Next() {
		var p storage.Prompt
		if err := rows.Scan(&p.Name, &p.Content, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prompt: %w", err)
		}
		prompts = append(prompts, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate prompts: %w", err)
	}
	return prompts, nil
}

// UpdatePrompt replaces the content of an existing prompt.
func (s *Store) UpdatePrompt(ctx context.Context, name, content string) error {
	n, err := s.getExecutor(ctx).Exec(ctx, `
		UPDATE agentdesk_prompts SET content = $2, updated_at = NOW() WHERE name = $1
	`, name, content)
	if err != nil {
		return fmt.Errorf("failed to update prompt: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("failed to update prompt %q: %w", name, storage.ErrNotFound)
	}
	return nil
}

// DeletePrompt removes a prompt.
func (s *Store) DeletePrompt(ctx context.Context, name string) error {
	n, err := s.getExecutor(ctx).Exec(ctx, `DELETE FROM agentdesk_prompts WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete prompt: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("failed to delete prompt %q: %w", name, storage.ErrNotFound)
	}
	return nil
}

// =========================================================================
// Memories
// =========================================================================

// SaveMemory stores an interaction result for an agent.
func (s *Store) SaveMemory(ctx context.Context, agentName, content string) error {
	_, err := s.getExecutor(ctx).Exec(ctx, `
		INSERT INTO agentdesk_memories (id, agent_name, content, created_at)
		VALUES ($1, $2, $3, NOW())
	`, uuid.New().String(), agentName, content)
	if err != nil {
		return fmt.Errorf("failed to save memory: %w", err)
	}
	return nil
}

// RecentMemories returns up to limit memories, newest first.
func (s *Store) RecentMemories(ctx context.Context, agentName string, limit int) ([]*storage.Memory, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.getExecutor(ctx).Query(ctx, `
		SELECT id, agent_name, content, created_at
		FROM agentdesk_memories
		WHERE agent_name = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, agentName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	var memories []*storage.Memory
	for rows.Next() {
		var m storage.Memory
		if err := rows.Scan(&m.ID, &m.AgentName, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		memories = append(memories, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memories: %w", err)
	}
	return memories, nil
}

// =========================================================================
// Task runs
// =========================================================================

// CreateTaskRun inserts a run record.
func (s *Store) CreateTaskRun(ctx context.Context, run *storage.TaskRun) error {
	if !run.State.IsValid() {
		return fmt.Errorf("failed to create task run: invalid state %q", run.State)
	}
	_, err := s.getExecutor(ctx).Exec(ctx, `
		INSERT INTO agentdesk_task_runs (id, agent_name, objective, state, error, iterations, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, run.ID, run.AgentName, run.Objective, run.State, run.Error, run.Iterations, run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to create task run: %w", translate(err))
	}
	return nil
}

// FinishTaskRun records the terminal state of a run.
func (s *Store) FinishTaskRun(ctx context.Context, id string, params storage.FinishTaskRunParams) error {
	if !params.State.IsTerminal() {
		return fmt.Errorf("failed to finish task run: %q is not a terminal state", params.State)
	}
	n, err := s.getExecutor(ctx).Exec(ctx, `
		UPDATE agentdesk_task_runs
		SET state = $2, error = $3, iterations = $4, finished_at = $5
		WHERE id = $1
	`, id, params.State, params.Error, params.Iterations, params.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to finish task run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("failed to finish task run %q: %w", id, storage.ErrNotFound)
	}
	return nil
}

// ListTaskRuns returns runs newest first. An empty agentName lists all agents.
func (s *Store) ListTaskRuns(ctx context.Context, agentName string, limit int) ([]*storage.TaskRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.getExecutor(ctx).Query(ctx, `
		SELECT id, agent_name, objective, state, error, iterations, started_at, finished_at
		FROM agentdesk_task_runs
		WHERE $1 = '' OR agent_name = $1
		ORDER BY started_at DESC, id DESC
		LIMIT $2
	`, agentName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query task runs: %w", err)
	}
	defer rows.Close()

	var runs []*storage.TaskRun
	for rows.Next() {
		var run storage.TaskRun
		err := rows.Scan(
			&run.ID,
			&run.AgentName,
			&run.Objective,
			&run.State,
			&run.Error,
			&run.Iterations,
			&run.StartedAt,
			&run.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task run: %w", err)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate task runs: %w", err)
	}
	return runs, nil
}

// FailInterruptedTaskRuns marks every pending or running run as failed.
func (s *Store) FailInterruptedTaskRuns(ctx context.Context, reason string) (int, error) {
	n, err := s.getExecutor(ctx).Exec(ctx, `
		UPDATE agentdesk_task_runs
		SET state = $1, error = $2, finished_at = NOW()
		WHERE state IN ($3, $4)
	`, runstate.StateFailed, reason, runstate.StatePending, runstate.StateRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to fail interrupted task runs: %w", err)
	}
	return int(n), nil
}

// DeleteTaskRunsBefore removes finished runs that ended before cutoff.
func (s *Store) DeleteTaskRunsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	n, err := s.getExecutor(ctx).Exec(ctx, `
		DELETE FROM agentdesk_task_runs
		WHERE finished_at IS NOT NULL AND finished_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete task runs: %w", err)
	}
	return int(n), nil
}

// translate maps driver errors onto storage errors.
func translate(err error) error {
	switch {
	case errors.Is(err, driver.ErrNoRows):
		return storage.ErrNotFound
	case errors.Is(err, driver.ErrUniqueViolation):
		return storage.ErrAlreadyExists
	default:
		return err
	}
}

var _ storage.Store = (*Store)(nil)
