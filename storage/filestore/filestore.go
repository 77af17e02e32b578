// Package filestore implements storage.Store as a single YAML document on
// disk. It suits single-process deployments and local development where no
// PostgreSQL is available.
//
// The whole document is held in memory and rewritten atomically (temp file,
// fsync, rename) after every mutation.
package filestore

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/youssefsiam38/agentdesk/runstate"
	"github.com/youssefsiam38/agentdesk/storage"
)

// FileName is the name of the data file inside the data directory.
const FileName = "agentdesk.yaml"

// DefaultMaxMemories bounds the memories kept per agent.
const DefaultMaxMemories = 500

// document is the on-disk layout.
type document struct {
	Agents   map[string]*storage.Agent    `yaml:"agents"`
	Chains   map[string]*storage.Chain    `yaml:"chains"`
	Prompts  map[string]*storage.Prompt   `yaml:"prompts"`
	Memories map[string][]*storage.Memory `yaml:"memories"`
	TaskRuns []*storage.TaskRun           `yaml:"task_runs"`
}

// Option configures a Store.
type Option func(*Store)

// WithMaxMemories sets how many memories are kept per agent.
func WithMaxMemories(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxMemories = n
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is a YAML-file backed storage.Store.
type Store struct {
	mu          sync.Mutex
	path        string
	doc         *document
	maxMemories int
	now         func() time.Time
}

// New creates a Store that keeps its data in dir. Nothing is read until Migrate.
func New(dir string, opts ...Option) *Store {
	s := &Store{
		path:        filepath.Join(dir, FileName),
		doc:         newDocument(),
		maxMemories: DefaultMaxMemories,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newDocument() *document {
	return &document{
		Agents:   map[string]*storage.Agent{},
		Chains:   map[string]*storage.Chain{},
		Prompts:  map[string]*storage.Prompt{},
		Memories: map[string][]*storage.Memory{},
	}
}

// Path returns the data file path.
func (s *Store) Path() string {
	return s.path
}

// Migrate creates the data directory and loads the existing data file, if any.
func (s *Store) Migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.doc = newDocument()
		return s.flush()
	}
	if err != nil {
		return fmt.Errorf("failed to read data file: %w", err)
	}

	doc := newDocument()
	if err := yaml.Unmarshal(raw, doc); err != nil {
		return fmt.Errorf("failed to parse data file %s: %w", s.path, err)
	}
	// yaml leaves maps nil when a section is empty
	if doc.Agents == nil {
		doc.Agents = map[string]*storage.Agent{}
	}
	if doc.Chains == nil {
		doc.Chains = map[string]*storage.Chain{}
	}
	if doc.Prompts == nil {
		doc.Prompts = map[string]*storage.Prompt{}
	}
	if doc.Memories == nil {
		doc.Memories = map[string][]*storage.Memory{}
	}
	s.doc = doc
	return nil
}

// flush writes the document atomically. Callers hold mu.
func (s *Store) flush() error {
	raw, err := yaml.Marshal(s.doc)
	if err != nil {
		return fmt.Errorf("failed to encode data file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), FileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	_ = tmp.Close()

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace data file: %w", err)
	}
	return nil
}

// mutate applies fn and persists the result. A failed write restores the
// previous in-memory state by reloading from the encoded snapshot.
func (s *Store) mutate(fn func(doc *document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := yaml.Marshal(s.doc)
	if err != nil {
		return fmt.Errorf("failed to snapshot data: %w", err)
	}
	if err := fn(s.doc); err != nil {
		return err
	}
	if err := s.flush(); err != nil {
		restored := newDocument()
		if yaml.Unmarshal(snapshot, restored) == nil {
			s.doc = restored
		}
		return err
	}
	return nil
}

// =========================================================================
// Agents
// =========================================================================

// CreateAgent adds a new agent with the given settings.
func (s *Store) CreateAgent(ctx context.Context, name string, settings map[string]any) (*storage.Agent, error) {
	var created *storage.Agent
	err := s.mutate(func(doc *document) error {
		if _, ok := doc.Agents[name]; ok {
			return fmt.Errorf("failed to create agent %q: %w", name, storage.ErrAlreadyExists)
		}
		now := s.now().UTC()
		agent := &storage.Agent{
			ID:        uuid.New().String(),
			Name:      name,
			Settings:  cloneSettings(settings),
			Commands:  map[string]bool{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		doc.Agents[name] = agent
		created = cloneAgent(agent)
		return nil
	})
	return created, err
}

// GetAgent retrieves an agent by name.
func (s *Store) GetAgent(ctx context.Context, name string) (*storage.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agent, ok := s.doc.Agents[name]
	if !ok {
		return nil, fmt.Errorf("failed to get agent %q: %w", name, storage.ErrNotFound)
	}
	return cloneAgent(agent), nil
}

// ListAgents returns all agents ordered by name.
func (s *Store) ListAgents(ctx context.Context) ([]*storage.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agents := make([]*storage.Agent, 0, len(s.doc.Agents))
	for _, name := range slices.Sorted(maps.Keys(s.doc.Agents)) {
		agents = append(agents, cloneAgent(s.doc.Agents[name]))
	}
	return agents, nil
}

// UpdateAgentSettings replaces the agent's settings section.
func (s *Store) UpdateAgentSettings(ctx context.Context, name string, settings map[string]any) error {
	return s.mutate(func(doc *document) error {
		agent, ok := doc.Agents[name]
		if !ok {
			return fmt.Errorf("failed to update agent %q: %w", name, storage.ErrNotFound)
		}
		agent.Settings = cloneSettings(settings)
		agent.UpdatedAt = s.now().UTC()
		return nil
	})
}

// UpdateAgentCommands replaces the agent's command flags.
func (s *Store) UpdateAgentCommands(ctx context.Context, name string, commands map[string]bool) error {
	return s.mutate(func(doc *document) error {
		agent, ok := doc.Agents[name]
		if !ok {
			return fmt.Errorf("failed to update agent %q: %w", name, storage.ErrNotFound)
		}
		agent.Commands = maps.Clone(commands)
		if agent.Commands == nil {
			agent.Commands = map[string]bool{}
		}
		agent.UpdatedAt = s.now().UTC()
		return nil
	})
}

// DeleteAgent removes an agent and its memories.
func (s *Store) DeleteAgent(ctx context.Context, name string) error {
	return s.mutate(func(doc *document) error {
		if _, ok := doc.Agents[name]; !ok {
			return fmt.Errorf("failed to delete agent %q: %w", name, storage.ErrNotFound)
		}
		delete(doc.Agents, name)
		delete(doc.Memories, name)
		return nil
	})
}

// =========================================================================
// Chains
// =========================================================================

// CreateChain adds an empty chain.
func (s *Store) CreateChain(ctx context.Context, name string) (*storage.Chain, error) {
	var created *storage.Chain
	err := s.mutate(func(doc *document) error {
		if _, ok := doc.Chains[name]; ok {
			return fmt.Errorf("failed to create chain %q: %w", name, storage.ErrAlreadyExists)
		}
		chain := &storage.Chain{
			ID:        uuid.New().String(),
			Name:      name,
			Steps:     []*storage.ChainStep{},
			CreatedAt: s.now().UTC(),
		}
		doc.Chains[name] = chain
		created = cloneChain(chain)
		return nil
	})
	return created, err
}

// GetChain retrieves a chain with its steps.
func (s *Store) GetChain(ctx context.Context, name string) (*storage.Chain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain, ok := s.doc.Chains[name]
	if !ok {
		return nil, fmt.Errorf("failed to get chain %q: %w", name, storage.ErrNotFound)
	}
	return cloneChain(chain), nil
}

// ListChains returns all chains ordered by name.
func (s *Store) ListChains(ctx context.Context) ([]*storage.Chain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chains := make([]*storage.Chain, 0, len(s.doc.Chains))
	for _, name := range slices.Sorted(maps.Keys(s.doc.Chains)) {
		c := s.doc.Chains[name]
		chains = append(chains, &storage.Chain{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt})
	}
	return chains, nil
}

// DeleteChain removes a chain and its steps.
func (s *Store) DeleteChain(ctx context.Context, name string) error {
	return s.mutate(func(doc *document) error {
		if _, ok := doc.Chains[name]; !ok {
			return fmt.Errorf("failed to delete chain %q: %w", name, storage.ErrNotFound)
		}
		delete(doc.Chains, name)
		return nil
	})
}

// AddChainStep appends a step, numbering it after the last one.
func (s *Store) AddChainStep(ctx context.Context, chainName string, step *storage.ChainStep) (*storage.ChainStep, error) {
	var added *storage.ChainStep
	err := s.mutate(func(doc *document) error {
		chain, ok := doc.Chains[chainName]
		if !ok {
			return fmt.Errorf("failed to get chain %q: %w", chainName, storage.ErrNotFound)
		}
		next := *step
		next.StepNumber = len(chain.Steps) + 1
		chain.Steps = append(chain.Steps, &next)
		copied := next
		added = &copied
		return nil
	})
	return added, err
}

// DeleteChainStep removes the step with the given number.
func (s *Store) DeleteChainStep(ctx context.Context, chainName string, stepNumber int) error {
	return s.mutate(func(doc *document) error {
		chain, ok := doc.Chains[chainName]
		if !ok {
			return fmt.Errorf("failed to get chain %q: %w", chainName, storage.ErrNotFound)
		}
		if stepNumber < 1 || stepNumber > len(chain.Steps) {
			return fmt.Errorf("failed to delete step %d of chain %q: %w", stepNumber, chainName, storage.ErrNotFound)
		}
		chain.Steps = slices.Delete(chain.Steps, stepNumber-1, stepNumber)
		for i, st := range chain.Steps {
			st.StepNumber = i + 1
		}
		return nil
	})
}

// =========================================================================
// Prompts
// =========================================================================

// CreatePrompt adds a named prompt.
func (s *Store) CreatePrompt(ctx context.Context, name, content string) error {
	return s.mutate(func(doc *document) error {
		if _, ok := doc.Prompts[name]; ok {
			return fmt.Errorf("failed to create prompt %q: %w", name, storage.ErrAlreadyExists)
		}
		now := s.now().UTC()
		doc.Prompts[name] = &storage.Prompt{Name: name, Content: content, CreatedAt: now, UpdatedAt: now}
		return nil
	})
}

// GetPrompt retrieves a prompt by name.
func (s *Store) GetPrompt(ctx context.Context, name string) (*storage.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.doc.Prompts[name]
	if !ok {
		return nil, fmt.Errorf("failed to get prompt %q: %w", name, storage.ErrNotFound)
	}
	copied := *p
	return &copied, nil
}

// ListPrompts returns all prompts ordered by name.
func (s *Store) ListPrompts(ctx context.Context) ([]*storage.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prompts := make([]*storage.Prompt, 0, len(s.doc.Prompts))
	for _, name := range slices.Sorted(maps.Keys(s.doc.Prompts)) {
		copied := *s.doc.Prompts[name]
		prompts = append(prompts, &copied)
	}
	return prompts, nil
}

// UpdatePrompt replaces a prompt's content.
func (s *Store) UpdatePrompt(ctx context.Context, name, content string) error {
	return s.mutate(func(doc *document) error {
		p, ok := doc.Prompts[name]
		if !ok {
			return fmt.Errorf("failed to update prompt %q: %w", name, storage.ErrNotFound)
		}
		p.Content = content
		p.UpdatedAt = s.now().UTC()
		return nil
	})
}

// DeletePrompt removes a prompt.
func (s *Store) DeletePrompt(ctx context.Context, name string) error {
	return s.mutate(func(doc *document) error {
		if _, ok := doc.Prompts[name]; !ok {
			return fmt.Errorf("failed to delete prompt %q: %w", name, storage.ErrNotFound)
		}
		delete(doc.Prompts, name)
		return nil
	})
}

// =========================================================================
// Memories
// =========================================================================

// SaveMemory appends a memory, dropping the oldest beyond the per-agent limit.
func (s *Store) SaveMemory(ctx context.Context, agentName, content string) error {
	return s.mutate(func(doc *document) error {
		memories := append(doc.Memories[agentName], &storage.Memory{
			ID:        uuid.New().String(),
			AgentName: agentName,
			Content:   content,
			CreatedAt: s.now().UTC(),
		})
		if over := len(memories) - s.maxMemories; over > 0 {
			memories = memories[over:]
		}
		doc.Memories[agentName] = memories
		return nil
	})
}

// RecentMemories returns up to limit of the agent's newest memories, newest first.
func (s *Store) RecentMemories(ctx context.Context, agentName string, limit int) ([]*storage.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.doc.Memories[agentName]
	var out []*storage.Memory
	for i := len(stored) - 1; i >= 0 && len(out) < limit; i-- {
		copied := *stored[i]
		out = append(out, &copied)
	}
	return out, nil
}

// =========================================================================
// Task runs
// =========================================================================

// CreateTaskRun records a new task run.
func (s *Store) CreateTaskRun(ctx context.Context, run *storage.TaskRun) error {
	if !run.State.IsValid() {
		return fmt.Errorf("failed to create task run: invalid state %q", run.State)
	}
	return s.mutate(func(doc *document) error {
		for _, existing := range doc.TaskRuns {
			if existing.ID == run.ID {
				return fmt.Errorf("failed to create task run %q: %w", run.ID, storage.ErrAlreadyExists)
			}
		}
		doc.TaskRuns = append(doc.TaskRuns, cloneRun(run))
		return nil
	})
}

// FinishTaskRun records the final state of a run.
func (s *Store) FinishTaskRun(ctx context.Context, id string, params storage.FinishTaskRunParams) error {
	if !params.State.IsTerminal() {
		return fmt.Errorf("failed to finish task run: %q is not a terminal state", params.State)
	}
	return s.mutate(func(doc *document) error {
		for _, run := range doc.TaskRuns {
			if run.ID != id {
				continue
			}
			finished := params.FinishedAt
			run.State = params.State
			run.Error = params.Error
			run.Iterations = params.Iterations
			run.FinishedAt = &finished
			return nil
		}
		return fmt.Errorf("failed to finish task run %q: %w", id, storage.ErrNotFound)
	})
}

// ListTaskRuns returns the runs of agentName, or of every agent when empty, newest first.
func (s *Store) ListTaskRuns(ctx context.Context, agentName string, limit int) ([]*storage.TaskRun, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var runs []*storage.TaskRun
	for _, run := range s.doc.TaskRuns {
		if agentName == "" || run.AgentName == agentName {
			runs = append(runs, cloneRun(run))
		}
	}
	slices.SortStableFunc(runs, func(a, b *storage.TaskRun) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// FailInterruptedTaskRuns marks every pending or running run as failed with reason.
func (s *Store) FailInterruptedTaskRuns(ctx context.Context, reason string) (int, error) {
	var n int
	err := s.mutate(func(doc *document) error {
		now := s.now().UTC()
		for _, run := range doc.TaskRuns {
			if !run.State.IsActive() {
				continue
			}
			finished := now
			run.State = runstate.StateFailed
			run.Error = reason
			run.FinishedAt = &finished
			n++
		}
		return nil
	})
	return n, err
}

// DeleteTaskRunsBefore deletes finished runs that ended before cutoff.
func (s *Store) DeleteTaskRunsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var n int
	err := s.mutate(func(doc *document) error {
		kept := doc.TaskRuns[:0]
		for _, run := range doc.TaskRuns {
			if run.FinishedAt != nil && run.FinishedAt.Before(cutoff) {
				n++
				continue
			}
			kept = append(kept, run)
		}
		doc.TaskRuns = kept
		return nil
	})
	return n, err
}

func cloneSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return map[string]any{}
	}
	return maps.Clone(settings)
}

func cloneAgent(a *storage.Agent) *storage.Agent {
	copied := *a
	copied.Settings = cloneSettings(a.Settings)
	copied.Commands = maps.Clone(a.Commands)
	if copied.Commands == nil {
		copied.Commands = map[string]bool{}
	}
	return &copied
}

func cloneChain(c *storage.Chain) *storage.Chain {
	copied := *c
	copied.Steps = make([]*storage.ChainStep, len(c.Steps))
	for i, st := range c.Steps {
		step := *st
		copied.Steps[i] = &step
	}
	return &copied
}

func cloneRun(r *storage.TaskRun) *storage.TaskRun {
	copied := *r
	if r.FinishedAt != nil {
		finished := *r.FinishedAt
		copied.FinishedAt = &finished
	}
	return &copied
}

var _ storage.Store = (*Store)(nil)
