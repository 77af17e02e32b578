package agentdesk

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync/atomic"
	"time"

	"github.com/youssefsiam38/agentdesk/agentllm"
	"github.com/youssefsiam38/agentdesk/commands"
	"github.com/youssefsiam38/agentdesk/driver"
	"github.com/youssefsiam38/agentdesk/hooks"
	"github.com/youssefsiam38/agentdesk/maintenance"
	"github.com/youssefsiam38/agentdesk/provider"
	"github.com/youssefsiam38/agentdesk/storage"
	"github.com/youssefsiam38/agentdesk/tasks"
)

// Version is the current agentdesk version
const Version = "0.3.0"

// Agent settings keys read by the client.
const (
	SettingProvider       = "provider"
	SettingEmbedder       = "embedder"
	SettingCustomSettings = "custom_settings"
)

// AgentConfig is an agent's configuration as shown on the settings page.
type AgentConfig struct {
	Name     string             `json:"name"`
	Provider string             `json:"provider"`
	Settings map[string]any     `json:"settings"`
	Commands []commands.Command `json:"commands"`
}

// Client is the agent management backend.
// It owns the task tracker and the run history maintenance.
type Client struct {
	store   storage.Store
	config  *ClientConfig
	tracker *tasks.Tracker
	cleanup *maintenance.Cleanup

	started atomic.Bool
}

// NewClient creates a new client over store.
//
// Example:
//
//	client, err := agentdesk.NewClient(filestore.New("./data"), nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Stop(ctx)
func NewClient(store storage.Store, config *ClientConfig) (*Client, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if config == nil {
		config = DefaultClientConfig()
	}
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		store:  store,
		config: config,
	}

	config.Hooks.OnTaskStart(c.recordTaskStart)
	config.Hooks.OnTaskFinish(c.recordTaskFinish)

	c.tracker = tasks.NewTracker(agentllm.NewRunner(c.agentLLM), &tasks.Config{
		Policy: config.DuplicatePolicy,
		Hooks:  config.Hooks,
		Logger: config.Logger,
	})

	c.cleanup = maintenance.NewCleanup(store, &maintenance.CleanupConfig{
		Interval:  config.CleanupInterval,
		Retention: config.RunRetention,
		OnPruned: func(count int) {
			config.Logger.Info("pruned task runs", "count", count)
		},
		OnError: c.reportError,
	})

	return c, nil
}

// Start prepares the store and begins background maintenance: it migrates
// the store, seeds the built-in prompts, fails runs left unfinished by a
// previous process and starts pruning old run history.
func (c *Client) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrClientAlreadyStarted
	}

	if err := c.store.Migrate(ctx); err != nil {
		c.started.Store(false)
		return fmt.Errorf("failed to migrate store: %w", err)
	}

	if err := c.seedPrompts(ctx); err != nil {
		c.started.Store(false)
		return fmt.Errorf("failed to seed prompts: %w", err)
	}

	n, err := maintenance.ReconcileInterrupted(ctx, c.store)
	if err != nil {
		c.started.Store(false)
		return err
	}
	if n > 0 {
		c.config.Logger.Warn("marked interrupted task runs as failed", "count", n)
	}

	if err := c.cleanup.Start(context.WithoutCancel(ctx)); err != nil {
		c.started.Store(false)
		return fmt.Errorf("failed to start cleanup: %w", err)
	}
	c.tracker.Reopen()

	c.config.Logger.Info("client started", "version", Version)
	return nil
}

// Stop signals every running task, waits for them until ctx expires and
// stops background maintenance.
func (c *Client) Stop(ctx context.Context) error {
	if !c.started.Load() {
		return ErrClientNotStarted
	}

	var errs []error
	if err := c.tracker.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := c.cleanup.Stop(ctx); err != nil && !errors.Is(err, maintenance.ErrCleanupStopped) {
		errs = append(errs, err)
	}

	c.started.Store(false)
	c.config.Logger.Info("client stopped")
	return errors.Join(errs...)
}

// IsStarted reports whether Start succeeded and Stop was not called.
func (c *Client) IsStarted() bool {
	return c.started.Load()
}

// Store returns the underlying store.
func (c *Client) Store() storage.Store {
	return c.store
}

func (c *Client) seedPrompts(ctx context.Context) error {
	for name, content := range agentllm.DefaultPrompts() {
		err := c.store.CreatePrompt(ctx, name, content)
		if err != nil && !errors.Is(err, storage.ErrAlreadyExists) {
			return err
		}
	}
	return nil
}

func (c *Client) reportError(err error) {
	c.config.Logger.Error("background operation failed", "error", err)
	if c.config.OnError != nil {
		c.config.OnError(err)
	}
}

// =========================================================================
// Config
// =========================================================================

// Agents returns every configured agent, sorted by name.
func (c *Client) Agents(ctx context.Context) ([]*storage.Agent, error) {
	agents, err := c.store.ListAgents(ctx)
	return agents, opErr("Agents", "", err)
}

// Providers returns the registered provider names, sorted.
func (c *Client) Providers() []string {
	return c.config.Providers.Names()
}

// EmbeddingProviders returns the embedding provider names.
func (c *Client) EmbeddingProviders() []string {
	return append([]string(nil), c.config.Embedders...)
}

// ProviderOptions returns the setting keys of a provider.
func (c *Client) ProviderOptions(name string) ([]string, error) {
	opts, err := c.config.Providers.Options(name)
	return opts, opErr("ProviderOptions", "", err)
}

// ProviderDefaults returns the default setting values of a provider.
func (c *Client) ProviderDefaults(name string) (map[string]string, error) {
	defs, err := c.config.Providers.Defaults(name)
	return defs, opErr("ProviderDefaults", "", err)
}

// =========================================================================
// Agents
// =========================================================================

// CreateAgent creates an agent. A missing provider setting is filled with
// the default provider.
func (c *Client) CreateAgent(ctx context.Context, name string, settings map[string]any) (*storage.Agent, error) {
	if !ValidAgentName(name) {
		return nil, opErr("CreateAgent", name, ErrInvalidAgentName)
	}

	settings = maps.Clone(settings)
	if settings == nil {
		settings = make(map[string]any)
	}
	if _, ok := settings[SettingProvider]; !ok {
		settings[SettingProvider] = c.config.DefaultProvider
	}

	agent, err := c.store.CreateAgent(ctx, name, settings)
	if err != nil {
		return nil, opErr("CreateAgent", name, err)
	}
	c.config.Logger.Info("agent created", "agent", name)
	return agent, nil
}

// DeleteAgent stops the agent's running task, if any, and deletes the agent
// with its memories.
func (c *Client) DeleteAgent(ctx context.Context, name string) error {
	if err := c.tracker.Stop(name); err != nil && !errors.Is(err, tasks.ErrNoTaskRunning) {
		return opErr("DeleteAgent", name, err)
	}
	if err := c.store.DeleteAgent(ctx, name); err != nil {
		return opErr("DeleteAgent", name, notFound(err))
	}
	c.config.Logger.Info("agent deleted", "agent", name)
	return nil
}

// AgentConfig returns the agent's settings and its commands merged with the
// catalog.
func (c *Client) AgentConfig(ctx context.Context, name string) (*AgentConfig, error) {
	agent, err := c.store.GetAgent(ctx, name)
	if err != nil {
		return nil, opErr("AgentConfig", name, notFound(err))
	}

	settings := agent.Settings
	if settings == nil {
		settings = make(map[string]any)
	}
	return &AgentConfig{
		Name:     agent.Name,
		Provider: provider.Settings(settings).Trimmed(SettingProvider, ""),
		Settings: settings,
		Commands: c.config.Commands.Merge(agent.Commands),
	}, nil
}

// UpdateAgentConfig replaces one section of the agent's configuration.
// For storage.SectionSettings value must be a map[string]any; for
// storage.SectionCommands a map[string]bool or a []commands.Command.
func (c *Client) UpdateAgentConfig(ctx context.Context, name, section string, value any) error {
	var err error
	switch section {
	case storage.SectionSettings:
		settings, ok := value.(map[string]any)
		if !ok {
			return opErr("UpdateAgentConfig", name, fmt.Errorf("%w: settings must be an object, got %T", ErrInvalidInput, value))
		}
		err = c.store.UpdateAgentSettings(ctx, name, settings)
	case storage.SectionCommands:
		var flags map[string]bool
		switch v := value.(type) {
		case map[string]bool:
			flags = v
		case []commands.Command:
			flags = c.config.Commands.Flags(v)
		default:
			return opErr("UpdateAgentConfig", name, fmt.Errorf("%w: commands must be a list or map, got %T", ErrInvalidInput, value))
		}
		err = c.store.UpdateAgentCommands(ctx, name, flags)
	default:
		return opErr("UpdateAgentConfig", name, fmt.Errorf("%w: %q", ErrInvalidSection, section))
	}
	if err != nil {
		return opErr("UpdateAgentConfig", name, notFound(err))
	}
	return nil
}

// AgentCommands returns every catalog command with the agent's flags.
func (c *Client) AgentCommands(ctx context.Context, name string) ([]commands.Command, error) {
	agent, err := c.store.GetAgent(ctx, name)
	if err != nil {
		return nil, opErr("AgentCommands", name, notFound(err))
	}
	return c.config.Commands.Merge(agent.Commands), nil
}

// SetAgentCommands stores the agent's enabled flags. Names outside the
// catalog are dropped.
func (c *Client) SetAgentCommands(ctx context.Context, name string, enabled map[string]bool) error {
	flags := make(map[string]bool, len(enabled))
	for k, v := range enabled {
		if c.config.Commands.Has(k) {
			flags[k] = v
		}
	}
	return c.UpdateAgentConfig(ctx, name, storage.SectionCommands, flags)
}

// CommandCatalog returns the command catalog.
func (c *Client) CommandCatalog() *commands.Catalog {
	return c.config.Commands
}

// agentLLM builds the LLM agent for name from its stored settings.
func (c *Client) agentLLM(ctx context.Context, name string) (*agentllm.Agent, error) {
	agent, err := c.store.GetAgent(ctx, name)
	if err != nil {
		return nil, notFound(err)
	}

	settings := providerSettings(agent.Settings)
	providerName := settings.Trimmed(SettingProvider, c.config.DefaultProvider)
	p, err := c.config.Providers.New(providerName, settings)
	if err != nil {
		return nil, err
	}

	return agentllm.New(name, p, c.store, c.store, &agentllm.Config{
		MaxIterations:  c.config.MaxTaskIterations,
		ContextResults: c.config.ContextResults,
		Logger:         c.config.Logger,
	}), nil
}

// providerSettings flattens custom "key:value" settings over the agent's
// settings.
func providerSettings(settings map[string]any) provider.Settings {
	out := make(provider.Settings, len(settings))
	maps.Copy(out, settings)

	custom, _ := CustomSettings(settings)
	for _, s := range custom {
		key, value, _ := strings.Cut(s, ":")
		if key = strings.TrimSpace(key); key != "" {
			out[key] = strings.TrimSpace(value)
		}
	}
	return out
}

// CustomSettings returns the agent's "key:value" custom settings. ok is
// false when the stored value is present but not a list of strings.
func CustomSettings(settings map[string]any) (list []string, ok bool) {
	switch v := settings[SettingCustomSettings].(type) {
	case nil:
		return nil, true
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// =========================================================================
// Chat and instructions
// =========================================================================

// Chat sends prompt to the agent. With smart set, several answers are
// sampled and reconciled.
func (c *Client) Chat(ctx context.Context, name, prompt string, smart bool) (string, error) {
	return c.interact(ctx, "Chat", name, prompt, smart)
}

// Instruct has the agent carry out instruction. With smart set, several
// results are sampled and reconciled.
func (c *Client) Instruct(ctx context.Context, name, instruction string, smart bool) (string, error) {
	return c.interact(ctx, "Instruct", name, instruction, smart)
}

func (c *Client) interact(ctx context.Context, mode, name, input string, smart bool) (string, error) {
	if name == "" || strings.TrimSpace(input) == "" {
		return "", opErr(mode, name, ErrInvalidInput)
	}

	agent, err := c.agentLLM(ctx, name)
	if err != nil {
		return "", opErr(mode, name, err)
	}

	start := time.Now()
	var out string
	switch {
	case mode == "Chat" && smart:
		out, err = agent.SmartChat(ctx, input, c.config.SmartShots)
	case mode == "Chat":
		out, err = agent.Run(ctx, input, agentllm.PromptChat, c.config.ContextResults)
	case smart:
		out, err = agent.SmartInstruct(ctx, input, c.config.SmartShots)
	default:
		out, err = agent.Run(ctx, input, agentllm.PromptInstruct, 0)
	}

	interaction := &hooks.Interaction{
		AgentName: name,
		Mode:      strings.ToLower(mode),
		Smart:     smart,
		Input:     input,
		Output:    out,
		Err:       err,
		Duration:  time.Since(start),
	}
	if hookErr := c.config.Hooks.TriggerInteraction(ctx, interaction); hookErr != nil {
		c.config.Logger.Warn("interaction hook failed", "agent", name, "error", hookErr)
	}

	if err != nil {
		return "", opErr(mode, name, err)
	}
	return out, nil
}

// =========================================================================
// Tasks
// =========================================================================

// StartTask starts the objective loop for the agent in the background.
// Errors: tasks.ErrInvalidInput for an empty name or objective,
// ErrAgentNotFound, tasks.ErrTaskAlreadyRunning under PolicyReject.
func (c *Client) StartTask(ctx context.Context, name, objective string) (*tasks.Handle, error) {
	if name == "" || objective == "" {
		return nil, opErr("StartTask", name, tasks.ErrInvalidInput)
	}
	if !c.started.Load() {
		return nil, opErr("StartTask", name, ErrClientNotStarted)
	}
	if _, err := c.store.GetAgent(ctx, name); err != nil {
		return nil, opErr("StartTask", name, notFound(err))
	}

	// the run must not join a transaction carried by the caller
	h, err := c.tracker.Start(driver.StripExecutor(ctx), name, objective)
	if err != nil {
		return nil, opErr("StartTask", name, err)
	}
	return h, nil
}

// StopTask signals the agent's running task to stop. It does not wait.
func (c *Client) StopTask(name string) error {
	return opErr("StopTask", name, c.tracker.Stop(name))
}

// TaskStatus reports whether the agent has a live task.
func (c *Client) TaskStatus(name string) tasks.Status {
	return c.tracker.Status(name)
}

// Task returns the agent's live task.
func (c *Client) Task(name string) (*tasks.Handle, bool) {
	return c.tracker.Get(name)
}

// RunningTasks returns every live task, oldest first.
func (c *Client) RunningTasks() []tasks.Snapshot {
	return c.tracker.List()
}

// TaskRuns returns the run history, newest first. An empty name lists
// every agent.
func (c *Client) TaskRuns(ctx context.Context, name string, limit int) ([]*storage.TaskRun, error) {
	if limit <= 0 {
		limit = DefaultMaxTaskRunList
	}
	runs, err := c.store.ListTaskRuns(ctx, name, limit)
	return runs, opErr("TaskRuns", name, err)
}

func (c *Client) recordTaskStart(ctx context.Context, e *hooks.TaskEvent) error {
	return c.store.CreateTaskRun(ctx, &storage.TaskRun{
		ID:        e.RunID,
		AgentName: e.AgentName,
		Objective: e.Objective,
		State:     e.State,
		StartedAt: e.StartedAt,
	})
}

func (c *Client) recordTaskFinish(ctx context.Context, e *hooks.TaskEvent) error {
	params := storage.FinishTaskRunParams{
		State:      e.State,
		Iterations: e.Iterations,
		FinishedAt: e.FinishedAt,
	}
	if e.Err != nil {
		params.Error = e.Err.Error()
	}
	return c.store.FinishTaskRun(ctx, e.RunID, params)
}

// =========================================================================
// Chains
// =========================================================================

// Chains returns every chain with its steps.
func (c *Client) Chains(ctx context.Context) ([]*storage.Chain, error) {
	chains, err := c.store.ListChains(ctx)
	return chains, opErr("Chains", "", err)
}

// Chain returns one chain with its steps.
func (c *Client) Chain(ctx context.Context, name string) (*storage.Chain, error) {
	chain, err := c.store.GetChain(ctx, name)
	return chain, opErr("Chain", "", err)
}

// AddChain creates an empty chain.
func (c *Client) AddChain(ctx context.Context, name string) (*storage.Chain, error) {
	if strings.TrimSpace(name) == "" {
		return nil, opErr("AddChain", "", ErrInvalidInput)
	}
	chain, err := c.store.CreateChain(ctx, name)
	return chain, opErr("AddChain", "", err)
}

// DeleteChain deletes a chain and its steps.
func (c *Client) DeleteChain(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return opErr("DeleteChain", "", ErrInvalidInput)
	}
	return opErr("DeleteChain", "", c.store.DeleteChain(ctx, name))
}

// AddChainStep appends a step to a chain.
func (c *Client) AddChainStep(ctx context.Context, chainName string, step storage.ChainStep) (*storage.ChainStep, error) {
	if step.AgentName == "" || step.PromptType == "" {
		return nil, opErr("AddChainStep", step.AgentName, ErrInvalidInput)
	}
	added, err := c.store.AddChainStep(ctx, chainName, &step)
	return added, opErr("AddChainStep", step.AgentName, err)
}

// DeleteChainStep removes a step; later steps are renumbered.
func (c *Client) DeleteChainStep(ctx context.Context, chainName string, stepNumber int) error {
	return opErr("DeleteChainStep", "", c.store.DeleteChainStep(ctx, chainName, stepNumber))
}

// =========================================================================
// Prompts
// =========================================================================

// Prompts returns every stored prompt.
func (c *Client) Prompts(ctx context.Context) ([]*storage.Prompt, error) {
	prompts, err := c.store.ListPrompts(ctx)
	return prompts, opErr("Prompts", "", err)
}

// Prompt returns a stored prompt.
func (c *Client) Prompt(ctx context.Context, name string) (*storage.Prompt, error) {
	p, err := c.store.GetPrompt(ctx, name)
	return p, opErr("Prompt", "", err)
}

// AddPrompt stores a new prompt.
func (c *Client) AddPrompt(ctx context.Context, name, content string) error {
	if name == "" || content == "" {
		return opErr("AddPrompt", "", ErrInvalidInput)
	}
	return opErr("AddPrompt", "", c.store.CreatePrompt(ctx, name, content))
}

// UpdatePrompt replaces a prompt's content.
func (c *Client) UpdatePrompt(ctx context.Context, name, content string) error {
	if name == "" || content == "" {
		return opErr("UpdatePrompt", "", ErrInvalidInput)
	}
	return opErr("UpdatePrompt", "", c.store.UpdatePrompt(ctx, name, content))
}

// DeletePrompt deletes a prompt. A built-in prompt falls back to its
// default template.
func (c *Client) DeletePrompt(ctx context.Context, name string) error {
	if name == "" {
		return opErr("DeletePrompt", "", ErrInvalidInput)
	}
	return opErr("DeletePrompt", "", c.store.DeletePrompt(ctx, name))
}

// notFound maps storage.ErrNotFound for agents onto ErrAgentNotFound while
// keeping the storage error in the chain.
func notFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrAgentNotFound, err)
	}
	return err
}
