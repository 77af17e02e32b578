// Package agentllm drives a provider on behalf of one agent.
//
// An Agent renders prompt templates (stored overrides first, embedded
// defaults otherwise), feeds recent memories back in as context, and stores
// each answer as a new memory. On top of single prompts it offers
// SmartChat/SmartInstruct, which sample several step-by-step answers and
// reconcile them, and RunTask, an objective loop that creates, prioritizes
// and executes tasks until none are left.
package agentllm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/youssefsiam38/agentdesk/provider"
	"github.com/youssefsiam38/agentdesk/storage"
)

// Agent errors.
var (
	// ErrPromptNotFound is returned when no stored or built-in template exists.
	ErrPromptNotFound = errors.New("agentllm: prompt not found")

	// ErrEmptyObjective is returned by RunTask for an empty objective.
	ErrEmptyObjective = errors.New("agentllm: objective is required")
)

// PromptSource looks up stored prompt templates.
// storage.Store satisfies it.
type PromptSource interface {
	GetPrompt(ctx context.Context, name string) (*storage.Prompt, error)
}

// MemoryStore persists agent memories.
// storage.Store satisfies it.
type MemoryStore interface {
	SaveMemory(ctx context.Context, agentName, content string) error
	RecentMemories(ctx context.Context, agentName string, limit int) ([]*storage.Memory, error)
}

// Agent talks to a provider as a named agent.
type Agent struct {
	name     string
	provider provider.Provider
	prompts  PromptSource
	memory   MemoryStore
	config   *Config
}

// New creates an agent. prompts and memory are optional; without them only
// built-in templates are used and nothing is remembered.
func New(name string, p provider.Provider, prompts PromptSource, memory MemoryStore, config *Config) *Agent {
	if config == nil {
		config = DefaultConfig()
	}
	config.applyDefaults()

	return &Agent{
		name:     name,
		provider: p,
		prompts:  prompts,
		memory:   memory,
		config:   config,
	}
}

// Name returns the agent name.
func (a *Agent) Name() string {
	return a.name
}

// Run fills the promptName template with task and up to contextResults
// recent memories, sends it to the provider and remembers the answer.
func (a *Agent) Run(ctx context.Context, task, promptName string, contextResults int) (string, error) {
	out, err := a.complete(ctx, promptName, vars{"task": task}, contextResults)
	if err != nil {
		return "", err
	}
	a.remember(ctx, out)
	return out, nil
}

// SmartChat answers prompt through the SmartChat templates.
func (a *Agent) SmartChat(ctx context.Context, prompt string, shots int) (string, error) {
	return a.smart(ctx, "SmartChat", prompt, shots)
}

// SmartInstruct carries out task through the SmartInstruct templates.
func (a *Agent) SmartInstruct(ctx context.Context, task string, shots int) (string, error) {
	return a.smart(ctx, "SmartInstruct", task, shots)
}

// smart runs the StepByStep template shots times concurrently, has the
// Researcher template review the candidates, and returns the Resolver's
// final answer.
func (a *Agent) smart(ctx context.Context, mode, task string, shots int) (string, error) {
	if shots < 1 {
		shots = DefaultShots
	}

	candidates := make([]string, shots)
	g, gctx := errgroup.WithContext(ctx)
	for i := range shots {
		g.Go(func() error {
			out, err := a.complete(gctx, smartPrompt(mode, "StepByStep"), vars{"task": task}, a.config.ContextResults)
			if err != nil {
				return fmt.Errorf("shot %d: %w", i+1, err)
			}
			candidates[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	answers := formatAnswers(candidates)
	research, err := a.complete(ctx, smartPrompt(mode, "Researcher"), vars{
		"task":    task,
		"answers": answers,
	}, 0)
	if err != nil {
		return "", err
	}

	out, err := a.complete(ctx, smartPrompt(mode, "Resolver"), vars{
		"task":     task,
		"answers":  answers,
		"research": research,
	}, 0)
	if err != nil {
		return "", err
	}

	a.remember(ctx, out)
	return out, nil
}

// RunTask works towards objective until the task list is empty,
// MaxIterations is reached or ctx is cancelled. It returns the number of
// executed tasks.
func (a *Agent) RunTask(ctx context.Context, objective string) (int, error) {
	return a.runTask(ctx, objective, nil)
}

func (a *Agent) runTask(ctx context.Context, objective string, progress func(int)) (int, error) {
	if strings.TrimSpace(objective) == "" {
		return 0, ErrEmptyObjective
	}

	list := []string{"Develop a task list"}
	iterations := 0

	for len(list) > 0 {
		if err := ctx.Err(); err != nil {
			return iterations, err
		}
		if a.config.MaxIterations > 0 && iterations >= a.config.MaxIterations {
			a.config.Logger.Info("task iteration limit reached",
				"agent", a.name,
				"iterations", iterations,
				"remaining", len(list))
			break
		}

		task := list[0]
		list = list[1:]

		base := vars{"objective": objective, "task": task}
		result, err := a.complete(ctx, PromptExecute, base, a.config.ContextResults)
		if err != nil {
			return iterations, loopErr(ctx, "execute", err)
		}
		a.remember(ctx, fmt.Sprintf("Task: %s\nResult: %s", task, result))

		iterations++
		if progress != nil {
			progress(iterations)
		}
		a.config.Logger.Debug("task executed", "agent", a.name, "task", task, "iteration", iterations)

		created, err := a.complete(ctx, PromptTask, vars{
			"objective":        objective,
			"task":             task,
			"result":           result,
			"incomplete_tasks": strings.Join(list, ", "),
		}, 0)
		if err != nil {
			return iterations, loopErr(ctx, "create tasks", err)
		}
		list = appendNew(list, ParseList(created))

		if len(list) < 2 {
			continue
		}
		prioritized, err := a.complete(ctx, PromptPriority, vars{
			"objective": objective,
			"task_list": formatList(list),
		}, 0)
		if err != nil {
			return iterations, loopErr(ctx, "prioritize tasks", err)
		}
		if ordered := ParseList(prioritized); len(ordered) > 0 {
			list = ordered
		}
	}

	return iterations, nil
}

// loopErr prefers the context error so a stopped run reports cancellation
// rather than a provider failure caused by it.
func loopErr(ctx context.Context, step string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("failed to %s: %w", step, err)
}

// complete renders promptName and sends it to the provider.
func (a *Agent) complete(ctx context.Context, promptName string, v vars, contextResults int) (string, error) {
	tmpl, err := a.template(ctx, promptName)
	if err != nil {
		return "", err
	}

	v["agent"] = a.name
	if _, ok := v["objective"]; !ok {
		v["objective"] = v["task"]
	}
	v["context"] = a.recentContext(ctx, contextResults)

	out, err := a.provider.Instruct(ctx, fill(tmpl, v))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (a *Agent) template(ctx context.Context, name string) (string, error) {
	if a.prompts != nil {
		p, err := a.prompts.GetPrompt(ctx, name)
		switch {
		case err == nil:
			return p.Content, nil
		case !errors.Is(err, storage.ErrNotFound):
			return "", fmt.Errorf("failed to load prompt %q: %w", name, err)
		}
	}

	if tmpl, ok := DefaultPrompt(name); ok {
		return tmpl, nil
	}
	return "", fmt.Errorf("%w: %s", ErrPromptNotFound, name)
}

// recentContext joins up to limit recent memories, oldest first. Memory failures
// degrade to an empty context.
func (a *Agent) recentContext(ctx context.Context, limit int) string {
	if a.memory == nil || limit <= 0 {
		return ""
	}

	memories, err := a.memory.RecentMemories(ctx, a.name, limit)
	if err != nil {
		a.config.Logger.Warn("failed to load memories", "agent", a.name, "error", err)
		return ""
	}

	parts := make([]string, 0, len(memories))
	for i := len(memories) - 1; i >= 0; i-- {
		parts = append(parts, memories[i].Content)
	}
	return strings.Join(parts, "\n\n")
}

func (a *Agent) remember(ctx context.Context, content string) {
	if a.memory == nil || content == "" {
		return
	}
	if err := a.memory.SaveMemory(ctx, a.name, content); err != nil {
		a.config.Logger.Warn("failed to save memory", "agent", a.name, "error", err)
	}
}

func formatAnswers(candidates []string) string {
	var b strings.Builder
	for i, c := range candidates {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Answer %d:\n%s", i+1, c)
	}
	return b.String()
}
