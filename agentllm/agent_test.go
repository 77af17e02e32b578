package agentllm

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/youssefsiam38/agentdesk/storage"
	"github.com/youssefsiam38/agentdesk/tasks"
)

// funcProvider answers prompts through fn and records them.
type funcProvider struct {
	mu      sync.Mutex
	prompts []string
	fn      func(ctx context.Context, prompt string) (string, error)
}

func (p *funcProvider) Name() string { return "func" }

func (p *funcProvider) Instruct(ctx context.Context, prompt string) (string, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, prompt)
	p.mu.Unlock()
	return p.fn(ctx, prompt)
}

func (p *funcProvider) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.prompts)
}

// memStore is an in-memory PromptSource and MemoryStore.
type memStore struct {
	mu       sync.Mutex
	prompts  map[string]string
	memories []*storage.Memory
}

func newMemStore() *memStore {
	return &memStore{prompts: make(map[string]string)}
}

func (s *memStore) GetPrompt(ctx context.Context, name string) (*storage.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.prompts[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Prompt{Name: name, Content: content}, nil
}

func (s *memStore) SaveMemory(ctx context.Context, agentName, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memories = append(s.memories, &storage.Memory{AgentName: agentName, Content: content, CreatedAt: time.Now()})
	return nil
}

func (s *memStore) RecentMemories(ctx context.Context, agentName string, limit int) ([]*storage.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*storage.Memory
	for i := len(s.memories) - 1; i >= 0 && len(out) < limit; i-- {
		if s.memories[i].AgentName == agentName {
			out = append(out, s.memories[i])
		}
	}
	return out, nil
}

func (s *memStore) contents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.memories))
	for i, m := range s.memories {
		out[i] = m.Content
	}
	return out
}

func TestAgent_Run(t *testing.T) {
	store := newMemStore()
	store.prompts["Chat"] = "agent={agent} context=[{context}] task={task} keep={unknown}"
	_ = store.SaveMemory(context.Background(), "helper", "older")
	_ = store.SaveMemory(context.Background(), "helper", "newer")
	_ = store.SaveMemory(context.Background(), "other", "not mine")

	p := &funcProvider{fn: func(ctx context.Context, prompt string) (string, error) {
		return "  the answer \n", nil
	}}
	a := New("helper", p, store, store, nil)

	out, err := a.Run(context.Background(), "hello", PromptChat, 6)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out != "the answer" {
		t.Errorf("Run() = %q, want %q", out, "the answer")
	}

	calls := p.calls()
	if len(calls) != 1 {
		t.Fatalf("provider called %d times, want 1", len(calls))
	}
	want := "agent=helper context=[older\n\nnewer] task=hello keep={unknown}"
	if calls[0] != want {
		t.Errorf("prompt = %q, want %q", calls[0], want)
	}

	mem := store.contents()
	if mem[len(mem)-1] != "the answer" {
		t.Errorf("last memory = %q, want the answer", mem[len(mem)-1])
	}
}

func TestAgent_RunDefaultTemplate(t *testing.T) {
	p := &funcProvider{fn: func(ctx context.Context, prompt string) (string, error) {
		return "done", nil
	}}
	a := New("helper", p, newMemStore(), nil, nil)

	if _, err := a.Run(context.Background(), "list files", PromptInstruct, 0); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if prompt := p.calls()[0]; !strings.Contains(prompt, "list files") || strings.Contains(prompt, "{task}") {
		t.Errorf("default template not filled: %q", prompt)
	}
}

func TestAgent_RunUnknownPrompt(t *testing.T) {
	p := &funcProvider{fn: func(ctx context.Context, prompt string) (string, error) {
		return "x", nil
	}}
	a := New("helper", p, nil, nil, nil)

	_, err := a.Run(context.Background(), "task", "no-such-prompt", 0)
	if !errors.Is(err, ErrPromptNotFound) {
		t.Errorf("Run() error = %v, want ErrPromptNotFound", err)
	}
	if len(p.calls()) != 0 {
		t.Error("provider called for a missing template")
	}
}

func TestAgent_RunProviderError(t *testing.T) {
	store := newMemStore()
	boom := errors.New("boom")
	p := &funcProvider{fn: func(ctx context.Context, prompt string) (string, error) {
		return "", boom
	}}
	a := New("helper", p, store, store, nil)

	if _, err := a.Run(context.Background(), "task", PromptChat, 3); !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want boom", err)
	}
	if len(store.contents()) != 0 {
		t.Error("failed run stored a memory")
	}
}

func TestAgent_SmartChat(t *testing.T) {
	store := newMemStore()
	store.prompts["SmartChat-StepByStep"] = "step {task}"
	store.prompts["SmartChat-Researcher"] = "research {answers}"
	store.prompts["SmartChat-Resolver"] = "resolve {research}"

	var mu sync.Mutex
	shot := 0
	p := &funcProvider{fn: func(ctx context.Context, prompt string) (string, error) {
		switch {
		case strings.HasPrefix(prompt, "step"):
			mu.Lock()
			shot++
			mu.Unlock()
			return "candidate", nil
		case strings.HasPrefix(prompt, "research"):
			return "review", nil
		case strings.HasPrefix(prompt, "resolve"):
			return "final", nil
		}
		return "", errors.New("unexpected prompt")
	}}
	a := New("helper", p, store, store, nil)

	out, err := a.SmartChat(context.Background(), "question", 3)
	if err != nil {
		t.Fatalf("SmartChat() error = %v", err)
	}
	if out != "final" {
		t.Errorf("SmartChat() = %q, want final", out)
	}
	if shot != 3 {
		t.Errorf("step-by-step shots = %d, want 3", shot)
	}

	calls := p.calls()
	research := calls[len(calls)-2]
	if !strings.Contains(research, "Answer 3:\ncandidate") {
		t.Errorf("researcher prompt missing candidates: %q", research)
	}
	if calls[len(calls)-1] != "resolve review" {
		t.Errorf("resolver prompt = %q", calls[len(calls)-1])
	}
	if mem := store.contents(); len(mem) != 1 || mem[0] != "final" {
		t.Errorf("memories = %v, want [final]", mem)
	}
}

func TestAgent_SmartInstructShotError(t *testing.T) {
	boom := errors.New("boom")
	p := &funcProvider{fn: func(ctx context.Context, prompt string) (string, error) {
		return "", boom
	}}
	a := New("helper", p, nil, nil, nil)

	if _, err := a.SmartInstruct(context.Background(), "do it", 2); !errors.Is(err, boom) {
		t.Errorf("SmartInstruct() error = %v, want boom", err)
	}
}

func TestAgent_RunTask(t *testing.T) {
	store := newMemStore()
	created := false
	var executed []string

	p := &funcProvider{fn: func(ctx context.Context, prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "task creation AI"):
			if created {
				return "", nil
			}
			created = true
			return "1. Gather sources\n2) Write summary\nnot a task", nil
		case strings.Contains(prompt, "task prioritization AI"):
			return "1. Write summary\n2. Gather sources", nil
		default:
			task := prompt[strings.Index(prompt, "Your task: ")+len("Your task: "):]
			task = task[:strings.Index(task, "\n")]
			executed = append(executed, task)
			return "result of " + task, nil
		}
	}}
	a := New("researcher", p, store, store, nil)

	var progress []int
	n, err := a.runTask(context.Background(), "Summarize papers", func(i int) { progress = append(progress, i) })
	if err != nil {
		t.Fatalf("RunTask() error = %v", err)
	}
	if n != 3 {
		t.Errorf("iterations = %d, want 3", n)
	}

	want := []string{"Develop a task list", "Write summary", "Gather sources"}
	if !slices.Equal(executed, want) {
		t.Errorf("executed = %v, want %v", executed, want)
	}
	if !slices.Equal(progress, []int{1, 2, 3}) {
		t.Errorf("progress = %v", progress)
	}
	if len(store.contents()) != 3 {
		t.Errorf("memories = %d, want 3", len(store.contents()))
	}
}

func TestAgent_RunTaskMaxIterations(t *testing.T) {
	p := &funcProvider{fn: func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "task creation AI") {
			return "1. another task " + time.Now().String(), nil
		}
		return "ok", nil
	}}
	a := New("looper", p, nil, nil, &Config{MaxIterations: 4})

	n, err := a.RunTask(context.Background(), "never ends")
	if err != nil {
		t.Fatalf("RunTask() error = %v", err)
	}
	if n != 4 {
		t.Errorf("iterations = %d, want 4", n)
	}
}

func TestAgent_RunTaskCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &funcProvider{fn: func(ctx context.Context, prompt string) (string, error) {
		cancel()
		return "", ctx.Err()
	}}
	a := New("stopper", p, nil, nil, nil)

	n, err := a.RunTask(ctx, "objective")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("RunTask() error = %v, want context.Canceled", err)
	}
	if n != 0 {
		t.Errorf("iterations = %d, want 0", n)
	}
}

func TestAgent_RunTaskEmptyObjective(t *testing.T) {
	a := New("x", &funcProvider{}, nil, nil, nil)
	if _, err := a.RunTask(context.Background(), "  "); !errors.Is(err, ErrEmptyObjective) {
		t.Errorf("RunTask() error = %v, want ErrEmptyObjective", err)
	}
}

func TestRunner(t *testing.T) {
	p := &funcProvider{fn: func(ctx context.Context, prompt string) (string, error) {
		return "", nil
	}}
	agent := New("worker", p, nil, nil, nil)

	var resolved string
	r := NewRunner(func(ctx context.Context, name string) (*Agent, error) {
		resolved = name
		return agent, nil
	})

	var last int
	n, err := r.RunTask(context.Background(), tasks.Task{
		AgentName: "worker",
		Objective: "one step",
		Progress:  func(i int) { last = i },
	})
	if err != nil {
		t.Fatalf("RunTask() error = %v", err)
	}
	if resolved != "worker" || n != 1 || last != 1 {
		t.Errorf("resolved=%q n=%d last=%d", resolved, n, last)
	}
}

func TestRunner_ResolveError(t *testing.T) {
	boom := errors.New("no such agent")
	r := NewRunner(func(ctx context.Context, name string) (*Agent, error) {
		return nil, boom
	})
	if _, err := r.RunTask(context.Background(), tasks.Task{AgentName: "x", Objective: "y"}); !errors.Is(err, boom) {
		t.Errorf("RunTask() error = %v, want wrapped resolve error", err)
	}
}

func TestParseList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"dots", "1. a\n2. b", []string{"a", "b"}},
		{"parens and spaces", "  1) first  \n 10 ) tenth", []string{"first", "tenth"}},
		{"mixed prose", "Here you go:\n1. only\nThanks", []string{"only"}},
		{"empty", "", nil},
		{"empty item", "1. \n2. real", []string{"real"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseList(tt.in); !slices.Equal(got, tt.want) {
				t.Errorf("ParseList() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultPrompts(t *testing.T) {
	for _, name := range []string{
		PromptChat, PromptInstruct, PromptExecute, PromptTask, PromptPriority,
		"SmartChat-StepByStep", "SmartChat-Researcher", "SmartChat-Resolver",
		"SmartInstruct-StepByStep", "SmartInstruct-Researcher", "SmartInstruct-Resolver",
	} {
		if _, ok := DefaultPrompt(name); !ok {
			t.Errorf("missing default prompt %q", name)
		}
	}
	if names := DefaultPromptNames(); !slices.IsSorted(names) {
		t.Errorf("DefaultPromptNames() not sorted: %v", names)
	}
}
