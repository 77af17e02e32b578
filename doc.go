// Package agentdesk provides the backend of an agent management console.
//
// A Client ties together agent configuration, LLM providers, chains, custom
// prompts and long-running objective tasks on top of a storage.Store. The
// web UI and JSON API in the ui packages are thin layers over it.
//
// # Quick Start
//
//	pool, _ := pgxpool.New(ctx, os.Getenv("DATABASE_URL"))
//	client, err := agentdesk.NewClient(pgxv5.New(pool).GetStore(), nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Stop(ctx)
//
//	_, _ = client.CreateAgent(ctx, "researcher", map[string]any{"provider": "anthropic"})
//	answer, err := client.Chat(ctx, "researcher", "What changed in Go 1.25?", false)
//
// Without PostgreSQL, storage/filestore keeps everything in a YAML file:
//
//	store := filestore.New("./data")
//	client, _ := agentdesk.NewClient(store, nil)
//
// # Tasks
//
// StartTask runs an objective loop in the background, at most one per agent.
// StopTask signals it to stop; TaskStatus reports whether it is still alive.
// Every run is recorded in the task run history, visible through TaskRuns.
//
//	_, err := client.StartTask(ctx, "researcher", "Write a literature review")
//	status := client.TaskStatus("researcher") // tasks.StatusRunning
//	_ = client.StopTask("researcher")
//
// A second StartTask for a busy agent fails with tasks.ErrTaskAlreadyRunning,
// unless ClientConfig.DuplicatePolicy is tasks.PolicyReplace.
//
// # Hooks
//
// ClientConfig.Hooks receives task start and finish events and every chat or
// instruct interaction:
//
//	reg := hooks.NewRegistry()
//	reg.OnTaskFinish(func(ctx context.Context, e *hooks.TaskEvent) error {
//	    metrics.Observe(e.AgentName, e.Duration())
//	    return nil
//	})
//	client, _ := agentdesk.NewClient(store, &agentdesk.ClientConfig{Hooks: reg})
package agentdesk
