package api

import (
	"net/http"
	"time"

	"github.com/youssefsiam38/agentdesk/ui/service"
)

// Config holds API router configuration.
type Config struct {
	// ReadOnly rejects every request that is not a GET with 403.
	ReadOnly bool

	// PageSize for task run listings.
	PageSize int

	// RefreshInterval between task events on the SSE stream.
	RefreshInterval time.Duration

	// Logger for structured logging.
	Logger Logger
}

// Logger interface for structured logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// router holds the API router state.
type router struct {
	svc    *service.Service
	config *Config
}

// NewRouter creates a new API router.
func NewRouter(svc *service.Service, cfg *Config) http.Handler {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 25
	}
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = 5 * time.Second
	}

	r := &router{
		svc:    svc,
		config: cfg,
	}

	mux := http.NewServeMux()

	// Catalogs
	mux.HandleFunc("GET /providers", r.handleListProviders)
	mux.HandleFunc("GET /providers/{name}/options", r.handleProviderOptions)
	mux.HandleFunc("GET /embedders", r.handleListEmbedders)
	mux.HandleFunc("GET /commands", r.handleListCommands)

	// Agents
	mux.HandleFunc("GET /agents", r.handleListAgents)
	mux.HandleFunc("POST /agents", r.handleCreateAgent)
	mux.HandleFunc("GET /agents/{name}", r.handleGetAgent)
	mux.HandleFunc("DELETE /agents/{name}", r.handleDeleteAgent)
	mux.HandleFunc("GET /agents/{name}/config/{section}", r.handleGetAgentSection)
	mux.HandleFunc("PUT /agents/{name}/config/{section}", r.handleUpdateAgentSection)

	// Interactions
	mux.HandleFunc("POST /agents/{name}/chat", r.handleChat)
	mux.HandleFunc("POST /agents/{name}/instruct", r.handleInstruct)

	// Tasks
	mux.HandleFunc("GET /agents/{name}/task", r.handleTaskStatus)
	mux.HandleFunc("POST /agents/{name}/task", r.handleStartTask)
	mux.HandleFunc("DELETE /agents/{name}/task", r.handleStopTask)
	mux.HandleFunc("GET /tasks", r.handleListTasks)
	mux.HandleFunc("GET /tasks/events", r.handleTaskEvents)
	mux.HandleFunc("GET /task-runs", r.handleListTaskRuns)

	// Chains
	mux.HandleFunc("GET /chains", r.handleListChains)
	mux.HandleFunc("POST /chains", r.handleCreateChain)
	mux.HandleFunc("GET /chains/{name}", r.handleGetChain)
	mux.HandleFunc("DELETE /chains/{name}", r.handleDeleteChain)
	mux.HandleFunc("POST /chains/{name}/steps", r.handleAddChainStep)
	mux.HandleFunc("DELETE /chains/{name}/steps/{step}", r.handleDeleteChainStep)

	// Prompts
	mux.HandleFunc("GET /prompts", r.handleListPrompts)
	mux.HandleFunc("POST /prompts", r.handleCreatePrompt)
	mux.HandleFunc("GET /prompts/{name}", r.handleGetPrompt)
	mux.HandleFunc("PUT /prompts/{name}", r.handleUpdatePrompt)
	mux.HandleFunc("DELETE /prompts/{name}", r.handleDeletePrompt)

	return withMiddleware(mux, cfg)
}

// withMiddleware wraps the handler with common middleware.
func withMiddleware(handler http.Handler, cfg *Config) http.Handler {
	if cfg.ReadOnly {
		handler = readOnlyMiddleware(handler)
	}
	// Add JSON content type
	handler = jsonMiddleware(handler)
	// Add error recovery
	handler = recoveryMiddleware(handler, cfg.Logger)
	return handler
}

// jsonMiddleware sets JSON content type for all responses.
func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// readOnlyMiddleware rejects writes.
func readOnlyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			writeError(w, http.StatusForbidden, "read_only", "the API is in read-only mode")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware recovers from panics and returns 500.
func recoveryMiddleware(next http.Handler, logger Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if logger != nil {
					logger.Error("panic recovered", "error", err, "path", r.URL.Path)
				}
				http.Error(w, `{"error":{"code":"internal_error","message":"internal server error"}}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
