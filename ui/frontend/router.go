package frontend

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/youssefsiam38/agentdesk/ui/service"
)

//go:embed templates
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Config holds frontend router configuration.
type Config struct {
	// BasePath is the URL prefix where the UI is mounted.
	// All navigation links will be prefixed with this path.
	BasePath string

	// ReadOnly rejects every POST with 403.
	ReadOnly bool

	// PageSize is the number of task runs listed.
	PageSize int

	// RefreshInterval for task status polling.
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

// router holds the frontend router state.
type router struct {
	svc      *service.Service
	config   *Config
	renderer *renderer
}

// NewRouter creates a new frontend router.
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

	rnd, err := newRenderer(templatesFS, cfg)
	if err != nil {
		panic(err)
	}

	r := &router{
		svc:      svc,
		config:   cfg,
		renderer: rnd,
	}

	mux := http.NewServeMux()

	// Static assets
	staticSub, _ := fs.Sub(staticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	mux.HandleFunc("GET /{$}", r.handleRedirectToAgents)

	// Agent settings
	mux.HandleFunc("GET /agents", r.handleAgents)
	mux.HandleFunc("POST /agents", r.handleCreateAgent)
	mux.HandleFunc("POST /agents/delete", r.handleDeleteAgent)
	mux.HandleFunc("POST /agents/settings", r.handleAgentSettings)

	// Chat and instructions
	mux.HandleFunc("GET /chat", r.handleChat)
	mux.HandleFunc("POST /chat", r.handleChatSend)
	mux.HandleFunc("GET /instruct", r.handleInstruct)
	mux.HandleFunc("POST /instruct", r.handleInstructSend)

	// Tasks
	mux.HandleFunc("GET /tasks", r.handleTasks)
	mux.HandleFunc("POST /tasks/start", r.handleStartTask)
	mux.HandleFunc("POST /tasks/stop", r.handleStopTask)

	// Chains
	mux.HandleFunc("GET /chains", r.handleChains)
	mux.HandleFunc("POST /chains", r.handleChainAction)
	mux.HandleFunc("GET /chains/{name}", r.handleChainDetail)
	mux.HandleFunc("POST /chains/{name}/steps", r.handleAddChainStep)
	mux.HandleFunc("POST /chains/{name}/steps/delete", r.handleDeleteChainStep)

	// Custom prompts
	mux.HandleFunc("GET /prompts", r.handlePrompts)
	mux.HandleFunc("POST /prompts", r.handlePromptAction)

	// HTMX fragments
	mux.HandleFunc("GET /fragments/provider-options", r.handleFragmentProviderOptions)
	mux.HandleFunc("GET /fragments/task-status", r.handleFragmentTaskStatus)

	return withFrontendMiddleware(mux, cfg)
}

// withFrontendMiddleware wraps the handler with frontend-specific middleware.
func withFrontendMiddleware(handler http.Handler, cfg *Config) http.Handler {
	if cfg.ReadOnly {
		handler = readOnlyMiddleware(handler)
	}
	handler = frontendRecoveryMiddleware(handler, cfg.Logger)
	return handler
}

// readOnlyMiddleware rejects every form submission.
func readOnlyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			http.Error(w, "Read-only mode", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// frontendRecoveryMiddleware recovers from panics.
func frontendRecoveryMiddleware(next http.Handler, logger Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if logger != nil {
					logger.Error("panic recovered", "error", err, "path", r.URL.Path)
				}
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// templateFuncs returns custom template functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDuration": formatDuration,
		"formatTime":     formatTime,
		"formatTimeAgo":  formatTimeAgo,
		"truncate":       truncate,
		"stateClass":     stateClass,
		"markdown":       markdown,
		"add":            add,
		"default":        defaultVal,
		"dict":           dictFunc,
	}
}

// dictFunc creates a map from key-value pairs for use in templates.
// Usage: {{template "foo" (dict "key1" val1 "key2" val2)}}
func dictFunc(values ...any) map[string]any {
	if len(values)%2 != 0 {
		return nil
	}
	dict := make(map[string]any, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			continue
		}
		dict[key] = values[i+1]
	}
	return dict
}
