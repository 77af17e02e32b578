// Package server composes the agentdesk HTTP surface behind a single chi
// router: the HTMX frontend under /ui, the JSON API under /api and a
// health probe.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/youssefsiam38/agentdesk"
	"github.com/youssefsiam38/agentdesk/ui"
)

// Default configuration values.
const (
	DefaultAddr            = ":8080"
	DefaultShutdownTimeout = 10 * time.Second

	uiPrefix  = "/ui"
	apiPrefix = "/api"
)

// Logger is the logging interface used by the server.
// It is compatible with *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds server configuration.
type Config struct {
	// Addr is the listen address. Defaults to ":8080".
	Addr string

	// UI configures both the frontend and the JSON API. BasePath is
	// always set to "/ui".
	UI *ui.Config

	// ShutdownTimeout bounds graceful shutdown. Defaults to 10 seconds.
	ShutdownTimeout time.Duration

	// Logger for request and lifecycle logging. Optional.
	Logger Logger
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.UI == nil {
		c.UI = ui.DefaultConfig()
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Logger == nil {
		c.Logger = noopLogger{}
	}
}

// Server serves the agentdesk UI and API.
type Server struct {
	client *agentdesk.Client
	config *Config
	router chi.Router
}

// New builds the server router over client.
func New(client *agentdesk.Client, cfg *Config) (*Server, error) {
	if client == nil {
		return nil, ui.ErrClientRequired
	}
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.applyDefaults()

	s := &Server{client: client, config: cfg}
	s.router = s.buildRouter()
	return s, nil
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.config.Logger.Info("http server listening", "addr", s.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.config.Logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.config.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, uiPrefix+"/agents", http.StatusTemporaryRedirect)
	})
	r.Get("/health", s.handleHealth)

	uiCfg := *s.config.UI
	uiCfg.BasePath = uiPrefix
	r.Mount(uiPrefix, stripPrefix(uiPrefix, ui.UIHandler(s.client, &uiCfg)))

	apiCfg := *s.config.UI
	r.Mount(apiPrefix, stripPrefix(apiPrefix, ui.APIHandler(s.client, &apiCfg)))

	return r
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	RunningTasks int    `json:"running_tasks"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(HealthResponse{
		Status:       "ok",
		Version:      agentdesk.Version,
		RunningTasks: len(s.client.RunningTasks()),
	})
}

// stripPrefix removes prefix before handing the request to h. The bare
// prefix maps to "/".
func stripPrefix(prefix string, h http.Handler) http.Handler {
	return http.StripPrefix(prefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" {
			r.URL.Path = "/"
		}
		h.ServeHTTP(w, r)
	}))
}

// requestLogger logs one line per request.
func requestLogger(logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
