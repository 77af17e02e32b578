package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/youssefsiam38/agentdesk"
	"github.com/youssefsiam38/agentdesk/internal/testutil"
)

type recordingLogger struct {
	noopLogger
	mu    sync.Mutex
	infos []string
}

func (l *recordingLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func TestNew_RequiresClient(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Fatal("New(nil) returned nil error")
	}
}

func TestServer_Routes(t *testing.T) {
	logger := &recordingLogger{}
	srv, err := New(testutil.NewClient(t, testutil.Echo, "alpha"), &Config{Logger: logger})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path     string
		status   int
		location string
		contains string
	}{
		{"/", http.StatusTemporaryRedirect, "/ui/agents", ""},
		{"/ui", http.StatusTemporaryRedirect, "/ui/agents", ""},
		{"/ui/", http.StatusTemporaryRedirect, "/ui/agents", ""},
		{"/ui/agents", http.StatusOK, "", `href="/ui/static/app.css"`},
		{"/api/agents", http.StatusOK, "", `"alpha"`},
		{"/missing", http.StatusNotFound, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.location != "" && rec.Header().Get("Location") != tt.location {
				t.Errorf("Location = %q, want %q", rec.Header().Get("Location"), tt.location)
			}
			if tt.contains != "" && !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("body does not contain %q", tt.contains)
			}
		})
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.infos) != len(tests) {
		t.Errorf("logged %d requests, want %d", len(logger.infos), len(tests))
	}
}

func TestServer_Health(t *testing.T) {
	srv, err := New(testutil.NewClient(t, testutil.Echo), nil)
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var got HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != "ok" || got.Version != agentdesk.Version || got.RunningTasks != 0 {
		t.Errorf("health = %+v", got)
	}
}

func TestServer_ListenAndServeStopsOnCancel(t *testing.T) {
	srv, err := New(testutil.NewClient(t, testutil.Echo), &Config{Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := srv.ListenAndServe(ctx); err != nil {
		t.Errorf("ListenAndServe() = %v", err)
	}
}
