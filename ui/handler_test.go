package ui

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/youssefsiam38/agentdesk/internal/testutil"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := &Config{BasePath: "/ui/"}
	cfg.applyDefaults()

	if cfg.BasePath != "/ui" {
		t.Errorf("BasePath = %q, want /ui", cfg.BasePath)
	}
	if cfg.RefreshInterval != DefaultRefreshInterval {
		t.Errorf("RefreshInterval = %v, want %v", cfg.RefreshInterval, DefaultRefreshInterval)
	}
	if cfg.PageSize != DefaultPageSize {
		t.Errorf("PageSize = %d, want %d", cfg.PageSize, DefaultPageSize)
	}
	if err := cfg.validate(); err != nil {
		t.Errorf("validate() = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative page size", Config{PageSize: -1, RefreshInterval: time.Second}},
		{"sub-second refresh", Config{PageSize: 10, RefreshInterval: 10 * time.Millisecond}},
		{"page size too large", Config{PageSize: MaxPageSize + 1, RefreshInterval: time.Second}},
		{"relative base path", Config{BasePath: "ui", PageSize: 10, RefreshInterval: time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestHandlers_PanicWithoutClient(t *testing.T) {
	for name, build := range map[string]func(){
		"ui":  func() { UIHandler(nil, nil) },
		"api": func() { APIHandler(nil, nil) },
	} {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic for nil client")
				}
			}()
			build()
		})
	}
}

func TestHandlers_Serve(t *testing.T) {
	client := testutil.NewClient(t, testutil.Echo, "alpha")

	rec := httptest.NewRecorder()
	UIHandler(client, &Config{BasePath: "/ui"}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/agents", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `href="/ui/tasks"`) {
		t.Errorf("ui status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	APIHandler(client, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/agents", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"alpha"`) {
		t.Errorf("api status = %d, body = %s", rec.Code, rec.Body.String())
	}
}
