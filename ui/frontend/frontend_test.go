package frontend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/youssefsiam38/agentdesk/internal/testutil"
	"github.com/youssefsiam38/agentdesk/ui/service"
)

func newTestRouter(t *testing.T, cfg *Config, reply testutil.ReplyFunc, agents ...string) http.Handler {
	t.Helper()
	return NewRouter(service.New(testutil.NewClient(t, reply, agents...)), cfg)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func post(t *testing.T, h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func wantBody(t *testing.T, rec *httptest.ResponseRecorder, texts ...string) {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, text := range texts {
		if !strings.Contains(body, strings.ReplaceAll(text, "'", "&#39;")) {
			t.Errorf("body does not contain %q", text)
		}
	}
}

func TestRouter_RedirectsToAgents(t *testing.T) {
	h := newTestRouter(t, &Config{BasePath: "/ui"}, testutil.Echo)

	rec := get(t, h, "/")
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/ui/agents" {
		t.Errorf("Location = %q", loc)
	}

	if rec := get(t, h, "/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", rec.Code)
	}
}

func TestRouter_Pages(t *testing.T) {
	h := newTestRouter(t, nil, testutil.Echo, "alpha")

	tests := []struct {
		path string
		want []string
	}{
		{"/agents", []string{"Agent Settings", "alpha", "AI_MODEL", "Read File"}},
		{"/chat", []string{"Chat", "alpha"}},
		{"/instruct", []string{"Instructions", "Instruction"}},
		{"/tasks", []string{"Tasks", "Not Running", "No runs yet."}},
		{"/chains", []string{"Chains", "No chains yet."}},
		{"/prompts?name=Chat", []string{"Custom Prompts", "{task}"}},
		{"/static/app.css", []string{".sidebar"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			wantBody(t, get(t, h, tt.path), tt.want...)
		})
	}
}

func TestRouter_Tasks(t *testing.T) {
	h := newTestRouter(t, nil, testutil.Block, "agent1")

	rec := post(t, h, "/tasks/start", url.Values{"agent": {""}, "objective": {"objective"}})
	wantBody(t, rec, "Agent name and task objective are required.")

	rec = post(t, h, "/tasks/stop", url.Values{"agent": {"agent2"}})
	wantBody(t, rec, "No task is running for the selected agent.")

	rec = post(t, h, "/tasks/start", url.Values{"agent": {"agent1"}, "objective": {"summarize doc"}})
	wantBody(t, rec, "Task started for agent 'agent1'.")

	rec = get(t, h, "/fragments/task-status?agent=agent1")
	wantBody(t, rec, "Running", "summarize doc")
	if strings.Contains(rec.Body.String(), "<html") {
		t.Error("fragment rendered with layout")
	}

	rec = post(t, h, "/tasks/start", url.Values{"agent": {"agent1"}, "objective": {"again"}})
	wantBody(t, rec, "A task is already running for the selected agent.")

	rec = post(t, h, "/tasks/stop", url.Values{"agent": {"agent1"}})
	wantBody(t, rec, "Task stopped for agent 'agent1'.")

	wantBody(t, get(t, h, "/fragments/task-status?agent=agent1"), "Not Running")

	if rec := get(t, h, "/fragments/task-status"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing agent status = %d, want 400", rec.Code)
	}
}

func TestRouter_ChatRendersMarkdown(t *testing.T) {
	h := newTestRouter(t, nil, func(context.Context, string) (string, error) {
		return "**bold** <script>alert(1)</script>", nil
	}, "alpha")

	rec := post(t, h, "/chat", url.Values{"agent": {"alpha"}, "message": {""}})
	wantBody(t, rec, "Agent name and message are required.")

	rec = post(t, h, "/chat", url.Values{"agent": {"alpha"}, "message": {"hi"}, "smart": {"true"}})
	wantBody(t, rec, "Response from alpha")
	body := rec.Body.String()
	if !strings.Contains(body, "<strong>bold</strong>") {
		t.Errorf("markdown not rendered: %s", body)
	}
	if strings.Contains(body, "<script>alert") {
		t.Error("raw script tag rendered")
	}

	rec = post(t, h, "/instruct", url.Values{"agent": {"alpha"}, "instruction": {" "}})
	wantBody(t, rec, "Agent name and instruction are required.")
}

func TestRouter_AgentSettings(t *testing.T) {
	h := newTestRouter(t, nil, testutil.Echo, "alpha")

	rec := post(t, h, "/agents/settings", url.Values{
		"action":       {"add_custom"},
		"agent":        {"alpha"},
		"provider":     {"scripted"},
		"custom_key":   {"region"},
		"custom_value": {"eu"},
	})
	wantBody(t, rec, `value="region"`)
	if n := strings.Count(rec.Body.String(), `name="custom_key"`); n != 2 {
		t.Errorf("custom rows = %d, want 2", n)
	}

	rec = post(t, h, "/agents/settings", url.Values{
		"action":          {"update"},
		"agent":           {"alpha"},
		"provider":        {"scripted"},
		"option_AI_MODEL": {"big"},
		"embedder":        {"openai"},
		"custom_key":      {"region"},
		"custom_value":    {"eu"},
		"command":         {"Read File"},
	})
	wantBody(t, rec, "Agent 'alpha' updated.", `value="big"`)

	rec = post(t, h, "/agents", url.Values{"name": {"beta"}})
	wantBody(t, rec, "Agent 'beta' created.")

	rec = post(t, h, "/agents/delete", url.Values{"agent": {"beta"}})
	wantBody(t, rec, "Agent 'beta' deleted.")

	rec = get(t, h, "/fragments/provider-options?agent=alpha&provider=missing")
	wantBody(t, rec, "Error loading provider settings: expected a list, but got")

	rec = get(t, h, "/fragments/provider-options?agent=alpha&provider=scripted")
	wantBody(t, rec, `name="option_AI_MODEL"`, `value="big"`)
}

func TestRouter_ChainsAndPrompts(t *testing.T) {
	h := newTestRouter(t, nil, testutil.Echo, "writer")

	wantBody(t, post(t, h, "/chains", url.Values{"name": {""}, "action": {"Create"}}), "Chain name is required.")
	wantBody(t, post(t, h, "/chains", url.Values{"name": {"flow"}, "action": {"Create"}}), "Chain 'flow' created.")

	rec := post(t, h, "/chains/flow/steps", url.Values{"agent": {"writer"}, "prompt_type": {"instruct"}, "prompt": {"draft"}})
	wantBody(t, rec, "Step 1 added to chain 'flow'.", "draft")

	rec = post(t, h, "/chains/flow/steps/delete", url.Values{"step": {"1"}})
	wantBody(t, rec, "Step 1 removed from chain 'flow'.", "This chain has no steps.")

	if rec := post(t, h, "/chains/flow/steps/delete", url.Values{"step": {"x"}}); rec.Code != http.StatusBadRequest {
		t.Errorf("bad step status = %d", rec.Code)
	}
	if rec := get(t, h, "/chains/ghost"); rec.Code != http.StatusNotFound {
		t.Errorf("missing chain status = %d, want 404", rec.Code)
	}

	wantBody(t, post(t, h, "/prompts", url.Values{"name": {"p1"}, "action": {"Add"}}), "Prompt name and content are required.")
	wantBody(t, post(t, h, "/prompts", url.Values{"name": {"p1"}, "content": {"Hi {task}"}, "action": {"Add"}}), "Prompt 'p1' added.")
	wantBody(t, post(t, h, "/prompts", url.Values{"name": {"p1"}, "content": {"Hi"}, "action": {"Delete"}}), "Prompt 'p1' deleted.")
}

func TestRouter_ReadOnly(t *testing.T) {
	h := newTestRouter(t, &Config{ReadOnly: true}, testutil.Echo, "alpha")

	for _, path := range []string{"/agents", "/agents/settings", "/chat", "/tasks/start", "/tasks/stop", "/chains", "/prompts"} {
		if rec := post(t, h, path, url.Values{"agent": {"alpha"}}); rec.Code != http.StatusForbidden {
			t.Errorf("POST %s status = %d, want 403", path, rec.Code)
		}
	}
	rec := get(t, h, "/agents")
	wantBody(t, rec, "Read-only mode")
	if strings.Contains(rec.Body.String(), "Update agent") {
		t.Error("update button shown in read-only mode")
	}
}

func TestFrontendRecoveryMiddleware(t *testing.T) {
	h := frontendRecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), nil)

	rec := get(t, h, "/")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "Internal Server Error") {
		t.Errorf("body = %q", body)
	}
}

func TestTemplateHelpers(t *testing.T) {
	if got := formatDuration(1500 * time.Millisecond); got != "1.5s" {
		t.Errorf("formatDuration = %q", got)
	}
	if got := formatDuration(0); got != "-" {
		t.Errorf("formatDuration(0) = %q", got)
	}
	if got := truncate(5, "héllo world"); got != "hé..." {
		t.Errorf("truncate = %q", got)
	}
	if got := stateClass("failed"); got != "badge badge-failed" {
		t.Errorf("stateClass = %q", got)
	}
	if got := string(markdown("# Title")); !strings.Contains(got, "<h1") {
		t.Errorf("markdown = %q", got)
	}
	if d := dictFunc("a", 1, "b"); d != nil {
		t.Errorf("dictFunc odd args = %v", d)
	}
}
