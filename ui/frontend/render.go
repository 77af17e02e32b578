package frontend

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"time"

	"github.com/youssefsiam38/agentdesk/runstate"
)

// renderer executes the layout, page and fragment templates. Every page is
// parsed once, on top of its own clone of the layout, so the "content"
// blocks of different pages never collide.
type renderer struct {
	base   *template.Template
	pages  map[string]*template.Template
	config *Config
}

func newRenderer(templates fs.FS, cfg *Config) (*renderer, error) {
	base, err := template.New("").
		Funcs(templateFuncs()).
		ParseFS(templates, "templates/base.html", "templates/fragments/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	files, err := fs.Glob(templates, "templates/*.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		name := path.Base(file)
		if name == "base.html" {
			continue
		}
		page, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := page.ParseFS(templates, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = page
	}

	return &renderer{base: base, pages: pages, config: cfg}, nil
}

// PageData is the root value of every page.
type PageData struct {
	Title           string
	BasePath        string
	CurrentPath     string
	ReadOnly        bool
	RefreshInterval int // seconds
	Flash           *FlashMessage
	Data            any
}

// FlashMessage is the outcome banner shown above a page.
type FlashMessage struct {
	Type    string // "success" or "error"
	Message string
}

func successFlash(msg string) *FlashMessage {
	return &FlashMessage{Type: "success", Message: msg}
}

func errorFlash(msg string) *FlashMessage {
	return &FlashMessage{Type: "error", Message: msg}
}

// renderPage writes the page template name inside the layout. Nothing is
// written when execution fails.
func (r *renderer) renderPage(w http.ResponseWriter, req *http.Request, name, title string, data any, flash *FlashMessage) error {
	page, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page template %q", name)
	}
	return writeHTML(w, page, "base", PageData{
		Title:           title,
		BasePath:        r.config.BasePath,
		CurrentPath:     req.URL.Path,
		ReadOnly:        r.config.ReadOnly,
		RefreshInterval: int(r.config.RefreshInterval.Seconds()),
		Flash:           flash,
		Data:            data,
	})
}

// renderFragment writes a fragment without the layout. Fragments are named
// by their path, e.g. "fragments/task-status.html".
func (r *renderer) renderFragment(w http.ResponseWriter, name string, data any) error {
	return writeHTML(w, r.base, name, data)
}

func writeHTML(w http.ResponseWriter, tmpl *template.Template, name string, data any) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}

// Template helpers

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	switch d := time.Since(t); {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour") + " ago"
	default:
		return plural(int(d.Hours()/24), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func truncate(n int, v any) string {
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case fmt.Stringer:
		s = val.String()
	default:
		s = fmt.Sprintf("%v", v)
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// stateClass maps a task run state to its badge class.
func stateClass(state any) string {
	switch runstate.State(fmt.Sprint(state)) {
	case runstate.StatePending:
		return "badge badge-pending"
	case runstate.StateRunning:
		return "badge badge-running"
	case runstate.StateCompleted:
		return "badge badge-completed"
	case runstate.StateStopped:
		return "badge badge-stopped"
	case runstate.StateFailed:
		return "badge badge-failed"
	default:
		return "badge"
	}
}

func add(a, b int) int {
	return a + b
}

func defaultVal(val, def any) any {
	if val == nil {
		return def
	}
	switch v := val.(type) {
	case string:
		if v == "" {
			return def
		}
	case int:
		if v == 0 {
			return def
		}
	}
	return val
}
