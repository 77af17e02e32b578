package ui

import (
	"net/http"

	"github.com/youssefsiam38/agentdesk"
	"github.com/youssefsiam38/agentdesk/ui/api"
	"github.com/youssefsiam38/agentdesk/ui/frontend"
	"github.com/youssefsiam38/agentdesk/ui/service"
)

// UIHandler returns an http.Handler for the SSR frontend.
// This handler provides the operator interface using HTMX.
//
// Usage:
//
//	http.Handle("/ui/", http.StripPrefix("/ui", ui.UIHandler(client, cfg)))
//	r.Mount("/ui", http.StripPrefix("/ui", ui.UIHandler(client, cfg)))
func UIHandler(client *agentdesk.Client, cfg *Config) http.Handler {
	cfg = prepare(client, cfg)

	return frontend.NewRouter(service.New(client), &frontend.Config{
		BasePath:        cfg.BasePath,
		ReadOnly:        cfg.ReadOnly,
		PageSize:        cfg.PageSize,
		RefreshInterval: cfg.RefreshInterval,
		Logger:          cfg.Logger,
	})
}

// APIHandler returns an http.Handler for the JSON API.
//
// Usage:
//
//	r.Mount("/api", http.StripPrefix("/api", ui.APIHandler(client, cfg)))
func APIHandler(client *agentdesk.Client, cfg *Config) http.Handler {
	cfg = prepare(client, cfg)

	return api.NewRouter(service.New(client), &api.Config{
		ReadOnly:        cfg.ReadOnly,
		PageSize:        cfg.PageSize,
		RefreshInterval: cfg.RefreshInterval,
		Logger:          cfg.Logger,
	})
}

// prepare applies defaults and validates. Invalid configuration panics as
// it is a programmer error.
func prepare(client *agentdesk.Client, cfg *Config) *Config {
	if client == nil {
		panic(ErrClientRequired)
	}
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg.applyDefaults()
	}
	if err := cfg.validate(); err != nil {
		panic(err)
	}
	return cfg
}
