// Package ui provides the embedded web UI and JSON API for agentdesk.
//
// The package provides two HTTP handlers:
//   - UIHandler: SSR frontend with HTMX (agent settings, chat,
//     instructions, tasks, chains and custom prompts)
//   - APIHandler: JSON endpoints over the same operations
//
// # Quick Start
//
//	client, _ := agentdesk.NewClient(filestore.New("./data"), nil)
//	client.Start(ctx)
//	defer client.Stop(ctx)
//
//	mux := http.NewServeMux()
//	mux.Handle("/ui/", http.StripPrefix("/ui", ui.UIHandler(client, &ui.Config{BasePath: "/ui"})))
//	mux.Handle("/api/", http.StripPrefix("/api", ui.APIHandler(client, nil)))
//
//	http.ListenAndServe(":8080", mux)
//
// # Configuration
//
// Both handlers accept an optional Config:
//
//	cfg := &ui.Config{
//	    BasePath:        "/ui",
//	    ReadOnly:        false,
//	    RefreshInterval: 5 * time.Second,
//	    PageSize:        25,
//	}
//
// # Framework Integration
//
// The handlers are standard http.Handler values:
//
//	// Chi
//	r.Mount("/ui", http.StripPrefix("/ui", ui.UIHandler(client, cfg)))
//	r.Mount("/api", http.StripPrefix("/api", ui.APIHandler(client, cfg)))
//
// # Adding Middleware
//
// Wrap handlers externally using standard Go patterns:
//
//	handler := authMiddleware(ui.UIHandler(client, cfg))
//	http.Handle("/ui/", http.StripPrefix("/ui", handler))
package ui
