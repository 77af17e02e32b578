// Package frontend provides the SSR frontend for the agentdesk UI.
//
// The frontend uses:
//   - Go html/template for server-side rendering
//   - HTMX for provider option swapping and task status polling
//   - goldmark and bluemonday for rendering agent responses as markdown
//   - Embedded static assets via embed.FS
//
// # Pages
//
//   - /agents - agent settings: provider, provider options, embedder,
//     custom settings and commands
//   - /chat - chat with an agent
//   - /instruct - give an agent an instruction
//   - /tasks - start and stop objective tasks, run history
//   - /chains - chains and their steps
//   - /prompts - custom prompt templates
//
// Form submissions render the page again with a flash message. In
// read-only mode every POST is rejected with 403.
package frontend
