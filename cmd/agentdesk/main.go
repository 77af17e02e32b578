// Command agentdesk serves the agent management UI and JSON API.
//
// Usage:
//
//	agentdesk serve --addr :8080 --driver pgx --database-url postgres://...
//	agentdesk migrate --driver sql --database-url postgres://...
//
// Every flag can also be set in agentdesk.yaml or through the environment
// with the AGENTDESK_ prefix, e.g. AGENTDESK_READ_ONLY=true.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
