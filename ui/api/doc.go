// Package api provides REST API handlers for agentdesk.
//
// Every response uses the envelope {"data": ...} or
// {"error": {"code": ..., "message": ...}}. Error messages of form
// validation failures are the same texts the UI shows.
//
// # Endpoints
//
// Catalogs:
//   - GET /providers - Provider names
//   - GET /providers/{name}/options - Provider option keys and defaults
//   - GET /embedders - Embedding provider names
//   - GET /commands - Command catalog
//
// Agents:
//   - GET /agents - List agents
//   - POST /agents - Create agent
//   - GET /agents/{name} - Agent configuration
//   - DELETE /agents/{name} - Delete agent
//   - GET /agents/{name}/config/{section} - Read "settings" or "commands"
//   - PUT /agents/{name}/config/{section} - Replace "settings" or "commands"
//
// Interactions:
//   - POST /agents/{name}/chat - Chat with an agent
//   - POST /agents/{name}/instruct - Give an agent an instruction
//
// Tasks:
//   - GET /agents/{name}/task - Task status
//   - POST /agents/{name}/task - Start a task (202)
//   - DELETE /agents/{name}/task - Stop the running task
//   - GET /tasks - Running tasks
//   - GET /tasks/events - SSE stream of running tasks
//   - GET /task-runs - Run history
//
// Chains:
//   - GET /chains, POST /chains
//   - GET /chains/{name}, DELETE /chains/{name}
//   - POST /chains/{name}/steps, DELETE /chains/{name}/steps/{step}
//
// Prompts:
//   - GET /prompts, POST /prompts
//   - GET /prompts/{name}, PUT /prompts/{name}, DELETE /prompts/{name}
package api
