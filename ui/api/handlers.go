package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/youssefsiam38/agentdesk"
	"github.com/youssefsiam38/agentdesk/commands"
	"github.com/youssefsiam38/agentdesk/storage"
	"github.com/youssefsiam38/agentdesk/tasks"
	"github.com/youssefsiam38/agentdesk/ui/service"
)

// Response wraps all API responses.
type Response struct {
	Data  any       `json:"data,omitempty"`
	Error *APIError `json:"error,omitempty"`
	Meta  *Meta     `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Meta contains listing metadata.
type Meta struct {
	TotalCount int `json:"total_count,omitempty"`
	Limit      int `json:"limit,omitempty"`
}

// MessageResponse is the body of write operations that report a message.
type MessageResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Data: data})
}

// writeJSONWithMeta writes a JSON response with metadata.
func writeJSONWithMeta(w http.ResponseWriter, status int, data any, meta *Meta) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Data: data, Meta: meta})
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{
		Error: &APIError{Code: code, Message: message},
	})
}

// writeServiceError maps err onto a status code and error code.
func (rt *router) writeServiceError(w http.ResponseWriter, err error) {
	msg := service.Message(err)
	switch {
	case errors.Is(err, tasks.ErrTaskAlreadyRunning):
		writeError(w, http.StatusConflict, "task_already_running", msg)
	case errors.Is(err, tasks.ErrNoTaskRunning):
		writeError(w, http.StatusNotFound, "no_task_running", msg)
	case errors.Is(err, agentdesk.ErrAgentNotFound):
		writeError(w, http.StatusNotFound, "agent_not_found", msg)
	case errors.Is(err, service.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", msg)
	case errors.Is(err, storage.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already_exists", msg)
	case errors.Is(err, agentdesk.ErrInvalidSection):
		writeError(w, http.StatusBadRequest, "invalid_section", msg)
	case errors.Is(err, agentdesk.ErrInvalidAgentName):
		writeError(w, http.StatusBadRequest, "invalid_name", msg)
	case errors.Is(err, agentdesk.ErrInvalidInput), errors.Is(err, tasks.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", msg)
	default:
		if rt.config.Logger != nil {
			rt.config.Logger.Error("api request failed", "error", err)
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// decode reads a JSON request body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return false
	}
	return true
}

// parseInt parses an integer from a query parameter with a default.
// It applies bounds validation to prevent resource exhaustion.
func parseInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return service.ValidateLimit(i)
}

// Catalog handlers

func (rt *router) handleListProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rt.svc.Client().Providers())
}

func (rt *router) handleProviderOptions(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	client := rt.svc.Client()

	opts, err := client.ProviderOptions(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	defaults, _ := client.ProviderDefaults(name)

	writeJSON(w, http.StatusOK, map[string]any{
		"name":     name,
		"options":  opts,
		"defaults": defaults,
	})
}

func (rt *router) handleListEmbedders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rt.svc.Client().EmbeddingProviders())
}

func (rt *router) handleListCommands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rt.svc.Client().CommandCatalog().Names())
}

// Agent handlers

// CreateAgentRequest is the body of POST /agents.
type CreateAgentRequest struct {
	Name     string         `json:"name"`
	Settings map[string]any `json:"settings,omitempty"`
}

func (rt *router) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := rt.svc.Client().Agents(r.Context())
	if err != nil {
		rt.writeServiceError(w, err)
		return
	}
	writeJSONWithMeta(w, http.StatusOK, agents, &Meta{TotalCount: len(agents)})
}

func (rt *router) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req CreateAgentRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_name", service.MsgAgentNameRequired)
		return
	}

	agent, err := rt.svc.Client().CreateAgent(r.Context(), req.Name, req.Settings)
	if err != nil {
		rt.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, agent)
}

func (rt *router) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	cfg, err := rt.svc.Client().AgentConfig(r.Context(), r.PathValue("name"))
	if err != nil {
		rt.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (rt *router) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	msg, err := rt.svc.DeleteAgent(r.Context(), r.PathValue("name"))
	if err != nil {
		rt.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
}

func (rt *router) handleGetAgentSection(w http.ResponseWriter, r *http.Request) {
	cfg, err := rt.svc.Client().AgentConfig(r.Context(), r.PathValue("name"))
	if err != nil {
		rt.writeServiceError(w, err)
		return
	}

	switch r.PathValue("section") {
	case storage.SectionSettings:
		writeJSON(w, http.StatusOK, cfg.Settings)
	case storage.SectionCommands:
		writeJSON(w, http.StatusOK, cfg.Commands)
	default:
		writeError(w, http.StatusBadRequest, "invalid_section", "section must be settings or commands")
	}
}

func (rt *router) handleUpdateAgentSection(w http.ResponseWriter, r *http.Request) {
	name, section := r.PathValue("name"), r.PathValue("section")

	var raw json.RawMessage
	if !decode(w, r, &raw) {
		return
	}

	var value any
	switch section {
	case storage.SectionSettings:
		var settings map[string]any
		if err := json.Unmarshal(raw, &settings); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_body", "settings must be an object")
			return
		}
		value = settings
	case storage.SectionCommands:
		var list []commands.Command
		var flags map[string]bool
		if err := json.Unmarshal(raw, &list); err == nil {
			value = list
		} else if err := json.Unmarshal(raw, &flags); err == nil {
			value = flags
		} else {
			writeError(w, http.StatusBadRequest, "invalid_body", "commands must be a list or an object of flags")
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "invalid_section", "section must be settings or commands")
		return
	}

	if err := rt.svc.Client().UpdateAgentConfig(r.Context(), name, section, value); err != nil {
		rt.writeServiceError(w, err)
		return
	}

	cfg, err := rt.svc.Client().AgentConfig(r.Context(), name)
	if err != nil {
		rt.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// Interaction handlers

// InteractRequest is the body of the chat and instruct endpoints.
type InteractRequest struct {
	Message     string `json:"message,omitempty"`
	Instruction string `json:"instruction,omitempty"`
	Smart       bool   `json:"smart,omitempty"`
}

func (rt *router) handleChat(w http.ResponseWriter, r *http.Request) {
	var req InteractRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := rt.svc.Chat(r.Context(), r.PathValue("name"), req.Message, req.Smart)
	if err != nil {
		rt.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (rt *router) handleInstruct(w http.ResponseWriter, r *http.Request) {
	var req InteractRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := rt.svc.Instruct(r.Context(), r.PathValue("name"), req.Instruction, req.Smart)
	if err != nil {
		rt.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Task handlers

// StartTaskRequest is the body of POST /agents/{name}/task.
type StartTaskRequest struct {
	Objective string `json:"objective"`
}

func (rt *router) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rt.svc.TaskStatus(r.PathValue("name")))
}

func (rt *router) handleStartTask(w http.ResponseWriter, r *http.Request) {
	var req StartTaskRequest
	if !decode(w, r, &req) {
		return
	}

	name := r.PathValue("name")
	msg, err := rt.svc.StartTask(r.Context(), name, req.Objective)
	if err != nil {
		rt.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, MessageResponse{Message: msg, Data: rt.svc.TaskStatus(name)})
}

func (rt *router) handleStopTask(w http.ResponseWriter, r *http.Request) {
	msg, err := rt.svc.StopTask(r.PathValue("name"))
	if err != nil {
		rt.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
}

func (rt *router) handleListTasks(w http.ResponseWriter, r *http.Request) {
	running := rt.svc.Client().RunningTasks()
	writeJSONWithMeta(w, http.StatusOK, running, &Meta{TotalCount: len(running)})
}

// handleTaskEvents streams the running tasks every RefreshInterval until
// the client disconnects.
func (rt *router) handleTaskEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "sse_not_supported", "SSE not supported")
		return
	}

	send := func() {
		data, _ := json.Marshal(rt.svc.Client().RunningTasks())
		_, _ = w.Write([]byte("event: tasks\ndata: "))
		_, _ = w.Write(data)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
	}

	send()
	ticker := time.NewTicker(rt.config.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			send()
		}
	}
}

func (rt *router) handleListTaskRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r, "limit", rt.config.PageSize)
	runs, err := rt.svc.TaskRuns(r.Context(), r.URL.Query().Get("agent"), limit)
	if err != nil {
		rt.writeServiceError(w, err)
		return
	}
	writeJSONWithMeta(w, http.StatusOK, runs, &Meta{TotalCount: len(runs), Limit: limit})
}

// Chain handlers

// CreateChainRequest is the body of POST /chains.
type CreateChainRequest struct {
	Name string `json:"name"`
}

func (rt *router) handleListChains(w http.ResponseWriter, r *http.Request) {
	chains, err := rt.svc.Client().Chains(r.Context())
	if err != nil {
		rt.writeServiceError(w, err)
		return
	}
	writeJSONWithMeta(w, http.StatusOK, chains, &Meta{TotalCount: len(chains)})
}

func (rt *router) handleCreateChain(w http.ResponseWriter, r *http.Request) {
	var req CreateChainRequest
	if !decode(w, r, &req) {
		return
	}
	msg, err := rt.svc.ChainAction(r.Context(), req.Name, service.ActionCreate)
	if err != nil {
		rt.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageResponse{Message: msg})
}

func (rt *router) handleGetChain(w http.ResponseWriter, r *http.Request) {
	chain, err := rt.svc.GetChain(r.Context(), r.PathValue("name"))
	if err != nil {
		rt.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chain)
}

func (rt *router) handleDeleteChain(w http.ResponseWriter, r *http.Request) {
	msg, err := rt.svc.ChainAction(r.Context(), r.PathValue("name"), service.ActionDelete)
	if err != nil {
		rt.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
}

func (rt *router) handleAddChainStep(w http.ResponseWriter, r *http.Request) {
	var step storage.ChainStep
	if !decode(w, r, &step) {
		return
	}
	msg, err := rt.svc.AddChainStep(r.Context(), r.PathValue("name"), step)
	if err != nil {
		rt.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageResponse{Message: msg})
}

func (rt *router) handleDeleteChainStep(w http.ResponseWriter, r *http.Request) {
	step, err := strconv.Atoi(r.PathValue("step"))
	if err != nil || step < 1 {
		writeError(w, http.StatusBadRequest, "invalid_step", "step must be a positive number")
		return
	}
	msg, err := rt.svc.DeleteChainStep(r.Context(), r.PathValue("name"), step)
	if err != nil {
		rt.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
}

// Prompt handlers

// PromptRequest is the body of the prompt write endpoints.
type PromptRequest struct {
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

func (rt *router) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	prompts, err := rt.svc.Client().Prompts(r.Context())
	if err != nil {
		rt.writeServiceError(w, err)
		return
	}
	writeJSONWithMeta(w, http.StatusOK, prompts, &Meta{TotalCount: len(prompts)})
}

func (rt *router) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	p, err := rt.svc.Client().Prompt(r.Context(), r.PathValue("name"))
	if err != nil {
		rt.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (rt *router) handleCreatePrompt(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if !decode(w, r, &req) {
		return
	}
	msg, err := rt.svc.PromptAction(r.Context(), req.Name, req.Content, service.ActionAdd)
	if err != nil {
		rt.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageResponse{Message: msg})
}

func (rt *router) handleUpdatePrompt(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if !decode(w, r, &req) {
		return
	}
	msg, err := rt.svc.PromptAction(r.Context(), r.PathValue("name"), req.Content, service.ActionEdit)
	if err != nil {
		rt.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
}

func (rt *router) handleDeletePrompt(w http.ResponseWriter, r *http.Request) {
	msg, err := rt.svc.DeletePrompt(r.Context(), r.PathValue("name"))
	if err != nil {
		rt.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
}
