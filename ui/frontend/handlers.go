package frontend

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/youssefsiam38/agentdesk/storage"
	"github.com/youssefsiam38/agentdesk/ui/service"
)

// optionPrefix prefixes provider option inputs in the settings form.
const optionPrefix = "option_"

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

// logError logs an error if the logger is configured.
func (rt *router) logError(msg string, err error) {
	if rt.config.Logger != nil {
		rt.config.Logger.Warn(msg, "error", err.Error())
	}
}

// flash turns the outcome of a form action into a flash message.
// Unexpected failures are logged; every failure is shown.
func (rt *router) flash(msg string, err error) *FlashMessage {
	if err == nil {
		if msg == "" {
			return nil
		}
		return successFlash(msg)
	}
	var fe *service.FormError
	if !errors.As(err, &fe) {
		rt.logError("form action failed", err)
	}
	return errorFlash(service.Message(err))
}

func (rt *router) renderError(w http.ResponseWriter, err error) {
	rt.logError("render failed", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (rt *router) handleRedirectToAgents(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, rt.config.BasePath+"/agents", http.StatusTemporaryRedirect)
}

// Agent settings

func (rt *router) handleAgents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view := rt.svc.LoadAgentSettings(r.Context(), q.Get("agent"), q.Get("provider"))
	rt.renderAgents(w, r, view, nil)
}

func (rt *router) renderAgents(w http.ResponseWriter, r *http.Request, view *service.AgentSettingsView, flash *FlashMessage) {
	data := map[string]any{
		"View": view,
	}
	if err := rt.renderer.renderPage(w, r, "agents.html", "Agent Settings", data, flash); err != nil {
		rt.renderError(w, err)
	}
}

func (rt *router) handleAgentSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	form := &service.AgentSettingsForm{
		Action:   r.PostFormValue("action"),
		Agent:    r.PostFormValue("agent"),
		Provider: r.PostFormValue("provider"),
		Embedder: r.PostFormValue("embedder"),
		Options:  make(map[string]string),
		Commands: r.PostForm["command"],
	}
	for key, values := range r.PostForm {
		if name, ok := strings.CutPrefix(key, optionPrefix); ok && len(values) > 0 {
			form.Options[name] = values[0]
		}
	}
	keys, values := r.PostForm["custom_key"], r.PostForm["custom_value"]
	for i, key := range keys {
		cs := service.CustomSetting{Key: strings.TrimSpace(key)}
		if i < len(values) {
			cs.Value = strings.TrimSpace(values[i])
		}
		form.CustomSettings = append(form.CustomSettings, cs)
	}

	view, msg, err := rt.svc.UpdateAgentSettings(r.Context(), form)
	rt.renderAgents(w, r, view, rt.flash(msg, err))
}

func (rt *router) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	name := r.PostFormValue("name")
	msg, err := rt.svc.CreateAgent(r.Context(), name)

	selected := ""
	if err == nil {
		selected = strings.TrimSpace(name)
	}
	rt.renderAgents(w, r, rt.svc.LoadAgentSettings(r.Context(), selected, ""), rt.flash(msg, err))
}

func (rt *router) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	msg, err := rt.svc.DeleteAgent(r.Context(), r.PostFormValue("agent"))
	rt.renderAgents(w, r, rt.svc.LoadAgentSettings(r.Context(), "", ""), rt.flash(msg, err))
}

func (rt *router) handleFragmentProviderOptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fields, errMsg := rt.svc.ProviderFields(r.Context(), q.Get("agent"), q.Get("provider"))

	data := map[string]any{
		"Fields": fields,
		"Error":  errMsg,
	}
	if err := rt.renderer.renderFragment(w, "fragments/provider-options.html", data); err != nil {
		rt.renderError(w, err)
	}
}

// Chat and instructions

// interactPage describes the shared chat and instruction form.
type interactPage struct {
	Title  string
	Action string
	Field  string
	Label  string
	Button string
}

var (
	chatPage = interactPage{
		Title:  "Chat",
		Action: "/chat",
		Field:  "message",
		Label:  "Message",
		Button: "Send",
	}
	instructPage = interactPage{
		Title:  "Instructions",
		Action: "/instruct",
		Field:  "instruction",
		Label:  "Instruction",
		Button: "Instruct",
	}
)

func (rt *router) renderInteract(w http.ResponseWriter, r *http.Request, page interactPage, agent, input string, smart bool, result *service.InteractionResult, flash *FlashMessage) {
	agents, err := rt.svc.AgentNames(r.Context())
	if err != nil {
		rt.logError("failed to list agents", err)
		if flash == nil {
			flash = errorFlash(err.Error())
		}
	}
	if agent == "" && len(agents) > 0 {
		agent = agents[0]
	}

	data := map[string]any{
		"Page":   page,
		"Agents": agents,
		"Agent":  agent,
		"Input":  input,
		"Smart":  smart,
		"Result": result,
	}
	if err := rt.renderer.renderPage(w, r, "interact.html", page.Title, data, flash); err != nil {
		rt.renderError(w, err)
	}
}

func (rt *router) handleChat(w http.ResponseWriter, r *http.Request) {
	rt.renderInteract(w, r, chatPage, r.URL.Query().Get("agent"), "", false, nil, nil)
}

func (rt *router) handleChatSend(w http.ResponseWriter, r *http.Request) {
	agent, message := r.PostFormValue("agent"), r.PostFormValue(chatPage.Field)
	smart := r.PostFormValue("smart") == "true"

	res, err := rt.svc.Chat(r.Context(), agent, message, smart)
	rt.renderInteract(w, r, chatPage, agent, message, smart, res, rt.flash("", err))
}

func (rt *router) handleInstruct(w http.ResponseWriter, r *http.Request) {
	rt.renderInteract(w, r, instructPage, r.URL.Query().Get("agent"), "", false, nil, nil)
}

func (rt *router) handleInstructSend(w http.ResponseWriter, r *http.Request) {
	agent, instruction := r.PostFormValue("agent"), r.PostFormValue(instructPage.Field)
	smart := r.PostFormValue("smart") == "true"

	res, err := rt.svc.Instruct(r.Context(), agent, instruction, smart)
	rt.renderInteract(w, r, instructPage, agent, instruction, smart, res, rt.flash("", err))
}

// Tasks

func (rt *router) renderTasks(w http.ResponseWriter, r *http.Request, agent, objective string, flash *FlashMessage) {
	view, err := rt.svc.LoadTasks(r.Context(), agent, parseInt(r, "limit", rt.config.PageSize))
	if err != nil {
		rt.renderError(w, err)
		return
	}

	data := map[string]any{
		"View":      view,
		"Objective": objective,
	}
	if err := rt.renderer.renderPage(w, r, "tasks.html", "Tasks", data, flash); err != nil {
		rt.renderError(w, err)
	}
}

func (rt *router) handleTasks(w http.ResponseWriter, r *http.Request) {
	rt.renderTasks(w, r, r.URL.Query().Get("agent"), "", nil)
}

func (rt *router) handleStartTask(w http.ResponseWriter, r *http.Request) {
	agent, objective := r.PostFormValue("agent"), r.PostFormValue("objective")
	msg, err := rt.svc.StartTask(r.Context(), agent, objective)
	if err == nil {
		objective = ""
	}
	rt.renderTasks(w, r, agent, objective, rt.flash(msg, err))
}

func (rt *router) handleStopTask(w http.ResponseWriter, r *http.Request) {
	agent := r.PostFormValue("agent")
	msg, err := rt.svc.StopTask(agent)
	rt.renderTasks(w, r, agent, "", rt.flash(msg, err))
}

func (rt *router) handleFragmentTaskStatus(w http.ResponseWriter, r *http.Request) {
	agent := r.URL.Query().Get("agent")
	if agent == "" {
		http.Error(w, "Missing agent", http.StatusBadRequest)
		return
	}

	data := map[string]any{
		"Status":          rt.svc.TaskStatus(agent),
		"BasePath":        rt.config.BasePath,
		"RefreshInterval": int(rt.config.RefreshInterval.Seconds()),
	}
	if err := rt.renderer.renderFragment(w, "fragments/task-status.html", data); err != nil {
		rt.renderError(w, err)
	}
}

// Chains

func (rt *router) renderChains(w http.ResponseWriter, r *http.Request, flash *FlashMessage) {
	view, err := rt.svc.LoadChains(r.Context())
	if err != nil {
		rt.renderError(w, err)
		return
	}
	if err := rt.renderer.renderPage(w, r, "chains.html", "Chains", map[string]any{"View": view}, flash); err != nil {
		rt.renderError(w, err)
	}
}

func (rt *router) handleChains(w http.ResponseWriter, r *http.Request) {
	rt.renderChains(w, r, nil)
}

func (rt *router) handleChainAction(w http.ResponseWriter, r *http.Request) {
	msg, err := rt.svc.ChainAction(r.Context(), r.PostFormValue("name"), r.PostFormValue("action"))
	rt.renderChains(w, r, rt.flash(msg, err))
}

func (rt *router) renderChainDetail(w http.ResponseWriter, r *http.Request, flash *FlashMessage) {
	chain, err := rt.svc.GetChain(r.Context(), r.PathValue("name"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			http.Error(w, "Chain not found", http.StatusNotFound)
			return
		}
		rt.renderError(w, err)
		return
	}

	agents, err := rt.svc.AgentNames(r.Context())
	if err != nil {
		rt.logError("failed to list agents", err)
	}
	data := map[string]any{
		"Chain":       chain,
		"Agents":      agents,
		"PromptTypes": rt.svc.PromptTypes(r.Context()),
	}
	if err := rt.renderer.renderPage(w, r, "chain-detail.html", "Chain "+chain.Name, data, flash); err != nil {
		rt.renderError(w, err)
	}
}

func (rt *router) handleChainDetail(w http.ResponseWriter, r *http.Request) {
	rt.renderChainDetail(w, r, nil)
}

func (rt *router) handleAddChainStep(w http.ResponseWriter, r *http.Request) {
	msg, err := rt.svc.AddChainStep(r.Context(), r.PathValue("name"), storage.ChainStep{
		AgentName:  r.PostFormValue("agent"),
		PromptType: r.PostFormValue("prompt_type"),
		Prompt:     r.PostFormValue("prompt"),
	})
	rt.renderChainDetail(w, r, rt.flash(msg, err))
}

func (rt *router) handleDeleteChainStep(w http.ResponseWriter, r *http.Request) {
	step, err := strconv.Atoi(r.PostFormValue("step"))
	if err != nil || step < 1 {
		http.Error(w, "Invalid step number", http.StatusBadRequest)
		return
	}
	msg, err := rt.svc.DeleteChainStep(r.Context(), r.PathValue("name"), step)
	rt.renderChainDetail(w, r, rt.flash(msg, err))
}

// Custom prompts

func (rt *router) renderPrompts(w http.ResponseWriter, r *http.Request, selected string, flash *FlashMessage) {
	view, err := rt.svc.LoadPrompts(r.Context(), selected)
	if err != nil {
		rt.renderError(w, err)
		return
	}
	if err := rt.renderer.renderPage(w, r, "prompts.html", "Custom Prompts", map[string]any{"View": view}, flash); err != nil {
		rt.renderError(w, err)
	}
}

func (rt *router) handlePrompts(w http.ResponseWriter, r *http.Request) {
	rt.renderPrompts(w, r, r.URL.Query().Get("name"), nil)
}

func (rt *router) handlePromptAction(w http.ResponseWriter, r *http.Request) {
	name, action := r.PostFormValue("name"), r.PostFormValue("action")
	msg, err := rt.svc.PromptAction(r.Context(), name, r.PostFormValue("content"), action)

	selected := strings.TrimSpace(name)
	if action == service.ActionDelete {
		selected = ""
	}
	rt.renderPrompts(w, r, selected, rt.flash(msg, err))
}
