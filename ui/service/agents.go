package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/youssefsiam38/agentdesk"
	"github.com/youssefsiam38/agentdesk/embedding"
	"github.com/youssefsiam38/agentdesk/storage"
)

// AgentNames returns the configured agent names, sorted.
func (s *Service) AgentNames(ctx context.Context) ([]string, error) {
	agents, err := s.client.Agents(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(agents))
	for i, a := range agents {
		names[i] = a.Name
	}
	return names, nil
}

// LoadAgentSettings builds the settings page for agent. An empty agent
// selects the first configured one. providerOverride, when set, replaces
// the stored provider so the form can switch providers before saving.
//
// Load failures are reported on the view rather than returned, so the page
// still renders.
func (s *Service) LoadAgentSettings(ctx context.Context, agent, providerOverride string) *AgentSettingsView {
	view := &AgentSettingsView{
		Providers: s.client.Providers(),
		Embedders: s.client.EmbeddingProviders(),
	}

	names, err := s.AgentNames(ctx)
	if err != nil {
		view.LoadError = msgLoadAgent(err)
		return view
	}
	view.Agents = names

	if agent == "" {
		if len(names) == 0 {
			return view
		}
		agent = names[0]
	}
	view.Agent = agent

	cfg, err := s.client.AgentConfig(ctx, agent)
	if err != nil {
		view.LoadError = msgLoadAgent(err)
		return view
	}

	view.Provider = selectOption(view.Providers, providerOverride, cfg.Provider)
	view.ProviderFields, view.ProviderError = s.providerFields(view.Provider, cfg.Settings)
	view.Embedder = selectOption(view.Embedders, "", embedding.Selected(cfg.Settings))

	custom, ok := agentdesk.CustomSettings(cfg.Settings)
	if !ok {
		view.LoadError = msgLoadAgent(fmt.Errorf("custom_settings must be a list of strings, got %v", cfg.Settings[agentdesk.SettingCustomSettings]))
	}
	view.CustomSettings = parseCustomSettings(custom)
	view.Commands = cfg.Commands
	return view
}

// ProviderFields returns the option inputs of provider for agent, filled
// with the agent's stored values.
func (s *Service) ProviderFields(ctx context.Context, agent, providerName string) ([]ProviderField, string) {
	var settings map[string]any
	if agent != "" {
		if cfg, err := s.client.AgentConfig(ctx, agent); err == nil {
			settings = cfg.Settings
		}
	}
	return s.providerFields(providerName, settings)
}

func (s *Service) providerFields(providerName string, settings map[string]any) ([]ProviderField, string) {
	opts, err := s.client.ProviderOptions(providerName)
	if err != nil {
		return nil, msgProviderSettings(err)
	}
	defaults, _ := s.client.ProviderDefaults(providerName)

	fields := make([]ProviderField, 0, len(opts))
	for _, key := range opts {
		f := ProviderField{Key: key, Placeholder: defaults[key]}
		if v, ok := settings[key]; ok && v != nil {
			f.Value = fmt.Sprint(v)
		}
		fields = append(fields, f)
	}
	return fields, ""
}

// UpdateAgentSettings applies a submitted settings form.
//
// ActionAddCustom and ActionRemoveCustom only edit the custom settings rows
// of the returned view; nothing is saved until ActionUpdate, which stores
// the settings and the command flags and returns the confirmation message.
func (s *Service) UpdateAgentSettings(ctx context.Context, form *AgentSettingsForm) (*AgentSettingsView, string, error) {
	agent := strings.TrimSpace(form.Agent)
	if agent == "" {
		return s.LoadAgentSettings(ctx, "", ""), "", formError(MsgAgentNameRequired, agentdesk.ErrInvalidInput)
	}

	switch form.Action {
	case ActionAddCustom, ActionRemoveCustom:
		view := s.formView(ctx, agent, form)
		if form.Action == ActionAddCustom {
			view.CustomSettings = append(view.CustomSettings, CustomSetting{})
		} else if n := len(view.CustomSettings); n > 0 {
			view.CustomSettings = view.CustomSettings[:n-1]
		}
		return view, "", nil

	case ActionUpdate, "":
		cfg, err := s.client.AgentConfig(ctx, agent)
		if err != nil {
			return s.formView(ctx, agent, form), "", formError(msgUpdateAgent(err), err)
		}
		// form values go on top of the stored section; keys of other providers survive
		settings := maps.Clone(cfg.Settings)
		if settings == nil {
			settings = make(map[string]any)
		}
		settings[agentdesk.SettingProvider] = form.Provider
		for key, value := range form.Options {
			settings[key] = value
		}
		if form.Embedder != "" {
			settings[agentdesk.SettingEmbedder] = embedding.Setting(form.Embedder)
		}
		custom := make([]string, 0, len(form.CustomSettings))
		for _, cs := range form.CustomSettings {
			if cs.Key == "" && cs.Value == "" {
				continue
			}
			custom = append(custom, cs.String())
		}
		settings[agentdesk.SettingCustomSettings] = custom

		if err := s.client.UpdateAgentConfig(ctx, agent, storage.SectionSettings, settings); err != nil {
			return s.formView(ctx, agent, form), "", formError(msgUpdateAgent(err), err)
		}
		flags := s.client.CommandCatalog().FromChecked(form.Commands)
		if err := s.client.UpdateAgentConfig(ctx, agent, storage.SectionCommands, flags); err != nil {
			return s.formView(ctx, agent, form), "", formError(msgUpdateAgent(err), err)
		}
		return s.LoadAgentSettings(ctx, agent, ""), msgAgentUpdated(agent), nil
	}

	return s.LoadAgentSettings(ctx, agent, ""), "", formError(MsgUnknownAction, agentdesk.ErrInvalidInput)
}

// formView reloads the page for agent and overlays the submitted values.
func (s *Service) formView(ctx context.Context, agent string, form *AgentSettingsForm) *AgentSettingsView {
	view := s.LoadAgentSettings(ctx, agent, form.Provider)
	for i, f := range view.ProviderFields {
		if v, ok := form.Options[f.Key]; ok {
			view.ProviderFields[i].Value = v
		}
	}
	if form.Embedder != "" {
		view.Embedder = form.Embedder
	}
	view.CustomSettings = slices.Clone(form.CustomSettings)
	for i, cmd := range view.Commands {
		view.Commands[i].Enabled = slices.Contains(form.Commands, cmd.Name)
	}
	return view
}

// CreateAgent creates an agent with the default provider.
func (s *Service) CreateAgent(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", formError(MsgAgentNameRequired, agentdesk.ErrInvalidInput)
	}
	if _, err := s.client.CreateAgent(ctx, name, nil); err != nil {
		if errors.Is(err, agentdesk.ErrInvalidAgentName) {
			return "", formError(MsgAgentNameInvalid, err)
		}
		return "", err
	}
	return msgAgentCreated(name), nil
}

// DeleteAgent deletes an agent, stopping its task first.
func (s *Service) DeleteAgent(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", formError(MsgAgentNameRequired, agentdesk.ErrInvalidInput)
	}
	if err := s.client.DeleteAgent(ctx, name); err != nil {
		if errors.Is(err, agentdesk.ErrAgentNotFound) {
			return "", fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return "", err
	}
	return msgAgentDeleted(name), nil
}

// selectOption returns the first of candidates found in options, or the
// first option.
func selectOption(options []string, candidates ...string) string {
	for _, c := range candidates {
		if c != "" && slices.Contains(options, c) {
			return c
		}
	}
	if len(options) > 0 {
		return options[0]
	}
	return ""
}

func parseCustomSettings(list []string) []CustomSetting {
	out := make([]CustomSetting, 0, len(list))
	for _, s := range list {
		key, value, _ := strings.Cut(s, ":")
		out = append(out, CustomSetting{Key: key, Value: value})
	}
	return out
}
