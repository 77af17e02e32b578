package service

import (
	"context"
	"slices"
	"strings"

	"github.com/youssefsiam38/agentdesk"
	"github.com/youssefsiam38/agentdesk/agentllm"
)

// LoadPrompts builds the prompts page. selected, when set and stored,
// is loaded into the form.
func (s *Service) LoadPrompts(ctx context.Context, selected string) (*PromptsView, error) {
	prompts, err := s.client.Prompts(ctx)
	if err != nil {
		return nil, err
	}
	view := &PromptsView{Prompts: prompts}
	for _, p := range prompts {
		if p.Name == selected {
			view.Selected = p
			break
		}
	}
	return view, nil
}

// PromptAction applies the Add, Update or Delete button of the prompts
// form. Every action requires both a name and content.
func (s *Service) PromptAction(ctx context.Context, name, content, action string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(content) == "" {
		return "", formError(MsgPromptInputRequired, agentdesk.ErrInvalidInput)
	}

	switch action {
	case ActionAdd:
		if err := s.client.AddPrompt(ctx, name, content); err != nil {
			return "", err
		}
		return msgPrompt(name, "added"), nil
	case ActionEdit:
		if err := s.client.UpdatePrompt(ctx, name, content); err != nil {
			return "", err
		}
		return msgPrompt(name, "updated"), nil
	case ActionDelete:
		return s.DeletePrompt(ctx, name)
	}
	return "", formError(MsgUnknownAction, agentdesk.ErrInvalidInput)
}

// DeletePrompt deletes a stored prompt. A built-in prompt falls back to
// its default template.
func (s *Service) DeletePrompt(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", formError(MsgPromptNameRequired, agentdesk.ErrInvalidInput)
	}
	if err := s.client.DeletePrompt(ctx, name); err != nil {
		return "", err
	}
	return msgPrompt(name, "deleted"), nil
}

// PromptTypes returns the prompt names a chain step can use, sorted. The
// built-in names are always included.
func (s *Service) PromptTypes(ctx context.Context) []string {
	names := agentllm.DefaultPromptNames()
	prompts, err := s.client.Prompts(ctx)
	if err != nil {
		return names
	}
	for _, p := range prompts {
		if !slices.Contains(names, p.Name) {
			names = append(names, p.Name)
		}
	}
	slices.Sort(names)
	return names
}
