package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/youssefsiam38/agentdesk"
	"github.com/youssefsiam38/agentdesk/storage"
)

// LoadChains builds the chains page.
func (s *Service) LoadChains(ctx context.Context) (*ChainsView, error) {
	chains, err := s.client.Chains(ctx)
	if err != nil {
		return nil, err
	}
	names, err := s.AgentNames(ctx)
	if err != nil {
		return nil, err
	}
	return &ChainsView{Chains: chains, Agents: names}, nil
}

// GetChain returns one chain with its steps.
func (s *Service) GetChain(ctx context.Context, name string) (*storage.Chain, error) {
	chain, err := s.client.Chain(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, err
	}
	return chain, nil
}

// ChainAction applies the Create or Delete button of the chains form.
func (s *Service) ChainAction(ctx context.Context, name, action string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", formError(MsgChainNameRequired, agentdesk.ErrInvalidInput)
	}

	switch action {
	case ActionCreate:
		if _, err := s.client.AddChain(ctx, name); err != nil {
			return "", err
		}
		return msgChainCreated(name), nil
	case ActionDelete:
		if err := s.client.DeleteChain(ctx, name); err != nil {
			return "", err
		}
		return msgChainDeleted(name), nil
	}
	return "", formError(MsgUnknownAction, agentdesk.ErrInvalidInput)
}

// AddChainStep appends a step to chain.
func (s *Service) AddChainStep(ctx context.Context, chain string, step storage.ChainStep) (string, error) {
	step.AgentName = strings.TrimSpace(step.AgentName)
	step.PromptType = strings.TrimSpace(step.PromptType)
	if step.AgentName == "" || step.PromptType == "" {
		return "", formError(MsgChainStepRequired, agentdesk.ErrInvalidInput)
	}

	added, err := s.client.AddChainStep(ctx, chain, step)
	if err != nil {
		return "", err
	}
	return msgChainStepAdded(chain, added.StepNumber), nil
}

// DeleteChainStep removes a step from chain.
func (s *Service) DeleteChainStep(ctx context.Context, chain string, stepNumber int) (string, error) {
	if err := s.client.DeleteChainStep(ctx, chain, stepNumber); err != nil {
		return "", err
	}
	return msgChainStepDeleted(chain, stepNumber), nil
}
