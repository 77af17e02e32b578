package service

import (
	"context"
	"strings"
	"time"

	"github.com/youssefsiam38/agentdesk"
)

// Chat sends message to agent and returns its answer.
func (s *Service) Chat(ctx context.Context, agent, message string, smart bool) (*InteractionResult, error) {
	agent, message = strings.TrimSpace(agent), strings.TrimSpace(message)
	if agent == "" || message == "" {
		return nil, formError(MsgChatInputRequired, agentdesk.ErrInvalidInput)
	}
	return s.interact(ctx, agent, message, smart, s.client.Chat)
}

// Instruct has agent carry out instruction and returns the result.
func (s *Service) Instruct(ctx context.Context, agent, instruction string, smart bool) (*InteractionResult, error) {
	agent, instruction = strings.TrimSpace(agent), strings.TrimSpace(instruction)
	if agent == "" || instruction == "" {
		return nil, formError(MsgInstructInputRequired, agentdesk.ErrInvalidInput)
	}
	return s.interact(ctx, agent, instruction, smart, s.client.Instruct)
}

type interactFunc func(ctx context.Context, name, input string, smart bool) (string, error)

func (s *Service) interact(ctx context.Context, agent, input string, smart bool, fn interactFunc) (*InteractionResult, error) {
	start := time.Now()
	out, err := fn(ctx, agent, input, smart)
	if err != nil {
		return nil, err
	}
	return &InteractionResult{
		Agent:    agent,
		Input:    input,
		Output:   out,
		Smart:    smart,
		Duration: time.Since(start),
	}, nil
}
