package service

import (
	"context"
	"errors"
	"strings"

	"github.com/youssefsiam38/agentdesk"
	"github.com/youssefsiam38/agentdesk/tasks"
)

// StartTask starts the objective loop for agent and returns the
// confirmation message without waiting for the task.
func (s *Service) StartTask(ctx context.Context, agent, objective string) (string, error) {
	agent, objective = strings.TrimSpace(agent), strings.TrimSpace(objective)
	if agent == "" || objective == "" {
		return "", formError(MsgTaskInputRequired, tasks.ErrInvalidInput)
	}

	if _, err := s.client.StartTask(ctx, agent, objective); err != nil {
		switch {
		case errors.Is(err, tasks.ErrTaskAlreadyRunning):
			return "", formError(MsgTaskAlreadyRunning, err)
		case errors.Is(err, agentdesk.ErrAgentNotFound):
			return "", formError(msgLoadAgent(err), err)
		}
		return "", err
	}
	return msgTaskStarted(agent), nil
}

// StopTask signals agent's running task to stop.
func (s *Service) StopTask(agent string) (string, error) {
	agent = strings.TrimSpace(agent)
	if err := s.client.StopTask(agent); err != nil {
		if errors.Is(err, tasks.ErrNoTaskRunning) {
			return "", formError(MsgNoTaskRunning, err)
		}
		return "", err
	}
	return msgTaskStopped(agent), nil
}

// TaskStatus returns the live task status of agent.
func (s *Service) TaskStatus(agent string) *TaskStatusView {
	view := &TaskStatusView{
		Agent:  agent,
		Status: s.client.TaskStatus(agent),
	}
	view.Running = view.Status == tasks.StatusRunning
	if h, ok := s.client.Task(agent); ok {
		snap := h.Snapshot()
		view.Run = &snap
	}
	return view
}

// TaskRuns returns the run history, newest first. An empty agent lists
// every agent.
func (s *Service) TaskRuns(ctx context.Context, agent string, limit int) ([]*TaskRunView, error) {
	runs, err := s.client.TaskRuns(ctx, agent, ValidateLimit(limit))
	if err != nil {
		return nil, err
	}
	out := make([]*TaskRunView, len(runs))
	for i, r := range runs {
		out[i] = newTaskRunView(r)
	}
	return out, nil
}

// LoadTasks builds the tasks page. An empty agent selects the first one.
func (s *Service) LoadTasks(ctx context.Context, agent string, limit int) (*TasksView, error) {
	names, err := s.AgentNames(ctx)
	if err != nil {
		return nil, err
	}
	if agent == "" && len(names) > 0 {
		agent = names[0]
	}

	view := &TasksView{
		Agents:  names,
		Agent:   agent,
		Running: s.client.RunningTasks(),
	}
	if agent != "" {
		view.Status = s.TaskStatus(agent)
	}
	view.Runs, err = s.TaskRuns(ctx, "", limit)
	if err != nil {
		return nil, err
	}
	return view, nil
}
