package service

import "fmt"

// Operator-facing messages.
const (
	MsgTaskInputRequired     = "Agent name and task objective are required."
	MsgNoTaskRunning         = "No task is running for the selected agent."
	MsgTaskAlreadyRunning    = "A task is already running for the selected agent."
	MsgChatInputRequired     = "Agent name and message are required."
	MsgInstructInputRequired = "Agent name and instruction are required."
	MsgAgentNameRequired     = "Agent name is required."
	MsgAgentNameInvalid      = "Agent names may only contain letters, digits, '-' and '_' (at most 128 characters)."
	MsgChainNameRequired     = "Chain name is required."
	MsgChainStepRequired     = "Agent name and prompt type are required."
	MsgPromptInputRequired   = "Prompt name and content are required."
	MsgPromptNameRequired    = "Prompt name is required."
	MsgUnknownAction         = "Unknown action."
)

func msgTaskStarted(agent string) string {
	return fmt.Sprintf("Task started for agent '%s'.", agent)
}

func msgTaskStopped(agent string) string {
	return fmt.Sprintf("Task stopped for agent '%s'.", agent)
}

func msgAgentUpdated(agent string) string {
	return fmt.Sprintf("Agent '%s' updated.", agent)
}

func msgAgentCreated(agent string) string {
	return fmt.Sprintf("Agent '%s' created.", agent)
}

func msgAgentDeleted(agent string) string {
	return fmt.Sprintf("Agent '%s' deleted.", agent)
}

func msgChainCreated(chain string) string {
	return fmt.Sprintf("Chain '%s' created.", chain)
}

func msgChainDeleted(chain string) string {
	return fmt.Sprintf("Chain '%s' deleted.", chain)
}

func msgChainStepAdded(chain string, step int) string {
	return fmt.Sprintf("Step %d added to chain '%s'.", step, chain)
}

func msgChainStepDeleted(chain string, step int) string {
	return fmt.Sprintf("Step %d removed from chain '%s'.", step, chain)
}

// msgPrompt formats "Prompt '<name>' <verb>." for added, updated and deleted.
func msgPrompt(name, verb string) string {
	return fmt.Sprintf("Prompt '%s' %s.", name, verb)
}

func msgProviderSettings(got any) string {
	return fmt.Sprintf("Error loading provider settings: expected a list, but got %v", got)
}

func msgLoadAgent(err error) string {
	return fmt.Sprintf("Error loading agent configuration: %v", err)
}

func msgUpdateAgent(err error) string {
	return fmt.Sprintf("Error updating agent: %v", err)
}
