package assistants

import (
	"context"

	"github.com/effective-security/toolagents/pkg/llms"
	"github.com/effective-security/toolagents/tools"
)

// Callback receives the events of an Assistant run,
// see the callbacks package for implementations.
type Callback interface {
	tools.Callback
	OnAssistantStart(ctx context.Context, agent IAssistant, input string)
	OnAssistantEnd(ctx context.Context, agent IAssistant, input string, resp *llms.ContentResponse, messages []llms.Message)
	OnAssistantError(ctx context.Context, agent IAssistant, input string, err error, messages []llms.Message)
	OnAssistantLLMCallStart(ctx context.Context, agent IAssistant, llm llms.Model, payload []llms.Message)
	OnAssistantLLMCallEnd(ctx context.Context, agent IAssistant, llm llms.Model, resp *llms.ContentResponse)
	OnToolNotFound(ctx context.Context, agent IAssistant, tool string)
}

// HasCallback is implemented by assistants with a configured Callback.
type HasCallback interface {
	GetCallback() Callback
}
