package assistants

import (
	"context"

	"github.com/effective-security/toolagents/pkg/llms"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagents", "assistants")

//go:generate mockgen -source=assistants.go -destination=../mocks/mockassistants/assistants_mock.gen.go -package mockassistants

// IAssistant is an agent that answers with the help of tools.
type IAssistant interface {
	// Name returns the name of the Assistant.
	Name() string
	// Description returns the description of the Assistant.
	Description() string
	// Invoke runs the conversation until the model answers without tool calls,
	// and returns the input messages followed by the generated ones.
	Invoke(ctx context.Context, messages []llms.Message, options ...Option) ([]llms.Message, error)
	// Run executes a single user input and returns the final model response.
	Run(ctx context.Context, input *CallInput) (*llms.ContentResponse, error)
}

// CallInput is the input of Assistant.Run
type CallInput struct {
	// Input is the user question, added to the conversation as a human message.
	Input string
	// Messages are appended after the Input.
	Messages []llms.Message
	// PromptInputs are the values for the system prompt.
	PromptInputs map[string]any
	// Options override the Assistant config for this call.
	Options []Option
}
