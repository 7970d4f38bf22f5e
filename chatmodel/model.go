package chatmodel

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrFailedUnmarshalInput is returned by a tool when the model provided
	// arguments that do not match the tool's schema.
	ErrFailedUnmarshalInput = errors.New("failed to unmarshal input: check the schema and try again")
	// ErrInvalidChatContext is returned when the context has no ChatContext.
	ErrInvalidChatContext = errors.New("invalid chat context")
)

// InputRequest is the input of a single turn run by the assistant.
type InputRequest struct {
	Input string `json:"input" jsonschema:"title=Input,description=The message sent by the user to the assistant."`
}

// NewInputRequest returns a new InputRequest
func NewInputRequest(input string) *InputRequest {
	return &InputRequest{
		Input: input,
	}
}

func (r *InputRequest) String() string {
	return r.Input
}
