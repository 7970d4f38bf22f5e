// Package assistants provides the agent loop: an Assistant composes a chat model with a fixed list of tools,
// executes the tool calls requested by the model and returns the conversation once the model answers without tool calls.
package assistants
