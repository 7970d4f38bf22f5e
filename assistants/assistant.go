package assistants

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagents/chatmodel"
	"github.com/effective-security/toolagents/pkg/llms"
	"github.com/effective-security/toolagents/pkg/llmutils"
	"github.com/effective-security/toolagents/pkg/metricskey"
	"github.com/effective-security/toolagents/pkg/prompts"
	"github.com/effective-security/toolagents/tools"
	xslices "github.com/effective-security/x/slices"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

// Texts returned to the model in place of a tool result.
const (
	ToolNotFoundHint   = "Tool `%s` not found. Please check the tool name and try again with exact match. Available tools: %s"
	UnmarshalInputHint = "Failed to unmarshal input for `%s`, check the JSON schema and try again."
	ToolFailedPrefix   = "Tool call failed: "
)

// Assistant runs a chat model with a fixed list of tools.
// The model is called until it answers without tool calls,
// the tool calls of each response are executed sequentially.
type Assistant struct {
	LLM llms.Model

	toolsByName map[string]tools.ITool
	toolsNames  []string
	tools       []tools.ITool
	llmToolDefs []llms.Tool

	cfg         *Config
	name        string
	description string
	sysprompt   *prompts.PromptTemplate

	lock        sync.Mutex
	runMessages []llms.Message
}

var (
	_ IAssistant  = (*Assistant)(nil)
	_ HasCallback = (*Assistant)(nil)
)

// NewAssistant returns an Assistant for the model,
// sysprompt is optional.
func NewAssistant(
	llmModel llms.Model,
	sysprompt *prompts.PromptTemplate,
	options ...Option) *Assistant {
	return &Assistant{
		cfg:         NewConfig(options...),
		LLM:         llmModel,
		sysprompt:   sysprompt,
		name:        "Generic Assistant",
		description: "An AI assistant that can perform various tasks.",
		toolsByName: make(map[string]tools.ITool),
	}
}

// WithName sets the name of the Assistant.
func (a *Assistant) WithName(name string) *Assistant {
	a.name = name
	return a
}

// WithDescription sets the description of the Assistant.
func (a *Assistant) WithDescription(description string) *Assistant {
	a.description = description
	return a
}

// Name returns the name of the Assistant.
func (a *Assistant) Name() string {
	return a.name
}

// Description returns the description of the Assistant.
func (a *Assistant) Description() string {
	return a.description
}

// GetCallback returns the configured callback, or nil.
func (a *Assistant) GetCallback() Callback {
	return a.cfg.CallbackHandler
}

// GetTools returns the tools in the order they were added.
func (a *Assistant) GetTools() []tools.ITool {
	return a.tools
}

// WithTools adds new tools to the Assistant,
// existing tools are not replaced. Tool names are matched case insensitive.
func (a *Assistant) WithTools(list ...tools.ITool) *Assistant {
	for _, tool := range list {
		if tool == nil {
			continue
		}
		name := tool.Name()
		// use lowercase for the key
		nameLowerCase := strings.ToLower(name)
		if a.toolsByName[nameLowerCase] != nil {
			logger.KV(xlog.WARNING,
				"assistant", a.name,
				"status", "duplicate_tool",
				"tool", name,
			)
			continue
		}
		a.toolsByName[nameLowerCase] = tool
		a.toolsNames = append(a.toolsNames, name)
		a.tools = append(a.tools, tool)
	}
	a.llmToolDefs = tools.Definitions(a.tools...)
	return a
}

// LastRunMessages returns the conversation of the last run,
// without the system prompt and the history.
func (a *Assistant) LastRunMessages() []llms.Message {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.runMessages
}

// GetSystemPrompt formats the system prompt,
// the `tools` input defaults to the descriptions of the tools.
func (a *Assistant) GetSystemPrompt(promptInputs map[string]any) (string, error) {
	return a.systemPrompt(a.cfg, promptInputs)
}

func (a *Assistant) systemPrompt(cfg *Config, promptInputs map[string]any) (string, error) {
	if a.sysprompt == nil {
		return "", nil
	}
	inputs := llmutils.MergeInputs(cfg.PromptInput, promptInputs)
	if _, ok := inputs["tools"]; !ok {
		inputs["tools"] = tools.GetDescriptions(a.tools...)
	}
	text, err := a.sysprompt.Format(inputs)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(text, "\n"), nil
}

// Run executes a single user input.
func (a *Assistant) Run(ctx context.Context, input *CallInput) (*llms.ContentResponse, error) {
	if input == nil || (input.Input == "" && len(input.Messages) == 0) {
		return nil, errors.Newf("assistant %s: empty input", a.name)
	}

	var messages []llms.Message
	if input.Input != "" {
		messages = append(messages, llms.MessageFromTextParts(llms.RoleHuman, input.Input))
	}
	messages = append(messages, input.Messages...)

	resp, _, err := a.execute(ctx, a.cfg.Apply(input.Options...), input.PromptInputs, messages)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Invoke runs the conversation and returns the messages followed by
// the tool calls, tool responses and the final model answer.
func (a *Assistant) Invoke(ctx context.Context, messages []llms.Message, options ...Option) ([]llms.Message, error) {
	if len(messages) == 0 {
		return nil, errors.Newf("assistant %s: empty input", a.name)
	}
	_, conversation, err := a.execute(ctx, a.cfg.Apply(options...), nil, messages)
	if err != nil {
		return nil, err
	}
	return conversation, nil
}

func (a *Assistant) execute(ctx context.Context, cfg *Config, promptInputs map[string]any, messages []llms.Message) (*llms.ContentResponse, []llms.Message, error) {
	started := time.Now()
	defer metricskey.PerfAgentRun.MeasureSince(started, a.name)

	input := llmutils.FindLastUserQuestion(messages)

	callback := cfg.CallbackHandler
	if callback != nil {
		callback.OnAssistantStart(ctx, a, input)
	}

	resp, conversation, err := a.run(ctx, cfg, input, promptInputs, messages)

	a.lock.Lock()
	a.runMessages = conversation
	a.lock.Unlock()

	if err != nil {
		metricskey.StatsAgentCallsFailed.IncrCounter(1, a.name)
		if callback != nil {
			callback.OnAssistantError(ctx, a, input, err, conversation)
		}
		return nil, conversation, err
	}
	metricskey.StatsAgentCallsSucceeded.IncrCounter(1, a.name)
	if callback != nil {
		callback.OnAssistantEnd(ctx, a, input, resp, conversation)
	}
	return resp, conversation, nil
}

// run executes the main loop of the Assistant.
func (a *Assistant) run(ctx context.Context, cfg *Config, input string, promptInputs map[string]any, messages []llms.Message) (*llms.ContentResponse, []llms.Message, error) {
	assistantName := a.name
	conversation := slices.Clone(messages)

	systemPrompt, err := a.systemPrompt(cfg, promptInputs)
	if err != nil {
		return nil, conversation, errors.WithMessage(err, "failed to format system prompt")
	}

	var prefix []llms.Message
	if systemPrompt != "" {
		prefix = append(prefix, llms.MessageFromTextParts(llms.RoleSystem, systemPrompt))
	}

	useHistory := cfg.Store != nil && !cfg.SkipMessageHistory
	if useHistory {
		if chatmodel.GetChatContext(ctx) == nil {
			return nil, conversation, errors.WithStack(chatmodel.ErrInvalidChatContext)
		}
		history := TrimHistory(cfg.Store.Messages(ctx))
		logger.ContextKV(ctx, xlog.DEBUG,
			"assistant", assistantName,
			"chat_id", chatmodel.GetChatID(ctx),
			"message_history", len(history))
		prefix = append(prefix, history...)
	}

	var extraOptions []llms.CallOption
	if len(a.llmToolDefs) > 0 {
		prov := a.LLM.GetProviderType()
		if !prov.Supports(llms.CapabilityFunctionCalling) {
			return nil, conversation, errors.Newf("assistant %s: the LLM does not support function calling", assistantName)
		}
		extraOptions = append(extraOptions, llms.WithTools(a.llmToolDefs))
	}
	callOpts := cfg.GetCallOptions(extraOptions...)

	modelName := a.LLM.GetName()
	messagesLimit := values.NumbersCoalesce(cfg.MaxMessages, DefaultMaxMessages)
	bytesLimit := uint64(values.NumbersCoalesce(cfg.MaxLength, DefaultMaxContentSize))
	toolsLimit := values.NumbersCoalesce(cfg.MaxToolCalls, DefaultMaxToolCalls)

	var resp *llms.ContentResponse
	var totalToolExecuted, notFoundRounds, retryCount int
	for {
		if err = ctx.Err(); err != nil {
			return nil, conversation, errors.WithStack(err)
		}

		payload := slices.Concat(prefix, conversation)
		if len(payload) > messagesLimit {
			return nil, conversation, errors.Newf("assistant %s: the messages count exceeded limit", assistantName)
		}
		bytesSent := llmutils.CountMessagesContentSize(payload)
		if bytesSent > bytesLimit {
			return nil, conversation, errors.Newf("assistant %s: the content size exceeded limit", assistantName)
		}

		if cfg.CallbackHandler != nil {
			cfg.CallbackHandler.OnAssistantLLMCallStart(ctx, a, a.LLM, payload)
		}

		metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(payload)), assistantName, modelName)
		metricskey.StatsLLMBytesSent.IncrCounter(float64(bytesSent), assistantName, modelName)

		started := time.Now()
		resp, err = a.LLM.GenerateContent(ctx, payload, callOpts...)
		metricskey.PerfLLMCall.MeasureSince(started, assistantName, modelName)
		if err != nil {
			return nil, conversation, errors.WithMessagef(err, "assistant %s: failed to generate content", assistantName)
		}

		if cfg.CallbackHandler != nil {
			cfg.CallbackHandler.OnAssistantLLMCallEnd(ctx, a, a.LLM, resp)
		}

		metricskey.StatsLLMBytesReceived.IncrCounter(float64(llmutils.CountResponseContentSize(resp)), assistantName, modelName)
		tokensIn, tokensOut, tokensTotal := llmutils.CountTokens(resp)
		metricskey.StatsLLMInputTokens.IncrCounter(float64(tokensIn), assistantName, modelName)
		metricskey.StatsLLMOutputTokens.IncrCounter(float64(tokensOut), assistantName, modelName)
		metricskey.StatsLLMTotalTokens.IncrCounter(float64(tokensTotal), assistantName, modelName)

		if len(resp.Choices) == 0 {
			retryCount++
			metricskey.StatsAgentCallsRetried.IncrCounter(1, assistantName)
			if retryCount >= DefaultMaxRetries {
				logger.ContextKV(ctx, xlog.ERROR,
					"assistant", assistantName,
					"status", "max_retries_exceeded",
					"input", xslices.StringUpto(input, 64),
					"retry_count", retryCount,
				)
				return nil, conversation, errors.Newf("assistant %s: LLM returned empty response after %d retries", assistantName, retryCount)
			}
			logger.ContextKV(ctx, xlog.WARNING,
				"assistant", assistantName,
				"status", "retrying_empty_response",
				"retry_count", retryCount,
			)
			continue
		}

		toolMessages, executed, notFound, err := a.executeToolCalls(ctx, cfg, resp)
		conversation = append(conversation, toolMessages...)
		if err != nil {
			return nil, conversation, err
		}
		if executed == 0 {
			break
		}

		if notFound == executed {
			notFoundRounds++
			if notFoundRounds >= DefaultMaxToolNotFound {
				return nil, conversation, errors.Newf("assistant %s: the number of not found tools is exceeded", assistantName)
			}
		} else {
			notFoundRounds = 0
		}

		totalToolExecuted += executed
		if totalToolExecuted > toolsLimit {
			return nil, conversation, errors.Newf("assistant %s: the tool calls limit is exceeded", assistantName)
		}
	}

	result := resp.Choices[0].Content
	if len(resp.Choices) > 1 {
		var combinedContent strings.Builder
		for i, choice := range resp.Choices {
			if i > 0 {
				combinedContent.WriteString("\n\n")
			}
			combinedContent.WriteString(choice.Content)
		}
		result = combinedContent.String()
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"assistant", assistantName,
		"status", "response_analysis",
		"choices_count", len(resp.Choices),
		"tool_calls", totalToolExecuted,
	)

	conversation = append(conversation, llms.MessageFromTextParts(llms.RoleAI, result))

	if useHistory {
		a.saveHistory(ctx, cfg, conversation)
	}

	return resp, conversation, nil
}

func (a *Assistant) saveHistory(ctx context.Context, cfg *Config, conversation []llms.Message) {
	var saved int
	for _, msg := range conversation {
		if cfg.SkipToolHistory && !isTextMessage(msg) {
			continue
		}
		if err := cfg.Store.Add(ctx, msg); err != nil {
			logger.ContextKV(ctx, xlog.ERROR,
				"assistant", a.name,
				"status", "failed_to_add_message_history",
				"err", err.Error(),
			)
			return
		}
		saved++
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"assistant", a.name,
		"chat_id", chatmodel.GetChatID(ctx),
		"status", "added_message_history",
		"message_history", saved,
	)
}

// executeToolCalls executes the tool calls in the response sequentially,
// and returns the tool call messages followed by one message with the responses,
// the number of executed calls and the number of unknown tools.
func (a *Assistant) executeToolCalls(ctx context.Context, cfg *Config, resp *llms.ContentResponse) ([]llms.Message, int, int, error) {
	var messages []llms.Message
	var toolCalls []llms.ToolCall

	for _, choice := range resp.Choices {
		var choiceToolCalls []llms.ToolCall
		for _, toolCall := range choice.ToolCalls {
			if toolCall.FunctionCall == nil {
				continue
			}
			if toolCall.ID == "" {
				toolCall.ID = fmt.Sprintf("call_%s_%d", toolCall.FunctionCall.Name, len(toolCalls)+len(choiceToolCalls))
			}
			toolCall.Type = values.StringsCoalesce(toolCall.Type, "function")
			choiceToolCalls = append(choiceToolCalls, toolCall)

			logger.ContextKV(ctx, xlog.DEBUG,
				"assistant", a.name,
				"status", "tool_call_found",
				"tool_call_id", toolCall.ID,
				"tool_call_name", toolCall.FunctionCall.Name,
			)
		}
		if len(choiceToolCalls) == 0 {
			continue
		}
		toolCalls = append(toolCalls, choiceToolCalls...)

		msg := llms.MessageFromToolCalls(llms.RoleAI, choiceToolCalls...)
		if choice.Content != "" {
			// keep the text the model returned along with the calls
			msg.Parts = append([]llms.ContentPart{llms.TextPart(choice.Content)}, msg.Parts...)
		}
		messages = append(messages, msg)
	}

	if len(toolCalls) == 0 {
		return nil, 0, 0, nil
	}

	notFoundCount := 0
	responses := make([]llms.ContentPart, 0, len(toolCalls))
	for _, toolCall := range toolCalls {
		if err := ctx.Err(); err != nil {
			return messages, len(toolCalls), notFoundCount, errors.WithStack(err)
		}

		content, found := a.callTool(ctx, cfg, toolCall)
		if !found {
			notFoundCount++
		}

		logger.ContextKV(ctx, xlog.DEBUG,
			"assistant", a.name,
			"status", "tool_call_response",
			"tool_call_id", toolCall.ID,
			"tool_name", toolCall.FunctionCall.Name,
			"content_length", len(content),
		)

		responses = append(responses, llms.ToolCallResponse{
			ToolCallID: toolCall.ID,
			Name:       toolCall.FunctionCall.Name,
			Content:    content,
		})
	}
	messages = append(messages, llms.MessageFromParts(llms.RoleTool, responses...))

	return messages, len(toolCalls), notFoundCount, nil
}

// callTool returns the text for the tool response,
// and false if the tool is not found.
func (a *Assistant) callTool(ctx context.Context, cfg *Config, toolCall llms.ToolCall) (string, bool) {
	toolName := toolCall.FunctionCall.Name
	toolArgs := toolCall.FunctionCall.Arguments

	// use lowercase for the key
	tool := a.toolsByName[strings.ToLower(toolName)]
	if tool == nil {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, toolName)
		if cfg.CallbackHandler != nil {
			cfg.CallbackHandler.OnToolNotFound(ctx, a, toolName)
		}

		availableTools := strings.Join(a.toolsNames, ", ")
		logger.ContextKV(ctx, xlog.WARNING,
			"assistant", a.name,
			"status", "tool_not_found",
			"tool_name", toolName,
			"available_tools", availableTools,
		)
		return fmt.Sprintf(ToolNotFoundHint, toolName, availableTools), false
	}

	if cfg.CallbackHandler != nil {
		cfg.CallbackHandler.OnToolStart(ctx, tool, a.name, toolArgs)
	}

	started := time.Now()
	res, err := tool.Call(ctx, toolArgs)
	metricskey.PerfToolCall.MeasureSince(started, tool.Name())

	if err != nil {
		if cfg.CallbackHandler != nil {
			cfg.CallbackHandler.OnToolError(ctx, tool, a.name, toolArgs, err)
		}
		if errors.Is(err, chatmodel.ErrFailedUnmarshalInput) {
			return fmt.Sprintf(UnmarshalInputHint, tool.Name()), true
		}

		metricskey.StatsToolCallsFailed.IncrCounter(1, tool.Name(), string(tools.KindInternal))
		logger.ContextKV(ctx, xlog.WARNING,
			"assistant", a.name,
			"status", "tool_call_failed",
			"tool", tool.Name(),
			"err", err.Error(),
		)
		return ToolFailedPrefix + errors.WithMessagef(err, "failed to call tool %s", tool.Name()).Error(), true
	}

	metricskey.StatsToolCallsSucceeded.IncrCounter(1, tool.Name())
	if cfg.CallbackHandler != nil {
		cfg.CallbackHandler.OnToolEnd(ctx, tool, a.name, toolArgs, res)
	}
	return res, true
}

// TrimHistory drops the leading messages up to the first human message,
// so the history never starts with a dangling tool call or response.
func TrimHistory(history []llms.Message) []llms.Message {
	for i, msg := range history {
		if msg.Role == llms.RoleHuman {
			return history[i:]
		}
	}
	return nil
}

func isTextMessage(msg llms.Message) bool {
	for _, p := range msg.Parts {
		if _, ok := p.(llms.TextContent); !ok {
			return false
		}
	}
	return true
}
