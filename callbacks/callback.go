package callbacks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/effective-security/toolagents/assistants"
	"github.com/effective-security/toolagents/chatmodel"
	"github.com/effective-security/toolagents/pkg/llms"
	"github.com/effective-security/toolagents/pkg/llmutils"
	"github.com/effective-security/toolagents/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

var (
	_ assistants.Callback = (*Noop)(nil)
	_ assistants.Callback = (*Printer)(nil)
	_ assistants.Callback = (*PackageLogger)(nil)
	_ assistants.Callback = (*Fanout)(nil)
)

// Mode defines the mode for callback printing
type Mode int

const (
	// ModeDefault prints the agent and tool boundaries
	ModeDefault Mode = iota
	// ModeVerbose also prints the tool outputs and the model answers
	ModeVerbose
)

// Fanout forwards the events to a list of callbacks, in order.
type Fanout struct {
	callbacks []assistants.Callback
}

// NewFanout returns a Fanout for the non-nil callbacks.
func NewFanout(callbacks ...assistants.Callback) *Fanout {
	f := &Fanout{}
	for _, cb := range callbacks {
		f.Add(cb)
	}
	return f
}

// Add appends the callback, nil is ignored.
func (f *Fanout) Add(callback assistants.Callback) {
	if callback != nil {
		f.callbacks = append(f.callbacks, callback)
	}
}

// Len returns the number of callbacks.
func (f *Fanout) Len() int {
	return len(f.callbacks)
}

func (f *Fanout) each(fn func(assistants.Callback)) {
	for _, cb := range f.callbacks {
		fn(cb)
	}
}

func (f *Fanout) OnAssistantStart(ctx context.Context, agent assistants.IAssistant, input string) {
	f.each(func(cb assistants.Callback) { cb.OnAssistantStart(ctx, agent, input) })
}

func (f *Fanout) OnAssistantEnd(ctx context.Context, agent assistants.IAssistant, input string, resp *llms.ContentResponse, messages []llms.Message) {
	f.each(func(cb assistants.Callback) { cb.OnAssistantEnd(ctx, agent, input, resp, messages) })
}

func (f *Fanout) OnAssistantError(ctx context.Context, agent assistants.IAssistant, input string, err error, messages []llms.Message) {
	f.each(func(cb assistants.Callback) { cb.OnAssistantError(ctx, agent, input, err, messages) })
}

func (f *Fanout) OnAssistantLLMCallStart(ctx context.Context, agent assistants.IAssistant, llm llms.Model, payload []llms.Message) {
	f.each(func(cb assistants.Callback) { cb.OnAssistantLLMCallStart(ctx, agent, llm, payload) })
}

func (f *Fanout) OnAssistantLLMCallEnd(ctx context.Context, agent assistants.IAssistant, llm llms.Model, resp *llms.ContentResponse) {
	f.each(func(cb assistants.Callback) { cb.OnAssistantLLMCallEnd(ctx, agent, llm, resp) })
}

func (f *Fanout) OnToolNotFound(ctx context.Context, agent assistants.IAssistant, tool string) {
	f.each(func(cb assistants.Callback) { cb.OnToolNotFound(ctx, agent, tool) })
}

func (f *Fanout) OnToolStart(ctx context.Context, tool tools.ITool, assistantName, input string) {
	f.each(func(cb assistants.Callback) { cb.OnToolStart(ctx, tool, assistantName, input) })
}

func (f *Fanout) OnToolEnd(ctx context.Context, tool tools.ITool, assistantName, input string, output string) {
	f.each(func(cb assistants.Callback) { cb.OnToolEnd(ctx, tool, assistantName, input, output) })
}

func (f *Fanout) OnToolError(ctx context.Context, tool tools.ITool, assistantName, input string, err error) {
	f.each(func(cb assistants.Callback) { cb.OnToolError(ctx, tool, assistantName, input, err) })
}

// Noop does nothing.
type Noop struct{}

func (Noop) OnAssistantStart(context.Context, assistants.IAssistant, string) {
}
func (Noop) OnAssistantEnd(context.Context, assistants.IAssistant, string, *llms.ContentResponse, []llms.Message) {
}
func (Noop) OnAssistantError(context.Context, assistants.IAssistant, string, error, []llms.Message) {
}
func (Noop) OnAssistantLLMCallStart(context.Context, assistants.IAssistant, llms.Model, []llms.Message) {
}
func (Noop) OnAssistantLLMCallEnd(context.Context, assistants.IAssistant, llms.Model, *llms.ContentResponse) {
}
func (Noop) OnToolNotFound(context.Context, assistants.IAssistant, string) {
}
func (Noop) OnToolStart(context.Context, tools.ITool, string, string) {
}
func (Noop) OnToolEnd(context.Context, tools.ITool, string, string, string) {
}
func (Noop) OnToolError(context.Context, tools.ITool, string, string, error) {
}

// Printer writes a readable trace of the agent steps to Out.
type Printer struct {
	Out  io.Writer
	Mode Mode

	lock sync.Mutex
}

// NewPrinter returns a Printer writing to out.
func NewPrinter(out io.Writer, mode Mode) *Printer {
	return &Printer{Out: out, Mode: mode}
}

func (p *Printer) printf(format string, args ...any) {
	p.lock.Lock()
	defer p.lock.Unlock()
	_, _ = fmt.Fprintf(p.Out, format, args...)
}

func (p *Printer) OnAssistantStart(_ context.Context, agent assistants.IAssistant, input string) {
	p.printf("\n> Entering agent %s\nInput: %s\n", agent.Name(), input)
}

func (p *Printer) OnAssistantEnd(_ context.Context, agent assistants.IAssistant, _ string, resp *llms.ContentResponse, _ []llms.Message) {
	if p.Mode == ModeVerbose && resp != nil {
		for _, choice := range resp.Choices {
			if choice.Content != "" {
				p.printf("%s", llmutils.EnsureEndsWithNewline(choice.Content))
			}
		}
	}
	p.printf("> Finished agent %s\n\n", agent.Name())
}

func (p *Printer) OnAssistantError(_ context.Context, agent assistants.IAssistant, _ string, err error, _ []llms.Message) {
	p.printf("> Agent %s failed: %s\n", agent.Name(), err.Error())
}

func (p *Printer) OnAssistantLLMCallStart(_ context.Context, _ assistants.IAssistant, llm llms.Model, payload []llms.Message) {
	if p.Mode == ModeVerbose {
		p.printf("Calling %s with %d messages\n", llm.GetName(), len(payload))
	}
}

func (p *Printer) OnAssistantLLMCallEnd(_ context.Context, _ assistants.IAssistant, llm llms.Model, resp *llms.ContentResponse) {
	if p.Mode != ModeVerbose || resp == nil {
		return
	}
	var calls int
	for _, choice := range resp.Choices {
		calls += len(choice.ToolCalls)
	}
	p.printf("%s returned %d choices, %d tool calls\n", llm.GetName(), len(resp.Choices), calls)
}

func (p *Printer) OnToolNotFound(_ context.Context, _ assistants.IAssistant, tool string) {
	p.printf("Tool `%s` not found\n", tool)
}

func (p *Printer) OnToolStart(_ context.Context, tool tools.ITool, _ string, input string) {
	p.printf("Invoking: `%s` with `%s`\n", tool.Name(), input)
}

func (p *Printer) OnToolEnd(_ context.Context, tool tools.ITool, _ string, _ string, output string) {
	if p.Mode == ModeVerbose {
		p.printf("%s", llmutils.EnsureEndsWithNewline(output))
		return
	}
	p.printf("Done: `%s`\n", tool.Name())
}

func (p *Printer) OnToolError(_ context.Context, tool tools.ITool, _ string, _ string, err error) {
	p.printf("Tool `%s` failed: %s\n", tool.Name(), err.Error())
}

// PackageLogger writes the events to the logger.
type PackageLogger struct {
	logger *xlog.PackageLogger
}

// NewPackageLogger returns a callback writing to logger.
func NewPackageLogger(logger *xlog.PackageLogger) *PackageLogger {
	return &PackageLogger{logger: logger}
}

func (l *PackageLogger) OnAssistantStart(ctx context.Context, agent assistants.IAssistant, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "assistant_start",
		"assistant", agent.Name(),
		"chat_id", chatmodel.GetChatID(ctx),
		"input", slices.StringUpto(input, 256),
	)
}

func (l *PackageLogger) OnAssistantEnd(ctx context.Context, agent assistants.IAssistant, _ string, _ *llms.ContentResponse, messages []llms.Message) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "assistant_end",
		"assistant", agent.Name(),
		"messages", len(messages),
	)
}

func (l *PackageLogger) OnAssistantError(ctx context.Context, agent assistants.IAssistant, _ string, err error, messages []llms.Message) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "assistant_error",
		"assistant", agent.Name(),
		"messages", len(messages),
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnAssistantLLMCallStart(ctx context.Context, agent assistants.IAssistant, llm llms.Model, payload []llms.Message) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_start",
		"assistant", agent.Name(),
		"model", llm.GetName(),
		"messages", len(payload),
	)
}

func (l *PackageLogger) OnAssistantLLMCallEnd(ctx context.Context, agent assistants.IAssistant, llm llms.Model, resp *llms.ContentResponse) {
	var choices int
	if resp != nil {
		choices = len(resp.Choices)
	}
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_end",
		"assistant", agent.Name(),
		"model", llm.GetName(),
		"choices", choices,
	)
}

func (l *PackageLogger) OnToolNotFound(ctx context.Context, agent assistants.IAssistant, tool string) {
	l.logger.ContextKV(ctx, xlog.WARNING,
		"event", "tool_not_found",
		"assistant", agent.Name(),
		"tool", tool,
	)
}

func (l *PackageLogger) OnToolStart(ctx context.Context, tool tools.ITool, assistantName, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_start",
		"assistant", assistantName,
		"tool", tool.Name(),
		"input", slices.StringUpto(input, 256),
	)
}

func (l *PackageLogger) OnToolEnd(ctx context.Context, tool tools.ITool, assistantName, _ string, output string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_end",
		"assistant", assistantName,
		"tool", tool.Name(),
		"output", slices.StringUpto(output, 256),
	)
}

func (l *PackageLogger) OnToolError(ctx context.Context, tool tools.ITool, assistantName, _ string, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "tool_error",
		"assistant", assistantName,
		"tool", tool.Name(),
		"err", err.Error(),
	)
}
