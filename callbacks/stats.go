package callbacks

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/effective-security/toolagents/assistants"
	"github.com/effective-security/toolagents/chatmodel"
	"github.com/effective-security/toolagents/pkg/llms"
	"github.com/effective-security/toolagents/pkg/llmutils"
	"github.com/effective-security/toolagents/tools"
)

var _ assistants.Callback = (*Stats)(nil)

// TimeNowFn is used to measure the run duration.
var TimeNowFn = time.Now

// RunStats are the counters of a single run.
type RunStats struct {
	ChatID string `yaml:"chat_id"`
	RunID  string `yaml:"run_id"`

	Duration        time.Duration `yaml:"duration"`
	LLMCalls        uint32        `yaml:"llm_calls"`
	MessagesSent    uint32        `yaml:"messages_sent"`
	LLMBytesOut     uint64        `yaml:"llm_bytes_out"`
	LLMBytesIn      uint64        `yaml:"llm_bytes_in"`
	LLMInputTokens  uint64        `yaml:"llm_input_tokens"`
	LLMOutputTokens uint64        `yaml:"llm_output_tokens"`
	LLMTotalTokens  uint64        `yaml:"llm_total_tokens"`
	AgentCalls      uint32        `yaml:"agent_calls"`
	AgentFailed     uint32        `yaml:"agent_failed"`
	ToolCalls       uint32        `yaml:"tool_calls"`
	ToolSucceeded   uint32        `yaml:"tool_succeeded"`
	ToolFailed      uint32        `yaml:"tool_failed"`
	ToolNotFound    uint32        `yaml:"tool_not_found"`
}

// Stats counts the events of the runs, keyed by the chat ID of the context.
// Events for a chat without a started run are ignored.
type Stats struct {
	lock sync.Mutex
	runs map[string]*statsRun
}

type statsRun struct {
	started time.Time
	stats   RunStats
}

// NewStats returns an empty Stats callback.
func NewStats() *Stats {
	return &Stats{
		runs: make(map[string]*statsRun),
	}
}

// StartRun starts counting for the chat in ctx.
func (s *Stats) StartRun(ctx context.Context) {
	chatCtx := chatmodel.GetChatContext(ctx)
	if chatCtx == nil {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.runs[chatCtx.GetChatID()] = &statsRun{
		started: TimeNowFn(),
		stats: RunStats{
			ChatID: chatCtx.GetChatID(),
			RunID:  chatCtx.RunID(),
		},
	}
}

// EndRun stops counting for the chat in ctx and returns the stats,
// or nil if the run was not started.
func (s *Stats) EndRun(ctx context.Context) *RunStats {
	chatID := chatmodel.GetChatID(ctx)

	s.lock.Lock()
	r := s.runs[chatID]
	delete(s.runs, chatID)
	s.lock.Unlock()

	if r == nil {
		return nil
	}
	res := r.stats
	res.Duration = TimeNowFn().Sub(r.started)
	return &res
}

func (s *Stats) get(ctx context.Context) *RunStats {
	s.lock.Lock()
	defer s.lock.Unlock()
	if r := s.runs[chatmodel.GetChatID(ctx)]; r != nil {
		return &r.stats
	}
	return nil
}

func (s *Stats) OnAssistantStart(ctx context.Context, _ assistants.IAssistant, _ string) {
	if st := s.get(ctx); st != nil {
		atomic.AddUint32(&st.AgentCalls, 1)
	}
}

func (s *Stats) OnAssistantEnd(ctx context.Context, _ assistants.IAssistant, _ string, _ *llms.ContentResponse, _ []llms.Message) {
}

func (s *Stats) OnAssistantError(ctx context.Context, _ assistants.IAssistant, _ string, _ error, _ []llms.Message) {
	if st := s.get(ctx); st != nil {
		atomic.AddUint32(&st.AgentFailed, 1)
	}
}

func (s *Stats) OnAssistantLLMCallStart(ctx context.Context, _ assistants.IAssistant, _ llms.Model, payload []llms.Message) {
	if st := s.get(ctx); st != nil {
		atomic.AddUint32(&st.LLMCalls, 1)
		atomic.AddUint32(&st.MessagesSent, uint32(len(payload)))
		atomic.AddUint64(&st.LLMBytesOut, llmutils.CountMessagesContentSize(payload))
	}
}

func (s *Stats) OnAssistantLLMCallEnd(ctx context.Context, _ assistants.IAssistant, _ llms.Model, resp *llms.ContentResponse) {
	st := s.get(ctx)
	if st == nil || resp == nil {
		return
	}
	tokensIn, tokensOut, tokensTotal := llmutils.CountTokens(resp)
	atomic.AddUint64(&st.LLMBytesIn, llmutils.CountResponseContentSize(resp))
	atomic.AddUint64(&st.LLMInputTokens, uint64(tokensIn))
	atomic.AddUint64(&st.LLMOutputTokens, uint64(tokensOut))
	atomic.AddUint64(&st.LLMTotalTokens, uint64(tokensTotal))
}

func (s *Stats) OnToolNotFound(ctx context.Context, _ assistants.IAssistant, _ string) {
	if st := s.get(ctx); st != nil {
		atomic.AddUint32(&st.ToolNotFound, 1)
	}
}

func (s *Stats) OnToolStart(ctx context.Context, _ tools.ITool, _ string, _ string) {
	if st := s.get(ctx); st != nil {
		atomic.AddUint32(&st.ToolCalls, 1)
	}
}

func (s *Stats) OnToolEnd(ctx context.Context, _ tools.ITool, _ string, _ string, _ string) {
	if st := s.get(ctx); st != nil {
		atomic.AddUint32(&st.ToolSucceeded, 1)
	}
}

func (s *Stats) OnToolError(ctx context.Context, _ tools.ITool, _ string, _ string, _ error) {
	if st := s.get(ctx); st != nil {
		atomic.AddUint32(&st.ToolFailed, 1)
	}
}
