package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	// StatsLLMMessagesSent is base for counter metric for total messages sent to LLM
	StatsLLMMessagesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_messages_sent",
		Help:         "stats_llm_messages_sent provides total messages sent to LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMBytesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_sent",
		Help:         "stats_llm_bytes_sent provides total bytes sent to LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMBytesReceived = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_received",
		Help:         "stats_llm_bytes_received provides total bytes received from LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMInputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_input_tokens",
		Help:         "stats_llm_input_tokens provides total input tokens sent to LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMOutputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_output_tokens",
		Help:         "stats_llm_output_tokens provides total output tokens received from LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMTotalTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_total_tokens",
		Help:         "stats_llm_total_tokens provides total tokens sent and received from LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsAgentCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_agent_calls_succeeded",
		Help:         "stats_agent_calls_succeeded provides total agent calls succeeded",
		RequiredTags: []string{"agent"},
	}

	StatsAgentCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_agent_calls_failed",
		Help:         "stats_agent_calls_failed provides total agent calls failed",
		RequiredTags: []string{"agent"},
	}

	StatsAgentCallsRetried = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_agent_calls_retried",
		Help:         "stats_agent_calls_retried provides total agent calls retried on empty response",
		RequiredTags: []string{"agent"},
	}

	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls that returned an error result",
		RequiredTags: []string{"tool", "kind"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total calls of unknown tools",
		RequiredTags: []string{"tool"},
	}

	StatsToolInputParseErrors = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_input_parse_errors",
		Help:         "stats_tool_input_parse_errors provides total tool calls with arguments not matching the schema",
		RequiredTags: []string{"tool"},
	}

	StatsUpstreamRequests = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_upstream_requests",
		Help:         "stats_upstream_requests provides total requests sent to upstream APIs",
		RequiredTags: []string{"api", "status"},
	}
)

// Perf
var (
	PerfAgentRun = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_agent_run",
		Help:         "perf_agent_run provides duration of agent run",
		RequiredTags: []string{"agent"},
	}

	PerfLLMCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_llm_call",
		Help:         "perf_llm_call provides duration of model call",
		RequiredTags: []string{"agent", "model"},
	}

	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool"},
	}

	PerfUpstreamRequest = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_upstream_request",
		Help:         "perf_upstream_request provides duration of upstream API request",
		RequiredTags: []string{"api"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfAgentRun,
	&PerfLLMCall,
	&PerfToolCall,
	&PerfUpstreamRequest,
	&StatsAgentCallsFailed,
	&StatsAgentCallsRetried,
	&StatsAgentCallsSucceeded,
	&StatsLLMBytesReceived,
	&StatsLLMBytesSent,
	&StatsLLMInputTokens,
	&StatsLLMMessagesSent,
	&StatsLLMOutputTokens,
	&StatsLLMTotalTokens,
	&StatsToolCallsFailed,
	&StatsToolCallsNotFound,
	&StatsToolCallsSucceeded,
	&StatsToolInputParseErrors,
	&StatsUpstreamRequests,
}
