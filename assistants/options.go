package assistants

import (
	"maps"
	"slices"

	"github.com/effective-security/toolagents/pkg/llms"
	"github.com/effective-security/toolagents/store"
)

const (
	// DefaultMaxMessages is the limit of messages sent in one model call.
	DefaultMaxMessages = 100
	// DefaultMaxToolCalls is the limit of tool calls in one run.
	DefaultMaxToolCalls = 20
	// DefaultMaxContentSize is the limit of the content bytes sent in one model call.
	DefaultMaxContentSize = 1 << 20
	// DefaultMaxRetries is the number of model calls made on empty responses.
	DefaultMaxRetries = 3
	// DefaultMaxToolNotFound is the number of consecutive model responses
	// calling only unknown tools before the run fails.
	DefaultMaxToolNotFound = 3
)

// Option is a function that can be used to modify the behavior of the Assistant Config.
type Option func(*Config)

type Config struct {
	// MaxTokens is the maximum number of tokens to generate to use in an LLM call.
	MaxTokens    int
	maxTokensSet bool

	// Temperature is the temperature for sampling to use in an LLM call.
	// When not set, the model default is used.
	Temperature    float64
	temperatureSet bool

	// StopWords is a list of words to stop on to use in an LLM call.
	StopWords    []string
	stopWordsSet bool

	// TopK is the number of tokens to consider for top-k sampling in an LLM call.
	TopK    int
	topkSet bool

	// TopP is the cumulative probability for top-p sampling in an LLM call.
	TopP    float64
	toppSet bool

	// Seed is a seed for deterministic sampling in an LLM call.
	Seed    int
	seedSet bool

	// ToolChoice is the choice of tool to use, it can either be "none", "auto" (the default behavior),
	// "any", or the name of a specific tool.
	ToolChoice    any
	toolChoiceSet bool

	// CallbackHandler is the callback handler for the Assistant and its tools
	CallbackHandler Callback

	//
	// Below are the options for the Assistant, not related to LLM call
	//

	// Store keeps the message history of the chat, nil to disable history.
	Store store.MessageStore
	// PromptInput is the default input of the system prompt.
	PromptInput map[string]any
	// SkipMessageHistory disables loading and saving the message history.
	SkipMessageHistory bool
	// SkipToolHistory excludes tool calls and responses from the saved history.
	SkipToolHistory bool

	// MaxMessages is the limit of messages sent in one model call.
	MaxMessages int
	// MaxToolCalls is the limit of tool calls in one run.
	MaxToolCalls int
	// MaxLength is the limit of the content bytes sent in one model call.
	MaxLength int
}

// NewConfig returns a new Config with the options applied.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		MaxMessages:  DefaultMaxMessages,
		MaxToolCalls: DefaultMaxToolCalls,
		MaxLength:    DefaultMaxContentSize,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Apply returns a copy of the config with the options applied.
func (c *Config) Apply(opts ...Option) *Config {
	cp := *c
	cp.StopWords = slices.Clone(c.StopWords)
	cp.PromptInput = maps.Clone(c.PromptInput)
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// WithPromptInput is an option that allows the user to specify the system prompt input.
func WithPromptInput(input map[string]any) Option {
	return func(o *Config) {
		o.PromptInput = input
	}
}

// WithStore sets the message history store.
func WithStore(s store.MessageStore) Option {
	return func(o *Config) {
		o.Store = s
	}
}

// WithSkipMessageHistory is an option that allows to skip the message history.
func WithSkipMessageHistory(skip bool) Option {
	return func(o *Config) {
		o.SkipMessageHistory = skip
	}
}

// WithSkipToolHistory is an option that allows to skip saving tool calls to the history.
func WithSkipToolHistory(skip bool) Option {
	return func(o *Config) {
		o.SkipToolHistory = skip
	}
}

// WithMaxMessages sets the limit of messages sent in one model call.
func WithMaxMessages(limit int) Option {
	return func(o *Config) {
		o.MaxMessages = limit
	}
}

// WithMaxToolCalls sets the limit of tool calls in one run.
func WithMaxToolCalls(limit int) Option {
	return func(o *Config) {
		o.MaxToolCalls = limit
	}
}

// WithMaxLength sets the limit of the content bytes sent in one model call.
func WithMaxLength(limit int) Option {
	return func(o *Config) {
		o.MaxLength = limit
	}
}

// WithMaxTokens is an option for LLM.Call.
func WithMaxTokens(maxTokens int) Option {
	return func(o *Config) {
		o.MaxTokens = maxTokens
		o.maxTokensSet = true
	}
}

// WithTemperature is an option for LLM.Call.
func WithTemperature(temperature float64) Option {
	return func(o *Config) {
		o.Temperature = temperature
		o.temperatureSet = true
	}
}

// WithTopK will add an option to use top-k sampling for LLM.Call.
func WithTopK(topK int) Option {
	return func(o *Config) {
		o.TopK = topK
		o.topkSet = true
	}
}

// WithTopP	will add an option to use top-p sampling for LLM.Call.
func WithTopP(topP float64) Option {
	return func(o *Config) {
		o.TopP = topP
		o.toppSet = true
	}
}

// WithSeed will add an option to use deterministic sampling for LLM.Call.
func WithSeed(seed int) Option {
	return func(o *Config) {
		o.Seed = seed
		o.seedSet = true
	}
}

// WithStopWords is an option for setting the stop words for LLM.Call.
func WithStopWords(stopWords []string) Option {
	return func(o *Config) {
		o.StopWords = stopWords
		o.stopWordsSet = true
	}
}

// WithCallback allows setting a custom Callback Handler.
func WithCallback(callbackHandler Callback) Option {
	return func(o *Config) {
		o.CallbackHandler = callbackHandler
	}
}

// WithToolChoice is an option for LLM.Call.
func WithToolChoice(choice any) Option {
	return func(o *Config) {
		o.ToolChoice = choice
		o.toolChoiceSet = true
	}
}

// GetCallOptions returns the model call options,
// the extra options are appended last.
func (c *Config) GetCallOptions(extra ...llms.CallOption) []llms.CallOption {
	var callOptions []llms.CallOption
	if c.maxTokensSet {
		callOptions = append(callOptions, llms.WithMaxTokens(c.MaxTokens))
	}
	if c.temperatureSet {
		callOptions = append(callOptions, llms.WithTemperature(c.Temperature))
	}
	if c.stopWordsSet {
		callOptions = append(callOptions, llms.WithStopWords(c.StopWords))
	}
	if c.topkSet {
		callOptions = append(callOptions, llms.WithTopK(c.TopK))
	}
	if c.toppSet {
		callOptions = append(callOptions, llms.WithTopP(c.TopP))
	}
	if c.seedSet {
		callOptions = append(callOptions, llms.WithSeed(c.Seed))
	}
	if c.toolChoiceSet {
		callOptions = append(callOptions, llms.WithToolChoice(c.ToolChoice))
	}
	return append(callOptions, extra...)
}
