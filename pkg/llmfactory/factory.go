package llmfactory

import (
	"context"
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagents/pkg/llms"
	"github.com/effective-security/toolagents/pkg/llms/googleai"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagents", "llmfactory")

// NewLLM is a wrapper for CreateLLM to allow for overriding the default implementation.
var NewLLM = CreateLLM

// Factory is the interface for creating and managing LLM models.
type Factory interface {
	// Config returns the factory configuration.
	Config() *Config
	// Model returns a model with the given default temperature.
	Model(temperature float64) (llms.Model, error)
	// AssistantModel returns a model for the assistant by its name.
	AssistantModel(assistantName string) (llms.Model, error)
	// ToolModel returns a model for the tool by its name.
	ToolModel(toolName string) (llms.Model, error)
}

// Load returns a factory from the config file,
// model and apiKey are used when the file does not specify them.
func Load(location, model, apiKey string) (Factory, error) {
	cfg, err := LoadConfig(location)
	if err != nil {
		return nil, err
	}
	return New(cfg.WithDefaults(model, apiKey)), nil
}

type factory struct {
	cfg *Config

	byTemperature map[string]llms.Model
	lock          sync.Mutex
}

// New creates a new LLM factory
func New(cfg *Config) Factory {
	return &factory{
		cfg:           cfg.withDefaults(),
		byTemperature: make(map[string]llms.Model),
	}
}

// CreateLLM returns a Gemini model for the config and temperature.
func CreateLLM(cfg *Config, temperature float64) (llms.Model, error) {
	opts := []googleai.Option{
		googleai.WithDefaultModel(cfg.Model),
		googleai.WithDefaultTemperature(temperature),
	}
	if cfg.APIKey != "" {
		opts = append(opts, googleai.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, googleai.WithBaseURL(cfg.BaseURL))
	}
	return googleai.New(context.Background(), opts...)
}

func (f *factory) Config() *Config {
	return f.cfg
}

func (f *factory) Model(temperature float64) (llms.Model, error) {
	if temperature < 0 || temperature > 2 {
		return nil, errors.Errorf("invalid temperature: %v", temperature)
	}

	key := strconv.FormatFloat(temperature, 'f', -1, 64)

	f.lock.Lock()
	defer f.lock.Unlock()

	if model, ok := f.byTemperature[key]; ok {
		return model, nil
	}

	model, err := NewLLM(f.cfg, temperature)
	if err != nil {
		return nil, err
	}

	logger.KV(xlog.DEBUG,
		"status", "created_llm",
		"model", f.cfg.Model,
		"temperature", key)

	f.byTemperature[key] = model
	return model, nil
}

// AssistantModel returns an assistant model by its name.
func (f *factory) AssistantModel(assistantName string) (llms.Model, error) {
	return f.Model(f.cfg.AssistantTemperatureFor(assistantName))
}

// ToolModel returns a tool model by its name.
func (f *factory) ToolModel(toolName string) (llms.Model, error) {
	return f.Model(f.cfg.ToolTemperatureFor(toolName))
}
