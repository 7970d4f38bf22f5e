package llmfactory

import (
	"maps"

	"github.com/effective-security/x/configloader"
	"github.com/effective-security/x/values"
)

const (
	// DefaultModel is the Gemini model used when none is configured.
	DefaultModel = "gemini-2.5-flash"
	// DefaultAssistantTemperature is used by agents that call tools.
	DefaultAssistantTemperature = 0.7
)

// Config specifies the Gemini model and sampling temperatures.
type Config struct {
	// Model is the Gemini model name, e.g. gemini-2.5-flash
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
	// APIKey is the Gemini API key
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	// BaseURL overrides the Gemini API endpoint
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// AssistantTemperature is the default temperature for assistants.
	AssistantTemperature *float64 `json:"assistant_temperature,omitempty" yaml:"assistant_temperature,omitempty"`
	// AssistantTemperatures overrides the temperature per assistant name.
	AssistantTemperatures map[string]float64 `json:"assistant_temperatures,omitempty" yaml:"assistant_temperatures,omitempty"`
	// ToolTemperatures specifies the temperature per tool name,
	// for tools that make their own model calls.
	ToolTemperatures map[string]float64 `json:"tool_temperatures,omitempty" yaml:"tool_temperatures,omitempty"`
}

// DefaultToolTemperatures returns the temperatures of the tools backed by the model.
func DefaultToolTemperatures() map[string]float64 {
	return map[string]float64{
		"summarize_text":       0.3,
		"categorize_note":      0.3,
		"suggest_tags":         0.4,
		"extract_key_entities": 0.2,
	}
}

// DefaultAssistantTemperatures returns the per assistant overrides.
func DefaultAssistantTemperatures() map[string]float64 {
	return map[string]float64{
		// plain completion, deterministic
		"ask": 0,
	}
}

// LoadConfig from file, an empty file name returns the defaults.
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file != "" {
		err := configloader.UnmarshalAndExpand(file, cfg)
		if err != nil {
			return nil, err
		}
	}
	return cfg.withDefaults(), nil
}

// WithDefaults returns a copy of the config with the model and key
// populated from the provided values when not set.
func (c *Config) WithDefaults(model, apiKey string) *Config {
	cp := *c
	cp.Model = values.StringsCoalesce(cp.Model, model)
	cp.APIKey = values.StringsCoalesce(cp.APIKey, apiKey)
	return cp.withDefaults()
}

func (c *Config) withDefaults() *Config {
	cp := *c
	cp.Model = values.StringsCoalesce(cp.Model, DefaultModel)
	if cp.AssistantTemperature == nil {
		t := DefaultAssistantTemperature
		cp.AssistantTemperature = &t
	}

	at := DefaultAssistantTemperatures()
	maps.Copy(at, c.AssistantTemperatures)
	cp.AssistantTemperatures = at

	tt := DefaultToolTemperatures()
	maps.Copy(tt, c.ToolTemperatures)
	cp.ToolTemperatures = tt
	return &cp
}

// AssistantTemperatureFor returns the temperature for the assistant.
func (c *Config) AssistantTemperatureFor(name string) float64 {
	if t, ok := c.AssistantTemperatures[name]; ok {
		return t
	}
	if c.AssistantTemperature != nil {
		return *c.AssistantTemperature
	}
	return DefaultAssistantTemperature
}

// ToolTemperatureFor returns the temperature for the tool,
// or the assistant default when the tool is not configured.
func (c *Config) ToolTemperatureFor(name string) float64 {
	if t, ok := c.ToolTemperatures[name]; ok {
		return t
	}
	return c.AssistantTemperatureFor("")
}
