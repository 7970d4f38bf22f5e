package tools

import (
	"context"
	"strings"
	"time"

	"github.com/effective-security/toolagents/pkg/llms"
	"github.com/effective-security/toolagents/pkg/llmutils"
	"github.com/effective-security/toolagents/pkg/metricskey"
	"github.com/effective-security/toolagents/pkg/prompts"
)

// Generate renders the prompt and returns the trimmed completion of the model.
// It is used by the tools backed by a helper model call.
func Generate(ctx context.Context, name string, llm llms.Model, prompt *prompts.PromptTemplate, values map[string]any, temperature float64) (string, error) {
	text, err := prompt.Format(values)
	if err != nil {
		return "", err
	}

	started := time.Now()
	defer metricskey.PerfLLMCall.MeasureSince(started, name, llm.GetName())

	res, err := llms.GenerateFromSinglePrompt(ctx, llm, text, llms.WithTemperature(temperature))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(llmutils.TrimBackticks(res)), nil
}
