package llms_test

import (
	"testing"

	"github.com/effective-security/toolagents/pkg/llms"
	"github.com/stretchr/testify/assert"
)

func TestOptions(t *testing.T) {
	t.Parallel()
	tools := []llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name: "test",
			},
		},
	}
	meta := map[string]any{"test": "test"}

	opts := llms.NewCallOptions(
		llms.WithModel("gemini-2.5-flash"),
		llms.WithMaxTokens(100),
		llms.WithCandidateCount(1),
		llms.WithTemperature(0.5),
		llms.WithStopWords([]string{"stop"}),
		llms.WithTopK(10),
		llms.WithTopP(0.5),
		llms.WithSeed(123),
		llms.WithTools(tools),
		llms.WithToolChoice("auto"),
		llms.WithMetadata(meta),
	)

	assert.Equal(t, "gemini-2.5-flash", opts.Model)
	assert.Equal(t, 100, opts.MaxTokens)
	assert.Equal(t, 1, opts.CandidateCount)
	assert.Equal(t, 0.5, opts.Temperature)
	assert.True(t, opts.TemperatureSet())
	assert.Equal(t, []string{"stop"}, opts.StopWords)
	assert.Equal(t, 10, opts.TopK)
	assert.Equal(t, 0.5, opts.TopP)
	assert.Equal(t, 123, opts.Seed)
	assert.Equal(t, tools, opts.Tools)
	assert.Equal(t, "auto", opts.ToolChoice)
	assert.Equal(t, meta, opts.Metadata)

	assert.False(t, llms.NewCallOptions().TemperatureSet())
}

func TestProviderCapabilities(t *testing.T) {
	t.Parallel()
	assert.True(t, llms.ProviderGoogleAI.Supports(llms.CapabilityFunctionCalling))
	assert.True(t, llms.ProviderGoogleAI.Supports(llms.CapabilitySystemPrompt))
	assert.False(t, llms.ProviderFake.Supports(llms.CapabilityJSONResponse))
	assert.False(t, llms.ProviderType("unknown").Supports(llms.CapabilityText))
}
