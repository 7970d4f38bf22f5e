package llms

import (
	"context"
)

// ProviderType is the type of provider.
type ProviderType string

const (
	// ProviderGoogleAI is the Gemini API provider.
	ProviderGoogleAI ProviderType = "GOOGLEAI"
	// ProviderFake is used by tests and offline runs.
	ProviderFake ProviderType = "FAKE"
)

//go:generate mockgen -destination=../../mocks/mockllms/llm_mock.gen.go -package mockllms github.com/effective-security/toolagents/pkg/llms Model

// Model is an interface multi-modal models implement.
type Model interface {
	// GetName returns the model name, e.g. gemini-2.5-flash.
	GetName() string
	// GetProviderType returns the type of provider.
	GetProviderType() ProviderType
	// GenerateContent asks the model to generate content from a sequence of
	// messages. It's the most general interface for multi-modal LLMs that support
	// chat-like interactions.
	GenerateContent(ctx context.Context, messages []Message, options ...CallOption) (*ContentResponse, error)
}

// Capability is a bitmask indicating supported features of an LLM provider.
type Capability uint64

const (
	// Basic text or chat generation
	CapabilityText Capability = 1 << iota

	// Structured response formats
	CapabilityJSONResponse

	// Function/tool calling
	CapabilityFunctionCalling
	CapabilityMultiToolCalling

	// System prompt support
	CapabilitySystemPrompt
)

var providerCapabilities = map[ProviderType]Capability{
	ProviderGoogleAI: CapabilityText |
		CapabilitySystemPrompt |
		CapabilityJSONResponse |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling,

	ProviderFake: CapabilityText |
		CapabilitySystemPrompt |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling,
}

func ProviderCapabilities(pt ProviderType) Capability {
	return providerCapabilities[pt]
}

func (p ProviderType) Supports(cap Capability) bool {
	return ProviderCapabilities(p)&cap != 0
}
