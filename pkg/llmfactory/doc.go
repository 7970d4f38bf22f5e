// Package llmfactory creates and caches Gemini models configured per assistant and tool temperature.
package llmfactory
