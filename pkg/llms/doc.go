// Package llms defines the provider-neutral types used to talk to a hosted chat model:
// messages made of typed parts, tool definitions, call options and responses.
//
// The `llms.go` file contains the Model interface and provider capabilities.
//
// The `options.go` file provides the call options, including the sampling temperature.
//
// Provider implementations live in subpackages, see googleai.
package llms
