// Package tools defines the tool contract used by agents: a named, described
// callable with a JSON schema for its parameters.
//
// A tool never fails the agent run: Call renders every failure as text the
// model can reason about, while Run keeps the typed *Error so callers can
// tell validation, network, upstream and not-found failures apart.
package tools
