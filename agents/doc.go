// Package agents defines the demo agents: the tools each one gets,
// the configuration it requires and the query it runs.
package agents
