// Package driver runs a demo agent end to end: it loads the configuration,
// builds the model and the agent, runs the agent query and prints the result.
package driver
