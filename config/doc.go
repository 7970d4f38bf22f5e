// Package config loads the agent settings from the environment and an optional dotenv file.
package config
