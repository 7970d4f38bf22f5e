package agents

import (
	"context"
	"net/http"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagents/assistants"
	"github.com/effective-security/toolagents/config"
	"github.com/effective-security/toolagents/pkg/llmfactory"
	"github.com/effective-security/toolagents/pkg/prompts"
	"github.com/effective-security/toolagents/tools"
	"github.com/effective-security/toolagents/tools/email"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagents", "agents")

// ErrNotFound is returned by Get for an unknown agent.
var ErrNotFound = errors.New("agent not found")

// Env provides the dependencies of the tools.
type Env struct {
	Config  *config.Config
	Factory llmfactory.Factory
	// HTTPClient is used by the tools calling REST APIs.
	HTTPClient *http.Client
	// Sender delivers the emails, SMTP from Config when nil.
	Sender email.Sender
}

// ToolsFunc returns the tools of an agent.
type ToolsFunc func(ctx context.Context, env *Env) ([]tools.ITool, error)

// Definition describes a demo agent.
type Definition struct {
	// Name is the agent and binary name, e.g. weather-agent
	Name string
	// Title is printed in the banner, empty for no banner.
	Title string
	// Capabilities are printed as a numbered list after the title.
	Capabilities []string
	// Examples are example queries printed in the banner.
	Examples []string
	// Notes are printed after the examples.
	Notes []string
	// Query is the hard-coded query sent to the agent.
	Query string
	// DisplayQuery is printed instead of Query when the query is long.
	DisplayQuery string
	// Requirements are the configuration values needed by the tools.
	Requirements []config.Requirement
	// SystemPrompt is an optional template of the system message,
	// `{{.agent}}` is the title and `{{.tools}}` the tool descriptions.
	SystemPrompt string
	// Tools returns the tools, nil for a plain completion.
	Tools ToolsFunc
}

// PrintedQuery returns the query as printed by the driver.
func (d *Definition) PrintedQuery() string {
	if d.DisplayQuery != "" {
		return d.DisplayQuery
	}
	return d.Query
}

// All returns the definitions in registration order.
func All() []*Definition {
	return slices.Clone(registry)
}

// Get returns the definition by name.
func Get(name string) (*Definition, error) {
	for _, d := range registry {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, errors.Wrapf(ErrNotFound, "%s", name)
}

// MustGet returns the definition by name, and panics if not found.
func MustGet(name string) *Definition {
	d, err := Get(name)
	if err != nil {
		panic(err)
	}
	return d
}

// NewEnv returns the tools environment for the configuration.
func NewEnv(cfg *config.Config, factory llmfactory.Factory) *Env {
	return &Env{
		Config:     cfg,
		Factory:    factory,
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

// Build returns the assistant for the definition.
// The configuration must satisfy the definition requirements.
func Build(ctx context.Context, def *Definition, cfg *config.Config, factory llmfactory.Factory, opts ...assistants.Option) (*assistants.Assistant, error) {
	return BuildWithEnv(ctx, def, NewEnv(cfg, factory), opts...)
}

// BuildWithEnv returns the assistant for the definition with the tools environment.
func BuildWithEnv(ctx context.Context, def *Definition, env *Env, opts ...assistants.Option) (*assistants.Assistant, error) {
	for _, req := range def.Requirements {
		if !env.Config.Has(req) {
			return nil, errors.Wrapf(config.ErrMissingConfig, "%s requires %s", def.Name, req.Name)
		}
	}

	model, err := env.Factory.AssistantModel(def.Name)
	if err != nil {
		return nil, errors.WithMessagef(err, "unable to create model for %s", def.Name)
	}

	var list []tools.ITool
	if def.Tools != nil {
		list, err = def.Tools(ctx, env)
		if err != nil {
			return nil, errors.WithMessagef(err, "unable to create tools for %s", def.Name)
		}
	}

	// the registry rejects duplicate names
	reg, err := tools.NewRegistry(list...)
	if err != nil {
		return nil, errors.WithMessagef(err, "invalid tools for %s", def.Name)
	}

	var sysprompt *prompts.PromptTemplate
	if def.SystemPrompt != "" {
		sysprompt, err = prompts.NewPromptTemplate(def.SystemPrompt, []string{"agent", "tools"})
		if err != nil {
			return nil, errors.WithMessagef(err, "invalid system prompt for %s", def.Name)
		}
		opts = append([]assistants.Option{
			assistants.WithPromptInput(map[string]any{"agent": values.StringsCoalesce(def.Title, def.Name)}),
		}, opts...)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"agent", def.Name,
		"model", model.GetName(),
		"tools", reg.Names(),
		"sysprompt", sysprompt != nil,
	)

	return assistants.NewAssistant(model, sysprompt, opts...).
		WithName(def.Name).
		WithDescription(def.Title).
		WithTools(reg.Tools()...), nil
}
