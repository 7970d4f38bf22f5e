package driver

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagents/agents"
	"github.com/effective-security/toolagents/assistants"
	"github.com/effective-security/toolagents/callbacks"
	"github.com/effective-security/toolagents/chatmodel"
	"github.com/effective-security/toolagents/config"
	"github.com/effective-security/toolagents/pkg/llmfactory"
	"github.com/effective-security/toolagents/pkg/llms"
	"github.com/effective-security/toolagents/pkg/llmutils"
	"github.com/effective-security/toolagents/store"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagents", "driver")

// HistoryPrefix is the prefix of the redis keys of the message history.
const HistoryPrefix = "toolagents"

var logLevels = map[string]xlog.LogLevel{
	"TRACE":    xlog.TRACE,
	"DEBUG":    xlog.DEBUG,
	"INFO":     xlog.INFO,
	"NOTICE":   xlog.NOTICE,
	"WARNING":  xlog.WARNING,
	"ERROR":    xlog.ERROR,
	"CRITICAL": xlog.CRITICAL,
}

// Main runs the agent and exits the process with a non-zero code on error.
// Configuration errors are reported before any model or tool is built.
func Main(def *agents.Definition) {
	cfg, err := config.Load(def.Requirements...)
	if err != nil {
		fatal(def, err)
	}
	SetupLogging(os.Stderr, cfg.LogLevel)

	factory, err := llmfactory.Load(cfg.LLMConfig, cfg.GoogleModel, cfg.GoogleAPIKey)
	if err != nil {
		fatal(def, err)
	}

	runner := &Runner{
		Config:  cfg,
		Factory: factory,
		Out:     os.Stdout,
	}
	if err = runner.Run(context.Background(), def); err != nil {
		fatal(def, err)
	}
}

func fatal(def *agents.Definition, err error) {
	logger.KV(xlog.ERROR,
		"agent", def.Name,
		"err", err.Error(),
	)
	fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
	os.Exit(1)
}

// SetupLogging sets the text formatter and the global log level.
func SetupLogging(w io.Writer, level string) {
	xlog.SetFormatter(xlog.NewStringFormatter(w))
	if l, ok := logLevels[strings.ToUpper(level)]; ok {
		xlog.SetGlobalLogLevel(l)
	}
}

// Runner runs one agent query.
type Runner struct {
	Config  *config.Config
	Factory llmfactory.Factory
	Out     io.Writer
	// Env overrides the tools environment built from Config.
	Env *agents.Env
	// Store overrides the history store built from Config.RedisURL.
	Store store.ChatStore
}

// Run prints the banner and the query, invokes the agent and prints the result.
// A definition without Title prints the answer only.
func (r *Runner) Run(ctx context.Context, def *agents.Definition) error {
	plain := def.Title == ""
	if !plain {
		printBanner(r.Out, def)
		fmt.Fprintf(r.Out, "Query: %s\n\n", def.PrintedQuery())
	}

	history, err := r.historyStore()
	if err != nil {
		return err
	}

	chatID := ""
	if history != nil {
		// a stable chat ID lets later runs of the agent see earlier turns
		chatID = def.Name
	}
	ctx = chatmodel.WithChatContext(ctx, chatmodel.NewChatContext(chatID, nil))

	stats := callbacks.NewStats()
	cb := callbacks.NewFanout(
		callbacks.NewPackageLogger(logger),
		stats,
	)
	if !plain {
		cb.Add(callbacks.NewPrinter(r.Out, callbacks.ModeVerbose))
	}

	opts := []assistants.Option{assistants.WithCallback(cb)}
	if history != nil {
		if _, err = history.UpdateChat(ctx, def.Title, map[string]any{"agent": def.Name}); err != nil {
			return errors.WithMessage(err, "unable to update chat")
		}
		opts = append(opts, assistants.WithStore(history))
	}

	env := r.Env
	if env == nil {
		env = agents.NewEnv(r.Config, r.Factory)
	}
	agent, err := agents.BuildWithEnv(ctx, def, env, opts...)
	if err != nil {
		return err
	}

	stats.StartRun(ctx)
	messages, err := agent.Invoke(ctx, []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, def.Query),
	})
	if st := stats.EndRun(ctx); st != nil {
		logger.ContextKV(ctx, xlog.INFO,
			"agent", def.Name,
			"chat_id", st.ChatID,
			"duration", st.Duration.String(),
			"llm_calls", st.LLMCalls,
			"tool_calls", st.ToolCalls,
			"tool_failed", st.ToolFailed,
			"tokens", st.LLMTotalTokens,
		)
		logger.ContextKV(ctx, xlog.DEBUG, "stats", llmutils.ToYAML(st))
	}
	if err != nil {
		return err
	}

	var conversation strings.Builder
	llmutils.PrintMessages(&conversation, messages)
	logger.ContextKV(ctx, xlog.TRACE, "conversation", conversation.String())

	if plain {
		fmt.Fprintln(r.Out, LastText(messages))
	} else {
		fmt.Fprintf(r.Out, "\nResult: %s\n", LastText(messages))
	}
	return nil
}

func (r *Runner) historyStore() (store.ChatStore, error) {
	if r.Store != nil {
		return r.Store, nil
	}
	if r.Config == nil || r.Config.RedisURL == "" {
		return nil, nil
	}
	client, err := store.NewRedisClient(r.Config.RedisURL)
	if err != nil {
		return nil, errors.WithMessage(err, "unable to connect to redis")
	}
	return store.NewRedisStore(client, HistoryPrefix), nil
}

func printBanner(w io.Writer, def *agents.Definition) {
	fmt.Fprintf(w, "%s is ready!\n", def.Title)
	if len(def.Capabilities) > 0 {
		fmt.Fprintln(w, "This agent can:")
		for i, c := range def.Capabilities {
			fmt.Fprintf(w, "%d. %s\n", i+1, c)
		}
		fmt.Fprintln(w)
	}
	if len(def.Examples) > 0 {
		fmt.Fprintln(w, "Example queries:")
		for _, q := range def.Examples {
			fmt.Fprintf(w, "- '%s'\n", q)
		}
	}
	if len(def.Notes) > 0 {
		fmt.Fprintln(w)
		for _, n := range def.Notes {
			fmt.Fprintln(w, n)
		}
	}
	fmt.Fprintf(w, "\n%s\n\n", strings.Repeat("=", 50))
}

// LastText returns the text of the last message,
// or its printable content when it has no text parts.
func LastText(messages []llms.Message) string {
	if len(messages) == 0 {
		return ""
	}
	last := messages[len(messages)-1]
	if text := last.GetText(); text != "" {
		return text
	}
	return strings.TrimRight(last.GetContent(), "\n")
}
