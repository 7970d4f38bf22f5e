package agents_test

import (
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagents/agents"
	"github.com/effective-security/toolagents/config"
	"github.com/effective-security/toolagents/mocks/mockemail"
	"github.com/effective-security/toolagents/mocks/mockllms"
	"github.com/effective-security/toolagents/pkg/llmfactory"
	"github.com/effective-security/toolagents/pkg/llms"
	"github.com/effective-security/toolagents/pkg/prompts"
	"github.com/effective-security/toolagents/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// fakeFactory returns the same mock model, and records the requested names.
type fakeFactory struct {
	cfg   *llmfactory.Config
	llm   llms.Model
	names []string
}

func (f *fakeFactory) Config() *llmfactory.Config { return f.cfg }

func (f *fakeFactory) Model(float64) (llms.Model, error) { return f.llm, nil }

func (f *fakeFactory) AssistantModel(name string) (llms.Model, error) {
	f.names = append(f.names, "assistant:"+name)
	return f.llm, nil
}

func (f *fakeFactory) ToolModel(name string) (llms.Model, error) {
	f.names = append(f.names, "tool:"+name)
	return f.llm, nil
}

func newFactory(t *testing.T) (*fakeFactory, *mockllms.MockModel) {
	ctrl := gomock.NewController(t)
	llm := mockllms.NewMockModel(ctrl)
	llm.EXPECT().GetName().Return("gemini-test").AnyTimes()
	llm.EXPECT().GetProviderType().Return(llms.ProviderFake).AnyTimes()
	cfg, err := llmfactory.LoadConfig("")
	require.NoError(t, err)
	return &fakeFactory{cfg: cfg, llm: llm}, llm
}

func fullConfig(t *testing.T, env map[string]string) *config.Config {
	all := map[string]string{
		config.EnvGoogleAPIKey:      "gkey",
		config.EnvOpenWeatherAPIKey: "wkey",
		config.EnvEmailAddress:      "agent@example.com",
		config.EnvEmailPassword:     "secret",
		config.EnvNotesDir:          t.TempDir(),
	}
	for k, v := range env {
		all[k] = v
	}
	cfg, err := config.FromLookup(func(key string) (string, bool) {
		v, ok := all[key]
		return v, ok
	})
	require.NoError(t, err)
	return cfg
}

func toolNames(list []tools.ITool) []string {
	var names []string
	for _, t := range list {
		names = append(names, t.Name())
	}
	return names
}

func TestRegistry(t *testing.T) {
	all := agents.All()
	require.Len(t, all, 8)

	seen := map[string]bool{}
	for _, d := range all {
		assert.False(t, seen[d.Name], d.Name)
		seen[d.Name] = true
		assert.NotEmpty(t, d.Query, d.Name)
		assert.NotEmpty(t, d.PrintedQuery(), d.Name)
	}

	d, err := agents.Get(agents.FileAgent)
	require.NoError(t, err)
	assert.Equal(t, "Save this note to a file named 'meeting_notes'", d.PrintedQuery())
	assert.Contains(t, d.Query, "Action Items:")

	d, err = agents.Get(agents.WeatherAgent)
	require.NoError(t, err)
	assert.Equal(t, "What's the weather in Bangalore?", d.PrintedQuery())
	assert.Equal(t, "Weather Agent", d.Title)

	d, err = agents.Get(agents.Ask)
	require.NoError(t, err)
	assert.Empty(t, d.Title)
	assert.Nil(t, d.Tools)

	_, err = agents.Get("unknown")
	assert.ErrorIs(t, err, agents.ErrNotFound)
	assert.Panics(t, func() { agents.MustGet("unknown") })
	assert.Equal(t, agents.SearchAgent, agents.MustGet(agents.SearchAgent).Name)

	// All returns a copy
	all[0] = nil
	assert.NotNil(t, agents.All()[0])
}

func TestBuild(t *testing.T) {
	tcases := []struct {
		name  string
		env   map[string]string
		tools []string
	}{
		{name: agents.WeatherAgent, tools: []string{"get_weather"}},
		{name: agents.EmailAgent, tools: []string{"send_email"}},
		{name: agents.WeatherEmailAgent, tools: []string{"get_weather", "send_email"}},
		{name: agents.FileAgent, tools: []string{"save_note_to_file", "read_note_from_file", "list_note_files", "delete_note_file"}},
		{name: agents.SummarizeAgent, tools: []string{"summarize_text"}},
		{name: agents.CategorizeAgent, tools: []string{"categorize_note", "suggest_tags", "extract_key_entities"}},
		{name: agents.SearchAgent, tools: []string{"search_web"}},
		{name: agents.SearchAgent, env: map[string]string{config.EnvTavilyAPIKey: "tkey"}, tools: []string{"search_web", "tavily_search"}},
		{name: agents.Ask},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			factory, _ := newFactory(t)
			def, err := agents.Get(tc.name)
			require.NoError(t, err)

			a, err := agents.Build(context.Background(), def, fullConfig(t, tc.env), factory)
			require.NoError(t, err)
			assert.Equal(t, tc.name, a.Name())
			assert.Equal(t, def.Title, a.Description())
			assert.Equal(t, tc.tools, toolNames(a.GetTools()))
			assert.Equal(t, "assistant:"+tc.name, factory.names[0])
		})
	}
}

func TestBuild_Requirements(t *testing.T) {
	factory, _ := newFactory(t)
	cfg, err := config.FromLookup(func(key string) (string, bool) {
		if key == config.EnvGoogleAPIKey {
			return "gkey", true
		}
		return "", false
	})
	require.NoError(t, err)

	def, err := agents.Get(agents.WeatherEmailAgent)
	require.NoError(t, err)
	_, err = agents.Build(context.Background(), def, cfg, factory)
	assert.ErrorIs(t, err, config.ErrMissingConfig)
	assert.EqualError(t, err, "weather-email-agent requires weather: missing configuration")
	assert.Empty(t, factory.names)
}

func TestBuild_DuplicateTools(t *testing.T) {
	factory, _ := newFactory(t)
	weather, err := agents.Get(agents.WeatherAgent)
	require.NoError(t, err)

	def := &agents.Definition{
		Name: "dup",
		Tools: func(ctx context.Context, env *agents.Env) ([]tools.ITool, error) {
			a, _ := weather.Tools(ctx, env)
			b, _ := weather.Tools(ctx, env)
			return append(a, b...), nil
		},
	}
	_, err = agents.Build(context.Background(), def, fullConfig(t, nil), factory)
	assert.ErrorIs(t, err, tools.ErrDuplicateTool)

	def.Tools = func(context.Context, *agents.Env) ([]tools.ITool, error) {
		return nil, errors.New("no tools")
	}
	_, err = agents.Build(context.Background(), def, fullConfig(t, nil), factory)
	assert.EqualError(t, err, "unable to create tools for dup: no tools")
}

func TestBuild_ToolTemperature(t *testing.T) {
	factory, llm := newFactory(t)
	factory.cfg.ToolTemperatures["summarize_text"] = 0.1

	var temperature float64
	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
			temperature = llms.NewCallOptions(options...).Temperature
			return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "- AI is everywhere"}}}, nil
		})

	def, err := agents.Get(agents.SummarizeAgent)
	require.NoError(t, err)
	a, err := agents.Build(context.Background(), def, fullConfig(t, nil), factory)
	require.NoError(t, err)
	assert.Equal(t, []string{"assistant:summarize-agent", "tool:summarize_text"}, factory.names)

	res, err := a.GetTools()[0].Call(context.Background(), `{"text":"AI has revolutionized many industries."}`)
	require.NoError(t, err)
	assert.Equal(t, "- AI is everywhere", res)
	assert.Equal(t, 0.1, temperature)
}

func TestBuildWithEnv_Sender(t *testing.T) {
	factory, _ := newFactory(t)
	ctrl := gomock.NewController(t)
	sender := mockemail.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil)

	env := agents.NewEnv(fullConfig(t, nil), factory)
	env.Sender = sender

	def, err := agents.Get(agents.EmailAgent)
	require.NoError(t, err)
	a, err := agents.BuildWithEnv(context.Background(), def, env)
	require.NoError(t, err)

	res, err := a.GetTools()[0].Call(context.Background(), "user@example.com|Hello|Body")
	require.NoError(t, err)
	assert.Equal(t, "Email sent successfully to user@example.com", res)
}

func TestBuild_SystemPrompt(t *testing.T) {
	factory, llm := newFactory(t)

	def, err := agents.Get(agents.WeatherEmailAgent)
	require.NoError(t, err)
	require.NotEmpty(t, def.SystemPrompt)

	a, err := agents.Build(context.Background(), def, fullConfig(t, nil), factory)
	require.NoError(t, err)

	prompt, err := a.GetSystemPrompt(nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(prompt, "You are the Weather & Email Agent."), prompt)
	assert.Contains(t, prompt, `"Name": "get_weather"`)
	assert.Contains(t, prompt, `"Name": "send_email"`)
	assert.Contains(t, prompt, "call get_weather first and then send_email")

	var payload []llms.Message
	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			payload = messages
			return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "Nothing to send."}}}, nil
		})

	_, err = a.Invoke(context.Background(), []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "Hi"),
	})
	require.NoError(t, err)
	require.Len(t, payload, 2)
	assert.Equal(t, llms.RoleSystem, payload[0].Role)
	assert.Equal(t, prompt, payload[0].GetText())
	assert.Equal(t, llms.RoleHuman, payload[1].Role)

	// the agents without a prompt send the conversation only
	weather, err := agents.Get(agents.WeatherAgent)
	require.NoError(t, err)
	assert.Empty(t, weather.SystemPrompt)
	a, err = agents.Build(context.Background(), weather, fullConfig(t, nil), factory)
	require.NoError(t, err)
	prompt, err = a.GetSystemPrompt(nil)
	require.NoError(t, err)
	assert.Empty(t, prompt)
}

func TestBuild_InvalidSystemPrompt(t *testing.T) {
	factory, _ := newFactory(t)
	def := &agents.Definition{
		Name:         "broken",
		SystemPrompt: "You are {{ .agent",
	}
	_, err := agents.Build(context.Background(), def, fullConfig(t, nil), factory)
	require.Error(t, err)
	assert.ErrorIs(t, err, prompts.ErrInvalidTemplate)
	assert.Contains(t, err.Error(), "invalid system prompt for broken")

	// the title defaults to the name
	def.SystemPrompt = "You are {{ .agent }}."
	a, err := agents.Build(context.Background(), def, fullConfig(t, nil), factory)
	require.NoError(t, err)
	prompt, err := a.GetSystemPrompt(nil)
	require.NoError(t, err)
	assert.Equal(t, "You are broken.", prompt)
}
