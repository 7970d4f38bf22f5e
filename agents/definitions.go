package agents

import (
	"context"
	"strings"

	"github.com/effective-security/toolagents/config"
	"github.com/effective-security/toolagents/tools"
	"github.com/effective-security/toolagents/tools/categorize"
	"github.com/effective-security/toolagents/tools/email"
	"github.com/effective-security/toolagents/tools/notes"
	"github.com/effective-security/toolagents/tools/summarize"
	"github.com/effective-security/toolagents/tools/tavily"
	"github.com/effective-security/toolagents/tools/weather"
	"github.com/effective-security/toolagents/tools/websearch"
)

// Names of the agents
const (
	WeatherAgent      = "weather-agent"
	EmailAgent        = "email-agent"
	WeatherEmailAgent = "weather-email-agent"
	FileAgent         = "file-agent"
	SummarizeAgent    = "summarize-agent"
	CategorizeAgent   = "categorize-agent"
	SearchAgent       = "search-agent"
	Ask               = "ask"
)

const meetingNotes = `Meeting Notes - AI Project Discussion
    
    Date: 2024-01-15
    Participants: Team members
    
    Key Points:
    1. Discussed new AI agent features
    2. Planned integration with notes app
    3. Next steps: Implement web search agent
    
    Action Items:
    - Review agent suggestions
    - Start implementation
    `

const exampleNote = `Meeting Notes - AI Project Discussion
    
    Date: January 15, 2024
    Participants: John Smith, Sarah Johnson, Mike Chen
    
    We discussed the implementation of new AI agents for our notes application.
    The team at TechCorp is interested in integrating our LangChain-based agents.
    Next meeting scheduled for February 1st.
    
    Key topics: Machine learning, Natural language processing, API integration
    `

var exampleText = strings.Join([]string{
	"",
	"    Artificial Intelligence (AI) has revolutionized many industries in recent years. ",
	"    Machine learning algorithms can now process vast amounts of data and make predictions ",
	"    with remarkable accuracy. Natural language processing enables computers to understand ",
	"    and generate human language. Computer vision allows machines to interpret visual ",
	"    information. These technologies are being applied in healthcare, finance, transportation, ",
	"    and many other sectors. However, there are also concerns about job displacement, ",
	"    privacy, and the ethical implications of AI systems. As AI continues to advance, ",
	"    it's important to balance innovation with responsible development and regulation.",
	"    ",
}, "\n")

const weatherEmailPrompt = `You are the {{ .agent }}. You have access to the following tools:
{{ .tools }}
When asked to email the weather, call get_weather first and then send_email with the weather report in the body.
Finish with a short confirmation of what was sent and to whom.`

var registry = []*Definition{
	{
		Name:  WeatherAgent,
		Title: "Weather Agent",
		Examples: []string{
			"What's the weather in Bangalore yesterday?",
			"Get weather for New York",
			"How's the weather in Tokyo?",
		},
		Query:        "What's the weather in Bangalore?",
		Requirements: []config.Requirement{config.RequireWeather},
		Tools:        weatherTools,
	},
	{
		Name:  EmailAgent,
		Title: "Email Agent",
		Examples: []string{
			"Send an email to user@example.com with subject Hello and body This is a test email",
			"Email user@example.com saying Happy Birthday with subject Birthday Wishes",
		},
		Query: "Send an email to aadityamohit0308@gmail.com with subject 'Test Email from AI Agent' and body " +
			"'Hello! This is a test email sent from the LangChain AI email agent. The agent is working correctly!'",
		Requirements: []config.Requirement{config.RequireEmail},
		Tools:        emailTools,
	},
	{
		Name:  WeatherEmailAgent,
		Title: "Weather & Email Agent",
		Capabilities: []string{
			"Get weather information for any city",
			"Send emails with weather information",
		},
		Examples: []string{
			"Get the weather in Bangalore and send it to aadityamohit0308@gmail.com",
			"What's the weather in New York? Send it to user@example.com",
			"Get weather for Tokyo and email it to me at aadityamohit0308@gmail.com",
		},
		Query:        "Get the weather in Bangalore and send it to aadityamohit0308@gmail.com with subject 'Weather Update for Bangalore'",
		SystemPrompt: weatherEmailPrompt,
		Requirements: []config.Requirement{config.RequireWeather, config.RequireEmail},
		Tools:        combine(weatherTools, emailTools),
	},
	{
		Name:  FileAgent,
		Title: "File Operations Agent",
		Examples: []string{
			"Save this note: [content]",
			"Read the note file: [filename]",
			"List all my note files",
			"Delete the note file: [filename]",
		},
		Query:        "Save this note to a file named 'meeting_notes': " + meetingNotes,
		DisplayQuery: "Save this note to a file named 'meeting_notes'",
		Tools:        noteTools,
	},
	{
		Name:  SummarizeAgent,
		Title: "Summarization Agent",
		Examples: []string{
			"Summarize this text: [your text here]",
			"Create bullet points from this note: [note content]",
			"Give me a paragraph summary of: [text]",
		},
		Query:        "Summarize this text in bullet points: " + exampleText,
		DisplayQuery: "Summarize this text in bullet points",
		Tools:        summarizeTools,
	},
	{
		Name:  CategorizeAgent,
		Title: "Note Categorization Agent",
		Examples: []string{
			"Categorize this note: [note content]",
			"Suggest tags for: [note content]",
			"Extract entities from: [note content]",
		},
		Query:        "Categorize this note and suggest tags: " + exampleNote,
		DisplayQuery: "Categorize this note and suggest tags",
		Tools:        categorizeTools,
	},
	{
		Name:  SearchAgent,
		Title: "Web Search Agent",
		Examples: []string{
			"Search for latest AI news",
			"Find information about Python decorators",
			"What are the latest developments in LangChain?",
		},
		Notes: []string{
			"Note: For better results, add SERPER_API_KEY to your .env file",
			"Get a free API key at: https://serper.dev",
		},
		Query: "What are the latest developments in LangChain?",
		Tools: searchTools,
	},
	{
		Name:  Ask,
		Query: "What is the capital of France?",
	},
}

func combine(list ...ToolsFunc) ToolsFunc {
	return func(ctx context.Context, env *Env) ([]tools.ITool, error) {
		var res []tools.ITool
		for _, fn := range list {
			ts, err := fn(ctx, env)
			if err != nil {
				return nil, err
			}
			res = append(res, ts...)
		}
		return res, nil
	}
}

func weatherTools(_ context.Context, env *Env) ([]tools.ITool, error) {
	t := weather.New(env.Config.OpenWeatherAPIKey).
		WithBaseURL(env.Config.OpenWeatherBaseURL).
		WithHTTPClient(env.HTTPClient)
	return []tools.ITool{t}, nil
}

func emailTools(_ context.Context, env *Env) ([]tools.ITool, error) {
	sender := env.Sender
	if sender == nil {
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:     env.Config.SMTPServer,
			Port:     env.Config.SMTPPort,
			Username: env.Config.EmailAddress,
			Password: env.Config.EmailPassword,
			Timeout:  env.Config.HTTPTimeout,
		})
	}
	return []tools.ITool{email.New(env.Config.EmailAddress, sender)}, nil
}

func noteTools(_ context.Context, env *Env) ([]tools.ITool, error) {
	s, err := notes.NewStore(env.Config.NotesDir)
	if err != nil {
		return nil, err
	}
	return []tools.ITool{
		notes.NewSaveTool(s),
		notes.NewReadTool(s),
		notes.NewListTool(s),
		notes.NewDeleteTool(s),
	}, nil
}

func summarizeTools(_ context.Context, env *Env) ([]tools.ITool, error) {
	llm, err := env.Factory.ToolModel(summarize.ToolName)
	if err != nil {
		return nil, err
	}
	temp := env.Factory.Config().ToolTemperatureFor(summarize.ToolName)
	return []tools.ITool{summarize.New(llm).WithTemperature(temp)}, nil
}

func categorizeTools(_ context.Context, env *Env) ([]tools.ITool, error) {
	cfg := env.Factory.Config()

	catLLM, err := env.Factory.ToolModel(categorize.CategorizeToolName)
	if err != nil {
		return nil, err
	}
	tagsLLM, err := env.Factory.ToolModel(categorize.TagsToolName)
	if err != nil {
		return nil, err
	}
	entLLM, err := env.Factory.ToolModel(categorize.EntitiesToolName)
	if err != nil {
		return nil, err
	}

	return []tools.ITool{
		categorize.NewCategorizeTool(catLLM).WithTemperature(cfg.ToolTemperatureFor(categorize.CategorizeToolName)),
		categorize.NewTagsTool(tagsLLM).WithTemperature(cfg.ToolTemperatureFor(categorize.TagsToolName)),
		categorize.NewEntitiesTool(entLLM).WithTemperature(cfg.ToolTemperatureFor(categorize.EntitiesToolName)),
	}, nil
}

func searchTools(_ context.Context, env *Env) ([]tools.ITool, error) {
	list := []tools.ITool{
		websearch.New(env.Config.SerperAPIKey).WithHTTPClient(env.HTTPClient),
	}
	if env.Config.TavilyAPIKey != "" {
		t, err := tavily.New(env.Config.TavilyAPIKey)
		if err != nil {
			return nil, err
		}
		if env.HTTPClient != nil {
			t = t.WithHTTPClient(env.HTTPClient)
		}
		list = append(list, t)
	}
	return list, nil
}
