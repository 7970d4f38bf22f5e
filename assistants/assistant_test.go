package assistants_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagents/assistants"
	"github.com/effective-security/toolagents/chatmodel"
	"github.com/effective-security/toolagents/mocks/mockllms"
	"github.com/effective-security/toolagents/mocks/mocktools"
	"github.com/effective-security/toolagents/pkg/llms"
	"github.com/effective-security/toolagents/pkg/prompts"
	"github.com/effective-security/toolagents/store"
	"github.com/effective-security/toolagents/tools"
	"github.com/google/go-cmp/cmp"
	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newLLM(ctrl *gomock.Controller) *mockllms.MockModel {
	m := mockllms.NewMockModel(ctrl)
	m.EXPECT().GetName().Return("gemini-test").AnyTimes()
	m.EXPECT().GetProviderType().Return(llms.ProviderFake).AnyTimes()
	return m
}

func newTool(ctrl *gomock.Controller, name string) *mocktools.MockITool {
	t := mocktools.NewMockITool(ctrl)
	t.EXPECT().Name().Return(name).AnyTimes()
	t.EXPECT().Description().Return("Use " + name).AnyTimes()
	t.EXPECT().Parameters().Return(&jsonschema.Schema{Type: "object"}).AnyTimes()
	return t
}

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text, StopReason: "STOP"}},
	}
}

func toolCallResponse(id, name, args string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				ToolCalls: []llms.ToolCall{
					{
						ID:   id,
						Type: "function",
						FunctionCall: &llms.FunctionCall{
							Name:      name,
							Arguments: args,
						},
					},
				},
			},
		},
	}
}

type generateFunc = func(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error)

// capture records the payloads and returns the responses in order.
func capture(payloads *[][]llms.Message, responses ...*llms.ContentResponse) generateFunc {
	var idx int
	return func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
		*payloads = append(*payloads, messages)
		resp := responses[idx]
		if idx < len(responses)-1 {
			idx++
		}
		return resp, nil
	}
}

func human(text string) llms.Message {
	return llms.MessageFromTextParts(llms.RoleHuman, text)
}

func Test_Assistant_Builder(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := newLLM(ctrl)

	cb := &recorder{}
	a := assistants.NewAssistant(llm, nil, assistants.WithCallback(cb))
	assert.Equal(t, "Generic Assistant", a.Name())
	assert.NotEmpty(t, a.Description())
	assert.Same(t, cb, a.GetCallback())
	assert.Empty(t, a.GetTools())
	assert.Empty(t, a.LastRunMessages())

	a = a.WithName("weather-agent").WithDescription("Weather")
	assert.Equal(t, "weather-agent", a.Name())
	assert.Equal(t, "Weather", a.Description())

	w := newTool(ctrl, "get_weather")
	dup := newTool(ctrl, "GET_WEATHER")
	e := newTool(ctrl, "send_email")
	a.WithTools(w, nil, dup, e)
	require.Len(t, a.GetTools(), 2)
	assert.Equal(t, "get_weather", a.GetTools()[0].Name())
	assert.Equal(t, "send_email", a.GetTools()[1].Name())

	prompt, err := a.GetSystemPrompt(nil)
	require.NoError(t, err)
	assert.Empty(t, prompt)

	a = assistants.NewAssistant(llm, prompts.MustPromptTemplate("You are {{ .role }}.\nTools:{{ .tools }}\n\n", "role"),
		assistants.WithPromptInput(map[string]any{"role": "helpful"})).
		WithTools(w)

	prompt, err = a.GetSystemPrompt(nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(prompt, "You are helpful.\nTools:"))
	assert.Contains(t, prompt, `"Name": "get_weather"`)
	assert.False(t, strings.HasSuffix(prompt, "\n"))

	prompt, err = a.GetSystemPrompt(map[string]any{"role": "concise", "tools": "none"})
	require.NoError(t, err)
	assert.Equal(t, "You are concise.\nTools:none", prompt)

	a = assistants.NewAssistant(llm, prompts.MustPromptTemplate("You are {{ .role }}.", "role"))
	_, err = a.GetSystemPrompt(nil)
	assert.ErrorIs(t, err, prompts.ErrMissingInputVariable)

	_, err = a.Invoke(context.Background(), []llms.Message{human("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to format system prompt")
}

func Test_Assistant_NoTools(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := newLLM(ctrl)

	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
			opts := llms.NewCallOptions(options...)
			assert.Empty(t, opts.Tools)
			assert.True(t, opts.TemperatureSet())
			assert.Equal(t, 0.0, opts.Temperature)
			require.Len(t, messages, 1)
			assert.Equal(t, llms.RoleHuman, messages[0].Role)
			return textResponse("The capital of France is Paris."), nil
		})

	a := assistants.NewAssistant(llm, nil, assistants.WithTemperature(0)).WithName("ask")
	msgs, err := a.Invoke(context.Background(), []llms.Message{human("What is the capital of France?")})
	require.NoError(t, err)

	exp := []llms.Message{
		human("What is the capital of France?"),
		llms.MessageFromTextParts(llms.RoleAI, "The capital of France is Paris."),
	}
	if diff := cmp.Diff(exp, msgs); diff != "" {
		t.Errorf("Invoke() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, msgs, a.LastRunMessages())

	_, err = a.Invoke(context.Background(), nil)
	assert.EqualError(t, err, "assistant ask: empty input")
	_, err = a.Run(context.Background(), &assistants.CallInput{})
	assert.EqualError(t, err, "assistant ask: empty input")
	_, err = a.Run(context.Background(), nil)
	assert.EqualError(t, err, "assistant ask: empty input")
}

func Test_Assistant_ToolRound(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := newLLM(ctrl)
	weather := newTool(ctrl, "get_weather")
	weather.EXPECT().Call(gomock.Any(), `{"city":"Bangalore"}`).
		Return("Weather in Bangalore, IN:\nTemperature: 24.5°C", nil)

	var payloads [][]llms.Message
	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(capture(&payloads,
			toolCallResponse("fc-1", "get_weather", `{"city":"Bangalore"}`),
			textResponse("It is 24.5°C in Bangalore."),
		)).Times(2)

	cb := &recorder{}
	a := assistants.NewAssistant(llm,
		prompts.MustPromptTemplate("You are a weather assistant."),
		assistants.WithCallback(cb),
	).WithName("weather-agent").WithTools(weather)

	resp, err := a.Run(context.Background(), &assistants.CallInput{Input: "What's the weather in Bangalore?"})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "It is 24.5°C in Bangalore.", resp.Choices[0].Content)

	msgs := a.LastRunMessages()
	require.Len(t, msgs, 4)
	assert.Equal(t, llms.RoleHuman, msgs[0].Role)
	assert.Equal(t, llms.RoleAI, msgs[1].Role)
	assert.Equal(t, llms.RoleTool, msgs[2].Role)
	assert.Equal(t, llms.RoleAI, msgs[3].Role)
	assert.Equal(t, "It is 24.5°C in Bangalore.", msgs[3].GetText())

	tr, ok := msgs[2].Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, "fc-1", tr.ToolCallID)
	assert.Equal(t, "get_weather", tr.Name)
	assert.Equal(t, "Weather in Bangalore, IN:\nTemperature: 24.5°C", tr.Content)

	require.Len(t, payloads, 2)
	assert.Len(t, payloads[0], 2)
	assert.Equal(t, llms.RoleSystem, payloads[0][0].Role)
	assert.Equal(t, "You are a weather assistant.", payloads[0][0].GetText())
	assert.Len(t, payloads[1], 4)
	assert.Equal(t, msgs[:3], payloads[1][1:])

	assert.Equal(t, []string{
		"assistant_start:weather-agent:What's the weather in Bangalore?",
		"llm_start:gemini-test:2",
		"llm_end:gemini-test",
		"tool_start:get_weather:weather-agent",
		"tool_end:get_weather:weather-agent",
		"llm_start:gemini-test:4",
		"llm_end:gemini-test",
		"assistant_end:weather-agent:4",
	}, cb.events())
}

func Test_Assistant_ToolDefinitions(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := newLLM(ctrl)

	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
			opts := llms.NewCallOptions(options...)
			require.Len(t, opts.Tools, 2)
			assert.Equal(t, "function", opts.Tools[0].Type)
			assert.Equal(t, "save_note_to_file", opts.Tools[0].Function.Name)
			assert.Equal(t, "Use save_note_to_file", opts.Tools[0].Function.Description)
			assert.Equal(t, "list_note_files", opts.Tools[1].Function.Name)
			assert.Equal(t, "auto", opts.ToolChoice)
			assert.Equal(t, 100, opts.MaxTokens)
			assert.False(t, opts.TemperatureSet())
			return textResponse("done"), nil
		})

	a := assistants.NewAssistant(llm, nil,
		assistants.WithToolChoice("auto"),
		assistants.WithMaxTokens(100),
	).WithTools(newTool(ctrl, "save_note_to_file"), newTool(ctrl, "list_note_files"))

	_, err := a.Invoke(context.Background(), []llms.Message{human("save it")})
	require.NoError(t, err)
}

func Test_Assistant_ToolResponses(t *testing.T) {
	tcases := []struct {
		name   string
		call   string
		setup  func(tool *mocktools.MockITool)
		expect string
	}{
		{
			name:   "case_insensitive",
			call:   "Get_Weather",
			setup:  func(tool *mocktools.MockITool) { tool.EXPECT().Call(gomock.Any(), gomock.Any()).Return("sunny", nil) },
			expect: "sunny",
		},
		{
			name:   "not_found",
			call:   "get_forecast",
			setup:  func(tool *mocktools.MockITool) {},
			expect: "Tool `get_forecast` not found. Please check the tool name and try again with exact match. Available tools: get_weather, send_email",
		},
		{
			name: "unmarshal",
			call: "get_weather",
			setup: func(tool *mocktools.MockITool) {
				tool.EXPECT().Call(gomock.Any(), gomock.Any()).Return("", errors.WithStack(chatmodel.ErrFailedUnmarshalInput))
			},
			expect: "Failed to unmarshal input for `get_weather`, check the JSON schema and try again.",
		},
		{
			name: "failed",
			call: "get_weather",
			setup: func(tool *mocktools.MockITool) {
				tool.EXPECT().Call(gomock.Any(), gomock.Any()).Return("", errors.New("boom"))
			},
			expect: "Tool call failed: failed to call tool get_weather: boom",
		},
		{
			name: "error_text",
			call: "get_weather",
			setup: func(tool *mocktools.MockITool) {
				tool.EXPECT().Call(gomock.Any(), gomock.Any()).Return("Error fetching weather data: 404 Not Found", nil)
			},
			expect: "Error fetching weather data: 404 Not Found",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			llm := newLLM(ctrl)
			weather := newTool(ctrl, "get_weather")
			tc.setup(weather)

			var payloads [][]llms.Message
			llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(capture(&payloads,
					toolCallResponse("", tc.call, `{"city":"London"}`),
					textResponse("final"),
				)).Times(2)

			cb := &recorder{}
			a := assistants.NewAssistant(llm, nil, assistants.WithCallback(cb)).
				WithName("test").
				WithTools(weather, newTool(ctrl, "send_email"))

			msgs, err := a.Invoke(context.Background(), []llms.Message{human("weather in London")})
			require.NoError(t, err)
			require.Len(t, msgs, 4)

			call, ok := msgs[1].Parts[0].(llms.ToolCall)
			require.True(t, ok)
			assert.Equal(t, "call_"+tc.call+"_0", call.ID)

			tr, ok := msgs[2].Parts[0].(llms.ToolCallResponse)
			require.True(t, ok)
			assert.Equal(t, call.ID, tr.ToolCallID)
			assert.Equal(t, tc.call, tr.Name)
			assert.Equal(t, tc.expect, tr.Content)
			assert.Equal(t, "final", msgs[3].GetText())

			if tc.name == "not_found" {
				assert.Contains(t, cb.events(), "tool_not_found:get_forecast")
			}
			if tc.name == "failed" || tc.name == "unmarshal" {
				assert.Contains(t, cb.events(), `tool_error:get_weather:{"city":"London"}`)
			}
		})
	}
}

func Test_Assistant_MultipleToolCalls(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := newLLM(ctrl)
	weather := newTool(ctrl, "get_weather")
	email := newTool(ctrl, "send_email")

	gomock.InOrder(
		weather.EXPECT().Call(gomock.Any(), `{"city":"Bangalore"}`).Return("Weather: 24°C", nil),
		email.EXPECT().Call(gomock.Any(), `{"to":"a@b.c"}`).Return("Email sent successfully to a@b.c", nil),
	)

	resp := &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				ToolCalls: []llms.ToolCall{
					{ID: "1", FunctionCall: &llms.FunctionCall{Name: "get_weather", Arguments: `{"city":"Bangalore"}`}},
					{ID: "2", FunctionCall: &llms.FunctionCall{Name: "send_email", Arguments: `{"to":"a@b.c"}`}},
					{ID: "3"},
				},
			},
		},
	}

	var payloads [][]llms.Message
	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(capture(&payloads, resp, textResponse("sent"))).Times(2)

	a := assistants.NewAssistant(llm, nil).WithTools(weather, email)
	msgs, err := a.Invoke(context.Background(), []llms.Message{human("weather and email")})
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	require.Len(t, msgs[1].Parts, 2)
	tc, ok := msgs[1].Parts[0].(llms.ToolCall)
	require.True(t, ok)
	assert.Equal(t, "function", tc.Type)

	require.Len(t, msgs[2].Parts, 2)
	r1 := msgs[2].Parts[0].(llms.ToolCallResponse)
	r2 := msgs[2].Parts[1].(llms.ToolCallResponse)
	assert.Equal(t, "1", r1.ToolCallID)
	assert.Equal(t, "Weather: 24°C", r1.Content)
	assert.Equal(t, "2", r2.ToolCallID)
	assert.Equal(t, "Email sent successfully to a@b.c", r2.Content)
}

func Test_Assistant_TextWithToolCalls(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := newLLM(ctrl)
	weather := newTool(ctrl, "get_weather")
	weather.EXPECT().Call(gomock.Any(), `{"city":"London"}`).Return("Weather: 15°C", nil)

	resp := toolCallResponse("1", "get_weather", `{"city":"London"}`)
	resp.Choices[0].Content = "Let me check the weather first."

	var payloads [][]llms.Message
	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(capture(&payloads, resp, textResponse("It is 15°C in London."))).Times(2)

	ms := store.NewMemoryStore()
	ctx := chatmodel.WithChatContext(context.Background(), chatmodel.NewChatContext("chat-2", nil))
	a := assistants.NewAssistant(llm, nil, assistants.WithStore(ms)).WithTools(weather)
	msgs, err := a.Invoke(ctx, []llms.Message{human("weather in London")})
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	expected := llms.Message{
		Role: llms.RoleAI,
		Parts: []llms.ContentPart{
			llms.TextPart("Let me check the weather first."),
			llms.ToolCall{
				ID:           "1",
				Type:         "function",
				FunctionCall: &llms.FunctionCall{Name: "get_weather", Arguments: `{"city":"London"}`},
			},
		},
	}
	assert.Empty(t, cmp.Diff(expected, msgs[1]))
	assert.Equal(t, "Let me check the weather first.", msgs[1].GetText())

	// the second call carries the text
	require.Len(t, payloads, 2)
	assert.Empty(t, cmp.Diff(expected, payloads[1][1]))

	history := ms.Messages(ctx)
	require.Len(t, history, 4)
	assert.Empty(t, cmp.Diff(expected, history[1]))
}

func Test_Assistant_Errors(t *testing.T) {
	t.Run("model", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		llm := newLLM(ctrl)
		errQuota := errors.New("quota exceeded")
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errQuota)

		cb := &recorder{}
		a := assistants.NewAssistant(llm, nil, assistants.WithCallback(cb)).WithName("test")
		_, err := a.Invoke(context.Background(), []llms.Message{human("hi")})
		require.Error(t, err)
		assert.ErrorIs(t, err, errQuota)
		assert.EqualError(t, err, "assistant test: failed to generate content: quota exceeded")
		assert.Equal(t, "assistant_error:test:assistant test: failed to generate content: quota exceeded", cb.last())
	})

	t.Run("empty_response", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		llm := newLLM(ctrl)
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&llms.ContentResponse{}, nil).Times(assistants.DefaultMaxRetries)

		a := assistants.NewAssistant(llm, nil).WithName("test")
		_, err := a.Invoke(context.Background(), []llms.Message{human("hi")})
		assert.EqualError(t, err, "assistant test: LLM returned empty response after 3 retries")
	})

	t.Run("retry", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		llm := newLLM(ctrl)
		gomock.InOrder(
			llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).Return(&llms.ContentResponse{}, nil),
			llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).Return(textResponse("ok"), nil),
		)

		a := assistants.NewAssistant(llm, nil)
		msgs, err := a.Invoke(context.Background(), []llms.Message{human("hi")})
		require.NoError(t, err)
		assert.Equal(t, "ok", msgs[len(msgs)-1].GetText())
	})

	t.Run("tool_calls_limit", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		llm := newLLM(ctrl)
		tool := newTool(ctrl, "list_note_files")
		tool.EXPECT().Call(gomock.Any(), gomock.Any()).Return("No note files found in the notes directory.", nil).Times(2)
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(toolCallResponse("", "list_note_files", "{}"), nil).Times(2)

		a := assistants.NewAssistant(llm, nil, assistants.WithMaxToolCalls(1)).WithName("test").WithTools(tool)
		_, err := a.Invoke(context.Background(), []llms.Message{human("list")})
		assert.EqualError(t, err, "assistant test: the tool calls limit is exceeded")
	})

	t.Run("not_found_limit", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		llm := newLLM(ctrl)
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(toolCallResponse("", "unknown", "{}"), nil).Times(assistants.DefaultMaxToolNotFound)

		a := assistants.NewAssistant(llm, nil).WithName("test").WithTools(newTool(ctrl, "get_weather"))
		_, err := a.Invoke(context.Background(), []llms.Message{human("hi")})
		assert.EqualError(t, err, "assistant test: the number of not found tools is exceeded")
	})

	t.Run("messages_limit", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		llm := newLLM(ctrl)

		a := assistants.NewAssistant(llm, prompts.MustPromptTemplate("system"), assistants.WithMaxMessages(1)).WithName("test")
		_, err := a.Invoke(context.Background(), []llms.Message{human("hi")})
		assert.EqualError(t, err, "assistant test: the messages count exceeded limit")
	})

	t.Run("content_limit", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		llm := newLLM(ctrl)

		a := assistants.NewAssistant(llm, nil, assistants.WithMaxLength(4)).WithName("test")
		_, err := a.Invoke(context.Background(), []llms.Message{human("hello")})
		assert.EqualError(t, err, "assistant test: the content size exceeded limit")
	})

	t.Run("canceled", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		llm := newLLM(ctrl)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		a := assistants.NewAssistant(llm, nil)
		_, err := a.Invoke(ctx, []llms.Message{human("hi")})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("no_function_calling", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		llm := mockllms.NewMockModel(ctrl)
		llm.EXPECT().GetName().Return("text-only").AnyTimes()
		llm.EXPECT().GetProviderType().Return(llms.ProviderType("TEXT")).AnyTimes()

		a := assistants.NewAssistant(llm, nil).WithName("test").WithTools(newTool(ctrl, "get_weather"))
		_, err := a.Invoke(context.Background(), []llms.Message{human("hi")})
		assert.EqualError(t, err, "assistant test: the LLM does not support function calling")
	})
}

func Test_Assistant_History(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := newLLM(ctrl)
	weather := newTool(ctrl, "get_weather")
	weather.EXPECT().Call(gomock.Any(), gomock.Any()).Return("sunny", nil).AnyTimes()

	ms := store.NewMemoryStore()
	ctx := chatmodel.WithChatContext(context.Background(), chatmodel.NewChatContext("chat-1", nil))

	var payloads [][]llms.Message
	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(capture(&payloads,
			toolCallResponse("fc-1", "get_weather", `{"city":"Paris"}`),
			textResponse("It is sunny in Paris."),
			textResponse("You asked about Paris."),
		)).Times(3)

	a := assistants.NewAssistant(llm, prompts.MustPromptTemplate("system"), assistants.WithStore(ms)).
		WithName("weather-agent").
		WithTools(weather)

	_, err := a.Invoke(ctx, []llms.Message{human("weather in Paris?")})
	require.NoError(t, err)
	assert.Len(t, ms.Messages(ctx), 4)

	msgs, err := a.Invoke(ctx, []llms.Message{human("what did I ask?")})
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	require.Len(t, payloads, 3)
	last := payloads[2]
	// system, 4 history messages, new question
	require.Len(t, last, 6)
	assert.Equal(t, llms.RoleSystem, last[0].Role)
	assert.Equal(t, "weather in Paris?", last[1].GetText())
	assert.Equal(t, "what did I ask?", last[5].GetText())
	assert.Len(t, ms.Messages(ctx), 6)

	t.Run("skip_tool_history", func(t *testing.T) {
		ms := store.NewMemoryStore()
		var payloads [][]llms.Message
		llm := newLLM(ctrl)
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(capture(&payloads,
				toolCallResponse("fc-1", "get_weather", `{"city":"Paris"}`),
				textResponse("It is sunny in Paris."),
			)).Times(2)

		a := assistants.NewAssistant(llm, nil, assistants.WithStore(ms), assistants.WithSkipToolHistory(true)).
			WithTools(weather)
		_, err := a.Invoke(ctx, []llms.Message{human("weather in Paris?")})
		require.NoError(t, err)

		saved := ms.Messages(ctx)
		require.Len(t, saved, 2)
		assert.Equal(t, "weather in Paris?", saved[0].GetText())
		assert.Equal(t, "It is sunny in Paris.", saved[1].GetText())
	})

	t.Run("skip_history", func(t *testing.T) {
		llm := newLLM(ctrl)
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
				assert.Len(t, messages, 1)
				return textResponse("ok"), nil
			})

		a := assistants.NewAssistant(llm, nil, assistants.WithStore(ms))
		_, err := a.Invoke(ctx, []llms.Message{human("no history")}, assistants.WithSkipMessageHistory(true))
		require.NoError(t, err)
		assert.Len(t, ms.Messages(ctx), 6)
	})

	t.Run("no_chat_context", func(t *testing.T) {
		a := assistants.NewAssistant(newLLM(ctrl), nil, assistants.WithStore(ms))
		_, err := a.Invoke(context.Background(), []llms.Message{human("hi")})
		assert.ErrorIs(t, err, chatmodel.ErrInvalidChatContext)
	})
}

func Test_TrimHistory(t *testing.T) {
	toolCall := llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{ID: "1", FunctionCall: &llms.FunctionCall{Name: "x"}})
	toolResp := llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{ToolCallID: "1", Name: "x"})
	ai := llms.MessageFromTextParts(llms.RoleAI, "answer")

	assert.Nil(t, assistants.TrimHistory(nil))
	assert.Nil(t, assistants.TrimHistory([]llms.Message{toolResp, ai}))
	assert.Equal(t,
		[]llms.Message{human("q"), ai},
		assistants.TrimHistory([]llms.Message{toolCall, toolResp, ai, human("q"), ai}))
}

// recorder is a Callback that records the events.
type recorder struct {
	lock sync.Mutex
	list []string
}

var _ assistants.Callback = (*recorder)(nil)

func (r *recorder) add(format string, args ...any) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.list = append(r.list, fmt.Sprintf(format, args...))
}

func (r *recorder) events() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.list...)
}

func (r *recorder) last() string {
	ev := r.events()
	if len(ev) == 0 {
		return ""
	}
	return ev[len(ev)-1]
}

func (r *recorder) OnAssistantStart(_ context.Context, agent assistants.IAssistant, input string) {
	r.add("assistant_start:%s:%s", agent.Name(), input)
}

func (r *recorder) OnAssistantEnd(_ context.Context, agent assistants.IAssistant, _ string, _ *llms.ContentResponse, messages []llms.Message) {
	r.add("assistant_end:%s:%d", agent.Name(), len(messages))
}

func (r *recorder) OnAssistantError(_ context.Context, agent assistants.IAssistant, _ string, err error, _ []llms.Message) {
	r.add("assistant_error:%s:%s", agent.Name(), err.Error())
}

func (r *recorder) OnAssistantLLMCallStart(_ context.Context, _ assistants.IAssistant, llm llms.Model, payload []llms.Message) {
	r.add("llm_start:%s:%d", llm.GetName(), len(payload))
}

func (r *recorder) OnAssistantLLMCallEnd(_ context.Context, _ assistants.IAssistant, llm llms.Model, _ *llms.ContentResponse) {
	r.add("llm_end:%s", llm.GetName())
}

func (r *recorder) OnToolNotFound(_ context.Context, _ assistants.IAssistant, tool string) {
	r.add("tool_not_found:%s", tool)
}

func (r *recorder) OnToolStart(_ context.Context, tool tools.ITool, assistantName, _ string) {
	r.add("tool_start:%s:%s", tool.Name(), assistantName)
}

func (r *recorder) OnToolEnd(_ context.Context, tool tools.ITool, assistantName, _ string, _ string) {
	r.add("tool_end:%s:%s", tool.Name(), assistantName)
}

func (r *recorder) OnToolError(_ context.Context, tool tools.ITool, _ string, input string, _ error) {
	r.add("tool_error:%s:%s", tool.Name(), input)
}
