package llms_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagents/pkg/llms"
	"github.com/effective-security/toolagents/pkg/llmutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextParts(t *testing.T) {
	t.Parallel()
	mc := llms.MessageFromTextParts(llms.RoleHuman, "a", "b", "c")
	assert.Equal(t, llms.RoleHuman, mc.Role)
	require.Len(t, mc.Parts, 3)
	assert.Equal(t, llms.TextContent{Text: "b"}, mc.Parts[1])
	assert.Equal(t, "a\nb\nc", mc.GetText())
}

func Test_Message_JSON(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		msg     llms.Message
		js      string
		content string
	}{
		{
			"single_text",
			llms.MessageFromTextParts(llms.RoleHuman, "hello"),
			`{"role":"human","text":"hello"}`,
			"hello\n",
		},
		{
			"text",
			llms.MessageFromTextParts(llms.RoleHuman, "a", "b", "c"),
			`{"role":"human","parts":[{"type":"text","text":"a"},{"type":"text","text":"b"},{"type":"text","text":"c"}]}`,
			"a\nb\nc\n",
		},
		{
			"tool_call",
			llms.MessageFromParts(llms.RoleAI, llms.ToolCall{ID: "123", Type: "function", FunctionCall: &llms.FunctionCall{Name: "get_weather", Arguments: `{"city":"Paris"}`}}),
			`{"role":"ai","parts":[{"type":"tool_call","tool_call":{"function":{"name":"get_weather","arguments":"{\"city\":\"Paris\"}"},"id":"123","type":"function"}}]}`,
			`Tool Call: {"type":"tool_call","tool_call":{"function":{"name":"get_weather","arguments":"{\"city\":\"Paris\"}"},"id":"123","type":"function"}}
`,
		},
		{
			"tool_response",
			llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{ToolCallID: "123", Name: "get_weather", Content: "sunny"}),
			`{"role":"tool","parts":[{"type":"tool_response","tool_response":{"tool_call_id":"123","name":"get_weather","content":"sunny"}}]}`,
			`Response: {"type":"tool_response","tool_response":{"tool_call_id":"123","name":"get_weather","content":"sunny"}}
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			js := llmutils.ToJSON(tt.msg)
			assert.Equal(t, tt.js, js)
			assert.Equal(t, tt.content, tt.msg.GetContent())

			var back llms.Message
			require.NoError(t, llmutils.FromJSON(js, &back))
			assert.Equal(t, tt.msg, back)
		})
	}
}

func TestUnmarshal_Errors(t *testing.T) {
	t.Parallel()
	var m llms.Message
	err := llmutils.FromJSON(`{"role":"human","parts":[{"type":"image_url"}]}`, &m)
	assert.EqualError(t, err, "unknown content type: 'image_url'")

	err = llmutils.FromJSON(`{"role":"ai","parts":[{"type":"tool_call"}]}`, &m)
	assert.EqualError(t, err, "tool_call field is required for tool_call type")

	err = llmutils.FromJSON(`{"role":"tool","parts":[{"type":"tool_response","tool_response":{"tool_call_id":"1"}}]}`, &m)
	assert.EqualError(t, err, "missing name field in ToolCallResponse")
}

func TestToolCall_ThoughtSignature(t *testing.T) {
	t.Parallel()
	tc := llms.ToolCall{
		ID:               "c1",
		Type:             "function",
		FunctionCall:     &llms.FunctionCall{Name: "read_note", Arguments: `{"filename":"a.txt"}`},
		ThoughtSignature: []byte{1, 2, 3},
	}
	msg := llms.MessageFromToolCalls(llms.RoleAI, tc)
	js := llmutils.ToJSON(msg)
	assert.Contains(t, js, `"thought_signature":"AQID"`)

	var back llms.Message
	require.NoError(t, llmutils.FromJSON(js, &back))
	assert.Equal(t, tc, back.Parts[0])
}

type stubModel struct {
	resp *llms.ContentResponse
	err  error
	seen []llms.Message
	opts *llms.CallOptions
}

func (m *stubModel) GetName() string                    { return "stub" }
func (m *stubModel) GetProviderType() llms.ProviderType { return llms.ProviderFake }
func (m *stubModel) GenerateContent(_ context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.seen = messages
	m.opts = llms.NewCallOptions(options...)
	return m.resp, m.err
}

func TestGenerateFromSinglePrompt(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := &stubModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "Summary."}}}}
	out, err := llms.GenerateFromSinglePrompt(ctx, m, "Summarize this", llms.WithTemperature(0))
	require.NoError(t, err)
	assert.Equal(t, "Summary.", out)
	require.Len(t, m.seen, 1)
	assert.Equal(t, "Summarize this", m.seen[0].GetText())
	assert.True(t, m.opts.TemperatureSet())
	assert.Equal(t, 0.0, m.opts.Temperature)

	m = &stubModel{resp: &llms.ContentResponse{}}
	_, err = llms.GenerateFromSinglePrompt(ctx, m, "x")
	assert.True(t, errors.Is(err, llms.ErrEmptyResponse))

	m = &stubModel{err: errors.New("quota exceeded")}
	_, err = llms.GenerateFromSinglePrompt(ctx, m, "x")
	assert.EqualError(t, err, "quota exceeded")
}
