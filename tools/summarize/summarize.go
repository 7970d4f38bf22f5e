// Package summarize provides the summarize_text tool backed by a helper model call.
package summarize

import (
	"context"
	"strings"

	"github.com/effective-security/toolagents/pkg/llms"
	"github.com/effective-security/toolagents/pkg/prompts"
	"github.com/effective-security/toolagents/pkg/schema"
	"github.com/effective-security/toolagents/tools"
	"github.com/invopop/jsonschema"
)

const (
	// ToolName is the name of the tool
	ToolName = "summarize_text"
	// DefaultTemperature is the temperature of the summary model call
	DefaultTemperature = 0.3
)

// Summary types
const (
	TypeBullet    = "bullet"
	TypeParagraph = "paragraph"
	TypeKey       = "key"
)

// Request represents the tool input.
type Request struct {
	Text        string `json:"text" yaml:"Text" jsonschema:"title=Text,description=The text content to summarize."`
	SummaryType string `json:"summary_type,omitempty" yaml:"SummaryType" jsonschema:"title=Summary Type,description=Type of summary: bullet (bullet points) or paragraph (single paragraph) or key (key points only).,enum=bullet,enum=paragraph,enum=key,default=bullet"`
}

// Result is the summary text.
type Result struct {
	Summary string
}

func (r *Result) String() string {
	return r.Summary
}

var (
	bulletPrompt = prompts.MustPromptTemplate(`Please provide a concise bullet-point summary of the following text.
Focus on the main ideas and key information. Use 3-5 bullet points.

Text:
{{ .text }}

Summary:`, "text")

	paragraphPrompt = prompts.MustPromptTemplate(`Please provide a concise paragraph summary of the following text in 2-3 sentences.

Text:
{{ .text }}

Summary:`, "text")

	keyPrompt = prompts.MustPromptTemplate(`Extract only the key points from the following text. List them as short phrases.

Text:
{{ .text }}

Key Points:`, "text")

	genericPrompt = prompts.MustPromptTemplate(`Please provide a concise summary of the following text.

Text:
{{ .text }}

Summary:`, "text")
)

// PromptFor returns the prompt for the summary type,
// empty type is bullet and unknown types get the generic prompt.
func PromptFor(summaryType string) *prompts.PromptTemplate {
	switch strings.ToLower(strings.TrimSpace(summaryType)) {
	case TypeBullet, "":
		return bulletPrompt
	case TypeParagraph:
		return paragraphPrompt
	case TypeKey:
		return keyPrompt
	default:
		return genericPrompt
	}
}

var paramsSchema = schema.MustFor[Request]().Parameters

// Tool is the summarize_text tool
type Tool struct {
	llm         llms.Model
	temperature float64
}

var _ tools.Tool[Request, Result] = (*Tool)(nil)

// New returns the tool with the model used for summaries.
func New(llm llms.Model) *Tool {
	return &Tool{
		llm:         llm,
		temperature: DefaultTemperature,
	}
}

// WithTemperature sets the temperature of the summary call.
func (t *Tool) WithTemperature(temperature float64) *Tool {
	t.temperature = temperature
	return t
}

func (t *Tool) Name() string {
	return ToolName
}

func (t *Tool) Description() string {
	return "Summarize a given text. Can create bullet points, paragraph summary, or key points."
}

func (t *Tool) Parameters() *jsonschema.Schema {
	return paramsSchema
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	return tools.Invoke(ctx, t, input)
}

func (t *Tool) Run(ctx context.Context, req *Request) (*Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, tools.Errorf(tools.KindValidation, "Error creating summary: text is empty")
	}

	summary, err := tools.Generate(ctx, ToolName, t.llm,
		PromptFor(req.SummaryType),
		map[string]any{"text": req.Text},
		t.temperature,
	)
	if err != nil {
		return nil, tools.Wrap(tools.KindUpstream, err, "Error creating summary")
	}
	return &Result{Summary: summary}, nil
}
