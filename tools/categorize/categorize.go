// Package categorize provides the note categorization, tag suggestion and
// entity extraction tools backed by helper model calls.
package categorize

import (
	"context"
	"strings"

	"github.com/effective-security/toolagents/pkg/llms"
	"github.com/effective-security/toolagents/pkg/prompts"
	"github.com/effective-security/toolagents/pkg/schema"
	"github.com/effective-security/toolagents/tools"
	"github.com/invopop/jsonschema"
)

// Tool names
const (
	CategorizeToolName = "categorize_note"
	TagsToolName       = "suggest_tags"
	EntitiesToolName   = "extract_key_entities"
)

// Default temperatures of the helper calls
const (
	CategorizeTemperature = 0.3
	TagsTemperature       = 0.4
	EntitiesTemperature   = 0.2
)

// DefaultNumTags is the number of tags suggested when not specified.
const DefaultNumTags = 5

// CommonCategories are offered to the model for every note.
var CommonCategories = []string{
	"Work", "Personal", "Study", "Meeting", "Ideas", "Research",
	"Shopping", "Travel", "Health", "Finance", "Project", "Journal",
	"Recipe", "Book Notes", "Code", "Documentation", "Reminder", "Other",
}

// Categories returns the common categories with the comma separated
// custom categories appended.
func Categories(custom string) []string {
	res := append([]string(nil), CommonCategories...)
	for _, c := range strings.Split(custom, ",") {
		if c = strings.TrimSpace(c); c != "" {
			res = append(res, c)
		}
	}
	return res
}

var (
	categorizePrompt = prompts.MustPromptTemplate(`Analyze the following note and categorize it.
Provide:
1. Primary category (one of: {{ join ", " .categories }} or a new appropriate category)
2. Secondary categories (if applicable, up to 2)
3. Suggested tags (3-5 relevant keywords)

Format your response as:
Primary Category: [category]
Secondary Categories: [category1, category2] or None
Tags: [tag1, tag2, tag3, tag4, tag5]

Note content:
{{ .note }}

Categorization:`, "note", "categories")

	tagsPrompt = prompts.MustPromptTemplate(`Based on the following note content, suggest {{ .num_tags }} relevant tags (keywords).
Tags should be short, descriptive, and useful for searching.
Return only the tags as a comma-separated list, no additional text.

Note content:
{{ .note }}

Tags:`, "note", "num_tags")

	entitiesPrompt = prompts.MustPromptTemplate(`Extract key entities from the following note.
Identify and list:
- People (names mentioned)
- Places/Locations
- Organizations/Companies
- Dates/Time references
- Main topics/subjects

Format as:
People: [list or None]
Places: [list or None]
Organizations: [list or None]
Dates: [list or None]
Topics: [list or None]

Note content:
{{ .note }}

Entities:`, "note")
)

// CategorizeRequest represents the categorize_note input.
type CategorizeRequest struct {
	NoteContent         string `json:"note_content" yaml:"NoteContent" jsonschema:"title=Note Content,description=The content of the note to categorize."`
	SuggestedCategories string `json:"suggested_categories,omitempty" yaml:"SuggestedCategories" jsonschema:"title=Suggested Categories,description=Optional comma-separated list of custom categories to consider."`
}

// TagsRequest represents the suggest_tags input.
type TagsRequest struct {
	NoteContent string `json:"note_content" yaml:"NoteContent" jsonschema:"title=Note Content,description=The content of the note."`
	NumTags     int    `json:"num_tags,omitempty" yaml:"NumTags" jsonschema:"title=Number of Tags,description=Number of tags to suggest.,default=5,minimum=1"`
}

// EntitiesRequest represents the extract_key_entities input.
type EntitiesRequest struct {
	NoteContent string `json:"note_content" yaml:"NoteContent" jsonschema:"title=Note Content,description=The content of the note."`
}

// Result is the text produced by the model.
type Result struct {
	Text string
}

func (r *Result) String() string {
	return r.Text
}

// TagsResult is the suggested tags.
type TagsResult struct {
	Tags string
}

func (r *TagsResult) String() string {
	return "Suggested tags: " + r.Tags
}

var (
	categorizeSchema = schema.MustFor[CategorizeRequest]().Parameters
	tagsSchema       = schema.MustFor[TagsRequest]().Parameters
	entitiesSchema   = schema.MustFor[EntitiesRequest]().Parameters
)

// Tools returns the three categorization tools over the model.
func Tools(llm llms.Model) []tools.ITool {
	return []tools.ITool{
		NewCategorizeTool(llm),
		NewTagsTool(llm),
		NewEntitiesTool(llm),
	}
}

func emptyNote(prefix string) error {
	return tools.Errorf(tools.KindValidation, "%s: note content is empty", prefix)
}

// CategorizeTool is the categorize_note tool
type CategorizeTool struct {
	llm         llms.Model
	temperature float64
}

var _ tools.Tool[CategorizeRequest, Result] = (*CategorizeTool)(nil)

// NewCategorizeTool returns the categorize_note tool.
func NewCategorizeTool(llm llms.Model) *CategorizeTool {
	return &CategorizeTool{llm: llm, temperature: CategorizeTemperature}
}

// WithTemperature sets the temperature of the model call.
func (t *CategorizeTool) WithTemperature(temperature float64) *CategorizeTool {
	t.temperature = temperature
	return t
}

func (t *CategorizeTool) Name() string {
	return CategorizeToolName
}

func (t *CategorizeTool) Description() string {
	return "Categorize a note into appropriate categories and suggest tags. " +
		"Returns the primary category, secondary categories, and suggested tags."
}

func (t *CategorizeTool) Parameters() *jsonschema.Schema {
	return categorizeSchema
}

func (t *CategorizeTool) Call(ctx context.Context, input string) (string, error) {
	return tools.Invoke(ctx, t, input)
}

func (t *CategorizeTool) Run(ctx context.Context, req *CategorizeRequest) (*Result, error) {
	const prefix = "Error categorizing note"
	if strings.TrimSpace(req.NoteContent) == "" {
		return nil, emptyNote(prefix)
	}
	text, err := tools.Generate(ctx, t.Name(), t.llm, categorizePrompt, map[string]any{
		"note":       req.NoteContent,
		"categories": Categories(req.SuggestedCategories),
	}, t.temperature)
	if err != nil {
		return nil, tools.Wrap(tools.KindUpstream, err, prefix)
	}
	return &Result{Text: text}, nil
}

// TagsTool is the suggest_tags tool
type TagsTool struct {
	llm         llms.Model
	temperature float64
}

var _ tools.Tool[TagsRequest, TagsResult] = (*TagsTool)(nil)

// NewTagsTool returns the suggest_tags tool.
func NewTagsTool(llm llms.Model) *TagsTool {
	return &TagsTool{llm: llm, temperature: TagsTemperature}
}

// WithTemperature sets the temperature of the model call.
func (t *TagsTool) WithTemperature(temperature float64) *TagsTool {
	t.temperature = temperature
	return t
}

func (t *TagsTool) Name() string {
	return TagsToolName
}

func (t *TagsTool) Description() string {
	return "Suggest relevant tags for a note based on its content. Returns a comma-separated list of tags."
}

func (t *TagsTool) Parameters() *jsonschema.Schema {
	return tagsSchema
}

func (t *TagsTool) Call(ctx context.Context, input string) (string, error) {
	return tools.Invoke(ctx, t, input)
}

func (t *TagsTool) Run(ctx context.Context, req *TagsRequest) (*TagsResult, error) {
	const prefix = "Error suggesting tags"
	if strings.TrimSpace(req.NoteContent) == "" {
		return nil, emptyNote(prefix)
	}
	num := req.NumTags
	if num <= 0 {
		num = DefaultNumTags
	}
	text, err := tools.Generate(ctx, t.Name(), t.llm, tagsPrompt, map[string]any{
		"note":     req.NoteContent,
		"num_tags": num,
	}, t.temperature)
	if err != nil {
		return nil, tools.Wrap(tools.KindUpstream, err, prefix)
	}
	return &TagsResult{Tags: text}, nil
}

// EntitiesTool is the extract_key_entities tool
type EntitiesTool struct {
	llm         llms.Model
	temperature float64
}

var _ tools.Tool[EntitiesRequest, Result] = (*EntitiesTool)(nil)

// NewEntitiesTool returns the extract_key_entities tool.
func NewEntitiesTool(llm llms.Model) *EntitiesTool {
	return &EntitiesTool{llm: llm, temperature: EntitiesTemperature}
}

// WithTemperature sets the temperature of the model call.
func (t *EntitiesTool) WithTemperature(temperature float64) *EntitiesTool {
	t.temperature = temperature
	return t
}

func (t *EntitiesTool) Name() string {
	return EntitiesToolName
}

func (t *EntitiesTool) Description() string {
	return "Extract key entities (people, places, organizations, dates, topics) from a note. " +
		"Returns the entities organized by type."
}

func (t *EntitiesTool) Parameters() *jsonschema.Schema {
	return entitiesSchema
}

func (t *EntitiesTool) Call(ctx context.Context, input string) (string, error) {
	return tools.Invoke(ctx, t, input)
}

func (t *EntitiesTool) Run(ctx context.Context, req *EntitiesRequest) (*Result, error) {
	const prefix = "Error extracting entities"
	if strings.TrimSpace(req.NoteContent) == "" {
		return nil, emptyNote(prefix)
	}
	text, err := tools.Generate(ctx, t.Name(), t.llm, entitiesPrompt, map[string]any{
		"note": req.NoteContent,
	}, t.temperature)
	if err != nil {
		return nil, tools.Wrap(tools.KindUpstream, err, prefix)
	}
	return &Result{Text: text}, nil
}
