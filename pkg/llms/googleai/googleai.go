package googleai

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagents/pkg/llms"
	"github.com/effective-security/toolagents/pkg/llms/googleai/internal/genaiutils"
	"github.com/effective-security/xdb/pkg/flake"
	"google.golang.org/genai"
)

var (
	ErrNoContentInResponse   = errors.New("no content in generation response")
	ErrUnknownPartInResponse = errors.New("unknown part type in generation response")
)

const (
	CITATIONS = "citations"
	SAFETY    = "safety"
	RoleModel = "model"
	RoleUser  = "user"

	// localCallIDPrefix marks tool call IDs assigned by this client
	// when the API did not return one; they are not sent back.
	localCallIDPrefix = "call_"
)

// GetName implements the Model interface.
func (g *GoogleAI) GetName() string {
	return g.opts.DefaultModel
}

// GetProviderType implements the Model interface.
func (g *GoogleAI) GetProviderType() llms.ProviderType {
	return llms.ProviderGoogleAI
}

// GenerateContent implements the [llms.Model] interface.
func (g *GoogleAI) GenerateContent(
	ctx context.Context,
	messages []llms.Message,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{
		Model:          g.opts.DefaultModel,
		CandidateCount: g.opts.DefaultCandidateCount,
		MaxTokens:      g.opts.DefaultMaxTokens,
		Temperature:    g.opts.DefaultTemperature,
		TopP:           g.opts.DefaultTopP,
		TopK:           g.opts.DefaultTopK,
	}
	for _, opt := range options {
		opt(&opts)
	}

	callCfg := &genai.GenerateContentConfig{
		StopSequences:   opts.StopWords,
		CandidateCount:  int32(opts.CandidateCount),
		MaxOutputTokens: int32(opts.MaxTokens),
		// temperature is always sent, 0 requests deterministic output
		Temperature: genai.Ptr(float32(opts.Temperature)),
		TopP:        genaiutils.Float32Ptr(float32(opts.TopP)),
		TopK:        genaiutils.Float32Ptr(float32(opts.TopK)),
		Seed:        genaiutils.Int32Ptr(int32(opts.Seed)),
	}

	callCfg.SafetySettings = []*genai.SafetySetting{
		{
			Category:  genai.HarmCategoryDangerousContent,
			Threshold: g.opts.HarmThreshold,
		},
		{
			Category:  genai.HarmCategoryHarassment,
			Threshold: g.opts.HarmThreshold,
		},
		{
			Category:  genai.HarmCategoryHateSpeech,
			Threshold: g.opts.HarmThreshold,
		},
		{
			Category:  genai.HarmCategorySexuallyExplicit,
			Threshold: g.opts.HarmThreshold,
		},
	}

	var err error
	if callCfg.Tools, err = genaiutils.ConvertTools(opts.Tools); err != nil {
		return nil, err
	}
	if len(callCfg.Tools) > 0 {
		callCfg.ToolConfig = genaiutils.ConvertToolChoice(opts.ToolChoice)
	}

	return g.generateFromMessages(ctx, opts.Model, messages, callCfg)
}

// convertCandidates converts a sequence of genai.Candidate to a response.
func convertCandidates(candidates []*genai.Candidate, usage *genai.GenerateContentResponseUsageMetadata) (*llms.ContentResponse, error) {
	var contentResponse llms.ContentResponse

	for _, candidate := range candidates {
		buf := strings.Builder{}
		var toolCalls []llms.ToolCall

		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				switch {
				case part.Thought:
					// thought summaries are not part of the answer
					continue
				case part.FunctionCall != nil:
					b, err := json.Marshal(part.FunctionCall.Args)
					if err != nil {
						return nil, errors.WithStack(err)
					}
					id := part.FunctionCall.ID
					if id == "" {
						id = localCallIDPrefix + strconv.FormatUint(flake.DefaultIDGenerator.NextID(), 10)
					}
					toolCalls = append(toolCalls, llms.ToolCall{
						ID:   id,
						Type: "function",
						FunctionCall: &llms.FunctionCall{
							Name:      part.FunctionCall.Name,
							Arguments: string(b),
						},
						ThoughtSignature: part.ThoughtSignature,
					})
				case part.Text != "":
					buf.WriteString(part.Text)
				case len(part.ThoughtSignature) > 0:
					// signature-only part
					continue
				default:
					return nil, errors.Wrapf(ErrUnknownPartInResponse, "not text or tool")
				}
			}
		}

		metadata := make(map[string]any)
		metadata[CITATIONS] = candidate.CitationMetadata
		metadata[SAFETY] = candidate.SafetyRatings

		if usage != nil {
			metadata["InputTokens"] = usage.PromptTokenCount
			metadata["CacheReadTokens"] = usage.CachedContentTokenCount
			metadata["OutputTokens"] = usage.CandidatesTokenCount + usage.ToolUsePromptTokenCount + usage.ThoughtsTokenCount
			metadata["TotalTokens"] = usage.TotalTokenCount
		}

		contentResponse.Choices = append(contentResponse.Choices,
			&llms.ContentChoice{
				Content:        buf.String(),
				StopReason:     string(candidate.FinishReason),
				GenerationInfo: metadata,
				ToolCalls:      toolCalls,
			})
	}
	return &contentResponse, nil
}

// convertParts converts between a sequence of llms parts and genai parts.
func convertParts(parts []llms.ContentPart) ([]*genai.Part, error) {
	convertedParts := make([]*genai.Part, 0, len(parts))
	for _, part := range parts {
		out := new(genai.Part)

		switch p := part.(type) {
		case llms.TextContent:
			out.Text = p.Text
		case llms.ToolCall:
			fc := p.FunctionCall
			if fc == nil {
				return nil, errors.Newf("tool call %s: missing function", p.ID)
			}
			var argsMap map[string]any
			if fc.Arguments != "" {
				if err := json.Unmarshal([]byte(fc.Arguments), &argsMap); err != nil {
					return nil, errors.Wrapf(err, "tool call %s: invalid arguments", p.ID)
				}
			}
			out.FunctionCall = &genai.FunctionCall{
				ID:   remoteCallID(p.ID),
				Name: fc.Name,
				Args: argsMap,
			}
			out.ThoughtSignature = p.ThoughtSignature
		case llms.ToolCallResponse:
			out.FunctionResponse = &genai.FunctionResponse{
				ID:   remoteCallID(p.ToolCallID),
				Name: p.Name,
				Response: map[string]any{
					"response": p.Content,
				},
			}
		default:
			return nil, errors.Newf("unsupported content part: %T", part)
		}

		convertedParts = append(convertedParts, out)
	}
	return convertedParts, nil
}

func remoteCallID(id string) string {
	if strings.HasPrefix(id, localCallIDPrefix) {
		return ""
	}
	return id
}

// convertContent converts between a llms Message and genai content.
func convertContent(content llms.Message) (*genai.Content, error) {
	parts, err := convertParts(content.Parts)
	if err != nil {
		return nil, err
	}

	c := &genai.Content{
		Parts: parts,
	}

	switch content.Role {
	case llms.RoleSystem:
		c.Role = RoleUser
	case llms.RoleAI:
		c.Role = RoleModel
	case llms.RoleHuman, llms.RoleGeneric:
		c.Role = RoleUser
	case llms.RoleTool:
		// Gemini API expects function responses from the user side
		c.Role = RoleUser
	default:
		return nil, errors.Wrapf(llms.ErrUnexpectedRole, "role %v not supported", content.Role)
	}

	return c, nil
}

func (g *GoogleAI) generateFromMessages(
	ctx context.Context,
	model string,
	messages []llms.Message,
	config *genai.GenerateContentConfig,
) (*llms.ContentResponse, error) {
	history := make([]*genai.Content, 0, len(messages))
	for _, mc := range messages {
		content, err := convertContent(mc)
		if err != nil {
			return nil, err
		}
		if mc.Role == llms.RoleSystem {
			if config.SystemInstruction == nil {
				config.SystemInstruction = content
			} else {
				config.SystemInstruction.Parts = append(config.SystemInstruction.Parts, content.Parts...)
			}
			continue
		}
		history = append(history, content)
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, history, config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate content")
	}

	if len(resp.Candidates) == 0 {
		return nil, errors.WithStack(ErrNoContentInResponse)
	}
	return convertCandidates(resp.Candidates, resp.UsageMetadata)
}
