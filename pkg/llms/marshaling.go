package llms

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Part type discriminators used in the JSON form of a Message.
const (
	partTypeText         = "text"
	partTypeToolCall     = "tool_call"
	partTypeToolResponse = "tool_response"
)

// messageJSON is the wire form of Message. A message with a single text part
// is written in the short form with the Text field only.
type messageJSON struct {
	Role  Role              `json:"role"`
	Text  string            `json:"text,omitempty"`
	Parts []json.RawMessage `json:"parts,omitempty"`
}

type partJSON struct {
	Type         string            `json:"type"`
	Text         string            `json:"text,omitempty"`
	ToolCall     *toolCallJSON     `json:"tool_call,omitempty"`
	ToolResponse *toolResponseJSON `json:"tool_response,omitempty"`
}

type toolCallJSON struct {
	FunctionCall     *FunctionCall `json:"function"`
	ID               string        `json:"id"`
	Type             string        `json:"type"`
	ThoughtSignature []byte        `json:"thought_signature,omitempty"`
}

type toolResponseJSON struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
}

// MarshalJSON implements json.Marshaler for Message
func (m Message) MarshalJSON() ([]byte, error) {
	if len(m.Parts) == 1 {
		if tp, ok := m.Parts[0].(TextContent); ok && tp.Text != "" {
			return json.Marshal(messageJSON{Role: m.Role, Text: tp.Text})
		}
	}

	res := struct {
		Role  Role          `json:"role"`
		Parts []ContentPart `json:"parts"`
	}{
		Role:  m.Role,
		Parts: m.Parts,
	}
	if res.Parts == nil {
		res.Parts = []ContentPart{}
	}
	return json.Marshal(res)
}

// UnmarshalJSON implements json.Unmarshaler for Message
func (m *Message) UnmarshalJSON(data []byte) error {
	var js messageJSON
	if err := json.Unmarshal(data, &js); err != nil {
		return errors.WithStack(err)
	}

	m.Role = js.Role
	m.Parts = nil

	if js.Text != "" {
		m.Parts = []ContentPart{TextContent{Text: js.Text}}
		return nil
	}

	for _, raw := range js.Parts {
		var pj partJSON
		if err := json.Unmarshal(raw, &pj); err != nil {
			return errors.WithStack(err)
		}
		part, err := unmarshalContentPart(&pj)
		if err != nil {
			return err
		}
		m.Parts = append(m.Parts, part)
	}
	return nil
}

func unmarshalContentPart(pj *partJSON) (ContentPart, error) {
	switch pj.Type {
	case partTypeText, "":
		return TextContent{Text: pj.Text}, nil
	case partTypeToolCall:
		if pj.ToolCall == nil {
			return nil, errors.New("tool_call field is required for tool_call type")
		}
		if pj.ToolCall.ID == "" {
			return nil, errors.New("missing id field in ToolCall")
		}
		fc := pj.ToolCall.FunctionCall
		if fc == nil {
			fc = &FunctionCall{}
		}
		return ToolCall{
			ID:               pj.ToolCall.ID,
			Type:             pj.ToolCall.Type,
			FunctionCall:     fc,
			ThoughtSignature: pj.ToolCall.ThoughtSignature,
		}, nil
	case partTypeToolResponse:
		if pj.ToolResponse == nil {
			return nil, errors.New("tool_response field is required for tool_response type")
		}
		if pj.ToolResponse.Name == "" {
			return nil, errors.New("missing name field in ToolCallResponse")
		}
		return ToolCallResponse{
			ToolCallID: pj.ToolResponse.ToolCallID,
			Name:       pj.ToolResponse.Name,
			Content:    pj.ToolResponse.Content,
		}, nil
	default:
		return nil, errors.Newf("unknown content type: '%s'", pj.Type)
	}
}

// MarshalJSON implements json.Marshaler for TextContent
func (tc TextContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(partJSON{
		Type: partTypeText,
		Text: tc.Text,
	})
}

// UnmarshalJSON implements json.Unmarshaler for TextContent
func (tc *TextContent) UnmarshalJSON(data []byte) error {
	var pj partJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return errors.WithStack(err)
	}
	if pj.Type != partTypeText {
		return errors.Newf("invalid type for TextContent: %v", pj.Type)
	}
	tc.Text = pj.Text
	return nil
}

// MarshalJSON implements json.Marshaler for ToolCall
func (tc ToolCall) MarshalJSON() ([]byte, error) {
	return json.Marshal(partJSON{
		Type: partTypeToolCall,
		ToolCall: &toolCallJSON{
			FunctionCall:     tc.FunctionCall,
			ID:               tc.ID,
			Type:             tc.Type,
			ThoughtSignature: tc.ThoughtSignature,
		},
	})
}

// UnmarshalJSON implements json.Unmarshaler for ToolCall
func (tc *ToolCall) UnmarshalJSON(data []byte) error {
	var pj partJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return errors.WithStack(err)
	}
	if pj.Type != partTypeToolCall {
		return errors.Newf("invalid type for ToolCall: %v", pj.Type)
	}
	part, err := unmarshalContentPart(&pj)
	if err != nil {
		return err
	}
	*tc = part.(ToolCall)
	return nil
}

// MarshalJSON implements json.Marshaler for ToolCallResponse
func (tc ToolCallResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(partJSON{
		Type: partTypeToolResponse,
		ToolResponse: &toolResponseJSON{
			ToolCallID: tc.ToolCallID,
			Name:       tc.Name,
			Content:    tc.Content,
		},
	})
}

// UnmarshalJSON implements json.Unmarshaler for ToolCallResponse
func (tc *ToolCallResponse) UnmarshalJSON(data []byte) error {
	var pj partJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return errors.WithStack(err)
	}
	if pj.Type != partTypeToolResponse {
		return errors.Newf("invalid type for ToolCallResponse: %v", pj.Type)
	}
	part, err := unmarshalContentPart(&pj)
	if err != nil {
		return err
	}
	*tc = part.(ToolCallResponse)
	return nil
}
