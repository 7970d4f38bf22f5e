package genaiutils

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagents/pkg/llms"
	"github.com/invopop/jsonschema"
	"google.golang.org/genai"
)

// ConvertTools converts from a list of llms tools to a list of genai
// tools.
func ConvertTools(tools []llms.Tool) ([]*genai.Tool, error) {
	if len(tools) == 0 {
		return nil, nil
	}

	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for i, tool := range tools {
		if tool.Type != "function" {
			return nil, errors.Errorf("tool [%d]: unsupported type %q, want 'function'", i, tool.Type)
		}
		if tool.Function == nil {
			return nil, errors.Errorf("tool [%d]: missing function definition", i)
		}

		decl := &genai.FunctionDeclaration{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
		}

		if tool.Function.Parameters != nil {
			schema, err := ConvertJSONSchemaDefinition(tool.Function.Parameters)
			if err != nil {
				return nil, errors.Wrapf(err, "tool [%d]", i)
			}
			decl.Parameters = schema
		}

		decls = append(decls, decl)
	}

	return []*genai.Tool{{FunctionDeclarations: decls}}, nil
}

// ConvertToolChoice converts the llms tool choice to genai.ToolConfig.
// Supported values are "auto", "none", "any" and a function name.
func ConvertToolChoice(choice any) *genai.ToolConfig {
	var mode genai.FunctionCallingConfigMode
	var allowed []string

	switch c := choice.(type) {
	case nil:
		return nil
	case llms.FunctionCallBehavior:
		return ConvertToolChoice(string(c))
	case string:
		switch c {
		case "", "auto":
			mode = genai.FunctionCallingConfigModeAuto
		case "none":
			mode = genai.FunctionCallingConfigModeNone
		case "any", "required":
			mode = genai.FunctionCallingConfigModeAny
		default:
			mode = genai.FunctionCallingConfigModeAny
			allowed = []string{c}
		}
	default:
		return nil
	}

	return &genai.ToolConfig{
		FunctionCallingConfig: &genai.FunctionCallingConfig{
			Mode:                 mode,
			AllowedFunctionNames: allowed,
		},
	}
}

// ConvertJSONSchemaDefinition converts a jsonschema.Schema to a genai.Schema.
func ConvertJSONSchemaDefinition(jschema *jsonschema.Schema) (*genai.Schema, error) {
	if jschema == nil {
		return nil, nil
	}

	schema := &genai.Schema{
		Type:        ConvertJSONSchemaType(jschema.Type),
		Description: jschema.Description,
		Required:    jschema.Required,
	}

	for _, e := range jschema.Enum {
		schema.Enum = append(schema.Enum, fmt.Sprint(e))
	}
	if len(schema.Enum) > 0 && schema.Type == genai.TypeString {
		schema.Format = "enum"
	}

	if jschema.Properties != nil {
		schema.Properties = make(map[string]*genai.Schema)
		for pair := jschema.Properties.Oldest(); pair != nil; pair = pair.Next() {
			propSchema, err := ConvertJSONSchemaDefinition(pair.Value)
			if err != nil {
				return nil, errors.Wrapf(err, "property [%s]", pair.Key)
			}
			schema.Properties[pair.Key] = propSchema
			schema.PropertyOrdering = append(schema.PropertyOrdering, pair.Key)
		}
	}

	if jschema.Items != nil {
		itemsSchema, err := ConvertJSONSchemaDefinition(jschema.Items)
		if err != nil {
			return nil, errors.Wrap(err, "items")
		}
		schema.Items = itemsSchema
	}

	return schema, nil
}

// ConvertJSONSchemaType converts a jsonschema type name to a genai.Type.
func ConvertJSONSchemaType(dt string) genai.Type {
	switch dt {
	case "object":
		return genai.TypeObject
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeUnspecified
	}
}

// Float32Ptr returns nil for zero, so unset options are not sent.
func Float32Ptr(f float32) *float32 {
	if f == 0 {
		return nil
	}
	return &f
}

// Int32Ptr returns nil for zero, so unset options are not sent.
func Int32Ptr(i int32) *int32 {
	if i == 0 {
		return nil
	}
	return &i
}
