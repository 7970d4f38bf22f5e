package genaiutils

import (
	"testing"

	"github.com/effective-security/toolagents/pkg/llms"
	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"google.golang.org/genai"
)

func TestConvertJSONSchemaDefinition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		definition *jsonschema.Schema
		validate   func(t *testing.T, result *genai.Schema)
	}{
		{
			name: "simple object with properties",
			definition: &jsonschema.Schema{
				Type:        "object",
				Description: "Test schema",
				Properties: orderedmap.New[string, *jsonschema.Schema](
					orderedmap.WithInitialData(
						orderedmap.Pair[string, *jsonschema.Schema]{
							Key: "city",
							Value: &jsonschema.Schema{
								Type:        "string",
								Description: "City name",
							},
						},
						orderedmap.Pair[string, *jsonschema.Schema]{
							Key: "num_results",
							Value: &jsonschema.Schema{
								Type: "integer",
							},
						},
					),
				),
				Required: []string{"city"},
			},
			validate: func(t *testing.T, result *genai.Schema) {
				assert.Equal(t, genai.TypeObject, result.Type)
				assert.Equal(t, "Test schema", result.Description)
				assert.Equal(t, []string{"city"}, result.Required)
				assert.Equal(t, []string{"city", "num_results"}, result.PropertyOrdering)

				require.Len(t, result.Properties, 2)
				assert.Equal(t, genai.TypeString, result.Properties["city"].Type)
				assert.Equal(t, "City name", result.Properties["city"].Description)
				assert.Equal(t, genai.TypeInteger, result.Properties["num_results"].Type)
			},
		},
		{
			name: "array with items",
			definition: &jsonschema.Schema{
				Type: "array",
				Items: &jsonschema.Schema{
					Type:        "number",
					Description: "Array item",
				},
			},
			validate: func(t *testing.T, result *genai.Schema) {
				assert.Equal(t, genai.TypeArray, result.Type)
				require.NotNil(t, result.Items)
				assert.Equal(t, genai.TypeNumber, result.Items.Type)
			},
		},
		{
			name: "string enum",
			definition: &jsonschema.Schema{
				Type: "string",
				Enum: []any{"bullet", "paragraph", "key"},
			},
			validate: func(t *testing.T, result *genai.Schema) {
				assert.Equal(t, []string{"bullet", "paragraph", "key"}, result.Enum)
				assert.Equal(t, "enum", result.Format)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result, err := ConvertJSONSchemaDefinition(tt.definition)
			require.NoError(t, err)
			tt.validate(t, result)
		})
	}

	res, err := ConvertJSONSchemaDefinition(nil)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestConvertJSONSchemaType(t *testing.T) {
	t.Parallel()
	assert.Equal(t, genai.TypeObject, ConvertJSONSchemaType("object"))
	assert.Equal(t, genai.TypeString, ConvertJSONSchemaType("string"))
	assert.Equal(t, genai.TypeNumber, ConvertJSONSchemaType("number"))
	assert.Equal(t, genai.TypeInteger, ConvertJSONSchemaType("integer"))
	assert.Equal(t, genai.TypeBoolean, ConvertJSONSchemaType("boolean"))
	assert.Equal(t, genai.TypeArray, ConvertJSONSchemaType("array"))
	assert.Equal(t, genai.TypeUnspecified, ConvertJSONSchemaType("null"))
}

func TestConvertTools(t *testing.T) {
	t.Parallel()

	res, err := ConvertTools(nil)
	require.NoError(t, err)
	assert.Nil(t, res)

	_, err = ConvertTools([]llms.Tool{{Type: "retrieval"}})
	assert.EqualError(t, err, `tool [0]: unsupported type "retrieval", want 'function'`)

	_, err = ConvertTools([]llms.Tool{{Type: "function"}})
	assert.EqualError(t, err, "tool [0]: missing function definition")

	res, err = ConvertTools([]llms.Tool{
		{Type: "function", Function: &llms.FunctionDefinition{Name: "get_weather", Description: "weather"}},
		{Type: "function", Function: &llms.FunctionDefinition{Name: "send_email", Description: "email",
			Parameters: &jsonschema.Schema{Type: "object"}}},
	})
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Len(t, res[0].FunctionDeclarations, 2)
	assert.Equal(t, "get_weather", res[0].FunctionDeclarations[0].Name)
	assert.Nil(t, res[0].FunctionDeclarations[0].Parameters)
	assert.Equal(t, genai.TypeObject, res[0].FunctionDeclarations[1].Parameters.Type)
}

func TestConvertToolChoice(t *testing.T) {
	t.Parallel()
	assert.Nil(t, ConvertToolChoice(nil))
	assert.Nil(t, ConvertToolChoice(42))

	tc := ConvertToolChoice("auto")
	assert.Equal(t, genai.FunctionCallingConfigModeAuto, tc.FunctionCallingConfig.Mode)

	tc = ConvertToolChoice(llms.FunctionCallBehaviorNone)
	assert.Equal(t, genai.FunctionCallingConfigModeNone, tc.FunctionCallingConfig.Mode)

	tc = ConvertToolChoice("get_weather")
	assert.Equal(t, genai.FunctionCallingConfigModeAny, tc.FunctionCallingConfig.Mode)
	assert.Equal(t, []string{"get_weather"}, tc.FunctionCallingConfig.AllowedFunctionNames)
}

func TestPtrs(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Float32Ptr(0))
	assert.Equal(t, float32(0.5), *Float32Ptr(0.5))
	assert.Nil(t, Int32Ptr(0))
	assert.Equal(t, int32(3), *Int32Ptr(3))
}
