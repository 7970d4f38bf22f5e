// Package googleai implements the llms.Model provider for Gemini models
// served by the Gemini API. See https://ai.google.dev/ for more details.
package googleai

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagents/pkg/llms"
	"google.golang.org/genai"
)

// ErrMissingAuth is returned when neither an API key nor credentials are provided.
var ErrMissingAuth = errors.New("googleai: API key or credentials are required")

// GoogleAI is a type that represents a Google AI API client.
type GoogleAI struct {
	client *genai.Client
	opts   Options
}

var _ llms.Model = (*GoogleAI)(nil)

// New creates a new GoogleAI client.
func New(ctx context.Context, opts ...Option) (*GoogleAI, error) {
	clientOptions := DefaultOptions()
	for _, opt := range opts {
		opt(&clientOptions)
	}
	if clientOptions.APIKey == "" && clientOptions.Credentials == nil {
		return nil, errors.WithStack(ErrMissingAuth)
	}

	cfg := &genai.ClientConfig{
		Project:     clientOptions.CloudProject,
		Location:    clientOptions.CloudLocation,
		APIKey:      clientOptions.APIKey,
		Credentials: clientOptions.Credentials,
		HTTPClient:  clientOptions.HTTPClient,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: clientOptions.BaseURL,
		},
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create genai client")
	}

	return &GoogleAI{
		client: client,
		opts:   clientOptions,
	}, nil
}

// Temperature returns the default sampling temperature of the client.
func (g *GoogleAI) Temperature() float64 {
	return g.opts.DefaultTemperature
}
