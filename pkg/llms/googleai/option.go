package googleai

import (
	"net/http"

	"cloud.google.com/go/auth"
	"google.golang.org/genai"
)

// Options is a set of options for GoogleAI clients.
type Options struct {
	CloudProject          string
	CloudLocation         string
	BaseURL               string
	DefaultModel          string
	DefaultCandidateCount int
	DefaultMaxTokens      int
	DefaultTemperature    float64
	DefaultTopK           int
	DefaultTopP           float64
	HarmThreshold         genai.HarmBlockThreshold
	APIKey                string
	Credentials           *auth.Credentials
	HTTPClient            *http.Client
}

// DefaultOptions returns options for gemini-2.5-flash with the agent temperature.
func DefaultOptions() Options {
	return Options{
		DefaultModel:          "gemini-2.5-flash",
		DefaultCandidateCount: 1,
		DefaultTemperature:    0.7,
		HarmThreshold:         genai.HarmBlockThresholdBlockOnlyHigh,
	}
}

type Option func(*Options)

// WithAPIKey passes the API KEY (token) to the client.
func WithAPIKey(apiKey string) Option {
	return func(opts *Options) {
		opts.APIKey = apiKey
	}
}

// WithCredentials append a ClientOption that authenticates
// API calls with the given service account or refresh token
// credentials.
func WithCredentials(credentials *auth.Credentials) Option {
	return func(opts *Options) {
		if credentials == nil {
			return
		}
		opts.Credentials = credentials
	}
}

// WithHTTPClient append a ClientOption that uses the provided HTTP client to
// make requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(opts *Options) {
		opts.HTTPClient = httpClient
	}
}

// WithBaseURL overrides the Gemini API endpoint, used by tests and proxies.
func WithBaseURL(u string) Option {
	return func(opts *Options) {
		opts.BaseURL = u
	}
}

// WithCloudProject passes the GCP cloud project name to the client.
func WithCloudProject(p string) Option {
	return func(opts *Options) {
		opts.CloudProject = p
	}
}

// WithCloudLocation passes the GCP cloud location (region) name to the client.
func WithCloudLocation(l string) Option {
	return func(opts *Options) {
		opts.CloudLocation = l
	}
}

// WithDefaultModel passes a default content model name to the client. This
// model name is used if not explicitly provided in specific client invocations.
func WithDefaultModel(defaultModel string) Option {
	return func(opts *Options) {
		opts.DefaultModel = defaultModel
	}
}

// WithDefaultCandidateCount sets the candidate count for the model.
func WithDefaultCandidateCount(defaultCandidateCount int) Option {
	return func(opts *Options) {
		opts.DefaultCandidateCount = defaultCandidateCount
	}
}

// WithDefaultMaxTokens sets the maximum token count for the model.
func WithDefaultMaxTokens(maxTokens int) Option {
	return func(opts *Options) {
		opts.DefaultMaxTokens = maxTokens
	}
}

// WithDefaultTemperature sets the sampling temperature used when a call
// does not provide one. Zero is sent as is.
func WithDefaultTemperature(defaultTemperature float64) Option {
	return func(opts *Options) {
		opts.DefaultTemperature = defaultTemperature
	}
}

// WithDefaultTopK sets the TopK for the model.
func WithDefaultTopK(defaultTopK int) Option {
	return func(opts *Options) {
		opts.DefaultTopK = defaultTopK
	}
}

// WithDefaultTopP sets the TopP for the model.
func WithDefaultTopP(defaultTopP float64) Option {
	return func(opts *Options) {
		opts.DefaultTopP = defaultTopP
	}
}

// WithHarmThreshold sets the safety/harm setting for the model, potentially
// limiting any harmful content it may generate.
func WithHarmThreshold(ht genai.HarmBlockThreshold) Option {
	return func(opts *Options) {
		opts.HarmThreshold = ht
	}
}
