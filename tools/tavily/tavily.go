// Package tavily provides the tavily_search research tool.
package tavily

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tavilygo "github.com/diverged/tavily-go"
	tavilyModels "github.com/diverged/tavily-go/models"
	"github.com/effective-security/toolagents/pkg/metricskey"
	"github.com/effective-security/toolagents/pkg/schema"
	"github.com/effective-security/toolagents/tools"
	"github.com/invopop/jsonschema"
)

// ToolName is the name of the tool
const ToolName = "tavily_search"

// SearchRequest represents the tool input.
type SearchRequest struct {
	Query string `json:"query" yaml:"Query" jsonschema:"title=Search Query,description=The query to search web."`
}

// SearchResult represents the structure for a search response
type SearchResult struct {
	Results []tavilyModels.SearchResult `json:"results" yaml:"Results"`
	Answer  string                      `json:"answer,omitempty" yaml:"Answer"`
}

func (r *SearchResult) String() string {
	var buf bytes.Buffer
	if r.Answer != "" {
		fmt.Fprintf(&buf, "ANSWER: %s\n", r.Answer)
	}

	for _, result := range r.Results {
		fmt.Fprintf(&buf, "- URL: %s\n", result.URL)
		fmt.Fprintf(&buf, "  TITLE: %s\n", result.Title)
		fmt.Fprintf(&buf, "  SCORE: %f\n", result.Score)
		fmt.Fprintf(&buf, "  CONTENT: %s\n", result.Content)
	}

	if buf.Len() == 0 {
		return "No results found"
	}
	return buf.String()
}

var paramsSchema = schema.MustFor[SearchRequest]().Parameters

// Tool is a research tool with aggregated answer over the Tavily search API.
type Tool struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ tools.Tool[SearchRequest, SearchResult] = (*Tool)(nil)

// New returns the tool with the Tavily API key.
func New(apiKey string) (*Tool, error) {
	if apiKey == "" {
		return nil, tools.Errorf(tools.KindValidation, "TAVILY_API_KEY is not set")
	}
	return &Tool{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// WithBaseURL sets the API endpoint.
func (t *Tool) WithBaseURL(baseURL string) *Tool {
	t.baseURL = baseURL
	return t
}

// WithHTTPClient sets the HTTP client.
func (t *Tool) WithHTTPClient(client *http.Client) *Tool {
	t.httpClient = client
	return t
}

func (t *Tool) Name() string {
	return ToolName
}

func (t *Tool) Description() string {
	return "Research a question on the web. Returns an aggregated answer and the sources with their relevance score."
}

func (t *Tool) Parameters() *jsonschema.Schema {
	return paramsSchema
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	return tools.Invoke(ctx, t, input)
}

func (t *Tool) Run(_ context.Context, req *SearchRequest) (*SearchResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, tools.Errorf(tools.KindValidation, "Error searching web: query is empty")
	}

	client := tavilygo.NewClient(t.apiKey)
	if t.baseURL != "" {
		client.BaseURL = t.baseURL
	}
	if t.httpClient != nil {
		client.HTTPClient = t.httpClient
	}

	started := time.Now()
	defer metricskey.PerfUpstreamRequest.MeasureSince(started, "tavily")

	searchResp, err := tavilygo.Search(client, tavilyModels.SearchRequest{
		Query:         query,
		SearchDepth:   "basic",
		IncludeAnswer: true,
	})
	if err != nil {
		metricskey.StatsUpstreamRequests.IncrCounter(1, "tavily", "error")
		return nil, tools.Wrap(tools.KindUpstream, err, "Error searching web")
	}
	metricskey.StatsUpstreamRequests.IncrCounter(1, "tavily", "200")

	return &SearchResult{
		Results: searchResp.Results,
		Answer:  searchResp.Answer,
	}, nil
}
