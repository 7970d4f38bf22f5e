// Package websearch provides the search_web tool over the Serper API,
// with DuckDuckGo instant answers used without the API key or when Serper fails.
package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/effective-security/toolagents/pkg/schema"
	"github.com/effective-security/toolagents/tools"
	"github.com/effective-security/toolagents/tools/internal/upstream"
	"github.com/effective-security/xlog"
	"github.com/invopop/jsonschema"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagents", "tools/websearch")

const (
	// ToolName is the name of the tool
	ToolName = "search_web"
	// DefaultSerperURL is the Serper search endpoint
	DefaultSerperURL = "https://google.serper.dev/search"
	// DefaultDuckDuckGoURL is the DuckDuckGo instant answer endpoint
	DefaultDuckDuckGoURL = "https://api.duckduckgo.com/"

	// DefaultNumResults is used when the number of results is not specified
	DefaultNumResults = 5
	// MaxNumResults is the maximum number of results
	MaxNumResults = 10
)

// Result sources
const (
	SourceSerper     = "serper"
	SourceDuckDuckGo = "duckduckgo"
)

// Request represents the tool input.
type Request struct {
	Query      string `json:"query" yaml:"Query" jsonschema:"title=Query,description=The search query."`
	NumResults int    `json:"num_results,omitempty" yaml:"NumResults" jsonschema:"title=Number of Results,description=Number of results to return.,default=5,minimum=1,maximum=10"`
}

// Item is a single search result.
type Item struct {
	Title   string
	Snippet string
	URL     string
}

// Result of the web search.
type Result struct {
	Query  string
	Source string
	// Summary is the DuckDuckGo abstract.
	Summary    string
	SummaryURL string
	Items      []Item
}

func (r *Result) String() string {
	var blocks []string
	if r.Summary != "" {
		blocks = append(blocks, fmt.Sprintf("Summary: %s\nSource: %s\n", r.Summary, orNA(r.SummaryURL)))
	}
	for _, it := range r.Items {
		if r.Source == SourceDuckDuckGo {
			blocks = append(blocks, fmt.Sprintf("Related: %s\nURL: %s\n", it.Snippet, orNA(it.URL)))
		} else {
			blocks = append(blocks, fmt.Sprintf("Title: %s\nSnippet: %s\nURL: %s\n", it.Title, it.Snippet, it.URL))
		}
	}

	if len(blocks) > 0 {
		return fmt.Sprintf("Search results for '%s':\n\n", r.Query) + strings.Join(blocks, "\n")
	}
	if r.Source == SourceDuckDuckGo {
		return fmt.Sprintf("Search query: '%s'\n\n"+
			"Note: For better results, consider using Serper API. Add SERPER_API_KEY to your .env file.\n"+
			"You can get a free API key at https://serper.dev", r.Query)
	}
	return fmt.Sprintf("No results found for '%s'", r.Query)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

var paramsSchema = schema.MustFor[Request]().Parameters

// Tool is the search_web tool
type Tool struct {
	serperKey string
	serperURL string
	ddgURL    string
	serper    *upstream.Client
	ddg       *upstream.Client
}

var _ tools.Tool[Request, Result] = (*Tool)(nil)

// New returns the tool, Serper is used only when serperKey is not empty.
func New(serperKey string) *Tool {
	return &Tool{
		serperKey: serperKey,
		serperURL: DefaultSerperURL,
		ddgURL:    DefaultDuckDuckGoURL,
		serper:    upstream.New(SourceSerper, nil),
		ddg:       upstream.New(SourceDuckDuckGo, nil),
	}
}

// WithSerperURL sets the Serper endpoint.
func (t *Tool) WithSerperURL(u string) *Tool {
	t.serperURL = u
	return t
}

// WithDuckDuckGoURL sets the DuckDuckGo endpoint.
func (t *Tool) WithDuckDuckGoURL(u string) *Tool {
	t.ddgURL = u
	return t
}

// WithHTTPClient sets the HTTP client.
func (t *Tool) WithHTTPClient(client *http.Client) *Tool {
	if client != nil {
		t.serper = upstream.New(SourceSerper, client)
		t.ddg = upstream.New(SourceDuckDuckGo, client)
	}
	return t
}

func (t *Tool) Name() string {
	return ToolName
}

func (t *Tool) Description() string {
	return "Search the web for information. Returns search results with titles, snippets, and URLs."
}

func (t *Tool) Parameters() *jsonschema.Schema {
	return paramsSchema
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	return tools.Invoke(ctx, t, input)
}

// NumResults returns n limited to [1, MaxNumResults],
// zero is DefaultNumResults.
func NumResults(n int) int {
	switch {
	case n == 0:
		return DefaultNumResults
	case n < 1:
		return 1
	case n > MaxNumResults:
		return MaxNumResults
	}
	return n
}

func (t *Tool) Run(ctx context.Context, req *Request) (*Result, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, tools.Errorf(tools.KindValidation, "Error searching web: query is empty")
	}
	num := NumResults(req.NumResults)

	if t.serperKey != "" {
		res, err := t.searchSerper(ctx, query, num)
		if err == nil {
			return res, nil
		}
		logger.ContextKV(ctx, xlog.WARNING,
			"reason", "serper_failed",
			"fallback", SourceDuckDuckGo,
			"err", err.Error(),
		)
	}

	res, err := t.searchDuckDuckGo(ctx, query, num)
	if err != nil {
		kind := tools.KindUpstream
		if upstream.IsNetworkError(err) {
			kind = tools.KindNetwork
		}
		return nil, tools.Wrap(kind, err, "Error searching web")
	}
	return res, nil
}

type serperResponse struct {
	Organic []struct {
		Title   *string `json:"title"`
		Snippet *string `json:"snippet"`
		Link    string  `json:"link"`
	} `json:"organic"`
}

func (t *Tool) searchSerper(ctx context.Context, query string, num int) (*Result, error) {
	var resp serperResponse
	err := t.serper.PostJSON(ctx, t.serperURL,
		map[string]string{"X-API-KEY": t.serperKey},
		map[string]any{"q": query, "num": num},
		&resp,
	)
	if err != nil {
		return nil, err
	}

	res := &Result{Query: query, Source: SourceSerper}
	for i, o := range resp.Organic {
		if i == num {
			break
		}
		it := Item{Title: "No title", Snippet: "No description", URL: o.Link}
		if o.Title != nil {
			it.Title = *o.Title
		}
		if o.Snippet != nil {
			it.Snippet = *o.Snippet
		}
		res.Items = append(res.Items, it)
	}
	return res, nil
}

type ddgTopic struct {
	Text     *string `json:"Text"`
	FirstURL string  `json:"FirstURL"`
}

type ddgResponse struct {
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

func (t *Tool) searchDuckDuckGo(ctx context.Context, query string, num int) (*Result, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("skip_disambig", "1")

	var resp ddgResponse
	if err := t.ddg.GetJSON(ctx, t.ddgURL+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	res := &Result{
		Query:      query,
		Source:     SourceDuckDuckGo,
		Summary:    resp.AbstractText,
		SummaryURL: resp.AbstractURL,
	}
	for i, topic := range resp.RelatedTopics {
		if i == num {
			break
		}
		// topic groups have no Text
		if topic.Text == nil {
			continue
		}
		res.Items = append(res.Items, Item{Snippet: *topic.Text, URL: topic.FirstURL})
	}
	return res, nil
}
