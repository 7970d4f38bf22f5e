// Package upstream provides the HTTP plumbing shared by the tools that call
// external REST APIs.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagents/pkg/metricskey"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagents", "tools/upstream")

// DefaultTimeout is the timeout of upstream requests.
const DefaultTimeout = 10 * time.Second

// maxBodySize limits the response size read from upstream.
const maxBodySize = 4 << 20

// ErrMalformedResponse is returned when the response body can not be decoded.
var ErrMalformedResponse = errors.New("malformed response")

// StatusError is returned when upstream responded with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s for url: %s", e.Status, e.URL)
}

// NewClient returns a HTTP client with the timeout,
// DefaultTimeout is used when timeout is zero.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// Client sends requests to one upstream API.
type Client struct {
	// API is the name used in logs and metrics.
	API  string
	HTTP *http.Client
}

// New returns a client for the named API.
func New(api string, client *http.Client) *Client {
	if client == nil {
		client = NewClient(0)
	}
	return &Client{API: api, HTTP: client}
}

// GetJSON sends GET request and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	return c.do(req, headers, out)
}

// PostJSON sends POST request with JSON body and decodes the JSON response into out.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, body, out any) error {
	js, err := json.Marshal(body)
	if err != nil {
		return errors.WithStack(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(js))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, headers, out)
}

func (c *Client) do(req *http.Request, headers map[string]string, out any) error {
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	defer metricskey.PerfUpstreamRequest.MeasureSince(started, c.API)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		metricskey.StatsUpstreamRequests.IncrCounter(1, c.API, "error")
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = redactURL(req)
		}
		return errors.WithStack(err)
	}
	defer resp.Body.Close()

	metricskey.StatsUpstreamRequests.IncrCounter(1, c.API, strconv.Itoa(resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return errors.WithStack(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.ContextKV(req.Context(), xlog.DEBUG,
			"api", c.API,
			"status", resp.StatusCode,
			"body", slices.StringUpto(string(body), 256),
		)
		return &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        redactURL(req),
			Body:       string(body),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Mark(errors.Wrap(err, "failed to decode response"), ErrMalformedResponse)
	}
	return nil
}

// redactURL returns the request URL without the query,
// as the query may carry API keys.
func redactURL(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	return u.String()
}

// IsNetworkError returns true if err is not a status or decode error.
func IsNetworkError(err error) bool {
	var se *StatusError
	return err != nil && !errors.As(err, &se) && !errors.Is(err, ErrMalformedResponse)
}
