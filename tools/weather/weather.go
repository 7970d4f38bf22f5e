// Package weather provides the get_weather tool over the OpenWeather current
// weather API.
package weather

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagents/pkg/schema"
	"github.com/effective-security/toolagents/tools"
	"github.com/effective-security/toolagents/tools/internal/upstream"
	"github.com/invopop/jsonschema"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// ToolName is the name of the tool
	ToolName = "get_weather"
	// DefaultBaseURL is the OpenWeather API endpoint
	DefaultBaseURL = "http://api.openweathermap.org"
)

const description = `Get current weather information for a city.
Returns temperature, condition, humidity, and wind speed.
The city is the name of the city to get weather for (e.g., "London", "New York", "Bangalore", "Tokyo").`

// Request represents the tool input.
type Request struct {
	City string `json:"city" yaml:"City" jsonschema:"title=City,description=The name of the city to get weather for (e.g. London or Tokyo)."`
}

// Result is the current weather in a city.
type Result struct {
	City        string
	Country     string
	Temp        float64
	FeelsLike   float64
	Humidity    float64
	Description string
	WindSpeed   float64
}

func (r *Result) String() string {
	return fmt.Sprintf(`Weather in %s, %s:
- Temperature: %s°C (feels like %s°C)
- Condition: %s
- Humidity: %s%%
- Wind Speed: %s m/s`,
		r.City, r.Country,
		formatNumber(r.Temp), formatNumber(r.FeelsLike),
		r.Description,
		formatNumber(r.Humidity),
		formatNumber(r.WindSpeed),
	)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// response is the subset of the OpenWeather payload used by the tool,
// pointers tell missing keys from zero values.
type response struct {
	Name *string `json:"name"`
	Sys  *struct {
		Country *string `json:"country"`
	} `json:"sys"`
	Main *struct {
		Temp      *float64 `json:"temp"`
		FeelsLike *float64 `json:"feels_like"`
		Humidity  *float64 `json:"humidity"`
	} `json:"main"`
	Weather *[]struct {
		Description *string `json:"description"`
	} `json:"weather"`
	Wind *struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
}

var (
	titleCaser   = cases.Title(language.English)
	paramsSchema = schema.MustFor[Request]().Parameters
)

// Tool is the get_weather tool
type Tool struct {
	name        string
	description string
	apiKey      string
	baseURL     string
	client      *upstream.Client
}

var _ tools.Tool[Request, Result] = (*Tool)(nil)

// New returns the tool with the OpenWeather API key.
func New(apiKey string) *Tool {
	return &Tool{
		name:        ToolName,
		description: description,
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		client:      upstream.New("openweather", nil),
	}
}

// WithBaseURL sets the API endpoint.
func (t *Tool) WithBaseURL(baseURL string) *Tool {
	if baseURL != "" {
		t.baseURL = strings.TrimSuffix(baseURL, "/")
	}
	return t
}

// WithHTTPClient sets the HTTP client.
func (t *Tool) WithHTTPClient(client *http.Client) *Tool {
	if client != nil {
		t.client = upstream.New("openweather", client)
	}
	return t
}

func (t *Tool) Name() string {
	return t.name
}

func (t *Tool) Description() string {
	return t.description
}

func (t *Tool) Parameters() *jsonschema.Schema {
	return paramsSchema
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	return tools.Invoke(ctx, t, input)
}

func (t *Tool) Run(ctx context.Context, req *Request) (*Result, error) {
	city := strings.TrimSpace(req.City)
	if city == "" {
		return nil, tools.Errorf(tools.KindValidation, "Error: city name is required")
	}

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", t.apiKey)
	q.Set("units", "metric")

	var resp response
	err := t.client.GetJSON(ctx, t.baseURL+"/data/2.5/weather?"+q.Encode(), nil, &resp)
	if err != nil {
		kind := tools.KindUpstream
		if upstream.IsNetworkError(err) {
			kind = tools.KindNetwork
		}
		return nil, tools.Wrap(kind, err, "Error fetching weather data")
	}

	return resp.result()
}

func missingKey(key string) error {
	return tools.Errorf(tools.KindUpstream, "Error parsing weather data: Missing key '%s'", key)
}

func (r *response) result() (*Result, error) {
	switch {
	case r.Name == nil:
		return nil, missingKey("name")
	case r.Sys == nil:
		return nil, missingKey("sys")
	case r.Sys.Country == nil:
		return nil, missingKey("country")
	case r.Main == nil:
		return nil, missingKey("main")
	case r.Main.Temp == nil:
		return nil, missingKey("temp")
	case r.Main.FeelsLike == nil:
		return nil, missingKey("feels_like")
	case r.Main.Humidity == nil:
		return nil, missingKey("humidity")
	case r.Weather == nil:
		return nil, missingKey("weather")
	}
	if len(*r.Weather) == 0 {
		return nil, tools.Wrap(tools.KindUpstream, errors.New("weather list is empty"), tools.UnexpectedErrorPrefix)
	}
	w := (*r.Weather)[0]
	switch {
	case w.Description == nil:
		return nil, missingKey("description")
	case r.Wind == nil:
		return nil, missingKey("wind")
	case r.Wind.Speed == nil:
		return nil, missingKey("speed")
	}

	return &Result{
		City:        *r.Name,
		Country:     *r.Sys.Country,
		Temp:        *r.Main.Temp,
		FeelsLike:   *r.Main.FeelsLike,
		Humidity:    *r.Main.Humidity,
		Description: titleCaser.String(*w.Description),
		WindSpeed:   *r.Wind.Speed,
	}, nil
}
