package config

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagents", "config")

var (
	// ErrMissingConfig is returned when a required variable is missing or empty.
	ErrMissingConfig = errors.New("missing configuration")
	// ErrInvalidConfig is returned when a variable has an invalid value.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Environment variables
const (
	EnvFile               = "ENV_FILE"
	EnvGoogleAPIKey       = "GOOGLE_API_KEY"
	EnvGoogleModel        = "GOOGLE_MODEL"
	EnvOpenWeatherAPIKey  = "OPENWEATHER_API_KEY"
	EnvOpenWeatherBaseURL = "OPENWEATHER_BASE_URL"
	EnvSerperAPIKey       = "SERPER_API_KEY"
	EnvTavilyAPIKey       = "TAVILY_API_KEY"
	EnvSMTPServer         = "SMTP_SERVER"
	EnvSMTPPort           = "SMTP_PORT"
	EnvEmailAddress       = "EMAIL_ADDRESS"
	EnvEmailPassword      = "EMAIL_PASSWORD"
	EnvNotesDir           = "NOTES_DIR"
	EnvRedisURL           = "REDIS_URL"
	EnvLLMConfig          = "LLM_CONFIG"
	EnvLogLevel           = "LOG_LEVEL"
	EnvHTTPTimeout        = "HTTP_TIMEOUT"
)

// Defaults
const (
	DefaultGoogleModel        = "gemini-2.5-flash"
	DefaultOpenWeatherBaseURL = "http://api.openweathermap.org"
	DefaultSMTPServer         = "smtp.gmail.com"
	DefaultSMTPPort           = 587
	DefaultNotesDir           = "notes"
	DefaultLogLevel           = "INFO"
	DefaultHTTPTimeout        = 10 * time.Second
)

// Config is the agent configuration, it is not modified after Load.
type Config struct {
	GoogleAPIKey       string        `env:"GOOGLE_API_KEY" validate:"required"`
	GoogleModel        string        `env:"GOOGLE_MODEL" validate:"required"`
	OpenWeatherAPIKey  string        `env:"OPENWEATHER_API_KEY"`
	OpenWeatherBaseURL string        `env:"OPENWEATHER_BASE_URL" validate:"required,url"`
	SerperAPIKey       string        `env:"SERPER_API_KEY"`
	TavilyAPIKey       string        `env:"TAVILY_API_KEY"`
	SMTPServer         string        `env:"SMTP_SERVER" validate:"required"`
	SMTPPort           int           `env:"SMTP_PORT" validate:"min=1,max=65535"`
	EmailAddress       string        `env:"EMAIL_ADDRESS" validate:"omitempty,email"`
	EmailPassword      string        `env:"EMAIL_PASSWORD"`
	NotesDir           string        `env:"NOTES_DIR" validate:"required"`
	RedisURL           string        `env:"REDIS_URL" validate:"omitempty,url"`
	LLMConfig          string        `env:"LLM_CONFIG"`
	LogLevel           string        `env:"LOG_LEVEL" validate:"oneof=TRACE DEBUG INFO NOTICE WARNING ERROR CRITICAL"`
	HTTPTimeout        time.Duration `env:"HTTP_TIMEOUT" validate:"gt=0"`
}

// Requirement names the variables an agent needs in addition to GOOGLE_API_KEY.
type Requirement struct {
	Name string
	Keys []string
}

var (
	// RequireWeather is needed by the get_weather tool.
	RequireWeather = Requirement{Name: "weather", Keys: []string{EnvOpenWeatherAPIKey}}
	// RequireEmail is needed by the send_email tool.
	RequireEmail = Requirement{Name: "email", Keys: []string{EnvEmailAddress, EnvEmailPassword}}
)

// Load reads the dotenv file, if any, and returns the configuration from the process environment.
// The file is ENV_FILE when set, otherwise .env or ../.env; process variables take precedence.
func Load(reqs ...Requirement) (*Config, error) {
	if file := findEnvFile(); file != "" {
		if err := godotenv.Load(file); err != nil {
			return nil, errors.Wrapf(ErrInvalidConfig, "unable to load %s: %s", file, err.Error())
		}
		logger.KV(xlog.DEBUG, "status", "loaded_env_file", "file", file)
	}
	return FromLookup(os.LookupEnv, reqs...)
}

func findEnvFile() string {
	if file := os.Getenv(EnvFile); file != "" {
		return file
	}
	for _, file := range []string{".env", "../.env"} {
		if st, err := os.Stat(file); err == nil && !st.IsDir() {
			return file
		}
	}
	return ""
}

// FromLookup returns the configuration from the lookup function.
func FromLookup(lookup func(string) (string, bool), reqs ...Requirement) (*Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	cfg := &Config{
		GoogleAPIKey:       get(EnvGoogleAPIKey),
		GoogleModel:        values.StringsCoalesce(get(EnvGoogleModel), DefaultGoogleModel),
		OpenWeatherAPIKey:  get(EnvOpenWeatherAPIKey),
		OpenWeatherBaseURL: strings.TrimSuffix(values.StringsCoalesce(get(EnvOpenWeatherBaseURL), DefaultOpenWeatherBaseURL), "/"),
		SerperAPIKey:       get(EnvSerperAPIKey),
		TavilyAPIKey:       get(EnvTavilyAPIKey),
		SMTPServer:         values.StringsCoalesce(get(EnvSMTPServer), DefaultSMTPServer),
		SMTPPort:           DefaultSMTPPort,
		EmailAddress:       unquote(get(EnvEmailAddress)),
		EmailPassword:      unquote(get(EnvEmailPassword)),
		NotesDir:           values.StringsCoalesce(get(EnvNotesDir), DefaultNotesDir),
		RedisURL:           get(EnvRedisURL),
		LLMConfig:          get(EnvLLMConfig),
		LogLevel:           strings.ToUpper(values.StringsCoalesce(get(EnvLogLevel), DefaultLogLevel)),
		HTTPTimeout:        DefaultHTTPTimeout,
	}

	if s := get(EnvSMTPPort); s != "" {
		port, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidConfig, "%s: %q", EnvSMTPPort, s)
		}
		cfg.SMTPPort = port
	}
	if s := get(EnvHTTPTimeout); s != "" {
		timeout, err := parseTimeout(s)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidConfig, "%s: %q", EnvHTTPTimeout, s)
		}
		cfg.HTTPTimeout = timeout
	}

	if err := cfg.validate(reqs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Has returns true if the requirement is satisfied.
func (c *Config) Has(req Requirement) bool {
	for _, key := range req.Keys {
		if c.value(key) == "" {
			return false
		}
	}
	return true
}

func (c *Config) validate(reqs ...Requirement) error {
	v := newValidator()
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return errors.Wrap(ErrInvalidConfig, err.Error())
		}
		fe := verrs[0]
		if fe.Tag() == "required" {
			return errors.Wrapf(ErrMissingConfig, "%s", fe.Field())
		}
		return errors.Wrapf(ErrInvalidConfig, "%s: %v", fe.Field(), fe.Value())
	}

	for _, req := range reqs {
		for _, key := range req.Keys {
			if err := v.Var(c.value(key), "required"); err != nil {
				return errors.Wrapf(ErrMissingConfig, "%s is required for %s", key, req.Name)
			}
		}
	}
	return nil
}

// value returns the string value of the field tagged with the env key.
func (c *Config) value(key string) string {
	rv := reflect.ValueOf(c).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		if rt.Field(i).Tag.Get("env") == key {
			f := rv.Field(i)
			if f.Kind() == reflect.String {
				return f.String()
			}
			return ""
		}
	}
	return ""
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return values.StringsCoalesce(fld.Tag.Get("env"), fld.Name)
	})
	return v
}

// parseTimeout accepts a Go duration or a number of seconds.
func parseTimeout(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

func unquote(s string) string {
	return strings.Trim(s, `"'`)
}
