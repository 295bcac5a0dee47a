package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"
	"gopkg.in/yaml.v3"

	"github.com/Easy-Infra-Ltd/easy-web-search/src/errs"
)

// Config is the top-level configuration loaded from a JSON or YAML file.
type Config struct {
	Upstream UpstreamConfig `json:"upstream" yaml:"upstream"`
	Search   SearchConfig   `json:"search" yaml:"search"`
	Boundary BoundaryConfig `json:"boundary" yaml:"boundary"`
}

// UpstreamConfig controls how LLM clients connect to the MCP server.
type UpstreamConfig struct {
	Transport string     `json:"transport" yaml:"transport"` // "stdio" or "http"
	HTTP      HTTPConfig `json:"http" yaml:"http"`
}

// HTTPConfig holds HTTP listener settings.
type HTTPConfig struct {
	Addr string `json:"addr" yaml:"addr"` // e.g. ":8080"
	Path string `json:"path" yaml:"path"` // e.g. "/mcp"
}

// SearchConfig controls the DuckDuckGo client.
type SearchConfig struct {
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	UserAgent string `json:"userAgent" yaml:"userAgent"`
	// MinRequestIntervalMs is the minimum gap between two outgoing requests.
	MinRequestIntervalMs *int   `json:"minRequestIntervalMs,omitempty" yaml:"minRequestIntervalMs,omitempty"`
	TimeoutSeconds       int    `json:"timeoutSeconds" yaml:"timeoutSeconds"`
	Count                int    `json:"count" yaml:"count"`
	Region               string `json:"region" yaml:"region"`
	Safe                 string `json:"safe" yaml:"safe"`
}

// BoundaryConfig controls how fetched content is wrapped. When used as a
// CLI override, non-nil fields replace the file values.
type BoundaryConfig struct {
	// MaxContentChars caps the payload in code points before wrapping; 0
	// disables the cap. A capped JSON report is cut mid-document.
	MaxContentChars *int    `json:"maxContentChars,omitempty" yaml:"maxContentChars,omitempty"`
	Source          *string `json:"source,omitempty" yaml:"source,omitempty"`
}

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"

	DefaultHTTPAddr = ":8080"
	DefaultHTTPPath = "/mcp"

	DefaultEndpoint             = "https://html.duckduckgo.com/html/"
	DefaultUserAgent            = "easy-web-search/1.0 (+https://github.com/Easy-Infra-Ltd/easy-web-search)"
	DefaultMinRequestIntervalMs = 1000
	DefaultTimeoutSeconds       = 30
	DefaultCount                = 10
	DefaultSafe                 = "moderate"

	DefaultMaxContentChars = 0
	DefaultSource          = "Web Search"
)

var safeLevels = map[string]struct{}{"off": {}, "moderate": {}, "strict": {}}

// Default returns a Config with every default applied.
func Default() Config {
	var cfg Config
	applyDefaults(&cfg)
	return cfg
}

// Load reads and parses a config file, applies defaults, and validates.
// Files ending in .yaml or .yml are decoded as YAML, anything else as JSON.
// An empty path yields Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errs.Wrap(err, errs.CodeConfigLoadReadFailure, "reading config "+path)
	}

	var cfg Config
	if err := decode(path, data, &cfg); err != nil {
		return Config{}, errs.Wrap(err, errs.CodeConfigParseInvalidFormat, "parsing config")
	}

	applyDefaults(&cfg)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

// MinRequestInterval returns the configured gap between requests.
func (c SearchConfig) MinRequestInterval() time.Duration {
	if c.MinRequestIntervalMs == nil {
		return DefaultMinRequestIntervalMs * time.Millisecond
	}
	return time.Duration(*c.MinRequestIntervalMs) * time.Millisecond
}

// Timeout returns the per-request HTTP timeout.
func (c SearchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func applyDefaults(cfg *Config) {
	if cfg.Upstream.Transport == "" {
		cfg.Upstream.Transport = TransportStdio
	}
	if cfg.Upstream.HTTP.Addr == "" {
		cfg.Upstream.HTTP.Addr = DefaultHTTPAddr
	}
	if cfg.Upstream.HTTP.Path == "" {
		cfg.Upstream.HTTP.Path = DefaultHTTPPath
	}

	if cfg.Search.Endpoint == "" {
		cfg.Search.Endpoint = DefaultEndpoint
	}
	if cfg.Search.UserAgent == "" {
		cfg.Search.UserAgent = DefaultUserAgent
	}
	if cfg.Search.MinRequestIntervalMs == nil {
		cfg.Search.MinRequestIntervalMs = intPtr(DefaultMinRequestIntervalMs)
	}
	if cfg.Search.TimeoutSeconds == 0 {
		cfg.Search.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if cfg.Search.Count == 0 {
		cfg.Search.Count = DefaultCount
	}
	if cfg.Search.Safe == "" {
		cfg.Search.Safe = DefaultSafe
	}

	if cfg.Boundary.MaxContentChars == nil {
		cfg.Boundary.MaxContentChars = intPtr(DefaultMaxContentChars)
	}
	if cfg.Boundary.Source == nil {
		cfg.Boundary.Source = strPtr(DefaultSource)
	}
}

// Validate reports the first invalid setting in cfg.
func Validate(cfg Config) error {
	if cfg.Upstream.Transport != TransportStdio && cfg.Upstream.Transport != TransportHTTP {
		return errs.Errorf(errs.CodeConfigValidateInvalidValue,
			"upstream transport must be %q or %q, got %q",
			TransportStdio, TransportHTTP, cfg.Upstream.Transport)
	}

	u, err := url.Parse(cfg.Search.Endpoint)
	if err != nil {
		return errs.Wrapf(err, errs.CodeConfigValidateInvalidValue, "search.endpoint %q", cfg.Search.Endpoint)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errs.Errorf(errs.CodeConfigValidateInvalidValue,
			"search.endpoint must be an absolute http(s) URL, got %q", cfg.Search.Endpoint)
	}

	if cfg.Search.MinRequestIntervalMs != nil && *cfg.Search.MinRequestIntervalMs < 0 {
		return errs.Errorf(errs.CodeConfigValidateInvalidValue,
			"search.minRequestIntervalMs must not be negative (got %d)", *cfg.Search.MinRequestIntervalMs)
	}
	if cfg.Search.TimeoutSeconds <= 0 {
		return errs.Errorf(errs.CodeConfigValidateInvalidValue,
			"search.timeoutSeconds must be positive (got %d)", cfg.Search.TimeoutSeconds)
	}
	if cfg.Search.Count <= 0 {
		return errs.Errorf(errs.CodeConfigValidateInvalidValue,
			"search.count must be positive (got %d)", cfg.Search.Count)
	}
	if _, ok := safeLevels[cfg.Search.Safe]; !ok {
		return errs.Errorf(errs.CodeConfigValidateInvalidValue,
			"search.safe must be off, moderate or strict, got %q", cfg.Search.Safe)
	}

	if cfg.Boundary.MaxContentChars != nil && *cfg.Boundary.MaxContentChars < 0 {
		return errs.Errorf(errs.CodeConfigValidateInvalidValue,
			"boundary.maxContentChars must not be negative (got %d)", *cfg.Boundary.MaxContentChars)
	}

	return nil
}

// Merge returns a BoundaryConfig with override applied on top of global.
// Fields that are nil in the override keep the global value.
func Merge(global, override *BoundaryConfig) BoundaryConfig {
	if override == nil {
		return *global
	}

	merged := *global

	if override.MaxContentChars != nil {
		merged.MaxContentChars = override.MaxContentChars
	}
	if override.Source != nil {
		merged.Source = override.Source
	}

	return merged
}

// MaxChars dereferences MaxContentChars, treating nil as no cap.
func (b BoundaryConfig) MaxChars() int {
	if b.MaxContentChars == nil {
		return 0
	}
	return *b.MaxContentChars
}

// SourceLabel dereferences Source, falling back to DefaultSource.
func (b BoundaryConfig) SourceLabel() string {
	if b.Source == nil {
		return DefaultSource
	}
	return *b.Source
}

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }
