package config

import (
	"strings"
	"time"
)

// MCPConfig is the top-level gateway configuration file.
type MCPConfig struct {
	Name          string              `yaml:"name"`
	Description   string              `yaml:"description"`
	Version       string              `yaml:"version"`
	Server        ServerConfig        `yaml:"server"`
	API           APIConfig           `yaml:"api"`
	Auth          AuthConfig          `yaml:"auth"`
	Tools         []ToolConfig        `yaml:"tools"`
	Resources     []ResourceConfig    `yaml:"resources,omitempty"`
	Prompts       []PromptConfig      `yaml:"prompts,omitempty"`
	ErrorHandling ErrorHandlingConfig `yaml:"error_handling"`
	Cache         CacheConfig         `yaml:"cache"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig selects the transport and the advertised capabilities.
type ServerConfig struct {
	Transport    string       `yaml:"transport"`
	Capabilities Capabilities `yaml:"capabilities"`
}

type Capabilities struct {
	Tools     Capability `yaml:"tools"`
	Resources Capability `yaml:"resources"`
	Prompts   Capability `yaml:"prompts"`
}

// APIConfig describes the upstream HTTP API every tool talks to.
type APIConfig struct {
	BaseURL   string            `yaml:"base_url"`
	Timeout   int               `yaml:"timeout"` // milliseconds
	Headers   map[string]string `yaml:"headers,omitempty"`
	RateLimit RateLimitConfig   `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// TimeoutDuration returns the per-attempt HTTP timeout.
func (a APIConfig) TimeoutDuration() time.Duration {
	return time.Duration(a.Timeout) * time.Millisecond
}

// AuthType enumerates the supported credential schemes.
type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthAPIKey AuthType = "api_key"
	AuthBearer AuthType = "bearer"
	AuthBasic  AuthType = "basic"
)

// KeyLocation is where an api_key credential is placed in the request.
type KeyLocation string

const (
	KeyInHeader KeyLocation = "header"
	KeyInQuery  KeyLocation = "query"
	KeyInBody   KeyLocation = "body"
)

type AuthConfig struct {
	Type        AuthType    `yaml:"type"`
	KeyEnv      string      `yaml:"key_env,omitempty"`
	KeyName     string      `yaml:"key_name,omitempty"`
	KeyLocation KeyLocation `yaml:"key_location,omitempty"`
	Required    bool        `yaml:"required"`
}

// ToolConfig declares one tool and the HTTP endpoint backing it.
type ToolConfig struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	InputSchema InputSchema    `yaml:"input_schema"`
	Endpoint    EndpointConfig `yaml:"endpoint"`
	CacheTTL    int            `yaml:"cache_ttl,omitempty"` // seconds, 0 = cache default
}

// CacheTTLDuration returns the tool TTL, or zero when the cache default applies.
func (t ToolConfig) CacheTTLDuration() time.Duration {
	return time.Duration(t.CacheTTL) * time.Second
}

type InputSchema struct {
	Type       string                    `yaml:"type"`
	Properties map[string]map[string]any `yaml:"properties,omitempty"`
	Required   []string                  `yaml:"required,omitempty"`
}

// JSONSchema renders the schema as a JSON-schema object.
func (s InputSchema) JSONSchema() map[string]any {
	typ := s.Type
	if typ == "" {
		typ = "object"
	}
	out := map[string]any{"type": typ}
	props := make(map[string]any, len(s.Properties))
	for name, p := range s.Properties {
		props[name] = p
	}
	out["properties"] = props
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}

// EndpointConfig is a request template. Values of the form "{name}" in
// Params and Body resolve to the invocation argument called name.
type EndpointConfig struct {
	Method  string            `yaml:"method"`
	Path    string            `yaml:"path"`
	Params  map[string]any    `yaml:"params,omitempty"`
	Body    map[string]any    `yaml:"body,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

type ResourceConfig struct {
	URI         string          `yaml:"uri"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description,omitempty"`
	MimeType    string          `yaml:"mime_type,omitempty"`
	Endpoint    *EndpointConfig `yaml:"endpoint,omitempty"`
	CacheTTL    int             `yaml:"cache_ttl,omitempty"`
}

func (r ResourceConfig) CacheTTLDuration() time.Duration {
	return time.Duration(r.CacheTTL) * time.Second
}

type PromptConfig struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description,omitempty"`
	Arguments   []PromptArgument `yaml:"arguments,omitempty"`
	Template    string           `yaml:"template,omitempty"`
}

type PromptArgument struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Required    bool   `yaml:"required"`
}

// ErrorHandlingConfig is the retry policy for upstream calls.
type ErrorHandlingConfig struct {
	RetryOnFailure     bool `yaml:"retry_on_failure"`
	MaxRetries         int  `yaml:"max_retries"`
	RetryDelayMs       int  `yaml:"retry_delay_ms"`
	ExponentialBackoff bool `yaml:"exponential_backoff"`
}

// RetryDelay returns the base delay between attempts.
func (e ErrorHandlingConfig) RetryDelay() time.Duration {
	return time.Duration(e.RetryDelayMs) * time.Millisecond
}

type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	DefaultTTL int    `yaml:"default_ttl"` // seconds
	MaxEntries int    `yaml:"max_entries"`
	KeyPrefix  string `yaml:"key_prefix,omitempty"`
}

func (c CacheConfig) DefaultTTLDuration() time.Duration {
	return time.Duration(c.DefaultTTL) * time.Second
}

type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	LogRequests  bool   `yaml:"log_requests"`
	LogResponses bool   `yaml:"log_responses"`
}

// Tool returns the tool with the given name.
func (c *MCPConfig) Tool(name string) (*ToolConfig, bool) {
	for i := range c.Tools {
		if c.Tools[i].Name == name {
			return &c.Tools[i], true
		}
	}
	return nil, false
}

// Resource returns the resource with the given URI.
func (c *MCPConfig) Resource(uri string) (*ResourceConfig, bool) {
	for i := range c.Resources {
		if c.Resources[i].URI == uri {
			return &c.Resources[i], true
		}
	}
	return nil, false
}

// Prompt returns the prompt with the given name.
func (c *MCPConfig) Prompt(name string) (*PromptConfig, bool) {
	for i := range c.Prompts {
		if c.Prompts[i].Name == name {
			return &c.Prompts[i], true
		}
	}
	return nil, false
}

// BodyCredentialIgnored lists the tools and resources whose GET or HEAD
// endpoint cannot carry an api_key placed in the request body. Resources
// are listed by URI.
func (c *MCPConfig) BodyCredentialIgnored() []string {
	if c.Auth.Type != AuthAPIKey || c.Auth.KeyLocation != KeyInBody {
		return nil
	}
	var out []string
	for _, t := range c.Tools {
		if !t.Endpoint.SendsBody() {
			out = append(out, t.Name)
		}
	}
	for _, r := range c.Resources {
		if r.Endpoint != nil && !r.Endpoint.SendsBody() {
			out = append(out, r.URI)
		}
	}
	return out
}

// SendsBody reports whether requests for this endpoint carry a body.
func (e EndpointConfig) SendsBody() bool {
	switch strings.ToUpper(e.Method) {
	case "", "GET", "HEAD":
		return false
	}
	return true
}
