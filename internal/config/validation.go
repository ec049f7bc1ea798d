package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ValidationError holds all validation failures for a config file.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: %s", strings.Join(e.Errors, "; "))
}

var placeholderRe = regexp.MustCompile(`\{(\w+)\}`)

// PathParams lists the {name} placeholders in a path template, in order.
func PathParams(path string) []string {
	var out []string
	for _, m := range placeholderRe.FindAllStringSubmatch(path, -1) {
		out = append(out, m[1])
	}
	return out
}

// validate checks the parsed config for correctness.
func validate(cfg *MCPConfig) error {
	var errs []string

	if cfg.Name == "" {
		errs = append(errs, "name must not be empty")
	}
	if cfg.Version == "" {
		errs = append(errs, "version must not be empty")
	}
	if cfg.Server.Transport != DefaultTransport {
		errs = append(errs, fmt.Sprintf("server.transport: unsupported transport %q (must be stdio)", cfg.Server.Transport))
	}
	if err := validateBaseURL(cfg.API.BaseURL); err != nil {
		errs = append(errs, fmt.Sprintf("api.base_url: %v", err))
	}
	if cfg.API.Timeout < 0 {
		errs = append(errs, "api.timeout must not be negative")
	}
	if cfg.API.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, "api.rate_limit.requests_per_minute must not be negative")
	}
	errs = append(errs, validateAuth(cfg.Auth)...)

	if len(cfg.Tools) == 0 {
		errs = append(errs, "tools must declare at least one tool")
	}
	names := make(map[string]bool, len(cfg.Tools))
	for i, t := range cfg.Tools {
		if t.Name == "" {
			errs = append(errs, fmt.Sprintf("tools[%d]: name is required", i))
		}
		if names[t.Name] {
			errs = append(errs, fmt.Sprintf("tools[%d]: duplicate name %q", i, t.Name))
		}
		names[t.Name] = true
		if t.InputSchema.Type != "object" {
			errs = append(errs, fmt.Sprintf("tools[%d]: input_schema.type must be object", i))
		}
		for _, req := range t.InputSchema.Required {
			if _, ok := t.InputSchema.Properties[req]; !ok {
				errs = append(errs, fmt.Sprintf("tools[%d]: required property %q is not declared", i, req))
			}
		}
		if err := validateEndpoint(t.Endpoint); err != nil {
			errs = append(errs, fmt.Sprintf("tools[%d]: %v", i, err))
		}
		if t.CacheTTL < 0 {
			errs = append(errs, fmt.Sprintf("tools[%d]: cache_ttl must not be negative", i))
		}
	}

	uris := make(map[string]bool, len(cfg.Resources))
	for i, r := range cfg.Resources {
		u, err := url.Parse(r.URI)
		if err != nil || u.Scheme == "" {
			errs = append(errs, fmt.Sprintf("resources[%d]: uri %q must be absolute", i, r.URI))
		}
		if uris[r.URI] {
			errs = append(errs, fmt.Sprintf("resources[%d]: duplicate uri %q", i, r.URI))
		}
		uris[r.URI] = true
		if r.Name == "" {
			errs = append(errs, fmt.Sprintf("resources[%d]: name is required", i))
		}
		if r.Endpoint != nil {
			if err := validateEndpoint(*r.Endpoint); err != nil {
				errs = append(errs, fmt.Sprintf("resources[%d]: %v", i, err))
			}
		}
	}

	prompts := make(map[string]bool, len(cfg.Prompts))
	for i, p := range cfg.Prompts {
		if p.Name == "" {
			errs = append(errs, fmt.Sprintf("prompts[%d]: name is required", i))
		}
		if prompts[p.Name] {
			errs = append(errs, fmt.Sprintf("prompts[%d]: duplicate name %q", i, p.Name))
		}
		prompts[p.Name] = true
		for j, a := range p.Arguments {
			if a.Name == "" {
				errs = append(errs, fmt.Sprintf("prompts[%d].arguments[%d]: name is required", i, j))
			}
		}
	}

	if cfg.ErrorHandling.MaxRetries < 0 {
		errs = append(errs, "error_handling.max_retries must not be negative")
	}
	if cfg.ErrorHandling.RetryDelayMs < 0 {
		errs = append(errs, "error_handling.retry_delay_ms must not be negative")
	}
	if cfg.Cache.DefaultTTL < 0 {
		errs = append(errs, "cache.default_ttl must not be negative")
	}
	if cfg.Cache.MaxEntries < 0 {
		errs = append(errs, "cache.max_entries must not be negative")
	}
	if err := validateLogging(cfg.Logging); err != nil {
		errs = append(errs, fmt.Sprintf("logging: %v", err))
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// UndeclaredPathParams returns path placeholders that the tool's input
// schema does not declare. Such placeholders stay unresolved at call time
// unless the caller passes the argument anyway.
func (t ToolConfig) UndeclaredPathParams() []string {
	var out []string
	for _, p := range PathParams(t.Endpoint.Path) {
		if _, ok := t.InputSchema.Properties[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

func validateAuth(a AuthConfig) []string {
	var errs []string
	switch a.Type {
	case AuthNone:
		return nil
	case AuthAPIKey:
		switch a.KeyLocation {
		case KeyInHeader, KeyInQuery, KeyInBody:
		default:
			errs = append(errs, fmt.Sprintf("auth.key_location: invalid location %q (must be header, query, or body)", a.KeyLocation))
		}
	case AuthBearer, AuthBasic:
	default:
		return []string{fmt.Sprintf("auth.type: invalid type %q (must be none, api_key, bearer, or basic)", a.Type)}
	}
	if a.KeyEnv == "" {
		errs = append(errs, fmt.Sprintf("auth.key_env is required for %s auth", a.Type))
	}
	return errs
}

func validateEndpoint(e EndpointConfig) error {
	switch strings.ToUpper(e.Method) {
	case "GET", "POST", "PUT", "PATCH", "DELETE", "HEAD":
	default:
		return fmt.Errorf("endpoint.method: unsupported method %q", e.Method)
	}
	if !strings.HasPrefix(e.Path, "/") {
		return fmt.Errorf("endpoint.path %q must start with /", e.Path)
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid level %q", l.Level)
	}
	switch l.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid format %q (must be json or text)", l.Format)
	}
	return nil
}
