package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const validYAML = `
name: crypto-gateway
description: Market data tools
version: 1.0.0
server:
  transport: stdio
  capabilities:
    tools: true
    resources:
      subscribe: true
      list_changed: false
api:
  base_url: https://api.example.com/v3
  timeout: 5000
  rate_limit:
    requests_per_minute: 30
auth:
  type: api_key
  key_env: CG_KEY
  key_name: x-cg-pro-api-key
tools:
  - name: crypto_get_price
    description: Current price
    input_schema:
      type: object
      properties:
        ids:
          type: string
        vs_currencies:
          type: string
      required: [ids, vs_currencies]
    endpoint:
      path: /simple/price
      params:
        ids: "{ids}"
        vs_currencies: "{vs_currencies}"
resources:
  - uri: crypto://markets/top
    name: Top markets
prompts:
  - name: summarize
    arguments:
      - name: coin
        required: true
cache:
  enabled: true
  default_ttl: 60
`

func TestParse_Valid(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Name != "crypto-gateway" {
		t.Errorf("name = %q", cfg.Name)
	}
	if cfg.API.Timeout != 5000 {
		t.Errorf("timeout = %d, want 5000", cfg.API.Timeout)
	}
	if cfg.Auth.KeyLocation != KeyInHeader {
		t.Errorf("key_location default = %q, want header", cfg.Auth.KeyLocation)
	}

	tool, ok := cfg.Tool("crypto_get_price")
	if !ok {
		t.Fatal("tool not found")
	}
	if tool.Endpoint.Method != "GET" {
		t.Errorf("method default = %q, want GET", tool.Endpoint.Method)
	}
	wantParams := map[string]any{"ids": "{ids}", "vs_currencies": "{vs_currencies}"}
	if diff := cmp.Diff(wantParams, tool.Endpoint.Params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}

	if cfg.Resources[0].MimeType != DefaultMimeType {
		t.Errorf("mime default = %q", cfg.Resources[0].MimeType)
	}
	if cfg.ErrorHandling.MaxRetries != DefaultMaxRetries {
		t.Errorf("max_retries default = %d", cfg.ErrorHandling.MaxRetries)
	}
	if cfg.Cache.MaxEntries != DefaultMaxEntries {
		t.Errorf("max_entries default = %d", cfg.Cache.MaxEntries)
	}
}

func TestParse_Capabilities(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := Capabilities{
		Tools:     Capability{Mode: CapabilityEnabled},
		Resources: Capability{Mode: CapabilityEnabledWithOptions, Subscribe: true},
		Prompts:   Capability{Mode: CapabilityUnset},
	}
	if diff := cmp.Diff(want, cfg.Server.Capabilities); diff != "" {
		t.Errorf("capabilities mismatch (-want +got):\n%s", diff)
	}
	if !cfg.Server.Capabilities.Prompts.Active(len(cfg.Prompts) > 0) {
		t.Error("unset prompts capability with declared prompts should be active")
	}
}

func TestCapability_RejectsOtherShapes(t *testing.T) {
	tests := []struct {
		name string
		caps string
	}{
		{"string", `tools: "yes"`},
		{"number", `tools: 1`},
		{"list", `tools: [true]`},
		{"unknown option", `tools: {paginate: true}`},
		{"non-bool option", `tools: {subscribe: "sure"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := strings.Replace(validYAML, "    tools: true", "    "+tt.caps, 1)
			if _, err := Parse([]byte(data)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParse_MissingRequiredKeys(t *testing.T) {
	_, err := Parse([]byte("name: x\nversion: 1\n"))
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	want := []string{
		"description is required",
		"server is required",
		"api is required",
		"tools is required",
	}
	if diff := cmp.Diff(want, ve.Errors); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		wantMsg string
	}{
		{"bad transport", "transport: stdio", "transport: sse", "unsupported transport"},
		{"bad base url", "https://api.example.com/v3", "ftp://api.example.com", "scheme must be http or https"},
		{"bad auth type", "type: api_key", "type: oauth", "invalid type"},
		{"bad key location", "key_name: x-cg-pro-api-key", "key_location: cookie", "invalid location"},
		{"bad method", "path: /simple/price", "path: /simple/price\n      method: TRACE", "unsupported method"},
		{"relative path", "path: /simple/price", "path: simple/price", "must start with /"},
		{"relative uri", "uri: crypto://markets/top", "uri: markets/top", "must be absolute"},
		{"unknown key", "version: 1.0.0", "version: 1.0.0\nextra: true", "field extra not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := strings.Replace(validYAML, tt.from, tt.to, 1)
			_, err := Parse([]byte(data))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestParse_DuplicateTool(t *testing.T) {
	cfg := &MCPConfig{
		Name: "x", Version: "1",
		Server: ServerConfig{Transport: "stdio"},
		API:    APIConfig{BaseURL: "http://localhost"},
		Auth:   AuthConfig{Type: AuthNone},
		Tools: []ToolConfig{
			{Name: "a", InputSchema: InputSchema{Type: "object"}, Endpoint: EndpointConfig{Method: "GET", Path: "/a"}},
			{Name: "a", InputSchema: InputSchema{Type: "object"}, Endpoint: EndpointConfig{Method: "GET", Path: "/b"}},
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
	err := validate(cfg)
	if err == nil || !strings.Contains(err.Error(), `duplicate name "a"`) {
		t.Fatalf("err = %v, want duplicate name", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Tools) != 1 {
		t.Errorf("tools = %d, want 1", len(cfg.Tools))
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestPathParams(t *testing.T) {
	got := PathParams("/coins/{id}/market_chart/{days}")
	if diff := cmp.Diff([]string{"id", "days"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	tool := ToolConfig{
		InputSchema: InputSchema{Properties: map[string]map[string]any{"id": {"type": "string"}}},
		Endpoint:    EndpointConfig{Path: "/coins/{id}/market_chart/{days}"},
	}
	if diff := cmp.Diff([]string{"days"}, tool.UndeclaredPathParams()); diff != "" {
		t.Errorf("undeclared mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile_ExampleConfig(t *testing.T) {
	cfg, err := LoadFile(filepath.Join("..", "..", "configs", "coingecko.yaml"))
	if err != nil {
		t.Fatalf("example config: %v", err)
	}
	if len(cfg.Tools) != 3 || len(cfg.Resources) != 2 || len(cfg.Prompts) != 1 {
		t.Errorf("counts: tools=%d resources=%d prompts=%d", len(cfg.Tools), len(cfg.Resources), len(cfg.Prompts))
	}
	if res, ok := cfg.Resource("coingecko://global"); !ok || res.Endpoint == nil {
		t.Error("global resource should have a live endpoint")
	}
	tool, ok := cfg.Tool("crypto_trending")
	if !ok {
		t.Fatal("crypto_trending not found")
	}
	if tool.Endpoint.Method != "GET" {
		t.Errorf("default method = %q", tool.Endpoint.Method)
	}
}

func TestBodyCredentialIgnored(t *testing.T) {
	cfg := &MCPConfig{
		Auth: AuthConfig{Type: AuthAPIKey, KeyLocation: KeyInBody},
		Tools: []ToolConfig{
			{Name: "get_price", Endpoint: EndpointConfig{Method: "GET"}},
			{Name: "create_alert", Endpoint: EndpointConfig{Method: "POST"}},
			{Name: "ping", Endpoint: EndpointConfig{Method: "head"}},
		},
		Resources: []ResourceConfig{
			{URI: "crypto://global", Endpoint: &EndpointConfig{Method: "GET"}},
			{URI: "crypto://static"},
		},
	}
	want := []string{"get_price", "ping", "crypto://global"}
	if diff := cmp.Diff(want, cfg.BodyCredentialIgnored()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	cfg.Auth.KeyLocation = KeyInHeader
	if got := cfg.BodyCredentialIgnored(); got != nil {
		t.Errorf("header credential flagged: %v", got)
	}
}
