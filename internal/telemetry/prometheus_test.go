package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusMetrics_UsesProvidedRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewPrometheusMetrics(registry)

	m.ObserveToolCall("crypto_get_price", 10*time.Millisecond, nil)
	m.ObserveToolCall("crypto_get_price", 10*time.Millisecond, errors.New("boom"))
	m.ObserveCacheLookup("tool", true)
	m.ObserveUpstream("GET", 200, 5*time.Millisecond)
	m.ObserveUpstream("GET", 0, 5*time.Millisecond)
	m.ObserveRetry("GET")
	m.ObserveRateLimitWait(time.Second)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"mcpgate_tool_calls_total",
		"mcpgate_tool_call_duration_seconds",
		"mcpgate_cache_lookups_total",
		"mcpgate_upstream_request_duration_seconds",
		"mcpgate_upstream_retries_total",
		"mcpgate_rate_limit_wait_seconds",
	} {
		if !names[want] {
			t.Errorf("missing metric %s", want)
		}
	}
}
