// Package telemetry records gateway metrics.
package telemetry

import "time"

// Metrics is the observation surface used by the gateway and the API handler.
type Metrics interface {
	ObserveToolCall(tool string, duration time.Duration, err error)
	ObserveCacheLookup(kind string, hit bool)
	ObserveUpstream(method string, status int, duration time.Duration)
	ObserveRetry(method string)
	ObserveRateLimitWait(wait time.Duration)
}

type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (n *NoopMetrics) ObserveToolCall(_ string, _ time.Duration, _ error) {}

func (n *NoopMetrics) ObserveCacheLookup(_ string, _ bool) {}

func (n *NoopMetrics) ObserveUpstream(_ string, _ int, _ time.Duration) {}

func (n *NoopMetrics) ObserveRetry(_ string) {}

func (n *NoopMetrics) ObserveRateLimitWait(_ time.Duration) {}

var _ Metrics = (*NoopMetrics)(nil)
