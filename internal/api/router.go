// Package api serves the gateway's local admin HTTP surface: health,
// cache and audit inspection, and Prometheus metrics.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/revittco/mcpgate/internal/cache"
	"github.com/revittco/mcpgate/internal/store"
)

// CacheAdmin is the cache surface exposed over HTTP.
type CacheAdmin interface {
	Stats() cache.Stats
	Clear()
	ResetStats()
}

// RouterDeps holds the dependencies needed by the admin router.
type RouterDeps struct {
	Name       string
	Version    string
	Cache      CacheAdmin          // optional; enables /api/v1/cache
	AuditStore store.Store         // optional; enables /api/v1/audit and the health db check
	Gatherer   prometheus.Gatherer // optional; enables /metrics
	Logger     *slog.Logger
}

// NewRouter creates the admin http.Handler.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	health := &healthHandler{name: deps.Name, version: deps.Version, started: time.Now()}
	if deps.AuditStore != nil {
		health.db = deps.AuditStore
	}
	mux.HandleFunc("GET /api/v1/health", health.get)

	if deps.Cache != nil {
		ch := &cacheHandler{cache: deps.Cache}
		mux.HandleFunc("GET /api/v1/cache/stats", ch.stats)
		mux.HandleFunc("POST /api/v1/cache/flush", ch.flush)
	}

	if deps.AuditStore != nil {
		ah := &auditHandler{store: deps.AuditStore}
		mux.HandleFunc("GET /api/v1/audit", ah.query)
		mux.HandleFunc("GET /api/v1/audit/stats", ah.stats)
	}

	if deps.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	// Middleware chain: RequestID -> Logging -> origin checks -> headers -> mux
	var handler http.Handler = mux
	handler = requireJSONContentTypeMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = browserOriginProtectionMiddleware(handler)
	handler = loggingMiddleware(logger, handler)
	handler = requestIDMiddleware(handler)
	return handler
}
