// Package downstream executes declarative tools against the upstream
// HTTP API.
package downstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/revittco/mcpgate/internal/auth"
	"github.com/revittco/mcpgate/internal/cache"
	"github.com/revittco/mcpgate/internal/config"
	"github.com/revittco/mcpgate/internal/telemetry"
)

// maxResponseBytes is the largest upstream body accepted. Larger bodies
// fail with ErrResponseTooLarge.
const maxResponseBytes = 10 << 20

// Handler applies auth, rate limiting, retries and caching to every
// tool call. It is safe for concurrent use.
type Handler struct {
	cfg       *config.MCPConfig
	baseURL   string
	userAgent string
	client    *http.Client
	timeout   time.Duration

	injector *auth.Injector
	lookup   auth.LookupFunc
	limiter  *rateLimiter
	retry    retryPolicy
	cache    *cache.Manager[json.RawMessage]
	group    singleflight.Group

	logger  *slog.Logger
	metrics telemetry.Metrics
	sleep   func(context.Context, time.Duration) error
}

// Option configures a Handler.
type Option func(*Handler)

// WithCache shares a cache manager; by default the handler builds one
// from the config's cache section.
func WithCache(c *cache.Manager[json.RawMessage]) Option {
	return func(h *Handler) { h.cache = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

func WithMetrics(m telemetry.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithLookup sets how credentials and ${VAR} header references resolve.
func WithLookup(fn auth.LookupFunc) Option {
	return func(h *Handler) { h.lookup = fn }
}

// WithHTTPClient replaces the HTTP client. Per-attempt timeouts are
// applied through the request context, not the client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *Handler) { h.client = c }
}

// Result is the outcome of a tool call.
type Result struct {
	Data     json.RawMessage
	CacheHit bool
}

// NewHandler builds the API handler. It fails when auth is required and
// the credential cannot be resolved.
func NewHandler(cfg *config.MCPConfig, opts ...Option) (*Handler, error) {
	h := &Handler{
		cfg:       cfg,
		baseURL:   cfg.API.BaseURL,
		userAgent: cfg.Name + "/" + cfg.Version,
		timeout:   cfg.API.TimeoutDuration(),
		limiter:   newRateLimiter(cfg.API.RateLimit.RequestsPerMinute),
		retry:     retryPolicyFrom(cfg.ErrorHandling),
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.metrics == nil {
		h.metrics = telemetry.NewNoopMetrics()
	}
	if h.client == nil {
		h.client = &http.Client{}
	}
	if h.cache == nil {
		h.cache = cache.New[json.RawMessage](cache.ConfigFrom(cfg.Cache))
	}
	if h.timeout <= 0 {
		h.timeout = config.DefaultTimeoutMs * time.Millisecond
	}

	if h.lookup == nil {
		h.lookup = os.LookupEnv
	}

	inj, err := auth.NewInjector(cfg.Auth, h.lookup)
	if err != nil {
		return nil, fmt.Errorf("setup authentication: %w", err)
	}
	h.injector = inj
	if cfg.Auth.Type != config.AuthNone && !inj.Active() {
		h.logger.Warn("auth credential not set, requests are sent unauthenticated",
			"key_env", cfg.Auth.KeyEnv)
	}

	if inj.InBody() {
		for _, name := range cfg.BodyCredentialIgnored() {
			h.logger.Warn("api key is placed in the body but this endpoint sends none, requests go unauthenticated",
				"endpoint", name)
		}
	}

	h.logger.Info("api handler ready",
		"base_url", h.baseURL,
		"auth", inj.Scheme(),
		"rate_limit_rpm", cfg.API.RateLimit.RequestsPerMinute,
		"retry", h.retry.enabled,
		"cache", h.cache.Enabled(),
	)
	return h, nil
}

// Cache exposes the handler's cache manager.
func (h *Handler) Cache() *cache.Manager[json.RawMessage] {
	return h.cache
}

// ExecuteTool runs the named tool. Identical concurrent misses share a
// single upstream request.
func (h *Handler) ExecuteTool(ctx context.Context, name string, args map[string]any) (*Result, error) {
	tool, ok := h.cfg.Tool(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	if args == nil {
		args = map[string]any{}
	}

	key, err := cache.ToolKey(name, args)
	if err != nil {
		return nil, err
	}
	if h.cache.Enabled() {
		if data, ok := h.cache.Get(key); ok {
			h.metrics.ObserveCacheLookup("tool", true)
			h.logger.Debug("cache hit", "tool", name)
			return &Result{Data: data, CacheHit: true}, nil
		}
		h.metrics.ObserveCacheLookup("tool", false)
	}

	data, err := h.shared(ctx, key, func(sctx context.Context) (json.RawMessage, error) {
		spec, err := h.buildRequest(tool.Endpoint, args)
		if err != nil {
			return nil, err
		}
		body, err := h.send(sctx, spec)
		if err != nil {
			return nil, err
		}
		data := normalizeBody(body)
		h.cache.Set(key, data, tool.CacheTTLDuration())
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{Data: data}, nil
}

// shared runs fn once per key across concurrent callers. fn gets a context
// that keeps ctx's values but not its cancellation, so one caller giving up
// does not fail the others; each caller stops waiting when its own ctx ends.
func (h *Handler) shared(ctx context.Context, key string, fn func(context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	ch := h.group.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(json.RawMessage), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// send performs spec with the retry policy. The rate limiter is consulted
// before every attempt; the cache is not.
func (h *Handler) send(ctx context.Context, spec *requestSpec) ([]byte, error) {
	for n := 0; ; n++ {
		if n > 0 {
			d := h.retry.delay(n)
			h.metrics.ObserveRetry(spec.method)
			h.logger.Warn("retrying upstream request",
				"method", spec.method,
				"attempt", n,
				"delay", d,
			)
			if err := h.sleep(ctx, d); err != nil {
				return nil, err
			}
		}
		body, err := h.attempt(ctx, spec)
		if err == nil {
			return body, nil
		}
		if !h.retry.shouldRetry(ctx, n, err) {
			return nil, err
		}
	}
}

func (h *Handler) attempt(ctx context.Context, spec *requestSpec) ([]byte, error) {
	waited, err := h.limiter.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if waited > 0 {
		h.metrics.ObserveRateLimitWait(waited)
		h.logger.Info("rate limit reached, waited for next window", "wait", waited)
	}

	actx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	req, err := spec.newRequest(actx)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if h.cfg.Logging.LogRequests {
		h.logger.Info("upstream request", "method", req.Method, "path", req.URL.Path)
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		h.metrics.ObserveUpstream(spec.method, 0, time.Since(start))
		return nil, &TransportError{Method: req.Method, Path: req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	latency := time.Since(start)
	h.metrics.ObserveUpstream(spec.method, resp.StatusCode, latency)
	if err != nil {
		return nil, &TransportError{Method: req.Method, Path: req.URL.Path, Err: fmt.Errorf("read response: %w", err)}
	}
	if len(body) > maxResponseBytes {
		return nil, fmt.Errorf("%s %s: %w (limit %d bytes)", req.Method, req.URL.Path, ErrResponseTooLarge, maxResponseBytes)
	}
	if h.cfg.Logging.LogResponses {
		h.logger.Info("upstream response",
			"method", req.Method,
			"path", req.URL.Path,
			"status", resp.StatusCode,
			"bytes", len(body),
			"latency_ms", latency.Milliseconds(),
		)
	}

	if resp.StatusCode >= 400 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
