// Package gateway exposes the configured tools, resources and prompts
// as an MCP server.
package gateway

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/revittco/mcpgate/internal/audit"
	"github.com/revittco/mcpgate/internal/config"
	"github.com/revittco/mcpgate/internal/downstream"
	"github.com/revittco/mcpgate/internal/telemetry"
)

// Server is the MCP gateway server.
type Server struct {
	cfg       *config.MCPConfig
	handler   *handler
	mcp       *mcp.Server
	logger    *slog.Logger
	sessionID string
}

// ServerOption configures optional server features.
type ServerOption interface {
	apply(*Server)
}

type withLogger struct{ l *slog.Logger }

func (o withLogger) apply(s *Server) { s.logger = o.l }

// WithLogger sets the server logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) ServerOption { return withLogger{l} }

type withAuditor struct{ a *audit.Logger }

func (o withAuditor) apply(s *Server) { s.handler.auditor = o.a }

// WithAuditor records every served request to the audit log.
func WithAuditor(a *audit.Logger) ServerOption { return withAuditor{a} }

type withMetrics struct{ m telemetry.Metrics }

func (o withMetrics) apply(s *Server) { s.handler.metrics = o.m }

func WithMetrics(m telemetry.Metrics) ServerOption { return withMetrics{m} }

// NewServer builds the MCP server and registers everything the config
// declares, subject to the advertised capabilities.
func NewServer(cfg *config.MCPConfig, api *downstream.Handler, opts ...ServerOption) *Server {
	s := &Server{
		cfg:       cfg,
		handler:   &handler{cfg: cfg, api: api},
		sessionID: uuid.NewString(),
	}
	for _, o := range opts {
		o.apply(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.handler.metrics == nil {
		s.handler.metrics = telemetry.NewNoopMetrics()
	}
	s.handler.logger = s.logger
	s.handler.sessionID = s.sessionID

	caps := cfg.Server.Capabilities
	hasTools := caps.Tools.Active(true)
	hasResources := caps.Resources.Active(len(cfg.Resources) > 0)
	hasPrompts := caps.Prompts.Active(len(cfg.Prompts) > 0)

	srvOpts := &mcp.ServerOptions{
		Instructions: cfg.Description,
		HasTools:     hasTools,
		HasResources: hasResources,
		HasPrompts:   hasPrompts,
	}
	if hasResources && caps.Resources.Subscribe {
		srvOpts.SubscribeHandler = s.handler.subscribe
		srvOpts.UnsubscribeHandler = s.handler.unsubscribe
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{Name: cfg.Name, Version: cfg.Version}, srvOpts)
	s.mcp.AddReceivingMiddleware(s.handler.unknownToolMiddleware())

	if hasTools {
		s.handler.registerTools(s.mcp)
	}
	if hasResources {
		s.handler.registerResources(s.mcp)
	}
	if hasPrompts {
		s.handler.registerPrompts(s.mcp)
	}

	s.logger.Info("gateway ready",
		"name", cfg.Name,
		"version", cfg.Version,
		"tools", toolCount(hasTools, cfg),
		"resources", len(cfg.Resources),
		"prompts", len(cfg.Prompts),
		"session_id", s.sessionID,
	)
	return s
}

func toolCount(active bool, cfg *config.MCPConfig) int {
	if !active {
		return 0
	}
	return len(cfg.Tools)
}

// RunStdio serves MCP over stdin/stdout until the client disconnects or
// ctx is canceled.
func (s *Server) RunStdio(ctx context.Context) error {
	s.logger.Info("gateway starting (stdio transport)")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves a single session over transport. The session runs until
// the peer closes it.
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcp.Connect(ctx, transport, nil)
}
