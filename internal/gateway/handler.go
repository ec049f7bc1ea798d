package gateway

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/revittco/mcpgate/internal/audit"
	"github.com/revittco/mcpgate/internal/config"
	"github.com/revittco/mcpgate/internal/downstream"
	"github.com/revittco/mcpgate/internal/telemetry"
)

// handler contains the logic for each MCP method.
type handler struct {
	cfg       *config.MCPConfig
	api       *downstream.Handler
	auditor   *audit.Logger
	metrics   telemetry.Metrics
	logger    *slog.Logger
	sessionID string

	// tools holds the names registered with the MCP server.
	tools map[string]bool
}

// Resource subscriptions are accepted so clients that require them can
// connect. Resources are static, so no update is ever sent.
func (h *handler) subscribe(_ context.Context, req *mcp.SubscribeRequest) error {
	h.logger.Debug("resource subscribe", "uri", req.Params.URI)
	return nil
}

func (h *handler) unsubscribe(_ context.Context, req *mcp.UnsubscribeRequest) error {
	h.logger.Debug("resource unsubscribe", "uri", req.Params.URI)
	return nil
}
