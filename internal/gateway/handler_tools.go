package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/revittco/mcpgate/internal/store"
)

const methodCallTool = "tools/call"

func (h *handler) registerTools(srv *mcp.Server) {
	h.tools = make(map[string]bool, len(h.cfg.Tools))
	for _, tc := range h.cfg.Tools {
		srv.AddTool(&mcp.Tool{
			Name:        tc.Name,
			Description: tc.Description,
			InputSchema: tc.InputSchema.JSONSchema(),
		}, h.callTool)
		h.tools[tc.Name] = true
	}
}

// unknownToolMiddleware answers calls to unregistered tools with a tool
// error result instead of a protocol error.
func (h *handler) unknownToolMiddleware() mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodCallTool {
				return next(ctx, method, req)
			}
			call, ok := req.(*mcp.CallToolRequest)
			if !ok || call.Params == nil || h.tools[call.Params.Name] {
				return next(ctx, method, req)
			}

			start := time.Now()
			msg := fmt.Sprintf("Unknown tool: %s", call.Params.Name)
			h.logger.Warn("unknown tool", "tool", call.Params.Name)
			h.recordAudit(ctx, auditEntry{
				method:  methodCallTool,
				name:    call.Params.Name,
				params:  call.Params.Arguments,
				errCode: "unknown_tool",
				errMsg:  msg,
				start:   start,
			})
			return toolError(msg), nil
		}
	}
}

// callTool runs a configured tool. Failures are reported in the result
// with IsError set so the model can see them.
func (h *handler) callTool(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()
	name := req.Params.Name
	raw := req.Params.Arguments

	entry := auditEntry{method: methodCallTool, name: name, params: raw, start: start}
	finish := func(res *mcp.CallToolResult, err error) (*mcp.CallToolResult, error) {
		h.metrics.ObserveToolCall(name, time.Since(start), err)
		if err != nil {
			entry.errCode = "tool_error"
			entry.errMsg = err.Error()
		}
		h.recordAudit(ctx, entry)
		return res, nil
	}

	args, err := decodeArguments(raw)
	if err != nil {
		return finish(toolError(err.Error()), err)
	}

	res, err := h.api.ExecuteTool(ctx, name, args)
	if err != nil {
		h.logger.Error("tool call failed", "tool", name, "error", err)
		return finish(toolError(err.Error()), err)
	}

	text := prettyJSON(res.Data)
	entry.cacheHit = res.CacheHit
	entry.size = len(text)
	h.logger.Debug("tool call",
		"tool", name,
		"cache_hit", res.CacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return finish(&mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil)
}

func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	args := map[string]any{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return args, nil
	}
	if err := json.Unmarshal(trimmed, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return args, nil
}

// prettyJSON indents JSON with two spaces. Input that fails to indent is
// returned unchanged.
func prettyJSON(data json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// toolStatus maps an audit entry to its stored status.
func toolStatus(e auditEntry) string {
	if e.errMsg != "" {
		return store.StatusError
	}
	return store.StatusSuccess
}
