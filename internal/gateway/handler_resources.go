package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/revittco/mcpgate/internal/downstream"
)

const (
	methodReadResource = "resources/read"
	methodGetPrompt    = "prompts/get"
)

func (h *handler) registerResources(srv *mcp.Server) {
	for _, rc := range h.cfg.Resources {
		srv.AddResource(&mcp.Resource{
			URI:         rc.URI,
			Name:        rc.Name,
			Description: rc.Description,
			MIMEType:    rc.MimeType,
		}, h.readResource)
	}
}

func (h *handler) readResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	start := time.Now()
	uri := req.Params.URI
	entry := auditEntry{method: methodReadResource, name: uri, start: start}

	rc, err := h.api.FetchResource(ctx, uri)
	if err != nil {
		entry.errCode = "resource_error"
		entry.errMsg = err.Error()
		h.recordAudit(ctx, entry)
		if errors.Is(err, downstream.ErrResourceNotFound) {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		h.logger.Error("read resource failed", "uri", uri, "error", err)
		return nil, err
	}

	entry.cacheHit = rc.CacheHit
	entry.size = len(rc.Text)
	h.recordAudit(ctx, entry)
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      rc.URI,
			MIMEType: rc.MimeType,
			Text:     rc.Text,
		}},
	}, nil
}

func (h *handler) registerPrompts(srv *mcp.Server) {
	for _, pc := range h.cfg.Prompts {
		args := make([]*mcp.PromptArgument, 0, len(pc.Arguments))
		for _, a := range pc.Arguments {
			args = append(args, &mcp.PromptArgument{
				Name:        a.Name,
				Description: a.Description,
				Required:    a.Required,
			})
		}
		srv.AddPrompt(&mcp.Prompt{
			Name:        pc.Name,
			Description: pc.Description,
			Arguments:   args,
		}, h.getPrompt)
	}
}

func (h *handler) getPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	start := time.Now()
	name := req.Params.Name
	params, _ := json.Marshal(req.Params.Arguments)
	entry := auditEntry{method: methodGetPrompt, name: name, params: params, start: start}

	pr, err := h.api.GeneratePrompt(name, req.Params.Arguments)
	if err != nil {
		entry.errCode = "prompt_error"
		entry.errMsg = err.Error()
		h.recordAudit(ctx, entry)
		return nil, err
	}

	msgs := make([]*mcp.PromptMessage, 0, len(pr.Messages))
	for _, m := range pr.Messages {
		msgs = append(msgs, &mcp.PromptMessage{
			Role:    mcp.Role(m.Role),
			Content: &mcp.TextContent{Text: m.Text},
		})
		entry.size += len(m.Text)
	}
	h.recordAudit(ctx, entry)
	return &mcp.GetPromptResult{Description: pr.Description, Messages: msgs}, nil
}
