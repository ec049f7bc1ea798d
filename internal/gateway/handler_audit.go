package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/revittco/mcpgate/internal/store"
)

type auditEntry struct {
	method   string
	name     string
	params   json.RawMessage
	errCode  string
	errMsg   string
	cacheHit bool
	size     int
	start    time.Time
}

// recordAudit persists one served request. Audit failures are logged and
// never reach the client.
func (h *handler) recordAudit(ctx context.Context, e auditEntry) {
	if h.auditor == nil {
		return
	}
	rec := &store.AuditRecord{
		ID:             uuid.NewString(),
		Timestamp:      e.start,
		SessionID:      h.sessionID,
		Method:         e.method,
		ToolName:       e.name,
		ParamsRedacted: e.params,
		Status:         toolStatus(e),
		ErrorCode:      e.errCode,
		ErrorMessage:   e.errMsg,
		CacheHit:       e.cacheHit,
		LatencyMs:      int(time.Since(e.start).Milliseconds()),
		ResponseSize:   e.size,
	}
	if err := h.auditor.Record(context.WithoutCancel(ctx), rec); err != nil {
		h.logger.Error("audit record failed", "error", err)
	}
}
