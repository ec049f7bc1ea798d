package audit

import (
	"context"
	"fmt"

	"github.com/revittco/mcpgate/internal/store"
)

// Logger writes audit records with parameter redaction. A nil Logger
// records nothing.
type Logger struct {
	store store.AuditStore
	hints []string
}

// NewLogger creates an audit Logger. Hints are extra key substrings to
// redact on top of the global patterns, such as the configured auth
// parameter name.
func NewLogger(auditStore store.AuditStore, hints ...string) *Logger {
	var kept []string
	for _, h := range hints {
		if h != "" {
			kept = append(kept, h)
		}
	}
	return &Logger{store: auditStore, hints: kept}
}

// Record redacts sensitive parameters and inserts the audit record.
func (l *Logger) Record(ctx context.Context, rec *store.AuditRecord) error {
	if l == nil || l.store == nil {
		return nil
	}
	if len(rec.ParamsRedacted) > 0 {
		rec.ParamsRedacted = Redact(rec.ParamsRedacted, l.hints)
	}
	if err := l.store.InsertAuditRecord(ctx, rec); err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}
