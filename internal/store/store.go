package store

import (
	"context"
	"time"
)

// Store is the composite interface for all data access.
type Store interface {
	AuditStore
	Ping(ctx context.Context) error
	Close() error
}

// AuditStore manages audit log records.
type AuditStore interface {
	InsertAuditRecord(ctx context.Context, r *AuditRecord) error
	GetAuditRecord(ctx context.Context, id string) (*AuditRecord, error)
	QueryAuditRecords(ctx context.Context, f AuditFilter) ([]AuditRecord, int, error)
	GetAuditStats(ctx context.Context, after, before time.Time) (*AuditStats, error)
	GetToolLeaderboard(ctx context.Context, after, before time.Time, limit int) ([]ToolLeaderboardEntry, error)
	PruneAuditRecords(ctx context.Context, before time.Time) (int64, error)
}
