package store

import (
	"encoding/json"
	"time"
)

// Audit statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// AuditRecord is one served MCP request.
type AuditRecord struct {
	ID             string          `json:"id"`
	Timestamp      time.Time       `json:"timestamp"`
	SessionID      string          `json:"session_id"`
	Method         string          `json:"method"`
	ToolName       string          `json:"tool_name"`
	ParamsRedacted json.RawMessage `json:"params_redacted,omitempty"`
	Status         string          `json:"status"`
	ErrorCode      string          `json:"error_code,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	CacheHit       bool            `json:"cache_hit"`
	LatencyMs      int             `json:"latency_ms"`
	ResponseSize   int             `json:"response_size"`
	CreatedAt      time.Time       `json:"created_at"`
}

// AuditFilter specifies query parameters for listing audit records.
type AuditFilter struct {
	SessionID *string    `json:"session_id,omitempty"`
	Method    *string    `json:"method,omitempty"`
	ToolName  *string    `json:"tool_name,omitempty"`
	Status    *string    `json:"status,omitempty"`
	After     *time.Time `json:"after,omitempty"`
	Before    *time.Time `json:"before,omitempty"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

// AuditStats holds aggregate statistics for audit records.
type AuditStats struct {
	TotalRequests int     `json:"total_requests"`
	SuccessCount  int     `json:"success_count"`
	ErrorCount    int     `json:"error_count"`
	CacheHits     int     `json:"cache_hits"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
	P95LatencyMs  int     `json:"p95_latency_ms"`
}

// ToolLeaderboardEntry summarises calls for one tool.
type ToolLeaderboardEntry struct {
	ToolName     string  `json:"tool_name"`
	Calls        int     `json:"calls"`
	Errors       int     `json:"errors"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}
