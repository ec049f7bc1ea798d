package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/revittco/mcpgate/internal/store"
)

const auditColumns = `id, timestamp, session_id, method, tool_name,
	params_redacted, status, error_code, error_message, cache_hit,
	latency_ms, response_size, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (d *DB) InsertAuditRecord(ctx context.Context, r *store.AuditRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if r.Timestamp.IsZero() {
		r.Timestamp = now
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO audit_records (`+auditColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, formatTime(r.Timestamp), r.SessionID, r.Method, r.ToolName,
		paramsText(r.ParamsRedacted), r.Status, r.ErrorCode,
		r.ErrorMessage, sqlBool(r.CacheHit), r.LatencyMs, r.ResponseSize,
		formatTime(r.CreatedAt),
	)
	return err
}

func (d *DB) GetAuditRecord(ctx context.Context, id string) (*store.AuditRecord, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT `+auditColumns+` FROM audit_records WHERE id = ?`, id)
	r, err := scanAuditRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return r, err
}

func (d *DB) QueryAuditRecords(
	ctx context.Context, f store.AuditFilter,
) ([]store.AuditRecord, int, error) {
	where, args := buildAuditWhere(f)

	var total int
	if err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM audit_records"+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+auditColumns+` FROM audit_records`+where+
			` ORDER BY timestamp DESC LIMIT ? OFFSET ?`,
		append(args, limit, f.Offset)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []store.AuditRecord
	for rows.Next() {
		r, err := scanAuditRow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *r)
	}
	return out, total, rows.Err()
}

func (d *DB) GetAuditStats(
	ctx context.Context, after, before time.Time,
) (*store.AuditStats, error) {
	var s store.AuditStats
	const where = "WHERE timestamp >= ? AND timestamp <= ?"
	args := []any{formatTime(after), formatTime(before)}

	err := d.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'success'),
			COUNT(*) FILTER (WHERE status = 'error'),
			COUNT(*) FILTER (WHERE cache_hit = 1),
			COALESCE(AVG(latency_ms), 0)
		FROM audit_records `+where,
		args...,
	).Scan(&s.TotalRequests, &s.SuccessCount, &s.ErrorCount, &s.CacheHits, &s.AvgLatencyMs)
	if err != nil {
		return nil, err
	}
	if s.TotalRequests == 0 {
		return &s, nil
	}

	err = d.db.QueryRowContext(ctx, `
		SELECT latency_ms FROM audit_records `+where+`
		ORDER BY latency_ms ASC
		LIMIT 1 OFFSET ?`,
		append(args, p95Offset(s.TotalRequests))...,
	).Scan(&s.P95LatencyMs)
	if err != nil {
		return nil, fmt.Errorf("p95 latency: %w", err)
	}
	return &s, nil
}

// p95Offset is the zero-based row index of the 95th percentile.
func p95Offset(n int) int {
	off := n * 95 / 100
	if off >= n {
		off = n - 1
	}
	return off
}

func (d *DB) GetToolLeaderboard(
	ctx context.Context, after, before time.Time, limit int,
) ([]store.ToolLeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT
			tool_name,
			COUNT(*) AS calls,
			COUNT(*) FILTER (WHERE status = 'error'),
			COALESCE(AVG(latency_ms), 0)
		FROM audit_records
		WHERE timestamp >= ? AND timestamp <= ? AND tool_name != ''
		GROUP BY tool_name
		ORDER BY calls DESC, tool_name ASC
		LIMIT ?`,
		formatTime(after), formatTime(before), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.ToolLeaderboardEntry
	for rows.Next() {
		var e store.ToolLeaderboardEntry
		if err := rows.Scan(&e.ToolName, &e.Calls, &e.Errors, &e.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PruneAuditRecords deletes records older than before.
func (d *DB) PruneAuditRecords(ctx context.Context, before time.Time) (int64, error) {
	res, err := d.db.ExecContext(ctx,
		`DELETE FROM audit_records WHERE timestamp < ?`, formatTime(before))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func buildAuditWhere(f store.AuditFilter) (string, []any) {
	var conds []string
	var args []any
	if f.SessionID != nil {
		conds = append(conds, "session_id = ?")
		args = append(args, *f.SessionID)
	}
	if f.Method != nil {
		conds = append(conds, "method = ?")
		args = append(args, *f.Method)
	}
	if f.ToolName != nil {
		conds = append(conds, "tool_name = ?")
		args = append(args, *f.ToolName)
	}
	if f.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *f.Status)
	}
	if f.After != nil {
		conds = append(conds, "timestamp >= ?")
		args = append(args, formatTime(*f.After))
	}
	if f.Before != nil {
		conds = append(conds, "timestamp <= ?")
		args = append(args, formatTime(*f.Before))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanAuditRow(row rowScanner) (*store.AuditRecord, error) {
	var r store.AuditRecord
	var ts, createdAt, params string
	var cacheHit int
	err := row.Scan(
		&r.ID, &ts, &r.SessionID, &r.Method, &r.ToolName, &params,
		&r.Status, &r.ErrorCode, &r.ErrorMessage, &cacheHit,
		&r.LatencyMs, &r.ResponseSize, &createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan audit row: %w", err)
	}
	r.ParamsRedacted = json.RawMessage(params)
	r.CacheHit = cacheHit != 0
	r.Timestamp = parseTime(ts)
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}
