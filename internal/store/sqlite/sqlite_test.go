package sqlite_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/revittco/mcpgate/internal/store"
	"github.com/revittco/mcpgate/internal/store/sqlite"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(context.Background(), t.TempDir()+"/test.db")
	if err != nil {
		t.Fatalf("new test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func TestPing(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestReopenSkipsAppliedMigrations(t *testing.T) {
	path := t.TempDir() + "/reopen.db"
	ctx := context.Background()
	db, err := sqlite.New(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.InsertAuditRecord(ctx, &store.AuditRecord{Method: "tools/call", Status: store.StatusSuccess}); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = sqlite.New(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	_, total, err := db.QueryAuditRecords(ctx, store.AuditFilter{})
	if err != nil || total != 1 {
		t.Fatalf("total = %d, err = %v; want 1", total, err)
	}
}

func TestAuditInsertAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	r := &store.AuditRecord{
		SessionID:      "sess-1",
		Method:         "tools/call",
		ToolName:       "crypto_get_price",
		ParamsRedacted: json.RawMessage(`{"ids":"bitcoin"}`),
		Status:         store.StatusSuccess,
		CacheHit:       true,
		LatencyMs:      12,
		ResponseSize:   48,
	}
	if err := db.InsertAuditRecord(ctx, r); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if r.ID == "" {
		t.Fatal("expected ID to be set")
	}

	got, err := db.GetAuditRecord(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ToolName != "crypto_get_price" || !got.CacheHit || got.LatencyMs != 12 {
		t.Fatalf("got = %+v", got)
	}
	if string(got.ParamsRedacted) != `{"ids":"bitcoin"}` {
		t.Fatalf("params = %s", got.ParamsRedacted)
	}
	if !got.Timestamp.Equal(r.Timestamp.Truncate(time.Microsecond)) {
		t.Fatalf("timestamp = %v, want %v", got.Timestamp, r.Timestamp)
	}

	if _, err := db.GetAuditRecord(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func seedAudit(t *testing.T, db *sqlite.DB, base time.Time) {
	t.Helper()
	ctx := context.Background()
	records := []store.AuditRecord{
		{ToolName: "a", Status: store.StatusSuccess, LatencyMs: 10},
		{ToolName: "a", Status: store.StatusError, LatencyMs: 20, ErrorMessage: "http 500"},
		{ToolName: "a", Status: store.StatusSuccess, LatencyMs: 30, CacheHit: true},
		{ToolName: "b", Status: store.StatusSuccess, LatencyMs: 40},
	}
	for i := range records {
		records[i].Method = "tools/call"
		records[i].Timestamp = base.Add(time.Duration(i) * time.Second)
		if err := db.InsertAuditRecord(ctx, &records[i]); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
}

func TestQueryAuditRecords(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedAudit(t, db, base)

	tests := []struct {
		name      string
		filter    store.AuditFilter
		wantTotal int
		wantFirst string
	}{
		{"all", store.AuditFilter{}, 4, "b"},
		{"by tool", store.AuditFilter{ToolName: strPtr("a")}, 3, "a"},
		{"by status", store.AuditFilter{Status: strPtr(store.StatusError)}, 1, "a"},
		{"page", store.AuditFilter{Limit: 1, Offset: 1}, 4, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, total, err := db.QueryAuditRecords(ctx, tt.filter)
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			if total != tt.wantTotal {
				t.Errorf("total = %d, want %d", total, tt.wantTotal)
			}
			if len(recs) == 0 || recs[0].ToolName != tt.wantFirst {
				t.Errorf("first = %+v, want tool %q", recs, tt.wantFirst)
			}
		})
	}

	after := base.Add(2 * time.Second)
	recs, total, err := db.QueryAuditRecords(ctx, store.AuditFilter{After: &after})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(recs) != 2 {
		t.Fatalf("after filter total = %d, want 2", total)
	}
}

func TestAuditStatsAndLeaderboard(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedAudit(t, db, base)

	s, err := db.GetAuditStats(ctx, base, base.Add(time.Minute))
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if s.TotalRequests != 4 || s.SuccessCount != 3 || s.ErrorCount != 1 || s.CacheHits != 1 {
		t.Fatalf("stats = %+v", s)
	}
	if s.AvgLatencyMs != 25 {
		t.Errorf("avg = %f, want 25", s.AvgLatencyMs)
	}
	if s.P95LatencyMs != 40 {
		t.Errorf("p95 = %d, want 40", s.P95LatencyMs)
	}

	empty, err := db.GetAuditStats(ctx, base.Add(time.Hour), base.Add(2*time.Hour))
	if err != nil || empty.TotalRequests != 0 {
		t.Fatalf("empty stats = %+v, %v", empty, err)
	}

	board, err := db.GetToolLeaderboard(ctx, base, base.Add(time.Minute), 5)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 2 || board[0].ToolName != "a" || board[0].Calls != 3 || board[0].Errors != 1 {
		t.Fatalf("board = %+v", board)
	}
}

func TestPruneAuditRecords(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedAudit(t, db, base)

	n, err := db.PruneAuditRecords(ctx, base.Add(2*time.Second))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 2 {
		t.Fatalf("pruned = %d, want 2", n)
	}
	_, total, _ := db.QueryAuditRecords(ctx, store.AuditFilter{})
	if total != 2 {
		t.Fatalf("remaining = %d, want 2", total)
	}
}
