package api

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/revittco/mcpgate/internal/store"
)

type auditHandler struct {
	store store.AuditStore
	now   func() time.Time
}

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// parseAuditFilter reads list filters from the query string. Malformed
// values are ignored rather than rejected.
func parseAuditFilter(q url.Values) store.AuditFilter {
	f := store.AuditFilter{Limit: defaultAuditLimit}
	for key, dst := range map[string]**string{
		"method":     &f.Method,
		"tool_name":  &f.ToolName,
		"status":     &f.Status,
		"session_id": &f.SessionID,
	} {
		if v := q.Get(key); v != "" {
			*dst = &v
		}
	}
	f.After = parseTimeParam(q.Get("after"))
	f.Before = parseTimeParam(q.Get("before"))
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 && n <= maxAuditLimit {
		f.Limit = n
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n > 0 {
		f.Offset = n
	}
	return f
}

func parseTimeParam(v string) *time.Time {
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil
	}
	return &t
}

type auditListResponse struct {
	Data   []store.AuditRecord `json:"data"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

func (h *auditHandler) query(w http.ResponseWriter, r *http.Request) {
	filter := parseAuditFilter(r.URL.Query())
	records, total, err := h.store.QueryAuditRecords(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query audit records")
		return
	}
	if records == nil {
		records = []store.AuditRecord{}
	}
	writeJSON(w, http.StatusOK, auditListResponse{
		Data:   records,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

type auditStatsResponse struct {
	Since string                       `json:"since"`
	Stats *store.AuditStats            `json:"stats"`
	Tools []store.ToolLeaderboardEntry `json:"tools"`
}

// stats aggregates the window given by ?since= (a Go duration, default
// 24h) and ranks up to ?top= tools.
func (h *auditHandler) stats(w http.ResponseWriter, r *http.Request) {
	since := 24 * time.Hour
	if v := r.URL.Query().Get("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "since must be a positive duration")
			return
		}
		since = d
	}

	top := 10
	if n, err := strconv.Atoi(r.URL.Query().Get("top")); err == nil && n > 0 && n <= 100 {
		top = n
	}

	now := time.Now
	if h.now != nil {
		now = h.now
	}
	before := now()
	after := before.Add(-since)

	stats, err := h.store.GetAuditStats(r.Context(), after, before)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute audit stats")
		return
	}
	tools, err := h.store.GetToolLeaderboard(r.Context(), after, before, top)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute tool leaderboard")
		return
	}
	if tools == nil {
		tools = []store.ToolLeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, auditStatsResponse{Since: since.String(), Stats: stats, Tools: tools})
}
