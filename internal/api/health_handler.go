package api

import (
	"context"
	"net/http"
	"time"

	"github.com/revittco/mcpgate/internal/store"
)

type healthHandler struct {
	name    string
	version string
	started time.Time
	db      store.Store // nil when auditing is off
}

type healthResponse struct {
	Status        string `json:"status"`
	Name          string `json:"name"`
	Version       string `json:"version"`
	UptimeSeconds int    `json:"uptime_seconds"`
	Transport     string `json:"transport"`
	AuditDB       string `json:"audit_db,omitempty"`
}

func (h *healthHandler) get(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		Name:          h.name,
		Version:       h.version,
		UptimeSeconds: int(time.Since(h.started).Seconds()),
		Transport:     "stdio",
	}
	status := http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		resp.AuditDB = "ok"
		if err := h.db.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.AuditDB = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}
