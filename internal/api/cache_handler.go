package api

import (
	"net/http"
)

type cacheHandler struct {
	cache CacheAdmin
}

func (h *cacheHandler) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.Stats())
}

type flushRequest struct {
	ResetStats bool `json:"reset_stats"`
}

type flushResponse struct {
	Flushed    int  `json:"flushed"`
	ResetStats bool `json:"reset_stats"`
}

func (h *cacheHandler) flush(w http.ResponseWriter, r *http.Request) {
	var req flushRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	n := h.cache.Stats().Size
	h.cache.Clear()
	if req.ResetStats {
		h.cache.ResetStats()
	}
	writeJSON(w, http.StatusOK, flushResponse{Flushed: n, ResetStats: req.ResetStats})
}
