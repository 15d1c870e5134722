package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleUpstreamStats(w http.ResponseWriter, r *http.Request) {
	if s.upstream == nil {
		jsonError(w, "upstream stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"upstream": s.cfg.NarthexURL,
		"stats":    s.upstream.Snapshot(),
	})
}

// handleDelimiterHistory lists the delimiters stored for a dataset, newest
// first. ?limit=N caps the result.
func (s *Server) handleDelimiterHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		jsonError(w, "delimiter history disabled", http.StatusServiceUnavailable)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	dataset := chi.URLParam(r, "dataset")
	entries, err := s.history.List(r.Context(), dataset, limit)
	if err != nil {
		s.log.Error("delimiter history", "dataset", dataset, "error", err)
		jsonError(w, "failed to read delimiter history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dataset":    dataset,
		"delimiters": entries,
	})
}

// handleLatestDelimiter returns the most recently stored delimiter.
func (s *Server) handleLatestDelimiter(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		jsonError(w, "delimiter history disabled", http.StatusServiceUnavailable)
		return
	}
	dataset := chi.URLParam(r, "dataset")
	entry, ok, err := s.history.Latest(r.Context(), dataset)
	if err != nil {
		s.log.Error("latest delimiter", "dataset", dataset, "error", err)
		jsonError(w, "failed to read delimiter history", http.StatusInternalServerError)
		return
	}
	if !ok {
		jsonError(w, "no delimiter stored for "+dataset, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
