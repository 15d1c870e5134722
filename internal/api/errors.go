package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/xmlray/internal/narthex"
	"github.com/dgallion1/xmlray/internal/session"
)

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps session and upstream errors to response codes. Anything
// unrecognized is treated as an upstream failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrNodeNotFound),
		errors.Is(err, narthex.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrUniqueIDLocked),
		errors.Is(err, session.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, session.ErrNoSelection):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusBadGateway {
		s.log.Error("upstream request failed", "path", r.URL.Path, "error", err)
	}
	jsonError(w, err.Error(), code)
}
