package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/xmlray/internal/session"
	"github.com/dgallion1/xmlray/internal/statsview"
	"github.com/go-chi/chi/v5"
)

const maxRequestBytes = 1 << 20

type openRequest struct {
	Dataset string `json:"dataset"`
	Path    string `json:"path"`
	View    string `json:"view"`
}

type pathRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Dataset == "" {
		jsonError(w, "dataset is required", http.StatusBadRequest)
		return
	}

	sess, err := s.sessions.Open(r.Context(), req.Dataset, req.Path, statsview.Kind(req.View))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(chi.URLParam(r, "sessionID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	data, err := sess.TreeJSON()
	if err != nil {
		jsonError(w, "failed to encode tree", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req pathRequest
	if !decodeBody(w, r, &req) {
		return
	}

	selected, err := sess.SelectNode(r.Context(), req.Path)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"selected": selected,
		"session":  sess.Snapshot(),
	})
}

func (s *Server) handleUniqueID(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req pathRequest
	if !decodeBody(w, r, &req) {
		return
	}

	d, proposed, err := sess.SetUniqueID(r.Context(), req.Path)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := map[string]any{
		"proposed": proposed,
		"session":  sess.Snapshot(),
	}
	if proposed {
		resp["delimiter"] = d
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	kind, ok := viewParam(w, r, statsview.KindLengths, statsview.KindSample, statsview.KindHistogram)
	if !ok {
		return
	}
	if err := sess.ShowView(r.Context(), kind); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleMore(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	kind, ok := viewParam(w, r, statsview.KindSample, statsview.KindHistogram)
	if !ok {
		return
	}
	more, err := sess.More(r.Context(), kind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"more":    more,
		"session": sess.Snapshot(),
	})
}

func (s *Server) handleSourcePaths(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.RefreshSourcePaths(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

// viewParam reads the {view} URL parameter, accepting only the given kinds.
func viewParam(w http.ResponseWriter, r *http.Request, allowed ...statsview.Kind) (statsview.Kind, bool) {
	v := statsview.Kind(chi.URLParam(r, "view"))
	for _, k := range allowed {
		if v == k {
			return v, true
		}
	}
	jsonError(w, "unsupported view: "+string(v), http.StatusBadRequest)
	return "", false
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
