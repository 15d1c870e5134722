package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dgallion1/xmlray/internal/config"
	"github.com/dgallion1/xmlray/internal/history"
	"github.com/dgallion1/xmlray/internal/narthex"
	"github.com/dgallion1/xmlray/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// History reads stored delimiters for a dataset.
type History interface {
	List(ctx context.Context, dataset string, limit int) ([]history.Entry, error)
	Latest(ctx context.Context, dataset string) (history.Entry, bool, error)
}

// Server is the HTTP API server for xmlray.
type Server struct {
	router   chi.Router
	sessions *session.Manager
	history  History
	upstream *narthex.LatencyStats
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server. hist and upstream may
// be nil; their endpoints then report 503.
func NewServer(sessions *session.Manager, hist History, upstream *narthex.LatencyStats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		sessions: sessions,
		history:  hist,
		upstream: upstream,
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.XmlrayAPIKey, s.log))

		r.Post("/api/sessions", s.handleOpenSession)
		r.Route("/api/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleCloseSession)
			r.Get("/tree", s.handleTree)
			r.Post("/select", s.handleSelect)
			r.Post("/unique-id", s.handleUniqueID)
			r.Post("/view/{view}", s.handleView)
			r.Post("/more/{view}", s.handleMore)
			r.Post("/source-paths", s.handleSourcePaths)
		})

		r.Get("/api/datasets/{dataset}/delimiters", s.handleDelimiterHistory)
		r.Get("/api/datasets/{dataset}/delimiters/latest", s.handleLatestDelimiter)
		r.Get("/api/stats/upstream", s.handleUpstreamStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Count(),
	})
}
