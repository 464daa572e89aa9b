// Package api serves a read-only JSON API over the current snapshot.
package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/japaniel/eldamo/pkg/snapshot"
)

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cache   *snapshot.Cache
	history *sql.DB
	reg     *prometheus.Registry
	metrics *httpMetrics
	log     *slog.Logger
}

// NewServer creates and configures the HTTP server. history and reg may be nil, in
// which case /api/history and /metrics are not served.
func NewServer(cache *snapshot.Cache, history *sql.DB, reg *prometheus.Registry, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		cache:   cache,
		history: history,
		reg:     reg,
		log:     log,
	}
	if reg != nil {
		s.metrics = newHTTPMetrics(reg)
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
	r.Use(RequestLogger(s.log, s.metrics))

	r.Get("/health", s.handleHealth)
	if s.reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/words", s.handleFindWord)
		r.Get("/words/{pageID}", s.handleWordByID)
		r.Get("/words/{pageID}/refs", s.handleRelatedRefs)
		r.Get("/refs", s.handleFindRef)
		r.Get("/refs/owner", s.handleRefOwner)
		r.Get("/rules", s.handleFindRule)
		r.Get("/stats", s.handleStats)
		if s.history != nil {
			r.Get("/history", s.handleHistory)
		}
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
