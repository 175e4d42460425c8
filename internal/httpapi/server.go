package httpapi

import (
	"context"
	"net/http"
	"time"

	"jimakugen/internal/jobs"
	"jimakugen/internal/library"
	"jimakugen/internal/persistence"
)

// Server exposes the daemon's state over HTTP: queued jobs, pending
// library candidates and recent run history. Read-only except for
// triggering a rescan.
type Server struct {
	scanner *library.Scanner
	queue   *jobs.Queue
	store   *persistence.SQLiteStore

	mux    *http.ServeMux
	server *http.Server
}

func NewServer(scanner *library.Scanner, queue *jobs.Queue, store *persistence.SQLiteStore) *Server {
	s := &Server{
		scanner: scanner,
		queue:   queue,
		store:   store,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/jobs", s.handleJobs)
	s.mux.HandleFunc("/api/candidates", s.handleCandidates)
	s.mux.HandleFunc("/api/runs", s.handleRuns)
	s.mux.HandleFunc("/api/scan", s.handleScan)
}
