// Package server exposes the minimal internal HTTP surface that external
// submission and worker-spawn mechanisms use to trigger task processing.
// There is no library browsing, playback or auth here; all task state is
// observable through the datastore records the orchestration writes.
package server

import (
	"net/http"
	"time"

	"TrackVault/config"
	"TrackVault/core/acquire"
	"TrackVault/logger"

	"github.com/gorilla/mux"
)

// Server wraps the HTTP trigger surface.
type Server struct {
	cfg       *config.Config
	scheduler *acquire.Scheduler
}

// New creates a Server.
func New(cfg *config.Config, scheduler *acquire.Scheduler) *Server {
	return &Server{cfg: cfg, scheduler: scheduler}
}

// Start blocks serving the trigger endpoints.
func (s *Server) Start() error {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/internal/tasks/{id:[0-9]+}/run", s.handleRunTask).Methods(http.MethodPost)
	router.HandleFunc("/internal/tasks/drain", s.handleDrain).Methods(http.MethodPost)

	srv := &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Info("trigger surface listening", logger.String("addr", s.cfg.ListenAddr))
	return srv.ListenAndServe()
}
