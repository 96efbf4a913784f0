package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/RyanBlaney/genesis-map/compose"
	"github.com/RyanBlaney/genesis-map/config"
	"github.com/RyanBlaney/genesis-map/genesis"
	"github.com/RyanBlaney/genesis-map/logging"
)

// Server is the HTTP front end of the analysis job queue
type Server struct {
	config   config.ServerConfig
	options  genesis.Options
	firmware compose.FirmwareConfig
	router   *chi.Mux
	jobs     *JobManager
	logger   logging.Logger
}

// New creates a server. options are the per-job defaults; requests may turn
// on stems and change MaxEffects.
func New(cfg config.ServerConfig, analyzer Analyzer, options genesis.Options, firmware compose.FirmwareConfig) *Server {
	s := &Server{
		config:   cfg,
		options:  options,
		firmware: firmware,
		router:   chi.NewRouter(),
		jobs:     NewJobManager(analyzer, cfg.MaxConcurrentJobs),
		logger: logging.WithFields(logging.Fields{
			"component": "http_server",
		}),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/analyze", s.handleAnalyze)
	r.Get("/status/{id}", s.handleStatus)
	r.Get("/result/{id}", s.handleResult)
	r.Get("/effects/{file}", s.handleEffects)
	r.Delete("/job/{id}", s.handleDelete)
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Jobs returns the job manager
func (s *Server) Jobs() *JobManager {
	return s.jobs
}

// requestLogger logs one line per request and attaches the request id to the
// request context
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ctx := logging.ContextWithFields(r.Context(), logging.Fields{
			"request_id": middleware.GetReqID(r.Context()),
		})

		next.ServeHTTP(ww, r.WithContext(ctx))

		s.logger.WithContext(ctx).Debug("Request served", logging.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start).String(),
		})
	})
}

// Run serves on the configured address until ctx ends, then shuts down
// gracefully and waits for running jobs
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  2 * time.Minute, // uploads
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", logging.Fields{"addr": s.config.Addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(err, "Shutdown error")
		}
	}

	s.jobs.Close()
	return nil
}
