// Package api exposes the RAG coordinator over HTTP.
//
// The web transport is a thin host shell: request decoding, response
// encoding, and middleware live here; all retrieval and orchestration
// logic stays in the core packages.
//
// Endpoints:
//
//	POST /api/query           answer a question (creates a session when omitted)
//	GET  /api/courses         course statistics
//	POST /api/sessions        create a session
//	POST /api/sessions/clear  clear a session's history
//	GET  /healthz             liveness probe
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/paulantoine/coursemate/internal/rag"
	"github.com/paulantoine/coursemate/internal/tools"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout bounds header reads to resist slow-client
	// connection exhaustion.
	ReadHeaderTimeout = 10 * time.Second

	ReadTimeout  = 30 * time.Second
	WriteTimeout = 120 * time.Second
	IdleTimeout  = 120 * time.Second
)

// RAG is the coordinator surface the HTTP layer consumes.
type RAG interface {
	Query(ctx context.Context, text, sessionID string) (string, []tools.Source, error)
	CreateSession() string
	ClearSession(id string)
	GetAnalytics() rag.Analytics
}

// Server hosts the REST API over a RAG coordinator.
type Server struct {
	mux    *http.ServeMux
	rag    RAG
	logger *slog.Logger
}

// NewServer creates the server with all routes registered.
func NewServer(r RAG, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mux:    http.NewServeMux(),
		rag:    r,
		logger: logger,
	}

	s.mux.HandleFunc("POST /api/query", s.handleQuery)
	s.mux.HandleFunc("GET /api/courses", s.handleCourses)
	s.mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	s.mux.HandleFunc("POST /api/sessions/clear", s.handleClearSession)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	return s
}

// Handler returns the mux wrapped in the middleware chain.
// Order: recovery outermost, then request logging.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
	)
}

// Run starts the server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
