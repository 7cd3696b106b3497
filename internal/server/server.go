// Package server exposes the transcription pipeline and transcript store
// over HTTP.
//
// Routes:
//
//   - POST   /api/transcribe        — multipart upload ("audio" part), runs
//     the pipeline and stores the result
//   - GET    /api/transcripts       — list stored transcripts, newest first
//   - GET    /api/transcripts/{id}  — fetch one transcript
//   - DELETE /api/transcripts/{id}  — remove one transcript
//   - GET    /healthz, /readyz      — probes
//   - GET    /metrics               — Prometheus scrape endpoint
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/voxscribe/internal/health"
	"github.com/MrWong99/voxscribe/internal/observe"
	"github.com/MrWong99/voxscribe/internal/pipeline"
	"github.com/MrWong99/voxscribe/internal/transcript"
)

// shutdownTimeout bounds how long in-flight requests may run during a
// graceful stop.
const shutdownTimeout = 15 * time.Second

// Server routes HTTP requests to the pipeline and the transcript store.
type Server struct {
	processor pipeline.Processor
	store     transcript.Store
	health    *health.Handler
	metrics   *observe.Metrics
}

// New creates a [Server]. processor and store are required; checkers are
// registered on the /readyz probe.
func New(processor pipeline.Processor, store transcript.Store, checkers ...health.Checker) *Server {
	return &Server{
		processor: processor,
		store:     store,
		health:    health.New(checkers...),
		metrics:   observe.DefaultMetrics(),
	}
}

// Handler returns the fully-routed HTTP handler, wrapped in the tracing and
// metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/transcribe", s.handleTranscribe)
	mux.HandleFunc("GET /api/transcripts", s.handleList)
	mux.HandleFunc("GET /api/transcripts/{id}", s.handleGet)
	mux.HandleFunc("DELETE /api/transcripts/{id}", s.handleDelete)

	s.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(s.metrics)(mux)
}

// ListenAndServe runs the server on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
