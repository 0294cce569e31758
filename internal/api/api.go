// Package api serves the dashboard-facing HTTP interface.
//
// Routes:
//
//	GET    /health                     liveness and build info
//	GET    /api/v1/plugins             registered parsers and generators
//	POST   /api/v1/convert             one-shot source -> target conversion
//	GET    /api/v1/graphs              stored graph listing
//	POST   /api/v1/graphs              parse and store a graph
//	GET    /api/v1/graphs/{id}         serialized graph envelope
//	DELETE /api/v1/graphs/{id}         remove a stored graph
//	GET    /api/v1/graphs/{id}/render  DOT or SVG rendering
//
// Responses are JSON except renderings. Errors carry a JSON envelope
// {"error": {"code", "message"}} with the code mapped to an HTTP status
// by respond.go.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/recastops/recast/pkg/errors"
	"github.com/recastops/recast/pkg/observability"
	"github.com/recastops/recast/pkg/pipeline"
	"github.com/recastops/recast/pkg/store"
)

const (
	readTimeout     = 30 * time.Second
	writeTimeout    = 60 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 5 * time.Second

	// maxBodySize caps request bodies; source files are small text.
	maxBodySize = 4 << 20
)

// Server bundles the conversion runner, the graph store, and the route
// tree behind one address.
type Server struct {
	addr   string
	runner *pipeline.Runner
	store  store.Store
	logger *log.Logger
}

// NewServer creates a server. Nil arguments fall back to a default
// runner, an in-memory store, and the default logger.
func NewServer(addr string, runner *pipeline.Runner, st store.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if runner == nil {
		runner = pipeline.NewRunner(nil, nil, nil, nil, logger)
	}
	if st == nil {
		st = store.NewMemoryStore(nil)
	}
	if addr == "" {
		addr = ":8080"
	}
	return &Server{addr: addr, runner: runner, store: st, logger: logger}
}

// Router assembles the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/plugins", s.handlePlugins)
		r.Post("/convert", s.handleConvert)
		r.Route("/graphs", func(r chi.Router) {
			r.Get("/", s.handleGraphList)
			r.Post("/", s.handleGraphCreate)
			r.Get("/{id}", s.handleGraphGet)
			r.Delete("/{id}", s.handleGraphDelete)
			r.Get("/{id}/render", s.handleGraphRender)
		})
	})
	return r
}

// Serve runs the server until ctx is canceled, then drains in-flight
// requests before returning.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.Router(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	s.logger.Info("server listening", "addr", s.addr)
	select {
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return errors.Wrap(errors.ErrCodeInternal, err, "serve %s", s.addr)
	case <-ctx.Done():
	}

	s.logger.Info("server draining")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "shutdown")
	}
	return nil
}

// observe emits request hooks and a debug log line per request.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		observability.HTTP().OnRequest(r.Context(), r.Method, r.URL.Path)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		observability.HTTP().OnResponse(r.Context(), r.Method, r.URL.Path, ww.Status(), duration)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", duration)
	})
}
