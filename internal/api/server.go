// Package api serves dopflow over HTTP.
//
// Routes:
//
//	GET    /healthz
//	POST   /api/v1/build                  tabulation → graph JSON (not stored)
//	POST   /api/v1/graphs                 build and store, 201 with the record
//	GET    /api/v1/graphs?limit=N         newest-first summaries
//	GET    /api/v1/graphs/{id}            stored record
//	DELETE /api/v1/graphs/{id}            204
//	GET    /api/v1/graphs/{id}/render     ?format=svg|dot|json|png|pdf&viz=sankey|nodelink
//
// Request bodies are tabulations in JSON, or TOML when the request carries
// ?format=toml or a TOML content type. Errors are returned as
// {"error": {"code": "...", "message": "..."}} with the status derived from
// the error code.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/matzehuels/dopflow/pkg/pipeline"
	"github.com/matzehuels/dopflow/pkg/store"
)

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes = 8 << 20

// shutdownTimeout bounds graceful shutdown in [Server.ListenAndServe].
const shutdownTimeout = 10 * time.Second

// Options configures a [Server].
type Options struct {
	// CORSOrigins lists allowed origins; empty allows any origin.
	CORSOrigins []string

	// MaxBodyBytes bounds request bodies; zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// Defaults supplies layout dimensions for render requests that do not
	// set them.
	Defaults pipeline.Options
}

// Server holds the dependencies shared by all handlers.
type Server struct {
	runner *pipeline.Runner
	store  store.Store
	logger *log.Logger
	opts   Options
}

// New creates a server. A nil logger uses log.Default().
func New(runner *pipeline.Runner, st store.Store, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	return &Server{runner: runner, store: st, logger: logger, opts: opts}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(requestHooks)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/build", s.build)

		r.Route("/graphs", func(r chi.Router) {
			r.Post("/", s.createGraph)
			r.Get("/", s.listGraphs)
			r.Get("/{id}", s.getGraph)
			r.Delete("/{id}", s.deleteGraph)
			r.Get("/{id}/render", s.renderGraph)
		})
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
