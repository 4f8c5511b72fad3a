// Package server exposes graph documents and headless evaluation over HTTP.
//
// # Routes
//
//	GET    /healthz                  liveness and build version
//	GET    /classes                  registered node and pin classes
//	GET    /graphs                   stored graph keys
//	POST   /graphs                   store a document under a generated key
//	GET    /graphs/{key}             stored document (ETag, If-None-Match)
//	PUT    /graphs/{key}             replace a document (If-Match)
//	DELETE /graphs/{key}             remove a document
//	GET    /graphs/{key}/dot         Graphviz DOT, or SVG with ?format=svg
//	                                 (SVG renders are cached by content hash)
//	POST   /graphs/{key}/frames      evaluate frames in a throwaway session
//	GET    /sessions                 live session ids
//	POST   /sessions                 open a session on a stored graph
//	POST   /sessions/{id}/frames     evaluate the next frames of a session
//	DELETE /sessions/{id}            close a session
//
// Every document is validated by restoring it against the node registry
// before it is stored, so the store only ever holds loadable graphs.
//
// Errors are returned as {"error": "...", "code": "..."} with the status
// derived from the error code of package errors.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/mixgraph/pkg/cache"
	"github.com/matzehuels/mixgraph/pkg/nodegraph"
	"github.com/matzehuels/mixgraph/pkg/nodegraph/nodes"
	"github.com/matzehuels/mixgraph/pkg/session"
	"github.com/matzehuels/mixgraph/pkg/store"
)

const (
	// maxBodyBytes bounds request bodies.
	maxBodyBytes = 8 << 20
	// maxFrames bounds the frames evaluated by one request.
	maxFrames = 600
	// artifactTTL is how long a rendered diagram stays cached.
	artifactTTL = 24 * time.Hour
)

// Options configures a Server.
type Options struct {
	// Store holds graph documents. Required.
	Store store.Store
	// Registry resolves node classes. Nil uses the built-in registry.
	Registry *nodegraph.Registry
	// Sessions holds live sessions. Nil creates one with the default TTL.
	Sessions *session.Registry
	// Logger receives request logs. Nil discards.
	Logger *log.Logger
	// MaxIterations bounds each flow chain. Zero uses the evaluator default.
	MaxIterations int
	// EventClass is the node class that starts a frame.
	EventClass string
	// Cache holds rendered diagrams. Nil keeps them in memory.
	Cache cache.Cache
}

// Server serves the HTTP API.
type Server struct {
	store      store.Store
	reg        *nodegraph.Registry
	sessions   *session.Registry
	artifacts  cache.Cache
	logger     *log.Logger
	maxIter    int
	eventClass string
}

// New creates a Server.
func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("server: store is required")
	}
	reg := opts.Registry
	if reg == nil {
		var err error
		if reg, err = nodes.NewRegistry(); err != nil {
			return nil, err
		}
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewRegistry(session.DefaultTTL)
	}
	artifacts := opts.Cache
	if artifacts == nil {
		artifacts = cache.NewMemoryCache(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{
		store:      opts.Store,
		reg:        reg,
		sessions:   sessions,
		artifacts:  artifacts,
		logger:     logger,
		maxIter:    opts.MaxIterations,
		eventClass: opts.EventClass,
	}, nil
}

// Sessions returns the session registry.
func (s *Server) Sessions() *session.Registry { return s.sessions }

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/classes", s.handleClasses)

	r.Route("/graphs", func(r chi.Router) {
		r.Get("/", s.handleListGraphs)
		r.Post("/", s.handleCreateGraph)
		r.Route("/{key}", func(r chi.Router) {
			r.Get("/", s.handleGetGraph)
			r.Put("/", s.handlePutGraph)
			r.Delete("/", s.handleDeleteGraph)
			r.Get("/dot", s.handleGraphDOT)
			r.Post("/frames", s.handleGraphFrames)
		})
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.handleListSessions)
		r.Post("/", s.handleCreateSession)
		r.Post("/{id}/frames", s.handleSessionFrames)
		r.Delete("/{id}", s.handleDeleteSession)
	})

	return r
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully within shutdownTimeout. Live sessions are closed on return.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	defer s.sessions.Close()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) graphOptions() nodegraph.Options {
	return nodegraph.Options{
		Class:      nodes.GraphClass,
		EventClass: s.eventClass,
		Logger:     s.logger,
	}
}
