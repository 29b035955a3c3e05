// Package api serves the status, trades and reports of simulation sessions
// over HTTP.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"portfoliosim/internal/engine"
	"portfoliosim/internal/journal"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// History lists sessions recorded by earlier runs.
type History interface {
	ListSessions(ctx context.Context) ([]journal.SessionRecord, error)
}

type Server struct {
	router *chi.Mux
	log    zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*engine.Session
	order    []string

	riskFreeRate decimal.Decimal
	history      History
}

type Option func(*Server)

// WithRiskFreeRate sets the annual rate reports compute the Sharpe ratio against.
func WithRiskFreeRate(rate decimal.Decimal) Option {
	return func(s *Server) {
		s.riskFreeRate = rate
	}
}

func WithHistory(h History) Option {
	return func(s *Server) {
		s.history = h
	}
}

func NewServer(log zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		log:      log.With().Str("component", "api").Logger(),
		sessions: make(map[string]*engine.Session),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(s.loggingMiddleware)
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.handleListSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Get("/report", s.handleGetReport)
			r.Get("/trades", s.handleGetTrades)
			r.Get("/alerts", s.handleGetAlerts)
			r.Get("/snapshots", s.handleGetSnapshots)
			r.Post("/stop", s.handleStopSession)
		})
	})

	s.router.Get("/history", s.handleHistory)
}

// Track makes a session visible to the API. Tracking the same session twice is
// a no-op.
func (s *Server) Track(session *engine.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID()]; ok {
		return
	}
	s.sessions[session.ID()] = session
	s.order = append(s.order, session.ID())
}

func (s *Server) session(id string) (*engine.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *Server) tracked() []*engine.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*engine.Session, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sessions[id])
	}
	return out
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("starting HTTP server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
