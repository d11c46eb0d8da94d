// Package localhttp serves the app over a loopback HTTP API and a WebSocket
// snapshot stream, for renderers and tools running outside the desktop shell.
package localhttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/playdeck/internal/app"
	"github.com/MJE43/playdeck/internal/journal"
	"github.com/MJE43/playdeck/internal/scripting"
)

const TokenHeader = "X-Playdeck-Token"

// Runtime is the part of app.Runtime the server drives.
type Runtime interface {
	Send(ctx context.Context, in app.Intent) (app.Snapshot, error)
	Snapshot() app.Snapshot
	Subscribe(fn func(app.Snapshot)) (unsubscribe func())
}

type Journal interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
	CountByKind(ctx context.Context) ([]journal.KindCount, error)
}

type ScriptRunner interface {
	Run(ctx context.Context, source string) (scripting.Result, error)
}

// Deps wires the server. Journal, Scripts and Metrics are optional.
type Deps struct {
	Runtime Runtime
	Journal Journal
	Scripts ScriptRunner
	Metrics http.Handler
	Logger  *slog.Logger
}

// Server runs the local API bound to loopback.
type Server struct {
	deps        Deps
	log         *slog.Logger
	token       string
	addr        string
	httpServer  *http.Server
	ln          net.Listener
	started     time.Time
	readTimeout time.Duration
}

// New creates a server on 127.0.0.1:port. Port 0 picks a free port.
// token may be empty to disable token checks.
func New(deps Deps, port int, token string) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Server{
		deps:        deps,
		log:         deps.Logger.With("component", "localhttp"),
		token:       token,
		addr:        fmt.Sprintf("127.0.0.1:%d", port),
		readTimeout: 10 * time.Second,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequest)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics)
	}
	r.With(s.requireToken).Get("/ws", s.handleWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/state", s.handleState)
		r.Get("/routes", s.handleRoutes)
		r.Get("/games", s.handleGames)
		r.Get("/intents", s.handleIntentKinds)
		r.Get("/journal", s.handleJournal)
		r.Get("/journal/kinds", s.handleJournalKinds)

		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)
			r.Post("/intents", s.handleIntent)
			r.Post("/scripts/run", s.handleScript)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errObj("NOT_FOUND", "no such route: "+r.URL.Path, ""))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errObj("VALIDATION_ERROR", "method not allowed", ""))
	})
	return r
}

// Start begins listening in a goroutine. It returns when the socket is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("localhttp: listen %s: %w", s.addr, err)
	}
	s.ln = ln
	s.started = time.Now()
	s.httpServer = &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: s.readTimeout,
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("serve failed", "error", err)
		}
	}()
	s.log.Info("listening", "addr", ln.Addr().String())
	return nil
}

// Addr is the bound address, valid after Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" {
			got := r.Header.Get(TokenHeader)
			if got == "" {
				got = r.URL.Query().Get("token")
			}
			if got != s.token {
				writeJSON(w, http.StatusUnauthorized, errObj("UNAUTHORIZED", "missing or invalid "+TokenHeader, ""))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
