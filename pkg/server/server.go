package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/loom/pkg/fiber"
	"github.com/vango-dev/loom/pkg/protocol"
	"github.com/vango-dev/loom/pkg/render"
	"github.com/vango-dev/loom/pkg/vdom"
)

// App builds the root element of a session. It is called once per page
// request and once per session.
type App func() *vdom.Element

// Metrics receives engine and session activity. *metrics.Collector
// implements it.
type Metrics interface {
	fiber.Observer
	SessionOpened()
	SessionClosed()
	EventHandled(status string)
	Handler() http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics records engine and session metrics and serves them at
// Config.MetricsPath.
func WithMetrics(m Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithTracer sets the tracer for commit and event spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Server) {
		s.tracer = t
	}
}

// Server serves an App to browsers.
type Server struct {
	app      App
	config   *Config
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  Metrics
	sessions *SessionManager
	router   chi.Router
	upgrader websocket.Upgrader

	started    time.Time
	ctx        context.Context
	cancel     context.CancelFunc
	httpServer *http.Server
}

// New creates a Server for app. A nil config uses DefaultConfig.
func New(app App, config *Config, opts ...Option) *Server {
	s := &Server{
		app:     app,
		config:  config.withDefaults(),
		logger:  slog.Default(),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")
	if s.tracer == nil {
		s.tracer = otel.Tracer("github.com/vango-dev/loom/pkg/server")
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.sessions = NewSessionManager(s.config.MaxSessions, s.logger)
	if s.metrics != nil {
		s.sessions.SetOnSessionCreate(func(*Session) { s.metrics.SessionOpened() })
		s.sessions.SetOnSessionClose(func(*Session) { s.metrics.SessionClosed() })
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.config.CheckOrigin,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", s.handlePage)
	r.Get(s.config.SocketPath, s.HandleWebSocket)
	r.Get(s.config.HealthPath, s.handleHealth)
	r.Get(s.config.ClientPath, s.serveThinClient)
	r.Head(s.config.ClientPath, s.serveThinClient)
	if s.metrics != nil {
		r.Method(http.MethodGet, s.config.MetricsPath, s.metrics.Handler())
	}
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the server's router for mounting in another router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// handlePage serves the server-rendered first paint. The live session
// replaces it once the thin client connects.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if s.app == nil {
		http.Error(w, ErrNoApp.Error(), http.StatusInternalServerError)
		return
	}
	body, err := render.Mount(s.app(), fiber.Options{
		MinRemaining: s.config.MinRemaining,
		Logger:       s.logger,
		Tracer:       s.tracer,
	})
	if err != nil {
		s.logger.Error("page render failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	err = render.NewRenderer(render.RendererConfig{}).RenderPage(&buf, render.PageData{
		Body:         body,
		Title:        s.config.Title,
		ClientScript: s.config.ClientPath,
		SocketPath:   s.config.SocketPath,
	})
	if err != nil {
		s.logger.Error("page render failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// healthReport is the body of the health endpoint.
type healthReport struct {
	Status       string `json:"status"`
	Sessions     int    `json:"sessions"`
	TotalCreated uint64 `json:"totalCreated"`
	Uptime       string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.sessions.Stats()
	status := "ok"
	if s.ctx.Err() != nil {
		status = "shutting_down"
	}
	w.Header().Set("Content-Type", "application/json")
	if status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(healthReport{
		Status:       status,
		Sessions:     stats.Active,
		TotalCreated: stats.TotalCreated,
		Uptime:       time.Since(s.started).Round(time.Second).String(),
	})
}

// HandleWebSocket upgrades the connection and serves a session on it until
// the connection closes.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.app == nil {
		http.Error(w, ErrNoApp.Error(), http.StatusInternalServerError)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	sess := newSession(conn, s.config, s.logger, s.tracer, s.metrics)
	if err := s.sessions.Add(sess); err != nil {
		sess.sendError(protocol.NewFatalError(protocol.ErrSessionLimit, err.Error()))
		sess.CloseWithReason(protocol.CloseError, "session limit reached")
		return
	}

	if err := sess.Serve(s.ctx, s.app()); err != nil {
		s.logger.Error("session failed", "session_id", sess.ID, "error", err)
	}
}

// Run serves HTTP on Config.Address until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	if s.app == nil {
		return ErrNoApp
	}
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes every session and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.cancel()
	if err := s.sessions.Shutdown(ctx); err != nil {
		s.logger.Warn("session shutdown incomplete", "error", err)
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Config returns the server configuration.
func (s *Server) Config() *Config {
	return s.config
}

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}
