package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/loom/pkg/fiber"
	"github.com/vango-dev/loom/pkg/idle"
	"github.com/vango-dev/loom/pkg/protocol"
	"github.com/vango-dev/loom/pkg/surface/remote"
	"github.com/vango-dev/loom/pkg/vdom"
)

// Session is one live connection. It owns an event loop, an engine and the
// remote document the engine renders into.
type Session struct {
	// ID is the unique session identifier.
	ID string

	// CreatedAt is when the session was created.
	CreatedAt time.Time

	conn    *websocket.Conn
	config  *Config
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics Metrics

	// Touched only on the loop goroutine.
	loop   *idle.Loop
	engine *fiber.Engine
	doc    *remote.Document

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
	onClose   func(*Session)

	lastActive atomic.Int64
	events     atomic.Uint64
	framesSent atomic.Uint64
	bytesSent  atomic.Uint64
}

// newSession wires a session to conn. It does not start anything.
func newSession(conn *websocket.Conn, config *Config, logger *slog.Logger, tracer trace.Tracer, m Metrics) *Session {
	id := generateSessionID()
	now := time.Now()
	s := &Session{
		ID:        id,
		CreatedAt: now,
		conn:      conn,
		config:    config,
		logger:    logger.With("session_id", id),
		tracer:    tracer,
		metrics:   m,
		done:      make(chan struct{}),
	}
	s.lastActive.Store(now.UnixNano())

	s.loop = idle.New(idle.Options{
		FrameInterval: config.FrameInterval,
		FrameBudget:   config.FrameBudget,
		Logger:        s.logger,
	})
	s.doc = remote.New(remote.SinkFunc(s.writeFrame))

	opts := fiber.Options{
		MinRemaining: config.MinRemaining,
		Logger:       s.logger,
		Tracer:       tracer,
		OnError:      s.renderFailed,
	}
	if m != nil {
		opts.Observer = m
	}
	s.engine = fiber.New(s.doc, opts)
	return s
}

// generateSessionID creates a cryptographically random session ID.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

// Serve mounts root and processes client messages until the connection
// closes or ctx is done. The session is closed when Serve returns.
func (s *Session) Serve(ctx context.Context, root *vdom.Element) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.Close()

	go func() {
		if err := s.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("event loop stopped", "error", err)
		}
	}()
	go func() {
		select {
		case <-ctx.Done():
			s.CloseWithReason(protocol.CloseServerShutdown, "server shutting down")
		case <-s.done:
		}
	}()

	var renderErr error
	err := s.loop.Do(ctx, func() {
		if renderErr = s.engine.Render(root, s.doc.Root()); renderErr == nil {
			s.engine.Start(s.loop)
		}
	})
	if err == nil {
		err = renderErr
	}
	if err != nil {
		s.sendError(protocol.NewFatalError(protocol.ErrRenderFailed, err.Error()))
		return &SessionError{SessionID: s.ID, Op: "mount", Err: err}
	}

	s.logger.Info("session started")
	go s.heartbeat()
	s.readLoop()
	return nil
}

// readLoop reads client frames until the connection fails.
func (s *Session) readLoop() {
	s.conn.SetReadLimit(s.config.MaxMessageSize)
	for {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() && websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
			}
			return
		}
		s.lastActive.Store(time.Now().UnixNano())

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			s.logger.Warn("frame decode error", "error", err)
			s.sendError(protocol.NewError(protocol.ErrInvalidFrame, err.Error()))
			continue
		}

		switch frame.Type {
		case protocol.FrameEvent:
			if !s.handleEventFrame(frame.Payload) {
				return
			}
		case protocol.FrameControl:
			if !s.handleControlFrame(frame.Payload) {
				return
			}
		default:
			s.logger.Warn("unexpected frame type", "type", frame.Type)
			s.sendError(protocol.NewError(protocol.ErrInvalidFrame, "unexpected "+frame.Type.String()+" frame"))
		}
	}
}

// handleEventFrame decodes an event and posts its dispatch to the loop. It
// returns false once the loop is closed.
func (s *Session) handleEventFrame(payload []byte) bool {
	ev, err := protocol.DecodeEvent(payload)
	if err != nil {
		s.logger.Warn("event decode error", "error", err)
		s.sendError(protocol.NewError(protocol.ErrInvalidEvent, err.Error()))
		return true
	}
	if err := s.loop.Post(func() { s.dispatch(ev) }); err != nil {
		return false
	}
	return true
}

// dispatch runs the listener for ev. It runs on the loop goroutine.
func (s *Session) dispatch(ev *protocol.Event) {
	_, span := s.tracer.Start(context.Background(), "loom.session.event",
		trace.WithAttributes(
			attribute.String("loom.session_id", s.ID),
			attribute.String("loom.event", ev.Name),
			attribute.Int64("loom.node_id", int64(ev.NodeID)),
		))
	defer span.End()

	s.events.Add(1)
	err := s.invoke(ev)
	status := "ok"
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		var he *HandlerError
		switch {
		case errors.As(err, &he):
			status = "panic"
			s.logger.Error("listener panic",
				"event", ev.Name,
				"node", ev.NodeID,
				"panic", he.Panic,
				"stack", string(he.Stack))
			s.sendError(protocol.NewError(protocol.ErrHandlerPanic, err.Error()))
		default:
			// The client can race a commit that removed the node.
			status = "no_listener"
			s.logger.Debug("event dropped", "event", ev, "error", err)
			s.sendError(protocol.NewError(protocol.ErrHandlerNotFound, err.Error()))
		}
	}
	if s.metrics != nil {
		s.metrics.EventHandled(status)
	}
}

func (s *Session) invoke(ev *protocol.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerError{Event: ev.Name, NodeID: ev.NodeID, Panic: r, Stack: debug.Stack()}
		}
	}()
	return s.doc.Dispatch(ev)
}

// handleControlFrame answers pings and handles close. It returns false when
// the client closes the session.
func (s *Session) handleControlFrame(payload []byte) bool {
	c, err := protocol.DecodeControl(payload)
	if err != nil {
		s.logger.Warn("control decode error", "error", err)
		return true
	}

	switch c.Type {
	case protocol.ControlPing:
		s.sendControl(protocol.NewPong(c.Timestamp))
	case protocol.ControlPong:
		s.logger.Debug("received pong", "rtt", time.Since(time.UnixMilli(int64(c.Timestamp))))
	case protocol.ControlClose:
		s.logger.Info("client closing", "reason", c.Reason, "message", c.Message)
		return false
	}
	return true
}

// heartbeat pings the client until the session closes.
func (s *Session) heartbeat() {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ping := protocol.NewPing(uint64(time.Now().UnixMilli()))
			if err := s.writeFrame(protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(ping))); err != nil {
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// renderFailed receives engine errors on the loop goroutine. A failed
// commit may have reached the client partially, so the session is closed;
// any other failure left the client untouched and is reported.
func (s *Session) renderFailed(err error) {
	if s.closed.Load() {
		return
	}
	s.logger.Error("render failed", "error", err)
	if errors.Is(err, fiber.ErrSurfaceOperation) {
		s.sendError(protocol.NewFatalError(protocol.ErrRenderFailed, err.Error()))
		s.CloseWithReason(protocol.CloseError, "render failed")
		return
	}
	s.sendError(protocol.NewError(protocol.ErrRenderFailed, err.Error()))
}

// writeFrame writes f to the connection. It is the remote document's sink.
func (s *Session) writeFrame(f *protocol.Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.Load() {
		return ErrSessionClosed
	}
	data := f.Encode()
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return &SessionError{SessionID: s.ID, Op: "write", Err: err}
	}
	s.framesSent.Add(1)
	s.bytesSent.Add(uint64(len(data)))
	return nil
}

func (s *Session) sendError(em *protocol.ErrorMessage) {
	f := protocol.NewFrame(protocol.FrameError, protocol.EncodeErrorMessage(em))
	if err := s.writeFrame(f); err != nil && !errors.Is(err, ErrSessionClosed) {
		s.logger.Warn("error frame not sent", "code", em.Code, "error", err)
	}
}

func (s *Session) sendControl(c *protocol.Control) {
	f := protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(c))
	if err := s.writeFrame(f); err != nil && !errors.Is(err, ErrSessionClosed) {
		s.logger.Warn("control frame not sent", "type", c.Type, "error", err)
	}
}

// Close closes the session normally.
func (s *Session) Close() {
	s.CloseWithReason(protocol.CloseNormal, "")
}

// CloseWithReason tells the client why the session ends and releases it.
// The engine stops with its loop. It is safe to call more than once and
// from any goroutine.
func (s *Session) CloseWithReason(reason protocol.CloseReason, message string) {
	s.closeOnce.Do(func() {
		s.sendControl(protocol.NewClose(reason, message))

		s.writeMu.Lock()
		s.closed.Store(true)
		s.writeMu.Unlock()

		close(s.done)
		s.loop.Close()
		s.conn.Close()

		s.logger.Info("session closed",
			"reason", reason,
			"events", s.events.Load(),
			"frames_sent", s.framesSent.Load(),
			"duration", time.Since(s.CreatedAt))
		if s.onClose != nil {
			s.onClose(s)
		}
	})
}

// Done is closed when the session closes.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// IsClosed reports whether the session is closed.
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// LastActive returns the time of the last client message.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// SessionStats contains per-session counters.
type SessionStats struct {
	Events     uint64
	FramesSent uint64
	BytesSent  uint64
}

// Stats returns the session counters.
func (s *Session) Stats() SessionStats {
	return SessionStats{
		Events:     s.events.Load(),
		FramesSent: s.framesSent.Load(),
		BytesSent:  s.bytesSent.Load(),
	}
}
