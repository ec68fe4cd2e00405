package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/loom/pkg/fiber"
	"github.com/vango-dev/loom/pkg/protocol"
	"github.com/vango-dev/loom/pkg/vdom"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

var counter = vdom.Define("Counter", func(h vdom.Hooks, props vdom.Props) *vdom.Element {
	count, set := fiber.UseState(h, 0)
	return vdom.Div(
		vdom.Button(
			vdom.OnClick(func() { set.Set(count + 1) }),
			vdom.Textf("Count: %d", count),
		),
		vdom.Button(
			vdom.Class("boom"),
			vdom.OnClick(func() { panic("boom") }),
			vdom.Text("Boom"),
		),
	)
})

func counterApp() *vdom.Element { return vdom.C(counter, nil) }

// fakeMetrics records calls.
type fakeMetrics struct {
	mu       sync.Mutex
	commits  int
	sessions int
	events   map[string]int
}

func (m *fakeMetrics) UnitStarted(fiber.Handle, vdom.Type) {}
func (m *fakeMetrics) Yielded()                            {}
func (m *fakeMetrics) Abandoned()                          {}
func (m *fakeMetrics) Committed(fiber.CommitStats) {
	m.mu.Lock()
	m.commits++
	m.mu.Unlock()
}
func (m *fakeMetrics) SessionOpened() {
	m.mu.Lock()
	m.sessions++
	m.mu.Unlock()
}
func (m *fakeMetrics) SessionClosed() {
	m.mu.Lock()
	m.sessions--
	m.mu.Unlock()
}
func (m *fakeMetrics) EventHandled(status string) {
	m.mu.Lock()
	if m.events == nil {
		m.events = map[string]int{}
	}
	m.events[status]++
	m.mu.Unlock()
}
func (m *fakeMetrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "loom_commits_total 1\n")
	})
}

func (m *fakeMetrics) eventCount(status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[status]
}

func newTestServer(t *testing.T, cfg *Config, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	opts = append([]Option{WithLogger(quiet)}, opts...)
	srv := New(counterApp, cfg, opts...)
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		ts.Close()
	})
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) *protocol.Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	f, err := protocol.DecodeFrame(msg)
	if err != nil {
		t.Fatalf("DecodeFrame() error = %v", err)
	}
	return f
}

// readUntil skips frames of other types, such as heartbeats.
func readUntil(t *testing.T, conn *websocket.Conn, ft protocol.FrameType) *protocol.Frame {
	t.Helper()
	for i := 0; i < 10; i++ {
		if f := readFrame(t, conn); f.Type == ft {
			return f
		}
	}
	t.Fatalf("no %s frame received", ft)
	return nil
}

func readPatches(t *testing.T, conn *websocket.Conn) (*protocol.Frame, *protocol.PatchesFrame) {
	t.Helper()
	f := readUntil(t, conn, protocol.FramePatches)
	pf, err := protocol.DecodePatches(f.Payload)
	if err != nil {
		t.Fatalf("DecodePatches() error = %v", err)
	}
	return f, pf
}

func readError(t *testing.T, conn *websocket.Conn) *protocol.ErrorMessage {
	t.Helper()
	f := readUntil(t, conn, protocol.FrameError)
	em, err := protocol.DecodeErrorMessage(f.Payload)
	if err != nil {
		t.Fatalf("DecodeErrorMessage() error = %v", err)
	}
	return em
}

func send(t *testing.T, conn *websocket.Conn, f *protocol.Frame) {
	t.Helper()
	if err := conn.WriteMessage(websocket.BinaryMessage, f.Encode()); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
}

func sendEvent(t *testing.T, conn *websocket.Conn, id uint32, name string) {
	t.Helper()
	send(t, conn, protocol.NewFrame(protocol.FrameEvent, protocol.EncodeEvent(&protocol.Event{NodeID: id, Name: name})))
}

// buttons returns the ids of the created buttons, in creation order.
func buttons(pf *protocol.PatchesFrame) []uint32 {
	var ids []uint32
	for _, p := range pf.Patches {
		if p.Op == protocol.PatchCreateElement && p.Key == "button" {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func TestSessionMountAndEvent(t *testing.T) {
	m := &fakeMetrics{}
	srv, ts := newTestServer(t, nil, WithMetrics(m))
	conn := dial(t, ts)

	f, mount := readPatches(t, conn)
	if !f.Flags.Has(protocol.FlagInitial) {
		t.Errorf("mount frame flags = %v, want FlagInitial", f.Flags)
	}
	if mount.Seq != 1 {
		t.Errorf("mount Seq = %d, want 1", mount.Seq)
	}
	ids := buttons(mount)
	if len(ids) != 2 {
		t.Fatalf("mount created %d buttons, want 2: %v", len(ids), mount.Patches)
	}
	if got := srv.Sessions().Count(); got != 1 {
		t.Errorf("Sessions().Count() = %d, want 1", got)
	}

	sendEvent(t, conn, ids[0], "click")
	f, update := readPatches(t, conn)
	if f.Flags.Has(protocol.FlagInitial) {
		t.Error("update frame has FlagInitial")
	}
	if update.Seq != 2 {
		t.Errorf("update Seq = %d, want 2", update.Seq)
	}
	if len(update.Patches) != 1 || update.Patches[0].Op != protocol.PatchSetText || update.Patches[0].Value != "Count: 1" {
		t.Errorf("update patches = %v, want one SetText \"Count: 1\"", update.Patches)
	}
	if got := m.eventCount("ok"); got != 1 {
		t.Errorf("events{ok} = %d, want 1", got)
	}
}

func TestListenerPanicKeepsSession(t *testing.T) {
	m := &fakeMetrics{}
	_, ts := newTestServer(t, nil, WithMetrics(m))
	conn := dial(t, ts)

	_, mount := readPatches(t, conn)
	ids := buttons(mount)

	sendEvent(t, conn, ids[1], "click")
	em := readError(t, conn)
	if em.Code != protocol.ErrHandlerPanic || em.Fatal {
		t.Errorf("error = %v, want non-fatal HandlerPanic", em)
	}

	sendEvent(t, conn, ids[0], "click")
	_, update := readPatches(t, conn)
	if len(update.Patches) != 1 || update.Patches[0].Value != "Count: 1" {
		t.Errorf("update after panic = %v, want SetText \"Count: 1\"", update.Patches)
	}
	if got := m.eventCount("panic"); got != 1 {
		t.Errorf("events{panic} = %d, want 1", got)
	}
}

func TestEventErrors(t *testing.T) {
	tests := []struct {
		name  string
		frame *protocol.Frame
		code  protocol.ErrorCode
	}{
		{
			name:  "unknown node",
			frame: protocol.NewFrame(protocol.FrameEvent, protocol.EncodeEvent(&protocol.Event{NodeID: 999, Name: "click"})),
			code:  protocol.ErrHandlerNotFound,
		},
		{
			name:  "no listener",
			frame: protocol.NewFrame(protocol.FrameEvent, protocol.EncodeEvent(&protocol.Event{NodeID: 1, Name: "click"})),
			code:  protocol.ErrHandlerNotFound,
		},
		{
			name:  "bad event",
			frame: protocol.NewFrame(protocol.FrameEvent, []byte{0x01}),
			code:  protocol.ErrInvalidEvent,
		},
		{
			name:  "server frame from client",
			frame: protocol.NewFrame(protocol.FramePatches, protocol.EncodePatches(&protocol.PatchesFrame{Seq: 1})),
			code:  protocol.ErrInvalidFrame,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, ts := newTestServer(t, nil)
			conn := dial(t, ts)
			readPatches(t, conn)

			send(t, conn, tc.frame)
			em := readError(t, conn)
			if em.Code != tc.code {
				t.Errorf("error code = %v, want %v", em.Code, tc.code)
			}
			if em.Fatal {
				t.Error("error is fatal, want non-fatal")
			}
		})
	}
}

func TestInvalidFrame(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn := dial(t, ts)
	readPatches(t, conn)

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{0x01}); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	em := readError(t, conn)
	if em.Code != protocol.ErrInvalidFrame {
		t.Errorf("error code = %v, want %v", em.Code, protocol.ErrInvalidFrame)
	}
}

func TestPingPong(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn := dial(t, ts)
	readPatches(t, conn)

	send(t, conn, protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(protocol.NewPing(42))))
	f := readUntil(t, conn, protocol.FrameControl)
	c, err := protocol.DecodeControl(f.Payload)
	if err != nil {
		t.Fatalf("DecodeControl() error = %v", err)
	}
	if c.Type != protocol.ControlPong || c.Timestamp != 42 {
		t.Errorf("control = %+v, want Pong 42", c)
	}
}

func TestHeartbeat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HeartbeatInterval = 20 * time.Millisecond
	_, ts := newTestServer(t, cfg)
	conn := dial(t, ts)
	readPatches(t, conn)

	f := readUntil(t, conn, protocol.FrameControl)
	c, err := protocol.DecodeControl(f.Payload)
	if err != nil {
		t.Fatalf("DecodeControl() error = %v", err)
	}
	if c.Type != protocol.ControlPing {
		t.Errorf("control type = %v, want Ping", c.Type)
	}
}

func TestClientClose(t *testing.T) {
	m := &fakeMetrics{}
	srv, ts := newTestServer(t, nil, WithMetrics(m))
	conn := dial(t, ts)
	readPatches(t, conn)

	send(t, conn, protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(protocol.NewClose(protocol.CloseNormal, "bye"))))

	deadline := time.Now().Add(5 * time.Second)
	for srv.Sessions().Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := srv.Sessions().Count(); got != 0 {
		t.Fatalf("Sessions().Count() = %d after client close, want 0", got)
	}
	stats := srv.Sessions().Stats()
	if stats.TotalCreated != 1 || stats.TotalClosed != 1 || stats.Peak != 1 {
		t.Errorf("Stats() = %+v, want 1 created, 1 closed, peak 1", stats)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions != 0 {
		t.Errorf("active sessions metric = %d, want 0", m.sessions)
	}
}

func TestSessionLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSessions = 1
	_, ts := newTestServer(t, cfg)

	first := dial(t, ts)
	readPatches(t, first)

	second := dial(t, ts)
	em := readError(t, second)
	if em.Code != protocol.ErrSessionLimit || !em.Fatal {
		t.Errorf("error = %v, want fatal SessionLimit", em)
	}
}

func TestShutdownClosesSessions(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	conn := dial(t, ts)
	readPatches(t, conn)

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	f := readUntil(t, conn, protocol.FrameControl)
	c, err := protocol.DecodeControl(f.Payload)
	if err != nil {
		t.Fatalf("DecodeControl() error = %v", err)
	}
	if c.Type != protocol.ControlClose || c.Reason != protocol.CloseServerShutdown {
		t.Errorf("control = %+v, want Close ServerShutdown", c)
	}
}

func TestPage(t *testing.T) {
	_, ts := newTestServer(t, &Config{Title: "Counter"})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET / error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	for _, want := range []string{
		"<title>Counter</title>",
		"Count: 0",
		`data-loom-ws="/ws"`,
		`<script src="/_loom/client.js" defer></script>`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("page missing %q:\n%s", want, body)
		}
	}
}

func TestPageRenderError(t *testing.T) {
	boom := vdom.Define("Boom", func(vdom.Hooks, vdom.Props) *vdom.Element { panic("boom") })
	srv := New(func() *vdom.Element { return vdom.C(boom, nil) }, nil, WithLogger(quiet))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	srv := New(counterApp, nil, WithLogger(quiet))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var report healthReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if report.Status != "ok" || report.Sessions != 0 {
		t.Errorf("report = %+v, want ok with 0 sessions", report)
	}

	srv.Shutdown(context.Background())
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status after shutdown = %d, want 503", rec.Code)
	}
}

func TestMetricsRoute(t *testing.T) {
	withMetrics := New(counterApp, nil, WithLogger(quiet), WithMetrics(&fakeMetrics{}))
	rec := httptest.NewRecorder()
	withMetrics.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "loom_commits_total") {
		t.Errorf("GET /metrics = %d %q, want metrics", rec.Code, rec.Body.String())
	}

	without := New(counterApp, nil, WithLogger(quiet))
	rec = httptest.NewRecorder()
	without.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /metrics without metrics = %d, want 404", rec.Code)
	}
}

func TestNoApp(t *testing.T) {
	srv := New(nil, nil, WithLogger(quiet))
	if err := srv.Run(context.Background()); err != ErrNoApp {
		t.Errorf("Run() error = %v, want %v", err, ErrNoApp)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := (&Config{Address: ":8080", MaxSessions: -5}).withDefaults()
	d := DefaultConfig()

	if cfg.Address != ":8080" {
		t.Errorf("Address = %q, want %q", cfg.Address, ":8080")
	}
	if cfg.MaxSessions != 0 {
		t.Errorf("MaxSessions = %d, want 0", cfg.MaxSessions)
	}
	if cfg.ReadTimeout != d.ReadTimeout || cfg.SocketPath != d.SocketPath || cfg.MaxMessageSize != d.MaxMessageSize {
		t.Errorf("withDefaults() = %+v, want defaults filled", cfg)
	}
}
