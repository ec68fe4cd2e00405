package server

import (
	"net/http"
	"time"
)

// Config configures a Server.
type Config struct {
	// Address is the address to listen on.
	// Default: ":3000".
	Address string

	// Title is the page title of the server-rendered page.
	Title string

	// ReadTimeout is the maximum time to wait for a client message. The
	// thin client answers heartbeats, so a silent client is a dead one.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to write one message.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// HeartbeatInterval is the time between server pings.
	// Default: 30 seconds.
	HeartbeatInterval time.Duration

	// MaxMessageSize is the maximum size of a client message in bytes.
	// Default: 64KB.
	MaxMessageSize int64

	// MaxSessions limits concurrent sessions. 0 means no limit.
	// Default: 1000.
	MaxSessions int

	// MinRemaining, FrameInterval and FrameBudget configure each session's
	// engine and loop. Zero values use the engine and loop defaults.
	MinRemaining  time.Duration
	FrameInterval time.Duration
	FrameBudget   time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 10 seconds.
	ShutdownTimeout time.Duration

	// Paths of the built-in routes.
	SocketPath  string // Default: "/ws"
	ClientPath  string // Default: "/_loom/client.js"
	HealthPath  string // Default: "/healthz"
	MetricsPath string // Default: "/metrics"

	// DevMode disables client caching.
	DevMode bool

	// CheckOrigin validates the Origin header of WebSocket upgrades.
	// Default: same-origin only.
	CheckOrigin func(r *http.Request) bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:           ":3000",
		Title:             "Loom",
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		MaxMessageSize:    64 * 1024,
		MaxSessions:       1000,
		ShutdownTimeout:   10 * time.Second,
		SocketPath:        "/ws",
		ClientPath:        "/_loom/client.js",
		HealthPath:        "/healthz",
		MetricsPath:       "/metrics",
	}
}

// withDefaults returns a copy of c with every unset field filled in.
func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	cfg := *c
	if cfg.Address == "" {
		cfg.Address = d.Address
	}
	if cfg.Title == "" {
		cfg.Title = d.Title
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = d.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = d.WriteTimeout
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = d.HeartbeatInterval
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = d.MaxMessageSize
	}
	if cfg.MaxSessions < 0 {
		cfg.MaxSessions = 0
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = d.ShutdownTimeout
	}
	if cfg.SocketPath == "" {
		cfg.SocketPath = d.SocketPath
	}
	if cfg.ClientPath == "" {
		cfg.ClientPath = d.ClientPath
	}
	if cfg.HealthPath == "" {
		cfg.HealthPath = d.HealthPath
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = d.MetricsPath
	}
	return &cfg
}
