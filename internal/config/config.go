package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/loom/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "loom.json"

	// DefaultPort is the default server port.
	DefaultPort = 3000

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultOutput is the default export directory.
	DefaultOutput = "dist"

	// DefaultMaxSessions is the default limit of concurrent live sessions.
	DefaultMaxSessions = 1000

	// DefaultNamespace is the default metrics namespace and tracer name.
	DefaultNamespace = "loom"

	// DefaultMetricsPath is the default metrics endpoint.
	DefaultMetricsPath = "/metrics"
)

// configFileNames are tried in order by Load.
var configFileNames = []string{ConfigFileName, "loom.yaml", "loom.yml"}

// Config represents the complete loom.json configuration.
type Config struct {
	// Scheduler contains the engine and event loop timing.
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`

	// Server contains the live session server configuration.
	Server ServerConfig `json:"server" yaml:"server"`

	// Metrics contains the Prometheus configuration.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Tracing contains the OpenTelemetry configuration.
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`

	// Export contains snapshot export configuration.
	Export ExportConfig `json:"export" yaml:"export"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// SchedulerConfig contains engine and event loop timing. Durations are
// strings such as "1ms".
type SchedulerConfig struct {
	// MinRemaining is the frame time under which the engine yields.
	MinRemaining string `json:"minRemaining,omitempty" yaml:"minRemaining,omitempty"`

	// FrameBudget is the time the engine gets per frame.
	FrameBudget string `json:"frameBudget,omitempty" yaml:"frameBudget,omitempty"`

	// FrameInterval is the period between frames.
	FrameInterval string `json:"frameInterval,omitempty" yaml:"frameInterval,omitempty"`
}

// ServerConfig contains live session server settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// ReadTimeout is the maximum time between client messages (e.g., "60s").
	ReadTimeout string `json:"readTimeout,omitempty" yaml:"readTimeout,omitempty"`

	// WriteTimeout is the maximum time to write one message (e.g., "10s").
	WriteTimeout string `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty"`

	// MaxSessions limits concurrent live sessions. 0 means the default.
	MaxSessions int `json:"maxSessions,omitempty" yaml:"maxSessions,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	Enabled *bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// Namespace is the metrics namespace.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`

	// Path is the HTTP path metrics are served at.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	// TracerName is the name of the tracer obtained from the global provider.
	TracerName string `json:"tracerName,omitempty" yaml:"tracerName,omitempty"`
}

// ExportConfig contains snapshot export settings. Snapshots go to S3 when
// S3Bucket is set and to Dir otherwise.
type ExportConfig struct {
	Dir      string `json:"dir,omitempty" yaml:"dir,omitempty"`
	S3Bucket string `json:"s3Bucket,omitempty" yaml:"s3Bucket,omitempty"`
	S3Prefix string `json:"s3Prefix,omitempty" yaml:"s3Prefix,omitempty"`
	S3Region string `json:"s3Region,omitempty" yaml:"s3Region,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	enabled := true
	return &Config{
		Scheduler: SchedulerConfig{
			MinRemaining:  "1ms",
			FrameBudget:   "8ms",
			FrameInterval: "16ms",
		},
		Server: ServerConfig{
			Host:         DefaultHost,
			Port:         DefaultPort,
			ReadTimeout:  "60s",
			WriteTimeout: "10s",
			MaxSessions:  DefaultMaxSessions,
		},
		Metrics: MetricsConfig{
			Enabled:   &enabled,
			Namespace: DefaultNamespace,
			Path:      DefaultMetricsPath,
		},
		Tracing: TracingConfig{
			TracerName: DefaultNamespace,
		},
		Export: ExportConfig{
			Dir: DefaultOutput,
		},
	}
}

// Load reads configuration from the specified directory. It looks for
// loom.json, then loom.yaml, then loom.yml.
func Load(dir string) (*Config, error) {
	for _, name := range configFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("E011").
		WithDetail("No loom.json or loom.yaml found in " + dir)
}

// LoadFile reads configuration from the specified file path. The format is
// chosen by extension: .yaml and .yml are YAML, anything else is JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E011").
				WithDetail("No configuration file at " + path)
		}
		return nil, errors.New("E010").Wrap(err)
	}

	cfg := New()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New("E010").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error())
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path, as YAML when the
// extension says so and as indented JSON otherwise.
func (c *Config) SaveTo(path string) error {
	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		// Add newline at end of file
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("E010").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E010").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	d := New()

	// Scheduler
	if c.Scheduler.MinRemaining == "" {
		c.Scheduler.MinRemaining = d.Scheduler.MinRemaining
	}
	if c.Scheduler.FrameBudget == "" {
		c.Scheduler.FrameBudget = d.Scheduler.FrameBudget
	}
	if c.Scheduler.FrameInterval == "" {
		c.Scheduler.FrameInterval = d.Scheduler.FrameInterval
	}

	// Server
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = d.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = d.Server.WriteTimeout
	}
	if c.Server.MaxSessions == 0 {
		c.Server.MaxSessions = DefaultMaxSessions
	}

	// Metrics
	if c.Metrics.Enabled == nil {
		c.Metrics.Enabled = d.Metrics.Enabled
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	// Tracing
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = DefaultNamespace
	}

	// Export
	if c.Export.Dir == "" {
		c.Export.Dir = DefaultOutput
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("E012").
			WithDetail("server.port must be between 0 and 65535")
	}
	if c.Server.MaxSessions < 0 {
		return errors.New("E012").
			WithDetail("server.maxSessions must not be negative")
	}

	durations := []struct {
		key, value string
	}{
		{"scheduler.minRemaining", c.Scheduler.MinRemaining},
		{"scheduler.frameBudget", c.Scheduler.FrameBudget},
		{"scheduler.frameInterval", c.Scheduler.FrameInterval},
		{"server.readTimeout", c.Server.ReadTimeout},
		{"server.writeTimeout", c.Server.WriteTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return errors.New("E012").
				WithDetail(d.key + ": " + err.Error()).
				WithSuggestion("Use a Go duration such as \"10ms\" or \"30s\"")
		}
		if v < 0 {
			return errors.New("E012").
				WithDetail(d.key + " must not be negative")
		}
	}

	if c.Metrics.Path != "" && !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.New("E012").
			WithDetail("metrics.path must start with /")
	}
	if c.Export.S3Bucket != "" && c.Export.S3Region == "" {
		return errors.New("E012").
			WithDetail("export.s3Region is required with export.s3Bucket")
	}
	return nil
}

// duration parses s, falling back to def when s is empty or invalid.
// Validate reports invalid values.
func duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}

// MinRemaining returns scheduler.minRemaining.
func (c *Config) MinRemaining() time.Duration {
	return duration(c.Scheduler.MinRemaining, time.Millisecond)
}

// FrameBudget returns scheduler.frameBudget.
func (c *Config) FrameBudget() time.Duration {
	return duration(c.Scheduler.FrameBudget, 8*time.Millisecond)
}

// FrameInterval returns scheduler.frameInterval.
func (c *Config) FrameInterval() time.Duration {
	return duration(c.Scheduler.FrameInterval, 16*time.Millisecond)
}

// ReadTimeout returns server.readTimeout.
func (c *Config) ReadTimeout() time.Duration {
	return duration(c.Server.ReadTimeout, 60*time.Second)
}

// WriteTimeout returns server.writeTimeout.
func (c *Config) WriteTimeout() time.Duration {
	return duration(c.Server.WriteTimeout, 10*time.Second)
}

// MetricsEnabled reports whether metrics are collected and served.
func (c *Config) MetricsEnabled() bool {
	return c.Metrics.Enabled == nil || *c.Metrics.Enabled
}

// Address returns the address string for the server.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// URL returns the full URL for the server.
func (c *Config) URL() string {
	return "http://" + c.Address()
}

// ExportPath returns the absolute path to the export directory.
func (c *Config) ExportPath() string {
	if filepath.IsAbs(c.Export.Dir) {
		return c.Export.Dir
	}
	return filepath.Join(c.Dir(), c.Export.Dir)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range configFileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing the config file, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E011").
				WithDetail("No loom.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}
