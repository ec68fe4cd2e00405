package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, DefaultHost)
	}
	if cfg.Server.MaxSessions != DefaultMaxSessions {
		t.Errorf("Server.MaxSessions = %d, want %d", cfg.Server.MaxSessions, DefaultMaxSessions)
	}
	if cfg.Export.Dir != DefaultOutput {
		t.Errorf("Export.Dir = %q, want %q", cfg.Export.Dir, DefaultOutput)
	}
	if !cfg.MetricsEnabled() {
		t.Error("MetricsEnabled() = false, want true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	// Test loading non-existent config
	_, err := Load(tmpDir)
	if err == nil {
		t.Fatal("Expected error for missing config")
	}
	if !strings.Contains(err.Error(), "E011") {
		t.Errorf("Expected E011 error, got: %v", err)
	}

	configJSON := `{
  "scheduler": {"minRemaining": "2ms"},
  "server": {"host": "0.0.0.0", "port": 8080, "maxSessions": 10},
  "metrics": {"enabled": false},
  "export": {"s3Bucket": "snapshots", "s3Region": "eu-west-1"}
}
`
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.MaxSessions != 10 {
		t.Errorf("Server.MaxSessions = %d, want %d", cfg.Server.MaxSessions, 10)
	}
	if cfg.MetricsEnabled() {
		t.Error("MetricsEnabled() = true, want false")
	}
	if got := cfg.MinRemaining(); got != 2*time.Millisecond {
		t.Errorf("MinRemaining() = %v, want %v", got, 2*time.Millisecond)
	}
	// Unset keys keep their defaults.
	if got := cfg.FrameBudget(); got != 8*time.Millisecond {
		t.Errorf("FrameBudget() = %v, want %v", got, 8*time.Millisecond)
	}
	if cfg.Metrics.Path != DefaultMetricsPath {
		t.Errorf("Metrics.Path = %q, want %q", cfg.Metrics.Path, DefaultMetricsPath)
	}
	if cfg.Export.S3Bucket != "snapshots" {
		t.Errorf("Export.S3Bucket = %q, want %q", cfg.Export.S3Bucket, "snapshots")
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
}

func TestLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configYAML := `
scheduler:
  frameInterval: 32ms
server:
  port: 4000
  readTimeout: 5s
tracing:
  tracerName: demo
`
	if err := os.WriteFile(filepath.Join(tmpDir, "loom.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 4000)
	}
	if got := cfg.FrameInterval(); got != 32*time.Millisecond {
		t.Errorf("FrameInterval() = %v, want %v", got, 32*time.Millisecond)
	}
	if got := cfg.ReadTimeout(); got != 5*time.Second {
		t.Errorf("ReadTimeout() = %v, want %v", got, 5*time.Second)
	}
	if cfg.Tracing.TracerName != "demo" {
		t.Errorf("Tracing.TracerName = %q, want %q", cfg.Tracing.TracerName, "demo")
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, DefaultHost)
	}
}

func TestLoadPrefersJSON(t *testing.T) {
	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(`{"server": {"port": 1111}}`), 0644)
	os.WriteFile(filepath.Join(tmpDir, "loom.yml"), []byte("server:\n  port: 2222\n"), 0644)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Port != 1111 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 1111)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"json", ConfigFileName, "not valid json"},
		{"yaml", "loom.yaml", "server: [unclosed"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tc.file)
			if err := os.WriteFile(path, []byte(tc.content), 0644); err != nil {
				t.Fatal(err)
			}

			_, err := LoadFile(path)
			if err == nil {
				t.Fatal("Expected error for invalid file")
			}
			if !strings.Contains(err.Error(), "E010") {
				t.Errorf("Expected E010 error, got: %v", err)
			}
		})
	}
}

func TestSave(t *testing.T) {
	for _, name := range []string{ConfigFileName, "loom.yaml"} {
		t.Run(name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), name)

			cfg := New()
			cfg.Server.Port = 9000
			cfg.Export.S3Prefix = "pages/"

			// Save should fail without configPath set
			if err := cfg.Save(); err == nil {
				t.Error("Expected error when saving without path")
			}

			if err := cfg.SaveTo(configPath); err != nil {
				t.Fatalf("SaveTo error: %v", err)
			}

			loaded, err := LoadFile(configPath)
			if err != nil {
				t.Fatalf("Load error: %v", err)
			}
			if loaded.Server.Port != 9000 {
				t.Errorf("Server.Port = %d, want %d", loaded.Server.Port, 9000)
			}
			if loaded.Export.S3Prefix != "pages/" {
				t.Errorf("Export.S3Prefix = %q, want %q", loaded.Export.S3Prefix, "pages/")
			}

			loaded.Server.Port = 9001
			if err := loaded.Save(); err != nil {
				t.Fatalf("Save error: %v", err)
			}
			reloaded, err := LoadFile(configPath)
			if err != nil {
				t.Fatalf("Load error: %v", err)
			}
			if reloaded.Server.Port != 9001 {
				t.Errorf("Server.Port = %d, want %d", reloaded.Server.Port, 9001)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		detail string
	}{
		{"negative port", func(c *Config) { c.Server.Port = -1 }, "server.port"},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"negative sessions", func(c *Config) { c.Server.MaxSessions = -1 }, "server.maxSessions"},
		{"bad duration", func(c *Config) { c.Scheduler.FrameBudget = "fast" }, "scheduler.frameBudget"},
		{"negative duration", func(c *Config) { c.Server.ReadTimeout = "-1s" }, "server.readTimeout"},
		{"relative metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, "metrics.path"},
		{"bucket without region", func(c *Config) { c.Export.S3Bucket = "b" }, "export.s3Region"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := New()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), "E012") || !strings.Contains(err.Error(), tc.detail) {
				t.Errorf("Validate() = %v, want E012 mentioning %q", err, tc.detail)
			}
		})
	}
}

func TestDurationFallback(t *testing.T) {
	cfg := New()
	cfg.Server.WriteTimeout = "soon"
	if got := cfg.WriteTimeout(); got != 10*time.Second {
		t.Errorf("WriteTimeout() = %v, want %v", got, 10*time.Second)
	}
}

func TestAddress(t *testing.T) {
	cfg := New()
	cfg.Server.Port = 8080
	cfg.Server.Host = "0.0.0.0"

	if got := cfg.Address(); got != "0.0.0.0:8080" {
		t.Errorf("Address = %q, want %q", got, "0.0.0.0:8080")
	}
	if got := cfg.URL(); got != "http://0.0.0.0:8080" {
		t.Errorf("URL = %q, want %q", got, "http://0.0.0.0:8080")
	}
}

func TestExportPath(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := New()
	if err := cfg.SaveTo(filepath.Join(tmpDir, ConfigFileName)); err != nil {
		t.Fatal(err)
	}

	if got := cfg.ExportPath(); got != filepath.Join(tmpDir, "dist") {
		t.Errorf("ExportPath = %q, want %q", got, filepath.Join(tmpDir, "dist"))
	}
	cfg.Export.Dir = "/absolute/path"
	if got := cfg.ExportPath(); got != "/absolute/path" {
		t.Errorf("ExportPath absolute = %q, want %q", got, "/absolute/path")
	}
}

func TestFindProjectRoot(t *testing.T) {
	tmpDir := t.TempDir()
	nested := filepath.Join(tmpDir, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	if _, err := FindProjectRoot(nested); err == nil {
		t.Error("FindProjectRoot without config: want error")
	}

	os.WriteFile(filepath.Join(tmpDir, "loom.yml"), []byte("server:\n  port: 1\n"), 0644)
	root, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot error: %v", err)
	}
	if root != tmpDir {
		t.Errorf("FindProjectRoot = %q, want %q", root, tmpDir)
	}
}
