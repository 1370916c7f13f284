package config

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/postboard/internal/errors"
)

func env(vals map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vals[k]
		return v, ok
	}
}

func writeEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), EnvFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNew(t *testing.T) {
	cfg := New()
	if cfg.Addr != DefaultAddr {
		t.Errorf("Addr = %q, want %q", cfg.Addr, DefaultAddr)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.ShutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}
	if cfg.Debug {
		t.Error("Debug defaults to true")
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := LoadWith(filepath.Join(t.TempDir(), "nope.env"), env(nil))
	if err != nil {
		t.Fatalf("LoadWith() error = %v", err)
	}
	if cfg.EnvPath() != "" {
		t.Errorf("EnvPath() = %q", cfg.EnvPath())
	}
	if err := cfg.Validate(); !stderrors.Is(err, errors.New(errors.CodeConfigMissing)) {
		t.Errorf("Validate() error = %v, want missing DATABASE_URL", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := writeEnv(t, `# local settings
DATABASE_URL=sqlite:/tmp/pb.db
ADDR=0.0.0.0:8080
DEBUG=true
LOG_LEVEL=DEBUG
SHUTDOWN_TIMEOUT=3s
`)
	cfg, err := LoadWith(path, env(nil))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DatabaseURL != "sqlite:/tmp/pb.db" || cfg.Addr != "0.0.0.0:8080" || !cfg.Debug {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.LogLevel != "debug" || cfg.ShutdownTimeout != 3*time.Second {
		t.Errorf("LogLevel = %q, ShutdownTimeout = %v", cfg.LogLevel, cfg.ShutdownTimeout)
	}
	if cfg.EnvPath() != path {
		t.Errorf("EnvPath() = %q", cfg.EnvPath())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestProcessEnvOverridesFile(t *testing.T) {
	path := writeEnv(t, "DATABASE_URL=sqlite:file.db\nADDR=:1\n")
	cfg, err := LoadWith(path, env(map[string]string{
		EnvDatabaseURL: "postgres://localhost/pb",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DatabaseURL != "postgres://localhost/pb" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.Addr != ":1" {
		t.Errorf("Addr = %q, want the file value", cfg.Addr)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		vals map[string]string
	}{
		{"debug", map[string]string{EnvDebug: "sometimes"}},
		{"timeout", map[string]string{EnvShutdownTimeout: "ten"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadWith("", env(tt.vals))
			if !stderrors.Is(err, errors.New(errors.CodeConfigInvalid)) {
				t.Errorf("LoadWith() error = %v, want P101", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := New()
		c.DatabaseURL = "sqlite:pb.db"
		return c
	}
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"no database", func(c *Config) { c.DatabaseURL = "" }, false},
		{"no addr", func(c *Config) { c.Addr = "" }, false},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, false},
		{"zero timeout", func(c *Config) { c.ShutdownTimeout = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.modify(c)
			err := c.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() error = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	c := New()
	c.Logger(&buf).Info("hello", "k", "v")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("production log is not JSON: %q", buf.String())
	}

	buf.Reset()
	c.Debug = true
	c.LogLevel = "warn"
	logger := c.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "msg=shown") {
		t.Errorf("debug log = %q", out)
	}
}
