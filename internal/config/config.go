package config

import (
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/vango-dev/postboard/internal/errors"
)

const (
	// EnvFileName is the env file read by default.
	EnvFileName = ".env"

	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:9004"

	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"

	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second
)

// Environment variable names.
const (
	EnvDatabaseURL     = "DATABASE_URL"
	EnvAddr            = "ADDR"
	EnvDebug           = "DEBUG"
	EnvLogLevel        = "LOG_LEVEL"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)

// Config is the server configuration.
type Config struct {
	// DatabaseURL selects the store: sqlite:<path> or postgres://...
	DatabaseURL string

	// Addr is the listen address.
	Addr string

	// Debug relaxes cookie security for plain-HTTP development and
	// switches logs to text.
	Debug bool

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// ShutdownTimeout bounds how long in-flight requests may take to
	// finish after a shutdown signal.
	ShutdownTimeout time.Duration

	// envPath stores the env file the config was loaded from, if any.
	envPath string
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Addr:            DefaultAddr,
		LogLevel:        DefaultLogLevel,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// Load reads the env file at path, then applies the process
// environment on top. A missing file is not an error.
func Load(path string) (*Config, error) {
	return LoadWith(path, os.LookupEnv)
}

// LoadWith is Load with a custom environment lookup.
func LoadWith(path string, lookup func(string) (string, bool)) (*Config, error) {
	file := map[string]string{}
	if path != "" {
		vals, err := godotenv.Read(path)
		switch {
		case err == nil:
			file = vals
		case stderrors.Is(err, fs.ErrNotExist):
		default:
			return nil, errors.New(errors.CodeEnvFile).WithDetail(path).Wrap(err)
		}
	}

	get := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := file[key]
		return v, ok
	}

	cfg := New()
	if len(file) > 0 {
		cfg.envPath = path
	}
	if v, ok := get(EnvDatabaseURL); ok {
		cfg.DatabaseURL = strings.TrimSpace(v)
	}
	if v, ok := get(EnvAddr); ok && v != "" {
		cfg.Addr = v
	}
	if v, ok := get(EnvDebug); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, invalid(EnvDebug, v, err)
		}
		cfg.Debug = b
	}
	if v, ok := get(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v, ok := get(EnvShutdownTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, invalid(EnvShutdownTimeout, v, err)
		}
		cfg.ShutdownTimeout = d
	}
	return cfg, nil
}

func invalid(key, value string, err error) *errors.Error {
	return errors.New(errors.CodeConfigInvalid).
		WithDetail(fmt.Sprintf("%s=%q", key, value)).
		Wrap(err)
}

// EnvPath returns the env file the config was read from, or "".
func (c *Config) EnvPath() string {
	return c.envPath
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New(errors.CodeConfigMissing).WithDetail(EnvDatabaseURL + " is empty")
	}
	if c.Addr == "" {
		return errors.New(errors.CodeConfigInvalid).WithDetail(EnvAddr + " is empty")
	}
	if _, err := c.Level(); err != nil {
		return invalid(EnvLogLevel, c.LogLevel, err)
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New(errors.CodeConfigInvalid).
			WithDetail(fmt.Sprintf("%s must be positive, got %s", EnvShutdownTimeout, c.ShutdownTimeout))
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(c.LogLevel))
	return l, err
}

// Logger builds the process logger: JSON in production, text in debug.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Debug {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
