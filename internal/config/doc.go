// Package config loads the postboard server configuration.
//
// Settings come from the process environment, falling back to a .env
// file of KEY=VALUE lines, falling back to defaults:
//
//	DATABASE_URL=sqlite:postboard.db   # required; or postgres://...
//	ADDR=127.0.0.1:9004
//	DEBUG=false                        # true: text logs, non-Secure cookie
//	LOG_LEVEL=info
//	SHUTDOWN_TIMEOUT=10s
//
// Usage:
//
//	cfg, err := config.Load(config.EnvFileName)
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	logger := cfg.Logger(os.Stderr)
package config
