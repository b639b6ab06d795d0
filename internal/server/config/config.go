// Package config handles configuration for the server component,
// including defaults, JSON overlay, environment variables and command-line
// flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/alertkeeper/internal/dbx"
	"github.com/dmitrijs2005/alertkeeper/internal/logging"
)

// Config holds runtime settings for the alert registry server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the REST API.
//   - EndpointAddrGRPC: bind address for the gRPC health service; empty disables it.
//   - DatabaseDriver / DatabaseDSN: "sqlite" (modernc) or "pgx" and its DSN.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Required.
//   - LogBackend: "slog" or "zap".
//   - AlertCacheSize: entries in the alert LRU cache; 0 disables it.
//   - RequestTimeout: per-request context deadline.
//   - ShutdownTimeout: grace period for in-flight requests on shutdown.
type Config struct {
	EndpointAddrHTTP string
	EndpointAddrGRPC string
	DatabaseDriver   string
	DatabaseDSN      string
	SecretKey        string
	LogBackend       string
	AlertCacheSize   int
	RequestTimeout   time.Duration
	ShutdownTimeout  time.Duration
}

// LoadDefaults populates Config with development defaults. SecretKey has no
// default and must be supplied.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "app.db"
	c.LogBackend = logging.BackendSlog
	c.AlertCacheSize = 1024
	c.RequestTimeout = 10 * time.Second
	c.ShutdownTimeout = 10 * time.Second
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is required"))
	}
	if _, err := dbx.ParseDialect(c.DatabaseDriver); err != nil {
		errs = append(errs, err)
	}
	if c.LogBackend != logging.BackendSlog && c.LogBackend != logging.BackendZap {
		errs = append(errs, fmt.Errorf("unknown log backend %q", c.LogBackend))
	}
	if c.AlertCacheSize < 0 {
		errs = append(errs, errors.New("alert cache size must not be negative"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	return errors.Join(errs...)
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, then environment variables (after loading a
// .env file if present) and finally command-line flags.
func LoadConfig() *Config {
	loadDotEnv(".env")
	return load(os.Args[1:], os.LookupEnv)
}

func load(args []string, lookup func(string) (string, bool)) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseEnv(cfg, lookup)
	parseFlags(cfg, args)
	return cfg
}
