package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// loadDotEnv exports variables from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func loadDotEnv(path string) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err := godotenv.Load(path); err != nil {
		panic(err)
	}
}

// parseEnv overlays settings from environment variables obtained through
// lookup. Numeric variables that do not parse cause a panic, the same as a
// malformed flag.
//
//	HTTP_ADDR, GRPC_ADDR, DATABASE_DRIVER, DATABASE_DSN, SECRET_KEY,
//	LOG_BACKEND, ALERT_CACHE_SIZE, REQUEST_TIMEOUT, SHUTDOWN_TIMEOUT
//
// Timeouts accept time.ParseDuration syntax or a plain number of seconds.
func parseEnv(config *Config, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	str("HTTP_ADDR", &config.EndpointAddrHTTP)
	str("GRPC_ADDR", &config.EndpointAddrGRPC)
	str("DATABASE_DRIVER", &config.DatabaseDriver)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("SECRET_KEY", &config.SecretKey)
	str("LOG_BACKEND", &config.LogBackend)

	if v, ok := lookup("ALERT_CACHE_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		config.AlertCacheSize = n
	}
	if v, ok := lookup("REQUEST_TIMEOUT"); ok {
		config.RequestTimeout = envDuration(v)
	}
	if v, ok := lookup("SHUTDOWN_TIMEOUT"); ok {
		config.ShutdownTimeout = envDuration(v)
	}
}

func envDuration(v string) time.Duration {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	return d
}
