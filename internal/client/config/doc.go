// Package config loads runtime configuration for the alertctl CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via -c, -config or --config.
//  3. Command-line flags bound with (*Config).BindFlags, which override
//     earlier values.
//
// Supported flags
//
//	--server string       base URL of the alert registry API
//	--token-file string   where login stores the access token
//	--timeout duration    per-request timeout
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "5s" or
// integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "token_file": "/home/me/.alertctl_token",
//	  "timeout": "5s"
//	}
package config
