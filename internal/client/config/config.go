package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for alertctl.
//
// Fields:
//   - ServerURL: base URL of the HTTP API, e.g. http://127.0.0.1:8080.
//   - TokenFile: path of the file holding the bearer token saved by login.
//   - Timeout: upper bound for a single API call.
type Config struct {
	ServerURL string
	TokenFile string
	Timeout   time.Duration
}

const tokenFileName = ".alertctl_token"

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.TokenFile = defaultTokenFile()
	c.Timeout = 10 * time.Second
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return tokenFileName
	}
	return filepath.Join(home, tokenFileName)
}

// LoadConfig constructs a Config from defaults and the optional JSON file
// named in args. Flags are applied later by the command tree.
func LoadConfig(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	return cfg
}
