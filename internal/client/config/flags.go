package config

import "github.com/spf13/pflag"

// BindFlags registers the client flags on fs with the current values of c as
// defaults, so that parsing fs overrides only what the user passed.
// The config file flag is registered too so it is accepted by the parser;
// its value is consumed earlier by LoadConfig.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.ServerURL, "server", c.ServerURL, "base URL of the alert registry API")
	fs.StringVar(&c.TokenFile, "token-file", c.TokenFile, "file that stores the access token")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "per-request timeout")
	fs.StringP("config", "c", "", "path to a JSON config file")
}
