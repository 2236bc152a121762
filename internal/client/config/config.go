package config

import "time"

// Config holds runtime settings for the ballot client.
//
// Fields:
//   - ServerBaseURL: base URL of the election backend REST API.
//   - RequestTimeout: upper bound for a single backend request.
//   - SessionDBPath: SQLite file holding the persisted session.
//   - LogLevel: debug, info, warn or error.
//   - LogFile: rotated log file; empty means stderr.
type Config struct {
	ServerBaseURL  string
	RequestTimeout time.Duration
	SessionDBPath  string
	LogLevel       string
	LogFile        string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://localhost:5001/"
	c.RequestTimeout = 10 * time.Second
	c.SessionDBPath = "session.db"
	c.LogLevel = "info"
	c.LogFile = ""
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a config file (if one is given) and command-line flags (if present). Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
