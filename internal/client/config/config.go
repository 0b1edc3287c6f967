// Package config holds runtime settings for the sync client. Sources are
// layered: defaults, then a JSON file (-c/-config), then environment
// variables (optionally from a .env file), then command-line flags. Later
// sources win.
package config

import "time"

// Config holds runtime settings for the sync client.
type Config struct {
	// ServerBaseURL is the backend root, e.g. "http://127.0.0.1:8080".
	ServerBaseURL string

	// DatabaseDSN is the sqlite path of the local store.
	DatabaseDSN string

	// MediaDir is where note attachments are copied before upload.
	MediaDir string

	// DataTimeout bounds every data call (upload, download).
	DataTimeout time.Duration

	// ProbeFastThreshold splits Online from Slow on a health probe.
	ProbeFastThreshold time.Duration

	// ProbeHardTimeout is the point past which a probe counts as Offline.
	ProbeHardTimeout time.Duration

	// OnlineCheckInterval is how often the background watcher re-probes.
	OnlineCheckInterval time.Duration

	// ReportWindowDays is the rolling download window for time reports.
	ReportWindowDays int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.DatabaseDSN = "syncore.db"
	c.MediaDir = "media"
	c.DataTimeout = 30 * time.Second
	c.ProbeFastThreshold = 1500 * time.Millisecond
	c.ProbeHardTimeout = 5 * time.Second
	c.OnlineCheckInterval = 10 * time.Second
	c.ReportWindowDays = 30
}

// ReportWindow returns the rolling window as a duration.
func (c *Config) ReportWindow() time.Duration {
	return time.Duration(c.ReportWindowDays) * 24 * time.Hour
}

// LoadConfig constructs a Config by layering all sources.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
