package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays cfg from SYNCORE_* environment variables. A .env file
// in the working directory is loaded first when present; real environment
// variables keep precedence over the file.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("SYNCORE_SERVER_URL"); v != "" {
		cfg.ServerBaseURL = v
	}
	if v := os.Getenv("SYNCORE_DB"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("SYNCORE_MEDIA_DIR"); v != "" {
		cfg.MediaDir = v
	}
	if v := os.Getenv("SYNCORE_DATA_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.DataTimeout = d
		}
	}
	if v := os.Getenv("SYNCORE_CHECK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.OnlineCheckInterval = d
		}
	}
	if v := os.Getenv("SYNCORE_REPORT_WINDOW_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ReportWindowDays = n
		}
	}
}
