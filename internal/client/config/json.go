package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/ptms/syncore/internal/flagx"
	"github.com/ptms/syncore/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// accept strings like "30s" or integer nanoseconds.
type JsonConfig struct {
	ServerBaseURL       string         `json:"server_base_url"`
	DatabaseDSN         string         `json:"database_dsn"`
	MediaDir            string         `json:"media_dir"`
	DataTimeout         timex.Duration `json:"data_timeout"`
	ProbeFastThreshold  timex.Duration `json:"probe_fast_threshold"`
	ProbeHardTimeout    timex.Duration `json:"probe_hard_timeout"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	ReportWindowDays    int            `json:"report_window_days"`
}

// parseJson overlays cfg with values from the JSON file named by the
// -c/-config flags. Only fields present in the file override.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerBaseURL != "" {
		cfg.ServerBaseURL = jc.ServerBaseURL
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.MediaDir != "" {
		cfg.MediaDir = jc.MediaDir
	}
	if jc.DataTimeout.Duration > 0 {
		cfg.DataTimeout = time.Duration(jc.DataTimeout.Duration)
	}
	if jc.ProbeFastThreshold.Duration > 0 {
		cfg.ProbeFastThreshold = time.Duration(jc.ProbeFastThreshold.Duration)
	}
	if jc.ProbeHardTimeout.Duration > 0 {
		cfg.ProbeHardTimeout = time.Duration(jc.ProbeHardTimeout.Duration)
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
	if jc.ReportWindowDays > 0 {
		cfg.ReportWindowDays = jc.ReportWindowDays
	}
}
