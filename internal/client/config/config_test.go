package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", cfg.ServerBaseURL)
	assert.Equal(t, 30*time.Second, cfg.DataTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.ProbeFastThreshold)
	assert.Equal(t, 30, cfg.ReportWindowDays)
	assert.Equal(t, 30*24*time.Hour, cfg.ReportWindow())
}

func TestJsonConfig_DurationsAsStrings(t *testing.T) {
	raw := `{
		"server_base_url": "http://backend:9000",
		"data_timeout": "45s",
		"probe_hard_timeout": "8s",
		"report_window_days": 14
	}`

	var jc JsonConfig
	require.NoError(t, json.Unmarshal([]byte(raw), &jc))
	assert.Equal(t, "http://backend:9000", jc.ServerBaseURL)
	assert.Equal(t, 45*time.Second, jc.DataTimeout.Duration)
	assert.Equal(t, 8*time.Second, jc.ProbeHardTimeout.Duration)
	assert.Equal(t, 14, jc.ReportWindowDays)
}

func TestParseEnv_Overlay(t *testing.T) {
	t.Setenv("SYNCORE_SERVER_URL", "http://env:1234")
	t.Setenv("SYNCORE_DATA_TIMEOUT", "12s")
	t.Setenv("SYNCORE_REPORT_WINDOW_DAYS", "7")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, "http://env:1234", cfg.ServerBaseURL)
	assert.Equal(t, 12*time.Second, cfg.DataTimeout)
	assert.Equal(t, 7, cfg.ReportWindowDays)
}

func TestParseEnv_IgnoresInvalidValues(t *testing.T) {
	t.Setenv("SYNCORE_DATA_TIMEOUT", "not-a-duration")
	t.Setenv("SYNCORE_REPORT_WINDOW_DAYS", "-3")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, 30*time.Second, cfg.DataTimeout)
	assert.Equal(t, 30, cfg.ReportWindowDays)
}
