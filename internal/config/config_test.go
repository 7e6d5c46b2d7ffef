package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_AppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inkframe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"1.0\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultInterface, cfg.Device.Interface)
	assert.Equal(t, 20*time.Second, cfg.Device.ConnectTimeout)
	assert.Equal(t, 10*time.Second, cfg.HTTP.IdleTimeout)
	assert.EqualValues(t, DefaultMaxImageBytes, cfg.HTTP.MaxImageBytes)
	assert.Equal(t, SleepModeTimer, cfg.Power.Mode)
	assert.Equal(t, 5*time.Second, cfg.Power.RestartDelay)
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, RetryBackoffLinear, cfg.Retry.Backoff)
	assert.Equal(t, DefaultFrameWidth, cfg.Hardware.FrameWidth)
	assert.Equal(t, DefaultJournalKeep, cfg.Storage.JournalKeep)
}

func TestParse_ExpandsEnvAndNormalizes(t *testing.T) {
	t.Setenv("INKFRAME_NATS", "nats://broker:4222")

	cfg, err := Parse([]byte(`
version: "1.0"
device:
  interface: eth0
  connect_timeout: 3s
report:
  enabled: true
  url: ${INKFRAME_NATS}
logging:
  level: "  DEBUG "
  format: JSON
retry:
  backoff: Exponential
power:
  mode: RTCWake
`))
	require.NoError(t, err)

	assert.Equal(t, "eth0", cfg.Device.Interface)
	assert.Equal(t, 3*time.Second, cfg.Device.ConnectTimeout)
	assert.Equal(t, "nats://broker:4222", cfg.Report.URL)
	assert.Equal(t, LogLevelDebug, cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
	assert.Equal(t, RetryBackoffExponential, cfg.Retry.Backoff)
	assert.Equal(t, SleepModeRTCWake, cfg.Power.Mode)
}

func TestParse_UnknownEnumsFallBack(t *testing.T) {
	cfg, err := Parse([]byte("retry:\n  backoff: sometimes\npower:\n  mode: hibernate\n"))
	require.NoError(t, err)
	assert.Equal(t, RetryBackoffLinear, cfg.Retry.Backoff)
	assert.Equal(t, SleepModeTimer, cfg.Power.Mode)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"wrong version", "version: \"2.0\"\n"},
		{"adc channel", "hardware:\n  adc_channel: 4\n"},
		{"metrics without path", "metrics:\n  enabled: true\n"},
		{"report without url", "report:\n  enabled: true\n"},
		{"retry initial above max", "retry:\n  initial_delay: 10s\n  max_delay: 1s\n"},
		{"malformed yaml", "device: [\n"},
		{"frame larger than buffer", "hardware:\n  frame_width: 2000\n  frame_height: 2000\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestInit_WritesLoadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inkframe.yaml")
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Portal.Listen, cfg.Portal.Listen)
	assert.Equal(t, Default().HTTP.Timeout, cfg.HTTP.Timeout)

	err = Init(path, false)
	require.Error(t, err)
	require.NoError(t, Init(path, true))
}

func TestLogLevel_SlogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", LogLevelDebug.SlogLevel().String())
	assert.Equal(t, "WARN", NormalizeLogLevel("warning").SlogLevel().String())
	assert.Equal(t, "INFO", LogLevel("").SlogLevel().String())
}
