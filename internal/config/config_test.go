package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	return home
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.BackendURL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, ".", cfg.DownloadDir)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "text", cfg.Logger.Format)
	assert.Equal(t, filepath.Join(home, ".observatory", "observatory.log"), cfg.LogFile)
	assert.Equal(t, 1500*time.Millisecond, cfg.UI.UploadClearDelay)
	assert.Zero(t, cfg.UI.RefreshInterval)
	assert.Equal(t, 3, cfg.Training.Epochs)
	assert.Equal(t, "smoke", cfg.Simulation.Scenario)
	assert.Empty(t, cfg.Telemetry.OTLPEndpoint)
	assert.Equal(t, "observatory", cfg.Telemetry.ServiceName)
}

func TestLoad_FileThenEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "observatory.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend_url: http://models.internal:9000
request_timeout: 3s
log:
  level: debug
  format: json
ui:
  upload_clear_delay: 500ms
  refresh_interval: 30
training:
  epochs: 7
`), 0o644))
	t.Setenv("OBSERVATORY_BACKEND_URL", "http://override:8000")
	t.Setenv("OBSERVATORY_SIMULATION_SCENARIO", "stress")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://override:8000", cfg.BackendURL, "env wins over file")
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, 500*time.Millisecond, cfg.UI.UploadClearDelay)
	assert.Equal(t, 30*time.Second, cfg.UI.RefreshInterval, "bare integers are seconds")
	assert.Equal(t, 7, cfg.Training.Epochs)
	assert.Equal(t, "stress", cfg.Simulation.Scenario)
}

func TestLoad_HomeConfigFile(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".observatory")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("download_dir: /tmp/artifacts\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/artifacts", cfg.DownloadDir)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidDuration(t *testing.T) {
	isolate(t)
	t.Setenv("OBSERVATORY_REQUEST_TIMEOUT", "soon")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request_timeout")
}

func TestLoad_FallbacksForInvalidValues(t *testing.T) {
	isolate(t)
	t.Setenv("OBSERVATORY_TRAINING_EPOCHS", "0")
	t.Setenv("OBSERVATORY_SIMULATION_SCENARIO", " ")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Training.Epochs)
	assert.Equal(t, "smoke", cfg.Simulation.Scenario)
	assert.Equal(t, "http://collector:4318", cfg.Telemetry.OTLPEndpoint)
}
