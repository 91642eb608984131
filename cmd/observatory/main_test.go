package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"observatory/internal/config"
)

func TestParseFlags(t *testing.T) {
	f, err := parseFlags([]string{"--config", "/tmp/obs.yaml", "--demo"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/obs.yaml", f.configPath)
	assert.True(t, f.demo)
	assert.Equal(t, "127.0.0.1:0", f.demoAddr)

	_, err = parseFlags([]string{"--nope"})
	assert.Error(t, err)
}

func TestSettingsFrom(t *testing.T) {
	cfg := &config.Config{DownloadDir: "/tmp/dl"}
	cfg.UI.UploadClearDelay = 1500 * time.Millisecond
	cfg.UI.RefreshInterval = 30 * time.Second
	cfg.Training.Epochs = 7
	cfg.Simulation.Scenario = "stress"

	s := settingsFrom(cfg)
	assert.Equal(t, "/tmp/dl", s.DownloadDir)
	assert.Equal(t, 1500*time.Millisecond, s.UploadClearDelay)
	assert.Equal(t, 30*time.Second, s.RefreshInterval)
	assert.Equal(t, 7, s.Epochs)
	assert.Equal(t, "stress", s.Scenario)
}
