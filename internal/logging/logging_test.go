package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreLogger(t *testing.T) {
	t.Helper()
	level := log.GetLevel()
	formatter := log.StandardLogger().Formatter
	out := log.StandardLogger().Out
	t.Cleanup(func() {
		log.SetLevel(level)
		log.SetFormatter(formatter)
		log.SetOutput(out)
	})
}

func TestSetup_JSONToWriter(t *testing.T) {
	restoreLogger(t)
	var buf bytes.Buffer

	closeFn, err := Setup(Options{Level: "debug", Format: "json", Output: &buf})
	require.NoError(t, err)
	defer closeFn()

	log.WithField("model_id", "m1").Debug("listed artifacts")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "listed artifacts", entry["msg"])
	assert.Equal(t, "m1", entry["model_id"])
	assert.Equal(t, "debug", entry["level"])
}

func TestSetup_InvalidLevelFallsBackToInfo(t *testing.T) {
	restoreLogger(t)
	var buf bytes.Buffer

	_, err := Setup(Options{Level: "chatty", Output: &buf})
	require.NoError(t, err)

	assert.Equal(t, log.InfoLevel, log.GetLevel())
	log.Debug("hidden")
	assert.Empty(t, buf.String())
	log.Info("shown")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestSetup_File(t *testing.T) {
	restoreLogger(t)
	path := filepath.Join(t.TempDir(), "nested", "observatory.log")

	closeFn, err := Setup(Options{Level: "info", File: path})
	require.NoError(t, err)
	log.Info("to file")
	require.NoError(t, closeFn())
	log.SetOutput(os.Stderr)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "to file")
}

func TestFormatter(t *testing.T) {
	assert.IsType(t, &log.JSONFormatter{}, Formatter("JSON"))
	assert.IsType(t, &log.TextFormatter{}, Formatter("text"))
	assert.IsType(t, &log.TextFormatter{}, Formatter(""))
}
