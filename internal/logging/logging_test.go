package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issueflow/internal/config"
)

func TestNew_TextRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(buf, config.LogConfig{Level: "warn", Format: "text"})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "issue", "PROJ-1")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "issue=PROJ-1")
}

func TestNew_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(buf, config.LogConfig{Level: "debug", Format: "JSON"})
	require.NoError(t, err)

	logger.Debug("applied transition", "transition", "Resolve Issue")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "applied transition", rec["msg"])
	assert.Equal(t, "Resolve Issue", rec["transition"])
	assert.Equal(t, "issueflow", rec["component"])
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(&bytes.Buffer{}, config.LogConfig{Level: "chatty"})
	assert.Error(t, err)
}

func TestSetup_InstallsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	buf := &bytes.Buffer{}
	_, err := Setup(buf, config.LogConfig{Level: "info", Format: "text"})
	require.NoError(t, err)

	slog.Info("via default")
	assert.Contains(t, buf.String(), "via default")
}
