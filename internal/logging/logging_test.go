package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nagare/internal/config"
)

func TestSetupWithOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SetupWithOutput(config.LogConfig{Level: "warn", Format: "json"}, &buf))
	t.Cleanup(func() {
		_ = SetupWithOutput(config.LogConfig{Level: "info", Format: "text"}, &bytes.Buffer{})
	})

	log.Info("hidden")
	log.WithField("video", "stream").Warn("visible")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["msg"])
	assert.Equal(t, "stream", entry["video"])
	assert.Equal(t, "warning", entry["level"])
}

func TestSetupWithOutput_Invalid(t *testing.T) {
	assert.Error(t, SetupWithOutput(config.LogConfig{Level: "loud", Format: "text"}, &bytes.Buffer{}))
	assert.Error(t, SetupWithOutput(config.LogConfig{Level: "info", Format: "xml"}, &bytes.Buffer{}))
}
