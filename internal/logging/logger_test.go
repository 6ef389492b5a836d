package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/klyr/redirector/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", zap.String("slot", "fallback"))
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "fallback", entry["slot"])
	assert.Equal(t, "warn", entry["level"])
}

func TestNewLoggerRejectsBadConfig(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)

	_, err = NewLogger(config.LoggingConfig{Format: "xml"})
	assert.Error(t, err)
}
