package logging

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerWithWriter(t *testing.T) {
	var buf bytes.Buffer
	loc := time.FixedZone("KST", 9*60*60)
	logger := NewLoggerWithWriter(&buf, "info", loc)

	logger.Debug("hidden")
	logger.Info("history saved", zap.String("user_id", "user_001"))
	require.NoError(t, logger.Sync())

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "history saved", line["msg"])
	assert.Equal(t, "user_001", line["user_id"])

	ts, err := time.Parse(time.RFC3339Nano, line["ts"].(string))
	require.NoError(t, err)
	_, offset := ts.Zone()
	assert.Equal(t, 9*60*60, offset)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}
