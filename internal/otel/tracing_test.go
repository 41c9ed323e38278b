package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journalapi/internal/logging"
)

func TestSettingsFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s := SettingsFromEnv(func(string) string { return "" })
		assert.False(t, s.Disabled)
		assert.Equal(t, "journalapi", s.ServiceName)
		assert.Equal(t, "grpc", s.Protocol)
		assert.Equal(t, "parentbased_traceidratio", s.Sampler)
		assert.Equal(t, "1.0", s.SamplerArg)
	})

	t.Run("overrides", func(t *testing.T) {
		env := map[string]string{
			"OTEL_SDK_DISABLED":           "true",
			"OTEL_SERVICE_NAME":           "journal-worker",
			"OTEL_EXPORTER_OTLP_PROTOCOL": "http/protobuf",
			"OTEL_EXPORTER_OTLP_ENDPOINT": "http://collector:4318",
			"OTEL_TRACES_SAMPLER":         "always_off",
		}
		s := SettingsFromEnv(func(k string) string { return env[k] })
		assert.True(t, s.Disabled)
		assert.Equal(t, "journal-worker", s.ServiceName)
		assert.Equal(t, "http/protobuf", s.Protocol)
		assert.Equal(t, "http://collector:4318", s.Endpoint)
		assert.Equal(t, "always_off", s.Sampler)
	})
}

func TestSampler(t *testing.T) {
	tests := []struct {
		name, arg string
		want      string
	}{
		{"always_on", "", "AlwaysOnSampler"},
		{"always_off", "", "AlwaysOffSampler"},
		{"traceidratio", "0.5", "TraceIDRatioBased{0.5}"},
		{"parentbased_traceidratio", "junk", "ParentBased{root:AlwaysOnSampler"},
		{"parentbased_always_off", "", "ParentBased{root:AlwaysOffSampler"},
		{"", "", "ParentBased{root:AlwaysOnSampler"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, Sampler(tt.name, tt.arg).Description(), tt.want)
		})
	}
}

func TestInitWith(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLoggerWithWriter(&buf, "info", time.UTC)

	t.Run("disabled", func(t *testing.T) {
		shutdown, err := InitWith(context.Background(), Settings{Disabled: true}, logger)
		require.NoError(t, err)
		assert.NoError(t, shutdown(context.Background()))
		assert.Contains(t, buf.String(), `"tracing_enabled":false`)
	})

	t.Run("unsupported protocol degrades to noop", func(t *testing.T) {
		buf.Reset()
		s := SettingsFromEnv(func(string) string { return "" })
		s.Protocol = "carrier-pigeon"

		shutdown, err := InitWith(context.Background(), s, logger)
		require.NoError(t, err)
		assert.NoError(t, shutdown(context.Background()))
		assert.Contains(t, buf.String(), "tracing init failed")
	})
}
