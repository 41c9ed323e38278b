package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a zap logger writing JSON lines to stdout.
func NewLogger(level string, loc *time.Location) *zap.Logger {
	return NewLoggerWithWriter(os.Stdout, level, loc)
}

// NewLoggerWithWriter returns a JSON zap logger on w. Timestamps are RFC3339Nano in loc under "ts".
func NewLoggerWithWriter(w io.Writer, level string, loc *time.Location) *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(EncoderConfig(loc)),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(ParseLevel(level)),
	)
	return zap.New(core)
}

// EncoderConfig is the JSON layout shared by the application log and the access log.
func EncoderConfig(loc *time.Location) zapcore.EncoderConfig {
	if loc == nil {
		loc = time.UTC
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.LevelKey = "level"
	cfg.MessageKey = "msg"
	cfg.CallerKey = ""
	cfg.StacktraceKey = ""
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.In(loc).Format(time.RFC3339Nano))
	}
	cfg.EncodeDuration = zapcore.MillisDurationEncoder
	return cfg
}

// ParseLevel maps a textual level to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
