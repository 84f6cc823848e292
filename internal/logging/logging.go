package logging

import (
	"fmt"
	"log/slog"
	"strings"

	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a level name to a slog level. Unknown names yield info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewZapLogger builds a zap logger writing JSON, or console output when format is "console".
func NewZapLogger(level slog.Level, format string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if strings.EqualFold(format, "console") {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(level))
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building zap logger: %w", err)
	}
	return logger, nil
}

// Setup installs a zap-backed handler as the default slog logger. The returned
// logger should be synced on shutdown.
func Setup(levelName, format string) (*zap.Logger, error) {
	level := ParseLevel(levelName)
	zl, err := NewZapLogger(level, format)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(NewHandler(zl, level)))
	return zl, nil
}

// NewHandler returns a slog handler that forwards records to zl.
func NewHandler(zl *zap.Logger, level slog.Level) slog.Handler {
	return slogzap.Option{Level: level, Logger: zl}.NewZapHandler()
}

func zapLevel(l slog.Level) zapcore.Level {
	switch {
	case l <= slog.LevelDebug:
		return zapcore.DebugLevel
	case l <= slog.LevelInfo:
		return zapcore.InfoLevel
	case l <= slog.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
