package logging

import (
	"log/slog"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHandlerForwardsToZap(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := slog.New(NewHandler(zap.New(core), slog.LevelInfo))

	logger.Debug("hidden")
	logger.Info("portfolio valued", "address", "0xabc", "tokens", 3)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Message != "portfolio valued" {
		t.Errorf("message = %q", entries[0].Message)
	}
	if got := entries[0].ContextMap()["address"]; got != "0xabc" {
		t.Errorf("address field = %v", got)
	}
}

func TestNewZapLoggerFormats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		zl, err := NewZapLogger(slog.LevelWarn, format)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", format, err)
		}
		if zl.Core().Enabled(zap.InfoLevel) {
			t.Errorf("%s: info should be disabled at warn level", format)
		}
	}
}
