package logger_test

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"smeaudit/internal/logger"
)

func TestNew(t *testing.T) {
	log, err := logger.New("smeaudit-test", "warn")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = log.Sync() }()

	if log.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !log.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("error should be enabled at warn level")
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, err := logger.New("smeaudit-test", "loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
