package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewProductionLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		debugMode bool
		wantDebug bool
	}{
		{"info", false, false},
		{"debug", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l, err := NewProductionLogger(tt.debugMode)
			if err != nil {
				t.Fatalf("NewProductionLogger() error = %v", err)
			}
			if got := l.Core().Enabled(zapcore.DebugLevel); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if !l.Core().Enabled(zapcore.InfoLevel) {
				t.Error("info must always be enabled")
			}
		})
	}
}

func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()

	l, err := NewDevelopmentLogger(false)
	if err != nil {
		t.Fatalf("NewDevelopmentLogger() error = %v", err)
	}
	if l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug must be disabled unless requested")
	}
}
