package telemetry

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitTracer(t *testing.T) {
	tests := []struct {
		name      string
		component string
		endpoint  string
	}{
		{"server", "server", "localhost:4318"},
		{"worker with default endpoint", "worker", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			tp, err := InitTracer(ctx, tt.component, tt.endpoint)
			if err != nil {
				t.Fatalf("InitTracer() error = %v", err)
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := Shutdown(shutdownCtx, tp); err != nil {
				t.Errorf("Shutdown() error = %v", err)
			}
		})
	}
}

func TestShutdownNilProvider(t *testing.T) {
	if err := Shutdown(context.Background(), nil); err != nil {
		t.Errorf("Shutdown() with nil provider should not error, got: %v", err)
	}
}

func TestSetup(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		shutdown := Setup(context.Background(), false, "server", "", zap.New(core))
		shutdown()
		if logs.FilterMessage("otel_tracing_disabled").Len() != 1 {
			t.Error("Expected otel_tracing_disabled log")
		}
	})

	t.Run("enabled", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		shutdown := Setup(context.Background(), true, "worker", "localhost:4318", zap.New(core))
		shutdown()
		if logs.FilterMessage("otel_tracing_initialized").Len() != 1 {
			t.Error("Expected otel_tracing_initialized log")
		}
	})
}
