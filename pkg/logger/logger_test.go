package logger

import (
	"testing"

	"storywatch/pkg/config"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		wantErr bool
	}{
		{"debug level", "debug", false},
		{"info level", "info", false},
		{"warn level", "warn", false},
		{"warning alias", "warning", false},
		{"error level", "error", false},
		{"unknown level", "verbose", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.LoggingConfig{Level: tt.level}
			l, err := New(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && l == nil {
				t.Error("Expected logger instance, got nil")
			}
		})
	}
}

func TestWithFieldsReturnsNewLogger(t *testing.T) {
	cfg := &config.LoggingConfig{Level: "info"}
	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	child := l.WithField("account", "demo")
	if child == l {
		t.Error("WithField should return a new logger instance")
	}

	grandchild := child.WithFields(map[string]interface{}{"cycle": 3})
	if grandchild == child {
		t.Error("WithFields should return a new logger instance")
	}

	// Logging through any of them must not panic
	l.Info("base")
	child.Info("child")
	grandchild.InfoWithFields("grandchild", map[string]interface{}{"extra": true})
}

func TestWithErrorNil(t *testing.T) {
	cfg := &config.LoggingConfig{Level: "info"}
	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if got := l.WithError(nil); got != l {
		t.Error("WithError(nil) should return the same logger")
	}
}

func TestGetLoggerDefault(t *testing.T) {
	globalLogger = nil
	l := GetLogger()
	if l == nil {
		t.Fatal("GetLogger should create a default logger")
	}
	if l != GetLogger() {
		t.Error("GetLogger should return the same instance on repeated calls")
	}
}
