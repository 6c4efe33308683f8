package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		env, level string
		wantErr    bool
		enabled    zapcore.Level
	}{
		{env: "prod", enabled: zapcore.InfoLevel},
		{env: "local", level: "warn", enabled: zapcore.WarnLevel},
		{env: "staging", wantErr: true},
		{env: "prod", level: "loud", wantErr: true},
	}
	for _, tt := range tests {
		l, err := NewLogger(tt.env, tt.level)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NewLogger(%q, %q): expected error", tt.env, tt.level)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NewLogger(%q, %q): %v", tt.env, tt.level, err)
		}
		if !l.Core().Enabled(tt.enabled) || l.Core().Enabled(tt.enabled-1) {
			t.Errorf("NewLogger(%q, %q): lowest enabled level is not %s", tt.env, tt.level, tt.enabled)
		}
	}
}

func TestNewLogger_Test(t *testing.T) {
	l, err := NewLogger("test")
	if err != nil {
		t.Fatal(err)
	}
	if l.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("test logger should discard")
	}
}

func TestContextLogger(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("missing logger should fall back to nop")
	}
	l := zap.NewExample()
	if got := FromContextOr(context.Background(), l); got != l {
		t.Error("fallback not returned")
	}
	if got := FromContext(ContextWithLogger(context.Background(), l)); got != l {
		t.Error("logger not round-tripped")
	}
}

func TestWith(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := ContextWithLogger(context.Background(), zap.New(core))
	ctx = With(ctx, zap.String("session_id", "s1"))

	FromContext(ctx).Info("select")
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	if got := entries[0].ContextMap()["session_id"]; got != "s1" {
		t.Errorf("session_id = %v", got)
	}
}
