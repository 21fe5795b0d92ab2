package zap

import (
	"errors"
	"testing"

	"github.com/unkn0wn-root/nscache"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Debug("dropped undecodable entry", nscache.Fields{"key": "4:user[1][1]"})
	l.Warn("namespace version bump failed", nscache.Fields{"namespace": "user", "err": errors.New("boom")})
	l.Info("plain", nil)

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].LoggerName != "nscache" {
		t.Fatalf("logger name = %q", entries[0].LoggerName)
	}
	if entries[0].Level != zapcore.DebugLevel || entries[1].Level != zapcore.WarnLevel {
		t.Fatalf("levels = %v %v", entries[0].Level, entries[1].Level)
	}
	ctx := entries[1].ContextMap()
	if ctx["namespace"] != "user" || ctx["err"] != "boom" {
		t.Fatalf("fields = %v", ctx)
	}
	if len(entries[2].Context) != 0 {
		t.Fatalf("nil fields produced %v", entries[2].Context)
	}
}
