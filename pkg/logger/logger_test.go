package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, slog.LevelInfo, true)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithUserID(ctx, "user-1")
	ctx = ContextWithActivityID(ctx, "act-1")

	log.WithContext(ctx).WithComponent("api").Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decoding log line: %v", err)
	}
	for key, want := range map[string]string{
		"request_id":  "req-1",
		"user_id":     "user-1",
		"activity_id": "act-1",
		"component":   "api",
		"msg":         "hello",
	} {
		if entry[key] != want {
			t.Errorf("%s = %v, want %s", key, entry[key], want)
		}
	}
}

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()
	if UserIDFromContext(ctx) != "" {
		t.Error("empty context should yield empty IDs")
	}
	ctx = ContextWithUserID(ctx, "u")
	if UserIDFromContext(ctx) != "u" {
		t.Error("user ID not stored")
	}
}

func TestFromContextAndWithError(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, slog.LevelInfo, true)

	ctx := ContextWithActivityID(context.Background(), "act-2")
	FromContext(ctx, base.WithError(errors.New("disk full")).Logger).Warn("degraded")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decoding log line: %v", err)
	}
	if entry["activity_id"] != "act-2" || entry["error"] != "disk full" {
		t.Fatalf("entry = %v", entry)
	}

	if FromContext(context.Background(), nil) == nil {
		t.Fatal("nil base should fall back to the default logger")
	}
}
