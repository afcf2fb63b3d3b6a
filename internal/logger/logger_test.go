package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func parseEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON log output, got error: %v\nraw output: %s", err, buf.String())
	}
	return entry
}

func TestSetup_ReturnsJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, slog.LevelInfo)

	l.Info("test message", slog.String("key", "value"))

	entry := parseEntry(t, &buf)
	if entry["msg"] != "test message" {
		t.Errorf("msg = %q, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %q, want %q", entry["key"], "value")
	}
	if entry["service"] != "moody" {
		t.Errorf("service = %q, want %q", entry["service"], "moody")
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected 'time' field in JSON log output")
	}
}

func TestSetup_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, slog.LevelWarn)

	l.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("INFOログが出力された: %s", buf.String())
	}

	l.Warn("kept")
	if entry := parseEntry(t, &buf); entry["level"] != "WARN" {
		t.Errorf("level = %q, want %q", entry["level"], "WARN")
	}
}

func TestSetup_NilLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, nil)

	l.Debug("dropped")
	if buf.Len() != 0 {
		t.Errorf("DEBUGログが出力された: %s", buf.String())
	}
}

func TestSetup_MultipleAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, slog.LevelInfo)

	l.Info("mood event ingested",
		slog.String("user_id", "u-123"),
		slog.String("event_id", "e-456"),
		slog.Int("places", 3),
	)

	entry := parseEntry(t, &buf)
	if entry["user_id"] != "u-123" {
		t.Errorf("user_id = %q, want %q", entry["user_id"], "u-123")
	}
	if entry["event_id"] != "e-456" {
		t.Errorf("event_id = %q, want %q", entry["event_id"], "e-456")
	}
	if entry["places"] != float64(3) {
		t.Errorf("places = %v, want %v", entry["places"], 3)
	}
}

func TestSetupDefault_SetsGlobalLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	SetupDefault(&buf, slog.LevelDebug)

	slog.Default().Debug("global test", slog.String("test_key", "test_val"))

	entry := parseEntry(t, &buf)
	if entry["msg"] != "global test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "global test")
	}
	if entry["test_key"] != "test_val" {
		t.Errorf("test_key = %q, want %q", entry["test_key"], "test_val")
	}
}
