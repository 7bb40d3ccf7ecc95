package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	if New(Config{}) == nil {
		t.Fatal("New() returned nil")
	}
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&buf, Config{Level: slog.LevelDebug})
	logger.Info("ingest complete", "courses", 4)

	out := buf.String()
	if !strings.Contains(out, "ingest complete") {
		t.Errorf("expected output to contain message, got: %s", out)
	}
	if !strings.Contains(out, "courses=4") {
		t.Errorf("expected output to contain attribute, got: %s", out)
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&buf, Config{JSON: true})
	logger.Info("json test", "foo", "bar")

	if !strings.Contains(buf.String(), `"msg":"json test"`) {
		t.Errorf("expected JSON output with msg field, got: %s", buf.String())
	}
}

func TestNewWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&buf, Config{Level: slog.LevelWarn})
	logger.Debug("dropped")
	logger.Info("also dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("expected sub-warn entries to be filtered, got: %s", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("expected warn entry to pass, got: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"  Error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	if logger == nil {
		t.Fatal("NewNop() returned nil")
	}

	// Must not panic.
	logger.Info("discarded")
	logger.Error("discarded too")
}
