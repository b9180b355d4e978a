package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, slog.LevelInfo, "JSON").Info("hello", "user", "alice@example.com")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("json output = %q: %v", buf.String(), err)
	}
	if record["msg"] != "hello" || record["user"] != "alice@example.com" {
		t.Errorf("record = %v", record)
	}

	buf.Reset()
	logger := New(&buf, slog.LevelWarn, "")
	logger.Info("dropped")
	logger.Warn("kept")
	out := buf.String()
	if strings.Contains(out, "dropped") || !strings.Contains(out, "kept") {
		t.Errorf("text output = %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("non-terminal output should not be colored: %q", out)
	}
}

func TestLevelFromEnv(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for v, want := range tests {
		t.Setenv("LOG_LEVEL", v)
		if got := levelFromEnv(); got != want {
			t.Errorf("levelFromEnv(%q) = %v, want %v", v, got, want)
		}
	}
}
