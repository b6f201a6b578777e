package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestNew_LevelAndFields tests the slog bridge.
func TestNew_LevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)
	l.Debug("hidden")
	l.Info("schedule_event", "event", "commit_succeeded", "upserted", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug line written at info level")
	}
	if !strings.Contains(out, "commit_succeeded") || !strings.Contains(out, "upserted=3") {
		t.Errorf("output = %q", out)
	}
}

// TestInit_WritesRotatingFile tests the lumberjack wiring.
func TestInit_WritesRotatingFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := filepath.Join(t.TempDir(), "logs")
	closer, err := Init(Config{Dir: dir, Debug: true})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	slog.Debug("workspace_event", "event", "reaped")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "boxdesk.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "reaped") {
		t.Errorf("log file = %q", data)
	}
}
