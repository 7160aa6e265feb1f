package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestContextWithLogger(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := ContextWithLogger(context.Background(), logger)

	if got := FromContext(ctx); got != logger {
		t.Fatalf("expected logger from context")
	}
	if got := FromContext(context.Background()); got != nil {
		t.Fatalf("expected nil logger for bare context")
	}
	if got := ContextWithLogger(context.Background(), nil); FromContext(got) != nil {
		t.Fatalf("expected nil logger to be ignored")
	}
}

func TestNew_WritesJSONToStdout(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, closeFn := New(Options{Stdout: &buf, Level: slog.LevelWarn})
	defer closeFn()

	logger.Info("hidden")
	logger.Warn("sweep finished", "overdue", 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record above the level, got %q", buf.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("expected JSON record: %v", err)
	}
	if record["msg"] != "sweep finished" || record["overdue"] != float64(2) {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestNew_RotatingFileWithMirror(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scheduler.log")
	var buf bytes.Buffer
	logger, closeFn := New(Options{File: path, Mirror: true, Stdout: &buf})

	logger.Info("started")
	if err := closeFn(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"started"`) {
		t.Fatalf("expected record in file, got %q", data)
	}
	if !strings.Contains(buf.String(), `"msg":"started"`) {
		t.Fatalf("expected mirrored record, got %q", buf.String())
	}
}
