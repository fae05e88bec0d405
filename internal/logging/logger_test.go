package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shelftags/internal/config"
	"shelftags/internal/logging"
	"shelftags/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Dir = t.TempDir()
	cfg.Logging.Level = "debug"

	var console bytes.Buffer
	logger, err := logging.NewFromConfig(&cfg, &console)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Debug("debug message")

	if !strings.Contains(console.String(), "debug message") {
		t.Fatalf("expected debug message on the console writer, got %q", console.String())
	}

	content, err := os.ReadFile(filepath.Join(cfg.Logging.Dir, "shelftags.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "debug message") {
		t.Fatalf("expected debug message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{
		Format:  "console",
		Level:   "info",
		Outputs: []string{logPath, logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerRendersComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "worker").Info("fetched shelves", logging.Int("shelves", 12))

	line := buf.String()
	if !strings.Contains(line, "INFO worker: fetched shelves") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "shelves=12") {
		t.Fatalf("expected shelves attr, got %q", line)
	}
}

func TestConsoleLoggerRendersSubject(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithSessionID(context.Background(), "1a2b3c4d-5e6f-7081-92a3-b4c5d6e7f809")
	ctx = services.WithItemID(ctx, "5907")
	ctx = services.WithStage(ctx, "emitting")
	logger = logging.NewComponentLogger(logger, "worker")
	logging.WithContext(ctx, logger).Info("tags emitted", logging.Strings("tags", []string{"Fantasy", "Fiction"}))

	line := buf.String()
	want := "INFO worker: tags emitted [item #5907 (emitting) · session 1a2b3c4d] tags=Fantasy,Fiction\n"
	if !strings.HasSuffix(line, want) {
		t.Fatalf("expected line ending %q, got %q", want, line)
	}
	if strings.Contains(line, "item_id=") || strings.Contains(line, "session_id=") {
		t.Fatalf("expected subject fields lifted out of the tail, got %q", line)
	}
}

func TestConsoleLoggerPrefixesGroups(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.WithGroup("merge").Info("merged", logging.String("kind", "tags_only"))

	if line := buf.String(); !strings.Contains(line, "merge.kind=tags_only") {
		t.Fatalf("expected grouped key, got %q", line)
	}
}

func TestJSONLoggerIncludesContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithSessionID(context.Background(), "sess-1")
	ctx = services.WithItemID(ctx, "12345")
	ctx = services.WithStage(ctx, "fetch")
	logging.WithContext(ctx, logger).Info("hello")

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode log line: %v (%q)", err, buf.String())
	}
	for key, want := range map[string]string{
		"session_id": "sess-1",
		"item_id":    "12345",
		"stage":      "fetch",
		"level":      "info",
		"msg":        "hello",
	} {
		if got, _ := payload[key].(string); got != want {
			t.Fatalf("expected %s=%q, got %v", key, want, payload[key])
		}
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key in %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml", Writer: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "fetch failed", "shelf_fetch_failed",
		logging.Error(errors.New("boom")),
		logging.String(logging.FieldImpact, "item left without tags"),
	)

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if payload["event_type"] != "shelf_fetch_failed" {
		t.Fatalf("unexpected event_type %v", payload["event_type"])
	}
	if hint, _ := payload["error_hint"].(string); !strings.Contains(hint, "--log-level debug") {
		t.Fatalf("unexpected error_hint %v", payload["error_hint"])
	}
	if payload["impact"] != "item left without tags" {
		t.Fatalf("expected caller impact to win, got %v", payload["impact"])
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("expected nop logger to be disabled at every level")
	}
	logger.Error("ignored")
}
