package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode log line: %v (%q)", err, buf.String())
	}
	return payload
}

func TestWithSessionStampsEveryRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := WithSession(slog.New(slog.NewJSONHandler(&buf, nil)), "sess-7").With("item_id", "42")
	logger.Info("announced")

	payload := decodeLine(t, &buf)
	if payload[FieldSessionID] != "sess-7" {
		t.Fatalf("expected session id, got %v", payload)
	}
	if payload["item_id"] != "42" {
		t.Fatalf("expected item id carried through WithAttrs, got %v", payload)
	}
}

func TestWithSessionKeepsGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := WithSession(slog.New(slog.NewJSONHandler(&buf, nil)), "sess-8").WithGroup("merge")
	logger.Info("merged", "kind", "tags_only")

	payload := decodeLine(t, &buf)
	group, ok := payload["merge"].(map[string]any)
	if !ok || group["kind"] != "tags_only" {
		t.Fatalf("expected grouped attrs, got %v", payload)
	}
}

func TestWithSessionEmptyIDReturnsLogger(t *testing.T) {
	base := NewNop()
	if got := WithSession(base, ""); got != base {
		t.Fatal("expected the same logger for an empty session id")
	}
	if _, ok := newSessionIDHandler(nil, "x").(NoopHandler); !ok {
		t.Fatal("expected NoopHandler for a nil base")
	}
}

func TestConsoleValueQuoting(t *testing.T) {
	cases := map[string]struct {
		value slog.Value
		want  string
	}{
		"plain":    {slog.StringValue("fantasy"), "fantasy"},
		"spaces":   {slog.StringValue("science fiction"), `"science fiction"`},
		"empty":    {slog.StringValue(""), `""`},
		"int":      {slog.IntValue(370), "370"},
		"float":    {slog.Float64Value(67.5), "67.5"},
		"duration": {slog.DurationValue(1500 * time.Millisecond), "1.5s"},
		"strings":  {slog.AnyValue([]string{"3", "4"}), "3,4"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := consoleValue(tc.value); got != tc.want {
				t.Fatalf("consoleValue = %q, want %q", got, tc.want)
			}
		})
	}
	if got := plainValue(slog.StringValue("worker pool")); strings.Contains(got, `"`) {
		t.Fatalf("plainValue should not quote, got %q", got)
	}
}
