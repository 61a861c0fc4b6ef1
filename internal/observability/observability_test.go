package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"pharma-dashboard/internal/config"
)

func TestNewLogger_FormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, config.LoggerConfig{Level: "warn", Format: "json"})

	logger.Info("hidden")
	logger.Warn("shown", "rows", 3)

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info logged at warn level")
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if entry["msg"] != "shown" || entry["rows"] != float64(3) {
		t.Errorf("entry = %v", entry)
	}
}

func TestLoggerFrom(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, config.LoggerConfig{Level: "info", Format: "text"})

	ctx := WithSessionID(WithRequestID(context.Background(), "req-9"), "sess-1")
	LoggerFrom(ctx, logger).Info("hello")

	out := buf.String()
	if !strings.Contains(out, "request_id=req-9") || !strings.Contains(out, "session_id=sess-1") {
		t.Errorf("output = %s", out)
	}
}

func TestSpans(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-7")

	ctx, parent := StartSpan(ctx, "upload")
	if parent.TraceID != "req-7" {
		t.Errorf("trace id = %q, want request id", parent.TraceID)
	}

	_, child := StartSpan(ctx, "parse")
	if child.ParentID != parent.SpanID || child.TraceID != parent.TraceID {
		t.Errorf("child = %+v", child)
	}

	var buf bytes.Buffer
	logger := newLogger(&buf, config.LoggerConfig{Level: "debug", Format: "text"})

	child.SetTag("upload.rows", "12")
	child.SetError(errors.New("bad row"))
	child.End(logger)

	if child.Duration == nil {
		t.Fatal("duration not recorded")
	}
	out := buf.String()
	for _, want := range []string{"level=WARN", "operation=parse", "upload.rows=12", `error="bad row"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q: %s", want, out)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
