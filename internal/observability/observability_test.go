package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/bisongoscar/apple-sales-dashboard/internal/config"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	return entry
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.input); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewLoggerTo_Formats(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerTo(&buf, config.LoggerConfig{Level: "info", Format: "text"}).Info("hello", "k", 1)
	if !strings.Contains(buf.String(), "msg=hello") || !strings.Contains(buf.String(), "k=1") {
		t.Errorf("text output = %q", buf.String())
	}

	buf.Reset()
	NewLoggerTo(&buf, config.LoggerConfig{Level: "info", Format: "json"}).Info("hello")
	if entry := decodeLine(t, &buf); entry["msg"] != "hello" {
		t.Errorf("json msg = %v", entry["msg"])
	}
}

func TestNewLoggerTo_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggerConfig{Level: "warn", Format: "json"})

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}

	logger.Warn("kept")
	if buf.Len() == 0 {
		t.Error("warn should be written at warn level")
	}
}

func TestNewLoggerTo_SourceIsTrimmed(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerTo(&buf, config.LoggerConfig{Level: "info", Format: "json", AddSource: true}).Info("with source")

	entry := decodeLine(t, &buf)
	src, ok := entry["source"].(map[string]any)
	if !ok {
		t.Fatalf("expected a source object, got %v", entry["source"])
	}
	if file := src["file"].(string); file != "observability_test.go" {
		t.Errorf("source file = %q, want the base name only", file)
	}
}

func TestNewLoggerTo_ContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggerConfig{Level: "info", Format: "json"}).With("component", "test")

	ctx := WithRequestID(context.Background(), "req-42")
	ctx, span := StartSpan(ctx, "load")
	logger.InfoContext(ctx, "loaded")

	entry := decodeLine(t, &buf)
	if entry["request_id"] != "req-42" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
	if entry["trace_id"] != span.TraceID || entry["span_id"] != span.SpanID {
		t.Errorf("span ids = %v/%v, want %s/%s", entry["trace_id"], entry["span_id"], span.TraceID, span.SpanID)
	}
	if entry["component"] != "test" {
		t.Errorf("attributes from With should survive, got %v", entry["component"])
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("GetRequestID() = %q, want empty", id)
	}
}

func TestStartSpan_Nested(t *testing.T) {
	ctx, parent := StartSpan(context.Background(), "request")
	_, child := StartSpan(ctx, "forecast.fit")

	if len(parent.TraceID) != 16 || len(parent.SpanID) != 16 {
		t.Errorf("ids should be 16 hex chars, got %q/%q", parent.TraceID, parent.SpanID)
	}
	if child.TraceID != parent.TraceID {
		t.Error("child span should share the parent's trace")
	}
	if child.ParentID != parent.SpanID {
		t.Errorf("child parent id = %q, want %q", child.ParentID, parent.SpanID)
	}
	if child.SpanID == parent.SpanID {
		t.Error("child span should get its own id")
	}
	if SpanFromContext(context.Background()) != nil {
		t.Error("a bare context has no span")
	}
}

func TestSpan_EndAndLog(t *testing.T) {
	_, span := StartSpan(context.Background(), "fit")
	span.SetAttr("months", 12)
	span.SetAttr("months", 24)
	span.End(errors.New("singular matrix"))
	span.End(nil)

	if !span.Failed() || span.Err.Error() != "singular matrix" {
		t.Errorf("first End should win, err = %v", span.Err)
	}

	var buf bytes.Buffer
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("span", "span", span)
	entry := decodeLine(t, &buf)
	logged, ok := entry["span"].(map[string]any)
	if !ok {
		t.Fatalf("span should log as a group, got %v", entry["span"])
	}
	if logged["operation"] != "fit" || logged["months"] != float64(24) || logged["status"] != "ERROR" {
		t.Errorf("logged span = %v", logged)
	}
	if _, ok := logged["duration"]; !ok {
		t.Error("an ended span should log its duration")
	}
}
