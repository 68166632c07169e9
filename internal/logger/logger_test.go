package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{" Error ", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestResolveFormat(t *testing.T) {
	t.Setenv("ENV", "production")
	if got := resolveFormat(""); got != "json" {
		t.Errorf("expected json in production, got %s", got)
	}
	if got := resolveFormat("TEXT"); got != "text" {
		t.Errorf("explicit format should win, got %s", got)
	}

	t.Setenv("ENV", "development")
	if got := resolveFormat(""); got != "text" {
		t.Errorf("expected text outside production, got %s", got)
	}
}

func TestGet(t *testing.T) {
	defaultLogger = nil

	logger := Get()
	if logger == nil {
		t.Fatal("Get() should return a logger")
	}
	if logger != Get() {
		t.Error("Get() should return the same logger instance")
	}

	defaultLogger = nil
}

func TestInitWithWriter_JSON(t *testing.T) {
	defer func() { defaultLogger = nil }()

	var buf bytes.Buffer
	InitWithWriter(&buf, "debug", "json")

	WithComponent("memory").Debug("sweep finished", "evicted", 3)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if rec["component"] != "memory" {
		t.Errorf("expected component=memory, got %v", rec["component"])
	}
	if rec["msg"] != "sweep finished" {
		t.Errorf("unexpected msg %v", rec["msg"])
	}
}

func TestLevelFiltering(t *testing.T) {
	defer func() { defaultLogger = nil }()

	var buf bytes.Buffer
	InitWithWriter(&buf, "warn", "text")

	Info("hidden")
	Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn message should be logged")
	}
}

func TestContextLoggingFunctions(t *testing.T) {
	defer func() { defaultLogger = nil }()

	var buf bytes.Buffer
	defaultLogger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := context.WithValue(context.Background(), RequestIDKey, "test-req-id")

	InfoContext(ctx, "info message")
	if !strings.Contains(buf.String(), "info message") {
		t.Error("InfoContext message not logged")
	}
	if !strings.Contains(buf.String(), "test-req-id") {
		t.Error("Request ID not included in log")
	}
	buf.Reset()

	WarnContext(context.Background(), "warn message")
	if strings.Contains(buf.String(), "request_id") {
		t.Error("request_id should be absent without one in context")
	}
	buf.Reset()

	ErrorContext(ctx, "error message")
	if !strings.Contains(buf.String(), "error message") {
		t.Error("ErrorContext message not logged")
	}
}

func TestWithRequestID_TraceCorrelation(t *testing.T) {
	defer func() { defaultLogger = nil }()

	var buf bytes.Buffer
	InitWithWriter(&buf, "debug", "json")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	DebugContext(ctx, "flush queued")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected JSON log line: %v", err)
	}
	if rec["trace_id"] != traceID.String() || rec["span_id"] != spanID.String() {
		t.Errorf("expected trace correlation, got %v", rec)
	}

	buf.Reset()
	DebugContext(context.Background(), "no span")
	if strings.Contains(buf.String(), "trace_id") {
		t.Error("trace_id should be absent without a span")
	}
}
