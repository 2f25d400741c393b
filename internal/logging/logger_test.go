package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"reelvault/internal/services"
)

func newTestConsoleLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelDebug)
	return slog.New(newConsoleHandler(buf, lvl)), buf
}

func TestConsoleHandlerFormatsLine(t *testing.T) {
	logger, buf := newTestConsoleLogger()

	logger.Info("job submitted", String("job_id", "abc"), Int("row", 3))

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, " INFO ") {
		t.Fatalf("expected level label, got %q", line)
	}
	if !strings.Contains(line, "job submitted") {
		t.Fatalf("expected message, got %q", line)
	}
	if !strings.Contains(line, "job_id=abc") || !strings.Contains(line, "row=3") {
		t.Fatalf("expected key=value attrs, got %q", line)
	}
}

func TestConsoleHandlerPromotesComponent(t *testing.T) {
	logger, buf := newTestConsoleLogger()

	NewComponentLogger(logger, "worker").Info("tick")

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, " worker: tick") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should not repeat as an attr: %q", line)
	}
}

func TestConsoleHandlerQuotesValues(t *testing.T) {
	logger, buf := newTestConsoleLogger()

	logger.Warn("copy failed", String("path", "/tmp/a b.mp4"))

	if !strings.Contains(buf.String(), `path="/tmp/a b.mp4"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestJSONHandlerKeys(t *testing.T) {
	buf := &bytes.Buffer{}
	lvl := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(buf, lvl))

	logger.Info("archived", String("file", "x.mp4"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if record["msg"] != "archived" {
		t.Fatalf("unexpected msg key: %v", record)
	}
	if record["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", record["level"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should not enable any level")
	}
}

func TestWithContextAddsJobFields(t *testing.T) {
	logger, buf := newTestConsoleLogger()

	ctx := services.WithJobID(context.Background(), "job-1")
	ctx = services.WithStage(ctx, "rename")
	ctx = services.WithCategory(ctx, "testimony")
	WithContext(ctx, logger).Info("stage start")

	line := buf.String()
	for _, want := range []string{"job_id=job-1", "stage=rename", "category=testimony"} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %q in %q", want, line)
		}
	}
}
