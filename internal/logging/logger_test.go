package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestConsoleHandlerIncludesComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	logger = NewComponentLogger(logger, "extract")
	logger.Info("band analysis complete", Int("cutoff_hz", 18000), Float64("rms_db", -74.5))

	line := buf.String()
	if !strings.Contains(line, "extract: band analysis complete") {
		t.Fatalf("missing component prefix: %q", line)
	}
	if !strings.Contains(line, "cutoff_hz=18000") {
		t.Fatalf("missing int attr: %q", line)
	}
	if !strings.Contains(line, "rms_db=-74.5") {
		t.Fatalf("missing float attr: %q", line)
	}
}

func TestJSONHandlerRenamesCoreKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	logger.Warn("cache version mismatch", Int("found", 2))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if payload["msg"] != "cache version mismatch" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
	if payload["level"] != "warn" {
		t.Fatalf("unexpected level: %v", payload["level"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("should be dropped")
	if buf.Len() != 0 {
		t.Fatalf("info line leaked through warn level: %q", buf.String())
	}
	logger.Error("kept")
	if buf.Len() == 0 {
		t.Fatal("error line missing")
	}
}
