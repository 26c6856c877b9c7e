package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func withCapture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetWriter(&buf)
	t.Cleanup(func() {
		SetWriter(os.Stdout)
		SetLevel("INFO")
		SetFormat("text")
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := withCapture(t)
	SetLevel("WARN")

	Info("hidden %d", 1)
	Warn("shown %d", 2)
	Error("shown %d", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("INFO line written at WARN level: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown 2") {
		t.Errorf("missing WARN line: %q", out)
	}
	if !strings.Contains(out, "[ERROR] shown 3") {
		t.Errorf("missing ERROR line: %q", out)
	}
}

func TestSetLevelIgnoresUnknown(t *testing.T) {
	withCapture(t)
	SetLevel("debug")
	SetLevel("verbose")

	if GetLevel() != LevelDebug {
		t.Errorf("expected DEBUG level to survive unknown name, got %s", GetLevel())
	}
}

func TestJSONFormat(t *testing.T) {
	buf := withCapture(t)
	SetFormat("json")

	Info("purged %d files", 4)

	var line jsonLine
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("line is not JSON: %v (%q)", err, buf.String())
	}
	if line.Level != "INFO" || line.Message != "purged 4 files" {
		t.Errorf("unexpected line: %+v", line)
	}
}

func TestSetOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drive.log")
	if err := SetOutput(path); err != nil {
		t.Fatalf("SetOutput failed: %v", err)
	}
	t.Cleanup(func() { _ = SetOutput("stdout") })

	Error("disk write failed")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "disk write failed") {
		t.Errorf("log file missing message: %q", data)
	}
}
