package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newBufferLogger(t *testing.T, format string) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, _, err := New(Config{Level: "debug", Format: format, Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { SetLevel("info") })
	return l, &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON log %q: %v", buf.String(), err)
	}
	return entry
}

func TestNew_JSON(t *testing.T) {
	l, buf := newBufferLogger(t, "json")
	l.Info("session stored", "backend", "memory", "count", 3)

	entry := decodeLine(t, buf)
	if entry["msg"] != "session stored" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["backend"] != "memory" {
		t.Errorf("backend = %v", entry["backend"])
	}
	if entry["count"] != float64(3) {
		t.Errorf("count = %v", entry["count"])
	}
}

func TestNew_Text(t *testing.T) {
	l, buf := newBufferLogger(t, "text")
	l.Warn("sweep slow", "elapsed", "2s")
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "elapsed=2s") {
		t.Errorf("text output = %q", out)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	if _, _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("New() with unknown level should fail")
	}
	if _, _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("New() with unknown format should fail")
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authrelay.log")
	l, closer, err := New(Config{Level: "info", File: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.Info("to file")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"msg":"to file"`) {
		t.Errorf("file content = %q", data)
	}
}

func TestSetLevel(t *testing.T) {
	l, buf := newBufferLogger(t, "json")

	if err := SetLevel("error"); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	if GetLevel() != "error" {
		t.Errorf("GetLevel() = %s", GetLevel())
	}
	l.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at error level, got %q", buf.String())
	}

	if err := SetLevel("debug"); err != nil {
		t.Fatal(err)
	}
	l.Debug("kept")
	if buf.Len() == 0 {
		t.Error("debug should pass at debug level")
	}

	if err := SetLevel("verbose"); err == nil {
		t.Error("SetLevel(unknown) should fail")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "INFO"},
		{"DEBUG", "DEBUG"},
		{" warning ", "WARN"},
		{"error", "ERROR"},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q) error = %v", tt.in, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestWith_Slog(t *testing.T) {
	l, buf := newBufferLogger(t, "json")
	l.With("component", "sweeper").Slog().Info("tick")

	entry := decodeLine(t, buf)
	if entry["component"] != "sweeper" {
		t.Errorf("component = %v", entry["component"])
	}
}

func TestSetDefault(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	l, buf := newBufferLogger(t, "json")
	SetDefault(l)
	Info("via default")
	if !strings.Contains(buf.String(), "via default") {
		t.Errorf("default logger output = %q", buf.String())
	}
}
