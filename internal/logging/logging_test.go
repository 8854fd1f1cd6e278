package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"sqlview/internal/config"
)

func TestNew_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := New(config.LogConfig{Level: "debug", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.WithField("name", "_tmp_1").Debug("created")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "created" || rec["name"] != "_tmp_1" || rec["level"] != "debug" {
		t.Fatalf("record = %v", rec)
	}
}

func TestNew_TextLevelFilter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := New(config.LogConfig{Level: "warn"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.Info("hidden")
	l.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("output = %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("colors enabled for non-terminal output: %q", out)
	}
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	if _, err := New(config.LogConfig{Level: "loud"}, nil); err == nil {
		t.Errorf("New(bad level) error = nil")
	}
	if _, err := New(config.LogConfig{Format: "xml"}, nil); err == nil {
		t.Errorf("New(bad format) error = nil")
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	if Discard().IsLevelEnabled(logrus.ErrorLevel) {
		t.Fatalf("Discard logger has error level enabled")
	}
}
