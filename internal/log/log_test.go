package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewEmitsJSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "debug", Format: "json", Output: &buf})
	l = l.With(Fields{"stream": "s1", "worker_id": 2})
	l.Infof("hello %s", "world")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not valid JSON: %v (%q)", err, buf.String())
	}
	if line["msg"] != "hello world" {
		t.Fatalf("msg = %v, want %q", line["msg"], "hello world")
	}
	if line["stream"] != "s1" {
		t.Fatalf("stream field missing or wrong: %v", line["stream"])
	}
}

func TestLevelFiltersBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", Format: "text", Output: &buf})
	l.Debugf("should not appear")
	l.Infof("should not appear either")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn level, got %q", buf.String())
	}
	l.Warnf("this should appear")
	if !strings.Contains(buf.String(), "this should appear") {
		t.Fatalf("expected warn output, got %q", buf.String())
	}
}

func TestNoopDiscardsOutput(t *testing.T) {
	// Noop must not panic and must be safe to call With/Infof on.
	l := Noop().With(Fields{"k": "v"})
	l.Infof("anything")
}

func TestInvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "not-a-level", Format: "text", Output: &buf})
	l.Debugf("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected debug to be filtered under default info level, got %q", buf.String())
	}
	l.Infof("visible")
	if buf.Len() == 0 {
		t.Fatal("expected info-level output under default level")
	}
}
