package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions(&buf, LevelInfo, FormatJSON)

	log.Info("Plan generated", F("plan_id", "plan_123"), F("drops", "24"))

	var entry map[string]string
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal log entry %q: %v", buf.String(), err)
	}
	if entry["msg"] != "Plan generated" {
		t.Errorf("Expected msg %q, got %q", "Plan generated", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Errorf("Expected level info, got %q", entry["level"])
	}
	if entry["plan_id"] != "plan_123" || entry["drops"] != "24" {
		t.Errorf("Expected fields to be present, got %v", entry)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions(&buf, LevelWarn, FormatText)

	log.Debug("hidden debug")
	log.Info("hidden info")
	log.Warn("shown warning")
	log.Error("shown error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected debug and info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown warning") || !strings.Contains(out, "shown error") {
		t.Errorf("Expected warn and error entries, got %q", out)
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions(&buf, "debug", FormatText).With(F("request_id", "req-1"))

	log.Debug("Parsing plan")

	if !strings.Contains(buf.String(), "request_id=req-1") {
		t.Errorf("Expected inherited field, got %q", buf.String())
	}
}
