package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNew_JSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{Level: "warn", Format: "json"}.New(&buf)

	l.Info().Msg("hidden")
	l.Warn().Str("visit", "abc").Msg("shown")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "shown" || entry["visit"] != "abc" {
		t.Fatalf("unexpected entry: %#v", entry)
	}
}

func TestLevel_FallsBackToInfo(t *testing.T) {
	if got := (Logger{Level: "nonsense"}).level().String(); got != "info" {
		t.Fatalf("expected info, got %s", got)
	}
	if got := (Logger{}).level().String(); got != "info" {
		t.Fatalf("expected info for empty level, got %s", got)
	}
}
