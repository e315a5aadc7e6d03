package util

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerLevel(t *testing.T) {
	logger := NewLogger("debug")
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}

	logger = NewLogger("invalid")
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info fallback, got %s", logger.GetLevel())
	}

	if NewConsoleLogger(" WARN ").GetLevel() != zerolog.WarnLevel {
		t.Fatalf("expected warn level for console logger")
	}
	if NewLogger("").GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info for empty level")
	}
}

func TestNewLoggerToWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "info")
	logger.Debug().Msg("hidden")
	logger.Info().Str("sym", "BTCUSDT").Msg("tick")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "tick" || entry["sym"] != "BTCUSDT" || entry["time"] == nil {
		t.Fatalf("unexpected entry %v", entry)
	}
}
