package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestNew_JSONLevelFiltering(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	var buf bytes.Buffer
	logger := New(Config{Level: "warn", Format: "json"}, &buf)
	logger.Info().Msg("hidden")
	logger.Warn().Str("ref", "#/definitions/a").Msg("visible")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry["message"] != "visible" || entry["component"] != "formschema" || entry["ref"] != "#/definitions/a" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	var buf bytes.Buffer
	logger := New(Config{Level: "loud", Format: "text"}, &buf)
	logger.Debug().Msg("debug")
	logger.Info().Msg("info line")

	got := buf.String()
	if strings.Contains(got, "debug") || !strings.Contains(got, "info line") {
		t.Fatalf("unexpected text output %q", got)
	}
}

func TestInit_FileOutputAndComponent(t *testing.T) {
	previous := log.Logger
	t.Cleanup(func() {
		log.Logger = previous
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})

	path := filepath.Join(t.TempDir(), "formschema.log")
	if err := Init(Config{Level: "debug", Format: "json", Output: path}); err != nil {
		t.Fatalf("init: %v", err)
	}
	componentLogger := WithComponent("resolver")
	componentLogger.Debug().Msg("resolved")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"component":"resolver"`) {
		t.Fatalf("expected component field, got %q", data)
	}
}
