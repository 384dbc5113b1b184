package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" INFO ":  zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"trace":   zerolog.TraceLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for input, want := range tests {
		if got := parseLogLevel(input); got != want {
			t.Errorf("parseLogLevel(%q): expected %v, got %v", input, want, got)
		}
	}
}

func TestNew_Output(t *testing.T) {
	var buf bytes.Buffer
	log, closer := New(Options{Level: "warn", Output: &buf})
	defer func() { _ = closer.Close() }()

	log.Info().Msg("hidden")
	log.Warn().Str("component", "test").Msg("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected info message to be filtered, got %q", out)
	}
	if !strings.Contains(out, `"component":"test"`) || !strings.Contains(out, "visible") {
		t.Errorf("Expected structured warn message, got %q", out)
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "chat.log")
	log, closer := New(Options{File: path, Level: "info"})
	log.Info().Msg("written")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "written") {
		t.Errorf("Expected log file to contain message, got %q", data)
	}
}
