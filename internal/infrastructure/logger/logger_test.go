package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"WARN", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"unknown", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewWithWriterFormatsOutput(t *testing.T) {
	t.Run("json carries structured fields", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(Config{Format: "json", Level: "debug"}, &buf)
		log.Info().Str("rib", "000000000000000000000001").Msg("hello")

		var line map[string]any
		if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
			t.Fatalf("expected json output, got %q: %v", buf.String(), err)
		}
		if line["message"] != "hello" || line["rib"] != "000000000000000000000001" {
			t.Fatalf("unexpected fields: %v", line)
		}
		if _, ok := line["time"]; !ok {
			t.Fatalf("expected timestamp, got %v", line)
		}
	})

	t.Run("console is human readable", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(Config{Format: "console", Level: "info"}, &buf)
		log.Info().Msg("hello")

		if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") || !strings.Contains(buf.String(), "hello") {
			t.Fatalf("expected console output, got %q", buf.String())
		}
	})

	t.Run("level filters", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(Config{Format: "json", Level: "warn"}, &buf)
		log.Info().Msg("dropped")

		if buf.Len() != 0 {
			t.Fatalf("expected info to be filtered at warn level, got %q", buf.String())
		}
	})
}
