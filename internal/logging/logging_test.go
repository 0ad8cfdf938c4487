package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{" info ", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in, zerolog.InfoLevel); got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWithFileSink(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "memmond.log")
	log, closer, err := New(Config{Level: "debug", File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info().Str("k", "v").Msg("hello file sink")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(b), "hello file sink") {
		t.Fatalf("log file missing entry: %q", string(b))
	}
}

func TestNewBadFilePath(t *testing.T) {
	t.Parallel()
	_, closer, err := New(Config{File: filepath.Join(t.TempDir(), "no", "such", "dir", "x.log")})
	if err == nil {
		t.Fatal("expected error for unwritable log path")
	}
	if closer == nil {
		t.Fatal("closer must be non-nil even on error")
	}
}
