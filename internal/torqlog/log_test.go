package torqlog

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"trace":   LevelTrace,
		"TRACE":   LevelTrace,
		"debug":   LevelDebug,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"none":    LevelNone,
		"off":     LevelNone,
		"info":    LevelInfo,
		"bogus":   LevelInfo,
		"":        LevelInfo,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewWritesToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")

	logger := New(Options{Level: LevelInfo, File: path})
	logger.Info("hello", "actor", "a1")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello") || !strings.Contains(string(data), "a1") {
		t.Fatalf("expected the log file to contain the record, got %q", data)
	}
}

func TestNewFallsBackToStderrOnBadFilePath(t *testing.T) {
	// A path containing a NUL byte can't be opened; New must not
	// panic and must still return a usable logger.
	logger := New(Options{Level: LevelInfo, File: filepath.Join(string([]byte{0}), "bad.log")})
	if logger == nil {
		t.Fatalf("expected a non-nil logger even when the log file can't be opened")
	}
}

func TestLevelNoneFiltersEverything(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: LevelNone.slogLevel()})
	logger := slog.New(handler)
	logger.Error("should be filtered")
	if buf.Len() != 0 {
		t.Fatalf("expected LevelNone to filter even Error records, got %q", buf.String())
	}
}
