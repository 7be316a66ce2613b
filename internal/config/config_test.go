package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.LogLevel != "info" || !cfg.LogColor || cfg.Workers != 4 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.InstructionBudget != 10000 {
		t.Fatalf("expected default instruction budget 10000, got %d", cfg.InstructionBudget)
	}
}

func TestLoadAppliesFlagsOverDefaults(t *testing.T) {
	cfg := Load("", Flags{LogLevel: "debug", Workers: 8})
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected flag to override default log level, got %q", cfg.LogLevel)
	}
	if cfg.Workers != 8 {
		t.Fatalf("expected flag to override default workers, got %d", cfg.Workers)
	}
	// Untouched fields keep their defaults.
	if cfg.ListenAddr != "127.0.0.1:7400" {
		t.Fatalf("expected default listen addr preserved, got %q", cfg.ListenAddr)
	}
}

func TestLoadFileThenEnvThenFlagsPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "torqd.toml")
	contents := "workers = 2\n\n[log]\nlevel = \"warn\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path, Flags{})
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected file value to override default, got %q", cfg.LogLevel)
	}
	if cfg.Workers != 2 {
		t.Fatalf("expected file value to override default workers, got %d", cfg.Workers)
	}

	t.Setenv("TORQD__log__level", "error")
	cfg = Load(path, Flags{})
	if cfg.LogLevel != "error" {
		t.Fatalf("expected env to override file value, got %q", cfg.LogLevel)
	}

	cfg = Load(path, Flags{LogLevel: "trace"})
	if cfg.LogLevel != "trace" {
		t.Fatalf("expected flag to override env value, got %q", cfg.LogLevel)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"), Flags{})
	if cfg.LogLevel != "info" {
		t.Fatalf("expected defaults when config file is missing, got %+v", cfg)
	}
}

func TestDefaultPath(t *testing.T) {
	if got := DefaultPath(""); got != "" {
		t.Fatalf("expected empty root to yield empty path, got %q", got)
	}
	got := DefaultPath("/etc/torqd")
	want := filepath.Join("/etc/torqd", "torqd.toml")
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
