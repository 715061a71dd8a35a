package obslog

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FORMAT", "bogus")
	t.Setenv("LOG_TO_FILE", "false")

	opts := OptionsFromEnv()
	if opts.Level != zapcore.WarnLevel {
		t.Fatalf("level = %v", opts.Level)
	}
	if opts.Format != "legacy" {
		t.Fatalf("unknown format should fall back to legacy, got %q", opts.Format)
	}
	if opts.File != "" {
		t.Fatalf("file output should be disabled")
	}
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "trainer.log")
	logger, err := New(Options{Level: zapcore.InfoLevel, Format: "json", File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("session_created", zap.String("session_id", "abc"))
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(raw) == 0 {
		t.Fatalf("expected log output in %s", path)
	}
}

func TestReplaceRestores(t *testing.T) {
	custom := zap.NewExample()
	restore := Replace(custom)
	if L() != custom {
		t.Fatalf("global logger not replaced")
	}
	restore()
	if L() == custom {
		t.Fatalf("global logger not restored")
	}
}

func TestOptionsFromEnvFile(t *testing.T) {
	t.Setenv("LOG_LEVEL", "nonsense")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("LOG_TO_FILE", "1")
	t.Setenv("LOG_FILE", "")

	opts := OptionsFromEnv()
	if opts.Level != zapcore.InfoLevel {
		t.Fatalf("bad level should default to info, got %v", opts.Level)
	}
	if opts.Format != FormatJSON {
		t.Fatalf("format = %q", opts.Format)
	}
	if opts.File != filepath.Join("logs", "trainer.log") {
		t.Fatalf("file = %q", opts.File)
	}
}
