package obslog

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global atomic.Pointer[zap.Logger]

func init() { global.Store(zap.NewNop()) }

// L returns the process-wide logger. It is a no-op logger until
// InitFromEnv or Replace runs.
func L() *zap.Logger { return global.Load() }

// Replace installs l globally and returns a func that puts the previous
// logger back.
func Replace(l *zap.Logger) func() {
	if l == nil {
		l = zap.NewNop()
	}
	prev := global.Swap(l)
	return func() { global.Store(prev) }
}

const (
	FormatLegacy  = "legacy"
	FormatJSON    = "json"
	FormatConsole = "console"
)

type Options struct {
	Level      zapcore.Level
	Format     string
	Console    bool
	File       string // empty disables file output
	ShowCaller bool
}

// OptionsFromEnv reads LOG_LEVEL, LOG_FORMAT, LOG_TO_CONSOLE, LOG_TO_FILE,
// LOG_FILE and LOG_CALLER. Unknown formats fall back to legacy.
func OptionsFromEnv() Options {
	opts := Options{
		Level:      zapcore.InfoLevel,
		Format:     strings.ToLower(env("LOG_FORMAT", FormatLegacy)),
		Console:    envBool("LOG_TO_CONSOLE", true),
		ShowCaller: envBool("LOG_CALLER", false),
	}
	if lvl, err := zapcore.ParseLevel(env("LOG_LEVEL", "info")); err == nil {
		opts.Level = lvl
	}
	if _, ok := encoders[opts.Format]; !ok {
		opts.Format = FormatLegacy
	}
	if envBool("LOG_TO_FILE", false) {
		opts.File = env("LOG_FILE", filepath.Join("logs", "trainer.log"))
	}
	return opts
}

// InitFromEnv builds a logger from the environment and installs it.
func InitFromEnv() error {
	logger, err := New(OptionsFromEnv())
	if err != nil {
		return err
	}
	Replace(logger)
	return nil
}

// New tees stdout and an optional append-only file. With neither enabled
// it logs to stdout in development format.
func New(opts Options) (*zap.Logger, error) {
	build, ok := encoders[opts.Format]
	if !ok {
		build = encoders[FormatLegacy]
	}

	var sinks []zapcore.WriteSyncer
	if opts.Console {
		sinks = append(sinks, zapcore.Lock(os.Stdout))
	}
	if opts.File != "" {
		f, err := openLogFile(opts.File)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, f)
	}

	var core zapcore.Core
	if len(sinks) == 0 {
		dev := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		core = zapcore.NewCore(dev, zapcore.Lock(os.Stdout), opts.Level)
	} else {
		cores := make([]zapcore.Core, len(sinks))
		for i, ws := range sinks {
			cores[i] = zapcore.NewCore(build(), ws, opts.Level)
		}
		core = zapcore.NewTee(cores...)
	}

	zopts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if opts.ShowCaller || opts.Format == FormatLegacy {
		zopts = append(zopts, zap.AddCaller())
	}
	return zap.New(core, zopts...), nil
}

func openLogFile(path string) (zapcore.WriteSyncer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return zapcore.AddSync(f), nil
}

// encoders builds a fresh encoder per core.
var encoders = map[string]func() zapcore.Encoder{
	// 2024-05-01 12:00:00 | INFO | engine/engine.go:42 | session_started
	FormatLegacy: func() zapcore.Encoder {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.ConsoleSeparator = " | "
		return zapcore.NewConsoleEncoder(cfg)
	},
	FormatConsole: func() zapcore.Encoder {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	},
	FormatJSON: func() zapcore.Encoder {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(cfg)
	},
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	b, err := strconv.ParseBool(env(key, strconv.FormatBool(def)))
	if err != nil {
		return def
	}
	return b
}
