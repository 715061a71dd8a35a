package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	HTTPAddr string

	StockfishPath    string
	EngineDepth      int
	EngineMoveTimeMS int
	EngineThreads    int
	EngineHashMB     int
	EnginePoolSize   int
	EngineTimeout    time.Duration
	TopMoves         int

	RedisURL     string
	EvalCacheTTL time.Duration
	DatabaseURL  string

	SessionTTL   time.Duration
	SessionSweep time.Duration

	GamesDir     string
	VariantsFile string
	MessagesDir  string
	MoveLocale   string
	PerMoveCap   int
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:      ":8080",
		EngineDepth:   15,
		EngineThreads: 1,
		EngineHashMB:  64,
		EngineTimeout: 8 * time.Second,
		TopMoves:      3,
		EvalCacheTTL:  24 * time.Hour,
		SessionTTL:    time.Hour,
		SessionSweep:  time.Minute,
		GamesDir:      "games",
		MoveLocale:    "fr",
		PerMoveCap:    15,
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}

	// Engine
	cfg.StockfishPath = strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))
	positiveInt("ENGINE_DEPTH", &cfg.EngineDepth)
	positiveInt("ENGINE_MOVETIME_MS", &cfg.EngineMoveTimeMS)
	positiveInt("ENGINE_THREADS", &cfg.EngineThreads)
	positiveInt("ENGINE_HASH_MB", &cfg.EngineHashMB)
	positiveInt("ENGINE_POOL_SIZE", &cfg.EnginePoolSize)
	positiveSeconds("ENGINE_TIMEOUT_SEC", &cfg.EngineTimeout)
	positiveInt("TOP_MOVES", &cfg.TopMoves)

	// Storage
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	positiveSeconds("EVAL_CACHE_TTL_SEC", &cfg.EvalCacheTTL)
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	// Sessions
	positiveSeconds("SESSION_TTL_SEC", &cfg.SessionTTL)
	positiveSeconds("SESSION_SWEEP_SEC", &cfg.SessionSweep)

	if v := strings.TrimSpace(os.Getenv("GAMES_DIR")); v != "" {
		cfg.GamesDir = v
	}
	cfg.VariantsFile = strings.TrimSpace(os.Getenv("VARIANTS_FILE"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("MOVE_LOCALE"))); v != "" {
		cfg.MoveLocale = v
	}
	positiveInt("PER_MOVE_CAP", &cfg.PerMoveCap)

	if cfg.StockfishPath == "" {
		return nil, errors.New("STOCKFISH_PATH is required")
	}
	switch cfg.MoveLocale {
	case "en", "fr", "de", "es":
	default:
		return nil, errors.New("MOVE_LOCALE must be one of en, fr, de, es")
	}

	return cfg, nil
}

func positiveInt(key string, dst *int) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}

func positiveSeconds(key string, dst *time.Duration) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = time.Duration(n) * time.Second
		}
	}
}
