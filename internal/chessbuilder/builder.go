package chessbuilder

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	corechess "github.com/park285/chess-guess-trainer/internal/chess"
	"github.com/park285/chess-guess-trainer/internal/config"
	"github.com/park285/chess-guess-trainer/internal/msgcat"
	"github.com/park285/chess-guess-trainer/internal/service/cache"
	svctrainer "github.com/park285/chess-guess-trainer/internal/service/trainer"
	coretrainer "github.com/park285/chess-guess-trainer/internal/trainer"
)

type Deps struct {
	Service *svctrainer.Service
	Engine  *corechess.Engine
	Cache   *cache.CacheService
	Repo    svctrainer.Repository
	DB      *sql.DB
}

// Close releases the engine pool and storage connections.
func (d *Deps) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if d.Engine != nil {
		keep(d.Engine.Close())
	}
	if d.Cache != nil {
		keep(d.Cache.Close())
	}
	if d.DB != nil {
		keep(d.DB.Close())
	}
	return first
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.StockfishPath) == "" {
		return nil, fmt.Errorf("STOCKFISH_PATH is required for chess engine")
	}

	deps := &Deps{}
	fail := func(err error) (*Deps, error) {
		_ = deps.Close()
		return nil, err
	}

	// Engine
	engine, err := corechess.NewEngine(corechess.EngineConfig{
		BinaryPath:     cfg.StockfishPath,
		Depth:          cfg.EngineDepth,
		MoveTimeMillis: cfg.EngineMoveTimeMS,
		Threads:        cfg.EngineThreads,
		HashMB:         cfg.EngineHashMB,
		PoolSize:       cfg.EnginePoolSize,
		Timeout:        cfg.EngineTimeout,
		TopMoves:       cfg.TopMoves,
	})
	if err != nil {
		return fail(fmt.Errorf("init engine: %w", err))
	}
	deps.Engine = engine
	var evaluator coretrainer.Evaluator = engine

	// Cache (Redis optional)
	if strings.TrimSpace(cfg.RedisURL) != "" {
		cacheSvc, err := cache.NewFromURL(cfg.RedisURL, logger)
		if err != nil {
			return fail(fmt.Errorf("init cache: %w", err))
		}
		deps.Cache = cacheSvc
		evaluator = svctrainer.NewCachedEvaluator(engine, cacheSvc, cfg.EvalCacheTTL, logger)
	} else {
		logger.Info("eval_cache_disabled")
	}

	// Repository (Postgres optional)
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		db, err := openPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return fail(err)
		}
		deps.DB = db
		if err := svctrainer.EnsureSchema(ctx, db); err != nil {
			return fail(err)
		}
		deps.Repo = svctrainer.NewRepository(db)
	} else {
		logger.Warn("results_in_memory", zap.String("reason", "DATABASE_URL not set"))
		deps.Repo = svctrainer.NewMemoryRepository()
	}

	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return fail(fmt.Errorf("load messages: %w", err))
	}
	variants, err := coretrainer.LoadVariants(cfg.VariantsFile)
	if err != nil {
		return fail(err)
	}
	library, err := svctrainer.LoadLibrary(cfg.GamesDir, logger)
	if err != nil {
		return fail(err)
	}

	service, err := svctrainer.NewService(library, evaluator, deps.Repo, msgs, svctrainer.Config{
		SessionTTL:   cfg.SessionTTL,
		SessionSweep: cfg.SessionSweep,
		PerMoveCap:   cfg.PerMoveCap,
		TopMoves:     cfg.TopMoves,
		MoveLocale:   cfg.MoveLocale,
		Variants:     variants,
	}, logger)
	if err != nil {
		return fail(err)
	}
	deps.Service = service
	return deps, nil
}

func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	// basic pool settings
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
