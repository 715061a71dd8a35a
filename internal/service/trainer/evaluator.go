package trainer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"go.uber.org/zap"

	corechess "github.com/park285/chess-guess-trainer/internal/chess"
	"github.com/park285/chess-guess-trainer/internal/service/cache"
	coretrainer "github.com/park285/chess-guess-trainer/internal/trainer"
)

const (
	evalKeyPrefix = "trainer:eval:"
	topKeyPrefix  = "trainer:top:"
)

// CachedEvaluator serves evaluations from Redis before asking the engine.
// Cache failures fall through to the engine; engine errors are never cached.
type CachedEvaluator struct {
	inner  coretrainer.Evaluator
	cache  *cache.CacheService
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedEvaluator(inner coretrainer.Evaluator, c *cache.CacheService, ttl time.Duration, logger *zap.Logger) *CachedEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEvaluator{inner: inner, cache: c, ttl: ttl, logger: logger}
}

func (c *CachedEvaluator) Evaluate(ctx context.Context, fen, moveUCI string) (corechess.Evaluation, error) {
	key := evalKeyPrefix + digest(fen, moveUCI)
	var cached corechess.Evaluation
	if c.lookup(ctx, key, &cached) {
		return cached, nil
	}
	ev, err := c.inner.Evaluate(ctx, fen, moveUCI)
	if err != nil {
		return ev, err
	}
	c.store(ctx, key, ev)
	return ev, nil
}

func (c *CachedEvaluator) TopMoves(ctx context.Context, fen string, k int) ([]corechess.MoveSuggestion, error) {
	key := topKeyPrefix + digest(fen, strconv.Itoa(k))
	var cached []corechess.MoveSuggestion
	if c.lookup(ctx, key, &cached) {
		return cached, nil
	}
	moves, err := c.inner.TopMoves(ctx, fen, k)
	if err != nil {
		return moves, err
	}
	c.store(ctx, key, moves)
	return moves, nil
}

func (c *CachedEvaluator) lookup(ctx context.Context, key string, dest any) bool {
	if c.cache == nil {
		return false
	}
	found, err := c.cache.Get(ctx, key, dest)
	if err != nil {
		c.logger.Warn("eval_cache_get_failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return found
}

func (c *CachedEvaluator) store(ctx context.Context, key string, v any) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, v, c.ttl); err != nil {
		c.logger.Warn("eval_cache_set_failed", zap.String("key", key), zap.Error(err))
	}
}

func digest(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
