package trainer

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/park285/chess-guess-trainer/internal/service/cache"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func newCache(t *testing.T) (*cache.CacheService, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	c, err := cache.NewFromURL("redis://"+mr.Addr(), nil)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestCachedEvaluatorHitsCache(t *testing.T) {
	c, mr := newCache(t)
	inner := &countingEngine{}
	ev := NewCachedEvaluator(inner, c, time.Hour, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := ev.Evaluate(ctx, startFEN, "e2e4")
		if err != nil || got.Value != 25 {
			t.Fatalf("Evaluate: %+v %v", got, err)
		}
	}
	if inner.evalCalls != 1 {
		t.Fatalf("engine called %d times", inner.evalCalls)
	}
	if !mr.Exists(evalKeyPrefix + digest(startFEN, "e2e4")) {
		t.Fatalf("evaluation not cached under expected key")
	}

	for i := 0; i < 2; i++ {
		moves, err := ev.TopMoves(ctx, startFEN, 3)
		if err != nil || len(moves) != 1 || moves[0].SAN != "e4" || moves[0].RelativeStrength != 100 {
			t.Fatalf("TopMoves: %+v %v", moves, err)
		}
	}
	if inner.topCalls != 1 {
		t.Fatalf("top moves computed %d times", inner.topCalls)
	}
	if _, err := ev.TopMoves(ctx, startFEN, 5); err != nil || inner.topCalls != 2 {
		t.Fatalf("different k should miss the cache")
	}
}

func TestCachedEvaluatorDoesNotCacheErrors(t *testing.T) {
	c, mr := newCache(t)
	inner := &countingEngine{err: errors.New("engine crashed")}
	ev := NewCachedEvaluator(inner, c, time.Hour, nil)

	if _, err := ev.Evaluate(context.Background(), startFEN, "e2e4"); err == nil {
		t.Fatalf("expected engine error")
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("error result cached: %v", mr.Keys())
	}
}

func TestCachedEvaluatorSurvivesCacheOutage(t *testing.T) {
	c, mr := newCache(t)
	inner := &countingEngine{}
	ev := NewCachedEvaluator(inner, c, time.Hour, nil)
	mr.Close()

	got, err := ev.Evaluate(context.Background(), startFEN, "d2d4")
	if err != nil || got.Value != 25 || inner.evalCalls != 1 {
		t.Fatalf("Evaluate with cache down: %+v %v", got, err)
	}
}

func TestCachedEvaluatorWithoutCache(t *testing.T) {
	inner := &countingEngine{}
	ev := NewCachedEvaluator(inner, nil, time.Hour, nil)
	for i := 0; i < 2; i++ {
		if _, err := ev.Evaluate(context.Background(), startFEN, "e2e4"); err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
	}
	if inner.evalCalls != 2 {
		t.Fatalf("calls = %d", inner.evalCalls)
	}
}
