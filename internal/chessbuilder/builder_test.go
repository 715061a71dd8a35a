package chessbuilder

import (
	"context"
	"testing"

	"github.com/park285/chess-guess-trainer/internal/config"
)

func TestNewRequiresConfig(t *testing.T) {
	if _, err := New(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
	if _, err := New(context.Background(), &config.AppConfig{}, nil); err == nil {
		t.Fatalf("expected error without STOCKFISH_PATH")
	}
}

func TestDepsCloseIsSafeWhenEmpty(t *testing.T) {
	if err := (&Deps{}).Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
