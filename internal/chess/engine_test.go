package chess

import (
	"testing"

	"github.com/park285/chess-guess-trainer/internal/domain"
)

func TestRelativeStrengthCentipawnLines(t *testing.T) {
	moves := []MoveSuggestion{
		{Eval: Evaluation{Kind: Centipawn, Value: 40}},
		{Eval: Evaluation{Kind: Centipawn, Value: 0}},
		{Eval: Evaluation{Kind: Centipawn, Value: -300}},
	}
	applyRelativeStrength(moves, domain.White)
	want := []float64{100, 80, 0}
	for i, w := range want {
		if moves[i].RelativeStrength != w {
			t.Fatalf("line %d strength = %v, want %v", i, moves[i].RelativeStrength, w)
		}
	}
}

func TestRelativeStrengthBlackPerspective(t *testing.T) {
	// values are white-relative; black is to move so -50 is the better line
	moves := []MoveSuggestion{
		{Eval: Evaluation{Kind: Centipawn, Value: -50}},
		{Eval: Evaluation{Kind: Centipawn, Value: -10}},
		{Eval: Evaluation{Kind: Mate, Value: -2}},
	}
	applyRelativeStrength(moves, domain.Black)
	if moves[1].RelativeStrength != 80 {
		t.Fatalf("strength = %v", moves[1].RelativeStrength)
	}
	if moves[2].RelativeStrength != 100 {
		t.Fatalf("mate for the mover should rate 100, got %v", moves[2].RelativeStrength)
	}
}

func TestRelativeStrengthMateBest(t *testing.T) {
	moves := []MoveSuggestion{
		{Eval: Evaluation{Kind: Mate, Value: 1}},
		{Eval: Evaluation{Kind: Mate, Value: 3}},
		{Eval: Evaluation{Kind: Centipawn, Value: 500}},
	}
	applyRelativeStrength(moves, domain.White)
	want := []float64{100, 80, 50}
	for i, w := range want {
		if moves[i].RelativeStrength != w {
			t.Fatalf("line %d strength = %v, want %v", i, moves[i].RelativeStrength, w)
		}
	}
}

func TestEngineConfigDefaults(t *testing.T) {
	cfg := EngineConfig{}.withDefaults()
	if cfg.Depth != defaultDepth || cfg.Threads != 1 || cfg.TopMoves != defaultTopMoves {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	timed := EngineConfig{MoveTimeMillis: 300}.withDefaults()
	if timed.Depth != 0 {
		t.Fatalf("movetime alone should not force a depth")
	}
	if got := cfg.options(0).MultiPV; got != 1 {
		t.Fatalf("multipv = %d", got)
	}
	if cfg.options(3).SkillLevel != fullStrength {
		t.Fatalf("analysis runs at full strength")
	}
}
