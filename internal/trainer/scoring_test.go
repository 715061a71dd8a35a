package trainer

import (
	"context"
	"errors"
	"testing"

	"github.com/park285/chess-guess-trainer/internal/chess"
	"github.com/park285/chess-guess-trainer/internal/domain"
)

const foolsMateSetup = "rnbqkbnr/pppp1ppp/8/4p3/6P1/5P2/PPPPP2P/RNBQKBNR b KQkq g3 0 2"

// fakeEngine returns fixed white-relative evaluations keyed by move.
type fakeEngine struct {
	evals map[string]chess.Evaluation
	top   []chess.MoveSuggestion
	err   error
	calls int
}

func (f *fakeEngine) Evaluate(_ context.Context, _ string, uci string) (chess.Evaluation, error) {
	f.calls++
	if f.err != nil {
		return chess.Evaluation{}, f.err
	}
	if ev, ok := f.evals[uci]; ok {
		return ev, nil
	}
	return chess.Neutral(), nil
}

func (f *fakeEngine) TopMoves(_ context.Context, _ string, _ int) ([]chess.MoveSuggestion, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.top, nil
}

func cp(v int) chess.Evaluation   { return chess.Evaluation{Kind: chess.Centipawn, Value: v} }
func mate(n int) chess.Evaluation { return chess.Evaluation{Kind: chess.Mate, Value: n} }

func TestGradeCentipawnBoundaries(t *testing.T) {
	cases := []struct {
		diff   int
		tier   Tier
		points int
	}{
		{50, TierBetter, 20},
		{10, TierBetter, 20},
		{9, TierNearEqual, 15},
		{-10, TierNearEqual, 15},
		{-11, TierGoodAlternative, 10},
		{-50, TierGoodAlternative, 10},
		{-51, TierAcceptable, 5},
		{-100, TierAcceptable, 5},
		{-101, TierInferior, 0},
		{-200, TierInferior, 0},
		{-201, TierBlunder, -10},
	}
	for _, c := range cases {
		o := Grade(cp(100+c.diff), cp(100), false)
		if o.Tier != c.tier || o.Base != c.points {
			t.Errorf("diff %d: got %s/%d, want %s/%d", c.diff, o.Tier, o.Base, c.tier, c.points)
		}
	}
}

func TestGradeIsMonotonicInDiff(t *testing.T) {
	prev := Grade(cp(-1000), cp(0), false).Base
	for d := -999; d <= 300; d++ {
		got := Grade(cp(d), cp(0), false).Base
		if got < prev {
			t.Fatalf("points dropped from %d to %d at diff %d", prev, got, d)
		}
		prev = got
	}
}

func TestGradeExactMove(t *testing.T) {
	if o := Grade(cp(30), cp(30), true); o.Points() != 10 || o.Tier != TierExact {
		t.Fatalf("plain exact = %+v", o)
	}
	if o := Grade(cp(250), cp(250), true); o.Points() != 15 {
		t.Fatalf("strong exact = %d", o.Points())
	}
	if o := Grade(cp(199), cp(199), true); o.Points() != 10 {
		t.Fatalf("199cp should not earn the strong bonus, got %d", o.Points())
	}
	if o := Grade(mate(3), mate(3), true); o.Points() != 20 {
		t.Fatalf("exact mating move = %d", o.Points())
	}
	if o := Grade(mate(-3), mate(-3), true); o.Points() != 10 {
		t.Fatalf("being mated is no bonus, got %d", o.Points())
	}
}

func TestGradeMateBranches(t *testing.T) {
	cases := []struct {
		name      string
		sub, hist chess.Evaluation
		tier      Tier
		points    int
	}{
		{"found", mate(4), cp(300), TierMateFound, 20},
		{"faster", mate(2), mate(4), TierMateFaster, 15},
		{"equal", mate(3), mate(3), TierMateFaster, 15},
		{"slower", mate(5), mate(2), TierMateSlower, 5},
		{"missed", cp(900), mate(2), TierMissedMate, -5},
		{"walks into mate", mate(-2), cp(0), TierBlunder, -10},
		{"both mated, slower is near equal", mate(-5), mate(-2), TierNearEqual, 15},
	}
	for _, c := range cases {
		o := Grade(c.sub, c.hist, false)
		if o.Tier != c.tier || o.Base != c.points {
			t.Errorf("%s: got %s/%d, want %s/%d", c.name, o.Tier, o.Base, c.tier, c.points)
		}
	}
}

func TestScoreMoveNormalizesForBlack(t *testing.T) {
	b := mustBoard(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1")
	eng := &fakeEngine{evals: map[string]chess.Evaluation{
		"e7e5": cp(-50),
		"c7c5": cp(-40),
	}}
	o, err := ScoreMove(context.Background(), eng, b, "c7c5", "e7e5", domain.Black)
	if err != nil {
		t.Fatalf("ScoreMove: %v", err)
	}
	if o.Tier != TierNearEqual {
		t.Fatalf("tier = %s (sub %+v hist %+v)", o.Tier, o.Submitted, o.Historical)
	}
	if o.Historical.Value != 50 {
		t.Fatalf("historical not normalized: %+v", o.Historical)
	}
}

func TestScoreMoveCheckmateBonusOnEveryBranch(t *testing.T) {
	b := mustBoard(t, foolsMateSetup)
	eng := &fakeEngine{evals: map[string]chess.Evaluation{
		"d8h4": mate(0),
		"g8f6": cp(-20),
	}}
	o, err := ScoreMove(context.Background(), eng, b, "d8h4", "g8f6", domain.Black)
	if err != nil {
		t.Fatalf("ScoreMove: %v", err)
	}
	if o.Tier != TierMateFound || o.CheckmateBonus != CheckmateBonus || o.Points() != 40 {
		t.Fatalf("unexpected outcome %+v", o)
	}

	exact, err := ScoreMove(context.Background(), eng, b, "d8h4", "d8h4", domain.Black)
	if err != nil {
		t.Fatalf("ScoreMove exact: %v", err)
	}
	if exact.Points() != 40 {
		t.Fatalf("exact mate = %d, want 10+10+20", exact.Points())
	}
	if eng.calls != 3 {
		t.Fatalf("exact move should be evaluated once, calls = %d", eng.calls)
	}
}

func TestScoreMoveEngineFailureIsUnscored(t *testing.T) {
	eng := &fakeEngine{err: errors.New("stockfish crashed")}
	b := chess.NewBoard()

	o, err := ScoreMove(context.Background(), eng, b, "e2e4", "e2e4", domain.White)
	if err != nil {
		t.Fatalf("engine failure must not abort scoring: %v", err)
	}
	if !o.Unscored || o.Points() != exactPoints {
		t.Fatalf("exact unscored = %+v", o)
	}

	o, err = ScoreMove(context.Background(), eng, b, "d2d4", "e2e4", domain.White)
	if err != nil {
		t.Fatalf("ScoreMove: %v", err)
	}
	if !o.Unscored || o.Points() != 0 || o.Tier != TierUnscored {
		t.Fatalf("wrong unscored = %+v", o)
	}

	mb := mustBoard(t, foolsMateSetup)
	o, _ = ScoreMove(context.Background(), eng, mb, "d8h4", "g8f6", domain.Black)
	if o.CheckmateBonus != CheckmateBonus {
		t.Fatalf("checkmate bonus needs no engine, got %+v", o)
	}
}
