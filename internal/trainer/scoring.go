package trainer

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/park285/chess-guess-trainer/internal/chess"
	"github.com/park285/chess-guess-trainer/internal/domain"
	"github.com/park285/chess-guess-trainer/internal/obslog"
)

// Evaluator is the engine surface the trainer consumes. Evaluations are
// from white's perspective.
type Evaluator interface {
	Evaluate(ctx context.Context, fen, moveUCI string) (chess.Evaluation, error)
	TopMoves(ctx context.Context, fen string, k int) ([]chess.MoveSuggestion, error)
}

type Tier string

const (
	TierExact           Tier = "exact"
	TierMateFound       Tier = "mate_found"
	TierMateFaster      Tier = "mate_faster"
	TierMateSlower      Tier = "mate_slower"
	TierMissedMate      Tier = "missed_mate"
	TierBetter          Tier = "better"
	TierNearEqual       Tier = "near_equal"
	TierGoodAlternative Tier = "good_alternative"
	TierAcceptable      Tier = "acceptable"
	TierInferior        Tier = "inferior"
	TierBlunder         Tier = "blunder"
	TierUnscored        Tier = "unscored"
)

const (
	exactPoints      = 10
	exactMateBonus   = 10
	exactStrongBonus = 5
	strongThreshold  = 200

	CheckmateBonus = 20
)

// cpTiers is ordered by descending threshold; the first with diff >= min wins.
var cpTiers = []struct {
	min    int
	tier   Tier
	points int
}{
	{10, TierBetter, 20},
	{-10, TierNearEqual, 15},
	{-50, TierGoodAlternative, 10},
	{-100, TierAcceptable, 5},
	{-200, TierInferior, 0},
}

// Outcome is the raw scoring of one submitted move, before any variant rule.
// Evaluations are from the mover's perspective.
type Outcome struct {
	Tier           Tier
	Base           int
	Bonus          int
	CheckmateBonus int
	Submitted      chess.Evaluation
	Historical     chess.Evaluation
	Unscored       bool
}

func (o Outcome) Points() int { return o.Base + o.Bonus + o.CheckmateBonus }

// Exact reports whether the submitted move was the historical one.
func (o Outcome) Exact() bool { return o.Tier == TierExact }

// Grade compares two evaluations already normalized to the mover.
func Grade(submitted, historical chess.Evaluation, exact bool) Outcome {
	o := Outcome{Submitted: submitted, Historical: historical}
	if exact {
		o.Tier, o.Base = TierExact, exactPoints
		switch {
		case historical.MoverMates():
			o.Bonus = exactMateBonus
		case !historical.IsMate() && historical.Value >= strongThreshold:
			o.Bonus = exactStrongBonus
		}
		return o
	}

	subMates, histMates := submitted.MoverMates(), historical.MoverMates()
	switch {
	case subMates && !histMates:
		o.Tier, o.Base = TierMateFound, 20
	case subMates && histMates:
		if submitted.MateDistance() <= historical.MateDistance() {
			o.Tier, o.Base = TierMateFaster, 15
		} else {
			o.Tier, o.Base = TierMateSlower, 5
		}
	case histMates:
		o.Tier, o.Base = TierMissedMate, -5
	default:
		diff := submitted.Centipawns() - historical.Centipawns()
		o.Tier, o.Base = TierBlunder, -10
		for _, t := range cpTiers {
			if diff >= t.min {
				o.Tier, o.Base = t.tier, t.points
				break
			}
		}
	}
	return o
}

// ScoreMove evaluates both moves from the position on b and grades the
// submitted one. b is not modified. Any evaluator failure other than an
// illegal move yields an Unscored outcome that only carries points needing
// no evaluation.
func ScoreMove(ctx context.Context, ev Evaluator, b *chess.Board, submitted, historical string, side domain.Side) (Outcome, error) {
	mates, err := b.GivesCheckmate(submitted)
	if err != nil {
		return Outcome{}, err
	}
	exact := submitted == historical

	subEval, histEval, err := evaluatePair(ctx, ev, b.FEN(), submitted, historical)
	var o Outcome
	switch {
	case err == nil:
		o = Grade(chess.Normalize(subEval, side), chess.Normalize(histEval, side), exact)
	case errors.Is(err, ErrIllegalMove):
		return Outcome{}, err
	default:
		obslog.L().Warn("move_unscored",
			zap.String("fen", b.FEN()),
			zap.String("submitted", submitted),
			zap.Error(err))
		o = Outcome{Tier: TierUnscored, Submitted: chess.Neutral(), Historical: chess.Neutral(), Unscored: true}
		if exact {
			o.Tier, o.Base = TierExact, exactPoints
		}
	}
	if mates {
		o.CheckmateBonus = CheckmateBonus
	}
	return o, nil
}

func evaluatePair(ctx context.Context, ev Evaluator, fen, submitted, historical string) (chess.Evaluation, chess.Evaluation, error) {
	if ev == nil {
		return chess.Evaluation{}, chess.Evaluation{}, ErrEngineUnavailable
	}
	histEval, err := ev.Evaluate(ctx, fen, historical)
	if err != nil {
		return chess.Evaluation{}, chess.Evaluation{}, err
	}
	if submitted == historical {
		return histEval, histEval, nil
	}
	subEval, err := ev.Evaluate(ctx, fen, submitted)
	if err != nil {
		return chess.Evaluation{}, chess.Evaluation{}, err
	}
	return subEval, histEval, nil
}
