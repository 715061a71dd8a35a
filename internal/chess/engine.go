package chess

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-guess-trainer/internal/chess/uci"
	"github.com/park285/chess-guess-trainer/internal/domain"
	"github.com/park285/chess-guess-trainer/internal/obslog"
)

// ErrEngineUnavailable wraps every failure that comes from the engine
// process rather than from the position itself.
var ErrEngineUnavailable = errors.New("engine unavailable")

// MoveSuggestion is one line of the engine's top moves for a position.
type MoveSuggestion struct {
	UCI              string     `json:"uci"`
	SAN              string     `json:"san"`
	Eval             Evaluation `json:"evaluation"`
	Display          string     `json:"display_score"`
	RelativeStrength float64    `json:"relative_strength"`
}

type Engine struct {
	pool *uci.Pool
	cfg  EngineConfig
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	cfg = cfg.withDefaults()
	pool, err := uci.NewPool(uci.PoolConfig{
		BinaryPath:         cfg.BinaryPath,
		PerOptionsCapacity: cfg.PoolSize,
	})
	if err != nil {
		return nil, err
	}
	return &Engine{pool: pool, cfg: cfg}, nil
}

// Evaluate scores the position reached by playing moveUCI from fen.
// The result is from white's perspective.
func (e *Engine) Evaluate(ctx context.Context, fen, moveUCI string) (Evaluation, error) {
	board, err := BoardFromFEN(fen)
	if err != nil {
		return Evaluation{}, err
	}
	mover := board.Turn()
	if _, err := board.Apply(moveUCI); err != nil {
		return Evaluation{}, err
	}
	switch checkmate, stalemate := board.Terminal(); {
	case checkmate:
		return Evaluation{Kind: Mate, Value: 0}, nil
	case stalemate:
		return Neutral(), nil
	}

	resp, err := e.search(ctx, e.cfg.options(1), uci.SearchRequest{
		FEN:    fen,
		Moves:  []string{strings.ToLower(moveUCI)},
		Limits: e.cfg.limits(),
	})
	if err != nil {
		return Evaluation{}, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].ScoreKind == "" {
		return Evaluation{}, fmt.Errorf("%w: no score for %s", ErrEngineUnavailable, moveUCI)
	}
	best := resp.Candidates[0]
	return fromEngineScore(best.ScoreKind, best.ScoreValue, mover.Opponent()), nil
}

// TopMoves returns up to k engine lines for fen, best first. Lines whose
// move is not legal in fen are dropped.
func (e *Engine) TopMoves(ctx context.Context, fen string, k int) ([]MoveSuggestion, error) {
	if k <= 0 {
		k = e.cfg.TopMoves
	}
	board, err := BoardFromFEN(fen)
	if err != nil {
		return nil, err
	}
	if checkmate, stalemate := board.Terminal(); checkmate || stalemate {
		return nil, nil
	}
	mover := board.Turn()

	resp, err := e.search(ctx, e.cfg.options(k), uci.SearchRequest{
		FEN:    fen,
		Limits: e.cfg.limits(),
	})
	if err != nil {
		return nil, err
	}

	out := make([]MoveSuggestion, 0, len(resp.Candidates))
	for _, cand := range resp.Candidates {
		if cand.Move == "" || cand.ScoreKind == "" {
			continue
		}
		san, err := board.SAN(cand.Move)
		if err != nil {
			obslog.L().Debug("engine_suggestion_dropped", zap.String("move", cand.Move), zap.String("fen", fen))
			continue
		}
		ev := fromEngineScore(cand.ScoreKind, cand.ScoreValue, mover)
		out = append(out, MoveSuggestion{
			UCI:     strings.ToLower(cand.Move),
			SAN:     san,
			Eval:    ev,
			Display: ev.Display(),
		})
		if len(out) == k {
			break
		}
	}
	applyRelativeStrength(out, mover)
	return out, nil
}

func (e *Engine) Close() error {
	if e.pool == nil {
		return nil
	}
	return e.pool.Close()
}

func (e *Engine) search(ctx context.Context, opt uci.Options, req uci.SearchRequest) (uci.SearchResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	start := time.Now()
	session, err := e.pool.Acquire(ctx, opt)
	if err != nil {
		return uci.SearchResponse{}, fmt.Errorf("%w: acquire: %v", ErrEngineUnavailable, err)
	}
	var releaseErr error
	defer func() {
		e.pool.Release(session, releaseErr)
	}()

	if err := session.NewGame(ctx); err != nil {
		releaseErr = err
		return uci.SearchResponse{}, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	resp, err := session.Search(ctx, req)
	if err != nil {
		releaseErr = err
		return uci.SearchResponse{}, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	obslog.L().Debug("engine_search",
		zap.String("fen", req.FEN),
		zap.Strings("moves", req.Moves),
		zap.Int("multipv", opt.MultiPV),
		zap.Int("lines", len(resp.Candidates)),
		zap.Duration("took", time.Since(start)))
	return resp, nil
}

// applyRelativeStrength rates each line against the first one, from the
// mover's point of view.
func applyRelativeStrength(moves []MoveSuggestion, mover domain.Side) {
	if len(moves) == 0 {
		return
	}
	best := Normalize(moves[0].Eval, mover)
	for i := range moves {
		ev := Normalize(moves[i].Eval, mover)
		switch {
		case !best.IsMate() && !ev.IsMate():
			diff := math.Abs(float64(ev.Value - best.Value))
			moves[i].RelativeStrength = math.Max(0, 100-diff/2)
		case !best.IsMate():
			if ev.MoverMates() {
				moves[i].RelativeStrength = 100
			} else {
				moves[i].RelativeStrength = 0
			}
		case ev.IsMate():
			moves[i].RelativeStrength = 100 - float64(ev.MateDistance()-1)*10
		default:
			moves[i].RelativeStrength = 50
		}
	}
}
