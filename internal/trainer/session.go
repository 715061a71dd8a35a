package trainer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-guess-trainer/internal/chess"
	"github.com/park285/chess-guess-trainer/internal/domain"
	"github.com/park285/chess-guess-trainer/internal/obslog"
)

// Messages renders user-facing text by catalog key.
type Messages interface {
	Text(key string, data any) string
}

type Status string

const (
	StatusAdvanced Status = "advanced"
	StatusRetry    Status = "retry"
	StatusRejected Status = "rejected"
)

// SubmitResult is the outcome of one submitted guess. Moves are in SAN.
type SubmitResult struct {
	Status      Status
	Correct     bool
	ValidFormat bool
	Error       string

	SubmittedMove    string
	CorrectMove      string
	OpponentMove     string
	LastOpponentMove string
	Comment          string
	OpponentComment  string
	Hint             string
	IsPawnMove       bool
	MoveQuality      string

	BoardFEN        string
	Score           int
	ScorePercentage float64
	MaxScore        int
	PointsEarned    int
	IsCheckmate     bool
	CheckmateBonus  int
	Unscored        bool
	TimedOut        bool
	GameOver        bool

	BestMoves                 []chess.MoveSuggestion
	PreviousPositionBestMoves []chess.MoveSuggestion

	AttemptsUsed int
	AttemptsLeft int
	TimeLimit    time.Duration
	TimeLeft     time.Duration
}

// State is a read-only snapshot of a session.
type State struct {
	GameID           string
	Side             domain.Side
	Variant          string
	BoardFEN         string
	Cursor           int
	UserPlies        int
	Score            int
	MaxScore         int
	ScorePercentage  float64
	AttemptsUsed     int
	AttemptsLeft     int
	LastOpponentMove string
	OpponentComment  string
	Hint             string
	BestMoves        []chess.MoveSuggestion
	GameOver         bool
	TimeLimit        time.Duration
	TimeLeft         time.Duration
}

type SessionOptions struct {
	Variant    VariantConfig
	PerMoveCap int
	TopMoves   int
	Validator  *Validator
	Engine     Evaluator
	Messages   Messages
	Now        func() time.Time
}

const defaultPerMoveCap = 15

// Session replays one historical game for one side. It is not safe for
// concurrent use; callers serialize access per session.
type Session struct {
	game       *domain.HistoricalGame
	side       domain.Side
	variant    VariantConfig
	perMoveCap int
	topK       int
	validator  *Validator
	engine     Evaluator
	msgs       Messages
	now        func() time.Time

	board     *chess.Board
	offset    int
	userPlies int

	cursor           int
	score            int
	attempts         int
	hint             string
	plyStarted       time.Time
	lastOpponentMove string
	opponentComment  string
	bestMoves        []chess.MoveSuggestion

	correct   int
	unscored  int
	startedAt time.Time
	endedAt   time.Time
}

// NewSession sets up the board for side. When the user does not move
// first, the opponent's first recorded move is played immediately.
func NewSession(ctx context.Context, game *domain.HistoricalGame, side domain.Side, opts SessionOptions) (*Session, error) {
	if game == nil || len(game.Plies) == 0 {
		return nil, fmt.Errorf("game has no moves")
	}
	if side != domain.White && side != domain.Black {
		return nil, fmt.Errorf("unknown side %q", side)
	}
	if opts.Variant.Name == "" {
		opts.Variant, _ = Preset("classic")
	}
	if err := opts.Variant.Validate(); err != nil {
		return nil, err
	}
	if opts.Validator == nil {
		opts.Validator, _ = NewValidator("en")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Messages == nil {
		return nil, fmt.Errorf("messages required")
	}

	board, err := chess.BoardFromFEN(game.StartFEN)
	if err != nil {
		return nil, err
	}

	s := &Session{
		game:       game,
		side:       side,
		variant:    opts.Variant,
		perMoveCap: firstPositive(opts.Variant.PerMoveCap, opts.PerMoveCap, defaultPerMoveCap),
		topK:       opts.TopMoves,
		validator:  opts.Validator,
		engine:     opts.Engine,
		msgs:       opts.Messages,
		now:        opts.Now,
		board:      board,
	}
	s.offset = game.Offset(side)
	s.userPlies = game.UserPlies(side)
	if s.userPlies == 0 {
		return nil, fmt.Errorf("game has no moves for %s", side)
	}

	if s.offset == 1 {
		san, err := board.Apply(game.Plies[0])
		if err != nil {
			return nil, fmt.Errorf("opening move: %w", err)
		}
		s.lastOpponentMove = san
		s.opponentComment = game.Comment(0)
	}

	s.startedAt = s.now()
	s.bestMoves = s.topMoves(ctx)
	// the ply clock starts once suggestions are ready
	s.plyStarted = s.now()
	return s, nil
}

func (s *Session) GameID() string         { return s.game.ID }
func (s *Session) Side() domain.Side      { return s.side }
func (s *Session) Variant() VariantConfig { return s.variant }
func (s *Session) Cursor() int            { return s.cursor }
func (s *Session) Score() int             { return s.score }
func (s *Session) MaxScore() int          { return s.userPlies * s.perMoveCap }
func (s *Session) Over() bool             { return s.cursor >= s.userPlies }

// Percentage is score/max as a percentage with one decimal, clamped to [0, 100].
func (s *Session) Percentage() float64 {
	limit := s.MaxScore()
	if limit <= 0 {
		return 0
	}
	p := math.Round(float64(s.score)/float64(limit)*1000) / 10
	return math.Min(100, math.Max(0, p))
}

func (s *Session) plyIndex() int { return s.cursor*2 + s.offset }

// Submit processes one guess for the current ply.
func (s *Session) Submit(ctx context.Context, raw string) (SubmitResult, error) {
	if s.Over() {
		return SubmitResult{}, ErrGameComplete
	}

	vm, err := s.validator.Validate(s.board, raw)
	if err != nil {
		return s.rejected(err), nil
	}

	ply := s.plyIndex()
	historical := s.game.Plies[ply]
	historicalSAN, err := s.board.SAN(historical)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("historical ply %d: %w", ply, err)
	}
	correct := vm.UCI == historical

	outcome, err := ScoreMove(ctx, s.engine, s.board, vm.UCI, historical, s.side)
	if err != nil {
		return SubmitResult{}, err
	}

	s.attempts++
	if !correct && s.attempts < s.variant.AttemptsPerMove {
		return s.retry(vm, historicalSAN, historical), nil
	}
	return s.advance(ctx, vm, outcome, historical, historicalSAN)
}

func (s *Session) rejected(err error) SubmitResult {
	key := "rejected.illegal"
	if errors.Is(err, ErrInputFormat) {
		key = "rejected.format"
	}
	res := s.baseResult()
	res.Status = StatusRejected
	res.ValidFormat = !errors.Is(err, ErrInputFormat)
	res.Error = s.msgs.Text(key, nil)
	res.Hint = s.hint
	return res
}

func (s *Session) retry(vm ValidatedMove, historicalSAN, historical string) SubmitResult {
	res := s.baseResult()
	res.Status = StatusRetry
	res.ValidFormat = true
	res.SubmittedMove = vm.SAN
	res.IsPawnMove = chess.IsPawnSAN(historicalSAN)

	parts := []string{s.msgs.Text("variant.retry", map[string]any{"AttemptsLeft": s.variant.AttemptsPerMove - s.attempts})}
	if level := s.variant.hintLevel(s.attempts); level > 0 {
		prev := s.variant.hintLevel(s.attempts - 1)
		s.hint = hintText(s.msgs, level, historicalSAN, historical)
		if level > prev && s.variant.HintCost > 0 {
			s.score -= s.variant.HintCost
			res.PointsEarned = -s.variant.HintCost
			parts = append(parts, s.msgs.Text("variant.hint_cost", map[string]any{"Cost": -s.variant.HintCost}))
		}
		parts = append(parts, " "+s.hint)
	}
	res.MoveQuality = strings.Join(parts, "")
	res.Hint = s.hint
	res.Score = s.score
	res.ScorePercentage = s.Percentage()
	return res
}

func (s *Session) advance(ctx context.Context, vm ValidatedMove, outcome Outcome, historical, historicalSAN string) (SubmitResult, error) {
	now := s.now()
	correct := vm.UCI == historical
	ply := s.plyIndex()
	attempt := s.attempts
	settled := s.variant.Settle(outcome, attempt, now.Sub(s.plyStarted))
	previousBest := s.bestMoves

	if _, err := s.board.Apply(historical); err != nil {
		return SubmitResult{}, fmt.Errorf("historical ply %d: %w", ply, err)
	}
	s.score += settled.Points

	var opponentMove string
	s.opponentComment = ""
	if next := ply + 1; next < len(s.game.Plies) {
		san, err := s.board.Apply(s.game.Plies[next])
		if err != nil {
			return SubmitResult{}, fmt.Errorf("opponent ply %d: %w", next, err)
		}
		opponentMove = san
		s.lastOpponentMove = san
		s.opponentComment = s.game.Comment(next)
	}

	s.cursor++
	s.attempts = 0
	s.hint = ""
	if correct {
		s.correct++
	}
	if outcome.Unscored {
		s.unscored++
	}
	if s.Over() {
		s.endedAt = now
		s.bestMoves = nil
	} else {
		s.bestMoves = s.topMoves(ctx)
	}
	s.plyStarted = s.now()

	pawn := chess.IsPawnSAN(historicalSAN)
	res := s.baseResult()
	res.Status = StatusAdvanced
	res.Correct = correct
	res.ValidFormat = true
	res.SubmittedMove = vm.SAN
	res.CorrectMove = historicalSAN
	res.OpponentMove = opponentMove
	res.Comment = s.game.Comment(ply)
	res.IsPawnMove = pawn
	res.MoveQuality = s.render(settled.Notes)
	res.PointsEarned = settled.Points
	res.IsCheckmate = outcome.CheckmateBonus > 0
	res.CheckmateBonus = settled.CheckmateBonus
	res.Unscored = outcome.Unscored
	res.TimedOut = settled.TimedOut
	res.PreviousPositionBestMoves = previousBest
	res.AttemptsUsed = attempt
	if !correct {
		res.Hint = entryHint(s.msgs, pawn)
	}

	obslog.L().Debug("ply_settled",
		zap.String("game", s.game.ID),
		zap.Int("ply", ply),
		zap.Bool("correct", correct),
		zap.String("tier", string(outcome.Tier)),
		zap.Int("points", settled.Points),
		zap.Int("score", s.score))
	return res, nil
}

// baseResult fills the fields every result shares from the current state.
func (s *Session) baseResult() SubmitResult {
	res := SubmitResult{
		BoardFEN:         s.board.FEN(),
		Score:            s.score,
		ScorePercentage:  s.Percentage(),
		MaxScore:         s.MaxScore(),
		LastOpponentMove: s.lastOpponentMove,
		OpponentComment:  s.opponentComment,
		GameOver:         s.Over(),
		BestMoves:        s.bestMoves,
		AttemptsUsed:     s.attempts,
		AttemptsLeft:     s.attemptsLeft(),
	}
	res.TimeLimit, res.TimeLeft = s.timer()
	return res
}

func (s *Session) attemptsLeft() int {
	if s.Over() {
		return 0
	}
	return s.variant.AttemptsPerMove - s.attempts
}

func (s *Session) timer() (limit, left time.Duration) {
	limit = s.variant.TimeLimit
	if limit <= 0 || s.Over() {
		return limit, 0
	}
	left = limit - s.now().Sub(s.plyStarted)
	if left < 0 {
		left = 0
	}
	return limit, left
}

func (s *Session) render(notes []Note) string {
	var b strings.Builder
	for _, n := range notes {
		b.WriteString(s.msgs.Text(n.Key, n.Data))
	}
	return b.String()
}

func (s *Session) topMoves(ctx context.Context) []chess.MoveSuggestion {
	if s.engine == nil {
		return nil
	}
	moves, err := s.engine.TopMoves(ctx, s.board.FEN(), s.topK)
	if err != nil {
		obslog.L().Warn("top_moves_failed", zap.String("fen", s.board.FEN()), zap.Error(err))
		return nil
	}
	return moves
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	st := State{
		GameID:           s.game.ID,
		Side:             s.side,
		Variant:          s.variant.Name,
		BoardFEN:         s.board.FEN(),
		Cursor:           s.cursor,
		UserPlies:        s.userPlies,
		Score:            s.score,
		MaxScore:         s.MaxScore(),
		ScorePercentage:  s.Percentage(),
		AttemptsUsed:     s.attempts,
		AttemptsLeft:     s.attemptsLeft(),
		LastOpponentMove: s.lastOpponentMove,
		OpponentComment:  s.opponentComment,
		Hint:             s.hint,
		BestMoves:        s.bestMoves,
		GameOver:         s.Over(),
	}
	st.TimeLimit, st.TimeLeft = s.timer()
	return st
}

// Summary describes a finished (or abandoned) session for storage.
func (s *Session) Summary() domain.TrainingResult {
	ended := s.endedAt
	if ended.IsZero() {
		ended = s.now()
	}
	return domain.TrainingResult{
		GameID:     s.game.ID,
		Side:       s.side,
		Variant:    s.variant.Name,
		Score:      s.score,
		MaxScore:   s.MaxScore(),
		Percentage: s.Percentage(),
		UserPlies:  s.userPlies,
		Correct:    s.correct,
		Unscored:   s.unscored,
		StartedAt:  s.startedAt,
		EndedAt:    ended,
		Duration:   ended.Sub(s.startedAt),
	}
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
