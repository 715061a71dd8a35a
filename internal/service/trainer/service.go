package trainer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-guess-trainer/internal/domain"
	"github.com/park285/chess-guess-trainer/internal/registry"
	coretrainer "github.com/park285/chess-guess-trainer/internal/trainer"
)

// ErrBadRequest marks caller input the service cannot act on.
var ErrBadRequest = errors.New("bad training request")

type Config struct {
	SessionTTL   time.Duration
	SessionSweep time.Duration
	PerMoveCap   int
	TopMoves     int
	MoveLocale   string
	Variants     *coretrainer.Variants
	Now          func() time.Time
}

type StartRequest struct {
	GameID  string
	Side    string
	Variant string
	Player  string
}

// SessionView is what callers see of a live session.
type SessionView struct {
	ID    string
	Game  GameSummary
	State coretrainer.State
}

type liveSession struct {
	session    *coretrainer.Session
	game       GameSummary
	playerHash string
	persisted  bool
}

type Service struct {
	library   *Library
	engine    coretrainer.Evaluator
	repo      Repository
	msgs      coretrainer.Messages
	validator *coretrainer.Validator
	variants  *coretrainer.Variants
	sessions  *registry.Registry[*liveSession]
	cfg       Config
	logger    *zap.Logger
}

func NewService(library *Library, engine coretrainer.Evaluator, repo Repository, msgs coretrainer.Messages, cfg Config, logger *zap.Logger) (*Service, error) {
	if library == nil {
		return nil, fmt.Errorf("nil game library")
	}
	if msgs == nil {
		return nil, fmt.Errorf("nil message catalog")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if repo == nil {
		repo = NewMemoryRepository()
	}
	if cfg.Variants == nil {
		cfg.Variants = coretrainer.DefaultVariants()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.SessionSweep <= 0 {
		cfg.SessionSweep = time.Minute
	}
	locale := cfg.MoveLocale
	if locale == "" {
		locale = "en"
	}
	validator, err := coretrainer.NewValidator(locale)
	if err != nil {
		return nil, err
	}

	s := &Service{
		library:   library,
		engine:    engine,
		repo:      repo,
		msgs:      msgs,
		validator: validator,
		variants:  cfg.Variants,
		cfg:       cfg,
		logger:    logger,
	}
	s.sessions = registry.New[*liveSession](cfg.SessionTTL, cfg.Now, logger)
	s.sessions.OnEvict = func(id string, ls *liveSession) {
		logger.Info("session_expired",
			zap.String("session_id", id),
			zap.String("game_id", ls.game.ID),
			zap.Int("cursor", ls.session.Cursor()))
	}
	return s, nil
}

func (s *Service) ListGames() []GameSummary { return s.library.List() }

func (s *Service) Variants() []string { return s.variants.Names() }

func (s *Service) ActiveSessions() int { return s.sessions.Len() }

// StartSession creates a session for the requested game and side.
func (s *Service) StartSession(ctx context.Context, req StartRequest) (*SessionView, error) {
	game, err := s.library.Get(req.GameID)
	if err != nil {
		return nil, err
	}
	side, err := domain.ParseSide(req.Side)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	variant, err := s.variants.Get(req.Variant)
	if err != nil {
		return nil, err
	}

	session, err := coretrainer.NewSession(ctx, game, side, coretrainer.SessionOptions{
		Variant:    variant,
		PerMoveCap: s.cfg.PerMoveCap,
		TopMoves:   s.cfg.TopMoves,
		Validator:  s.validator,
		Engine:     s.engine,
		Messages:   s.msgs,
		Now:        s.cfg.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	ls := &liveSession{
		session:    session,
		game:       s.library.summaries[game.ID],
		playerHash: playerHash(req.Player),
	}
	id := s.sessions.Create(ls)
	s.logger.Info("session_started",
		zap.String("session_id", id),
		zap.String("game_id", game.ID),
		zap.String("side", string(side)),
		zap.String("variant", variant.Name))
	return &SessionView{ID: id, Game: ls.game, State: session.State()}, nil
}

// Submit plays one guess. The finished session is stored once when its
// last ply settles.
func (s *Service) Submit(ctx context.Context, id, move string) (coretrainer.SubmitResult, error) {
	var res coretrainer.SubmitResult
	err := s.sessions.With(id, func(ls *liveSession) error {
		var err error
		res, err = ls.session.Submit(ctx, move)
		if err != nil {
			return err
		}
		if res.GameOver && !ls.persisted {
			ls.persisted = s.persist(ctx, id, ls)
		}
		return nil
	})
	return res, mapRegistryError(err)
}

func (s *Service) State(ctx context.Context, id string) (*SessionView, error) {
	var view *SessionView
	err := s.sessions.With(id, func(ls *liveSession) error {
		view = &SessionView{ID: id, Game: ls.game, State: ls.session.State()}
		return nil
	})
	if err != nil {
		return nil, mapRegistryError(err)
	}
	return view, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ls, err := s.sessions.Delete(id)
	if err != nil {
		return mapRegistryError(err)
	}
	s.logger.Info("session_deleted",
		zap.String("session_id", id),
		zap.String("game_id", ls.game.ID),
		zap.Bool("finished", ls.persisted))
	return nil
}

func (s *Service) History(ctx context.Context, player string, limit int) ([]*domain.TrainingResult, error) {
	hash := playerHash(player)
	if hash == "" {
		return nil, fmt.Errorf("%w: player required", ErrBadRequest)
	}
	return s.repo.RecentResults(ctx, hash, limit)
}

// Run sweeps idle sessions until ctx is done.
func (s *Service) Run(ctx context.Context) {
	s.sessions.Run(ctx, s.cfg.SessionSweep)
}

func (s *Service) persist(ctx context.Context, id string, ls *liveSession) bool {
	if ls.playerHash == "" {
		return true
	}
	summary := ls.session.Summary()
	summary.SessionUUID = id
	summary.PlayerHash = ls.playerHash
	if _, err := s.repo.InsertResult(ctx, &summary); err != nil && !errors.Is(err, ErrDuplicateResult) {
		s.logger.Warn("result_persist_failed", zap.String("session_id", id), zap.Error(err))
		return false
	}
	s.logger.Info("session_finished",
		zap.String("session_id", id),
		zap.String("game_id", summary.GameID),
		zap.Int("score", summary.Score),
		zap.Int("max_score", summary.MaxScore),
		zap.Duration("duration", summary.Duration))
	return true
}

func mapRegistryError(err error) error {
	if errors.Is(err, registry.ErrNotFound) {
		return coretrainer.ErrSessionNotFound
	}
	return err
}

func playerHash(player string) string {
	player = strings.TrimSpace(player)
	if player == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(player))
	return hex.EncodeToString(sum[:])
}
