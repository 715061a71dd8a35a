package trainer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	corechess "github.com/park285/chess-guess-trainer/internal/chess"
	"github.com/park285/chess-guess-trainer/internal/domain"
	coretrainer "github.com/park285/chess-guess-trainer/internal/trainer"
)

// GameSummary describes a game for listings. ECO and Opening are empty for
// games from a custom position.
type GameSummary struct {
	ID      string
	Event   string
	Date    string
	White   string
	Black   string
	Result  string
	Plies   int
	ECO     string
	Opening string
}

// Library is the read-only set of historical games offered for training.
type Library struct {
	games     map[string]*domain.HistoricalGame
	summaries map[string]GameSummary
	ids       []string
}

func NewLibrary(games ...*domain.HistoricalGame) *Library {
	l := &Library{
		games:     make(map[string]*domain.HistoricalGame, len(games)),
		summaries: make(map[string]GameSummary, len(games)),
	}
	for _, g := range games {
		if g == nil || g.ID == "" {
			continue
		}
		if _, dup := l.games[g.ID]; !dup {
			l.ids = append(l.ids, g.ID)
		}
		l.games[g.ID] = g
		l.summaries[g.ID] = summarize(g)
	}
	sort.Strings(l.ids)
	return l
}

// LoadLibrary reads every .pgn and .yaml/.yml file in dir. The file stem is
// the game id. Files that fail to parse are skipped with a warning.
func LoadLibrary(dir string, logger *zap.Logger) (*Library, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read games dir: %w", err)
	}
	var games []*domain.HistoricalGame
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		game, err := loadGameFile(path)
		if err != nil {
			logger.Warn("game_load_failed", zap.String("path", path), zap.Error(err))
			continue
		}
		if game != nil {
			games = append(games, game)
		}
	}
	lib := NewLibrary(games...)
	logger.Info("games_loaded", zap.String("dir", dir), zap.Int("count", len(lib.ids)))
	return lib, nil
}

func loadGameFile(path string) (*domain.HistoricalGame, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var load func(f *os.File) (*domain.HistoricalGame, error)
	switch ext {
	case ".pgn":
		load = func(f *os.File) (*domain.HistoricalGame, error) { return corechess.LoadPGN(f) }
	case ".yaml", ".yml":
		load = func(f *os.File) (*domain.HistoricalGame, error) { return corechess.LoadYAMLGame(f) }
	default:
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	game, err := load(f)
	if err != nil {
		return nil, err
	}
	game.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return game, nil
}

func (l *Library) Get(id string) (*domain.HistoricalGame, error) {
	g, ok := l.games[strings.TrimSpace(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", coretrainer.ErrUnknownGame, id)
	}
	return g, nil
}

func (l *Library) List() []GameSummary {
	out := make([]GameSummary, 0, len(l.ids))
	for _, id := range l.ids {
		out = append(out, l.summaries[id])
	}
	return out
}

func (l *Library) Len() int { return len(l.ids) }

func summarize(g *domain.HistoricalGame) GameSummary {
	eco, name := corechess.Opening(g.StartFEN, g.Plies)
	return GameSummary{
		ID:      g.ID,
		Event:   g.Event,
		Date:    g.Date,
		White:   g.White,
		Black:   g.Black,
		Result:  g.Result,
		Plies:   len(g.Plies),
		ECO:     eco,
		Opening: name,
	}
}
