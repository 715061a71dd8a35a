package domain

import (
	"fmt"
	"strings"
	"time"
)

type Side string

const (
	White Side = "white"
	Black Side = "black"
)

// ParseSide accepts white/black and their one-letter forms.
func ParseSide(raw string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	default:
		return "", fmt.Errorf("unknown side %q", raw)
	}
}

func (s Side) Opponent() Side {
	if s == White {
		return Black
	}
	return White
}

// HistoricalGame is a recorded game replayed by a training session.
// Plies are UCI moves in turn order; Comments is aligned one-to-one with Plies
// and may be shorter, missing entries meaning "no comment".
type HistoricalGame struct {
	ID       string
	Event    string
	Date     string
	White    string
	Black    string
	Result   string
	StartFEN string
	Plies    []string
	Comments []string
}

// FirstMover is the side to move in StartFEN, White for the standard start.
func (g *HistoricalGame) FirstMover() Side {
	if g != nil {
		if f := strings.Fields(g.StartFEN); len(f) > 1 && f[1] == "b" {
			return Black
		}
	}
	return White
}

// Offset is the index of side's first ply in Plies.
func (g *HistoricalGame) Offset(side Side) int {
	if g.FirstMover() == side {
		return 0
	}
	return 1
}

// UserPlies is the number of plies side plays in the game.
func (g *HistoricalGame) UserPlies(side Side) int {
	if g == nil {
		return 0
	}
	n := len(g.Plies) - g.Offset(side)
	if n <= 0 {
		return 0
	}
	return (n + 1) / 2
}

// Comment returns the comment attached to ply index i, or "".
func (g *HistoricalGame) Comment(i int) string {
	if g == nil || i < 0 || i >= len(g.Comments) {
		return ""
	}
	return g.Comments[i]
}

type TrainingResult struct {
	ID          int64
	SessionUUID string
	PlayerHash  string
	GameID      string
	Side        Side
	Variant     string
	Score       int
	MaxScore    int
	Percentage  float64
	UserPlies   int
	Correct     int
	Unscored    int
	StartedAt   time.Time
	EndedAt     time.Time
	Duration    time.Duration
}
