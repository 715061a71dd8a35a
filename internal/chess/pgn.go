package chess

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"gopkg.in/yaml.v3"

	"github.com/park285/chess-guess-trainer/internal/domain"
)

// LoadPGN reads the first game of a PGN stream.
func LoadPGN(r io.Reader) (*domain.HistoricalGame, error) {
	opt, err := nchess.PGN(r)
	if err != nil {
		return nil, fmt.Errorf("parse pgn: %w", err)
	}
	game := nchess.NewGame(opt)

	moves := game.Moves()
	positions := game.Positions()
	if len(moves) == 0 {
		return nil, fmt.Errorf("parse pgn: game has no moves")
	}
	if len(positions) < len(moves) {
		return nil, fmt.Errorf("parse pgn: %d positions for %d moves", len(positions), len(moves))
	}

	plies := make([]string, len(moves))
	comments := make([]string, len(moves))
	for i, mv := range moves {
		plies[i] = strings.ToLower(nchess.UCINotation{}.Encode(positions[i], mv))
		comments[i] = cleanComment(mv.Comments())
	}

	return &domain.HistoricalGame{
		Event:    game.GetTagPair("Event"),
		Date:     game.GetTagPair("Date"),
		White:    game.GetTagPair("White"),
		Black:    game.GetTagPair("Black"),
		Result:   game.GetTagPair("Result"),
		StartFEN: game.GetTagPair("FEN"),
		Plies:    plies,
		Comments: comments,
	}, nil
}

// cleanComment collapses the line breaks a PGN comment may span. A comment
// placed before the first move hangs off the root and never reaches here.
func cleanComment(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

type yamlGame struct {
	ID       string   `yaml:"id"`
	Event    string   `yaml:"event"`
	Date     string   `yaml:"date"`
	White    string   `yaml:"white"`
	Black    string   `yaml:"black"`
	Result   string   `yaml:"result"`
	StartFEN string   `yaml:"start_fen"`
	Moves    []string `yaml:"moves"`
	Comments []string `yaml:"comments"`
}

var uciSyntax = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][qrbn]?$`)

// LoadYAMLGame reads a game written as a move list. Moves may be SAN or UCI;
// each one is checked against the position it is played from.
func LoadYAMLGame(r io.Reader) (*domain.HistoricalGame, error) {
	var doc yamlGame
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode game yaml: %w", err)
	}
	if len(doc.Moves) == 0 {
		return nil, fmt.Errorf("decode game yaml: no moves")
	}
	if len(doc.Comments) > len(doc.Moves) {
		return nil, fmt.Errorf("decode game yaml: %d comments for %d moves", len(doc.Comments), len(doc.Moves))
	}

	board, err := BoardFromFEN(doc.StartFEN)
	if err != nil {
		return nil, err
	}
	plies := make([]string, 0, len(doc.Moves))
	for i, raw := range doc.Moves {
		mv := strings.TrimSpace(raw)
		uci := strings.ToLower(mv)
		if !uciSyntax.MatchString(uci) {
			if uci, err = board.UCIFromSAN(mv); err != nil {
				return nil, fmt.Errorf("move %d %q: %w", i+1, raw, err)
			}
		}
		if _, err := board.Apply(uci); err != nil {
			return nil, fmt.Errorf("move %d %q: %w", i+1, raw, err)
		}
		plies = append(plies, uci)
	}

	comments := make([]string, len(plies))
	copy(comments, doc.Comments)

	return &domain.HistoricalGame{
		ID:       doc.ID,
		Event:    doc.Event,
		Date:     doc.Date,
		White:    doc.White,
		Black:    doc.Black,
		Result:   doc.Result,
		StartFEN: strings.TrimSpace(doc.StartFEN),
		Plies:    plies,
		Comments: comments,
	}, nil
}
