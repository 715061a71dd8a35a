package chess

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/chess-guess-trainer/internal/domain"
)

var ErrIllegalMove = errors.New("illegal move")

// Board owns a position and its move history. All rule questions asked by
// the trainer go through it.
type Board struct {
	game *nchess.Game
}

func NewBoard() *Board {
	return &Board{game: nchess.NewGame()}
}

// BoardFromFEN starts from fen; a blank fen or "startpos" is the initial position.
func BoardFromFEN(fen string) (*Board, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		return NewBoard(), nil
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("decode fen: %w", err)
	}
	return &Board{game: nchess.NewGame(opt)}, nil
}

func (b *Board) FEN() string { return b.game.FEN() }

func (b *Board) Turn() domain.Side {
	if b.game.Position().Turn() == nchess.Black {
		return domain.Black
	}
	return domain.White
}

// Terminal reports whether the side to move is checkmated or stalemated.
func (b *Board) Terminal() (checkmate, stalemate bool) {
	switch b.game.Method() {
	case nchess.Checkmate:
		return true, false
	case nchess.Stalemate:
		return false, true
	}
	return false, false
}

// IsLegal reports whether uci is a legal move in the current position.
func (b *Board) IsLegal(uci string) bool {
	_, err := play(b.game.Clone(), uci)
	return err == nil
}

// SAN renders a legal UCI move in algebraic notation.
func (b *Board) SAN(uci string) (string, error) {
	return play(b.game.Clone(), uci)
}

// UCIFromSAN resolves an algebraic move against the current position.
func (b *Board) UCIFromSAN(san string) (string, error) {
	pos := b.game.Position()
	mv, err := nchess.AlgebraicNotation{}.Decode(pos, strings.TrimSpace(san))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrIllegalMove, san)
	}
	uci := strings.ToLower(nchess.UCINotation{}.Encode(pos, mv))
	if !b.IsLegal(uci) {
		return "", fmt.Errorf("%w: %s", ErrIllegalMove, san)
	}
	return uci, nil
}

// Apply plays uci on the board and returns its SAN.
func (b *Board) Apply(uci string) (string, error) {
	return play(b.game, uci)
}

// GivesCheckmate plays uci on a scratch copy; the board itself is untouched.
func (b *Board) GivesCheckmate(uci string) (bool, error) {
	scratch := b.game.Clone()
	if _, err := play(scratch, uci); err != nil {
		return false, err
	}
	return scratch.Method() == nchess.Checkmate, nil
}

func play(game *nchess.Game, uci string) (string, error) {
	pos := game.Position()
	mv, err := nchess.UCINotation{}.Decode(pos, strings.ToLower(strings.TrimSpace(uci)))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrIllegalMove, uci)
	}
	if err := game.Move(mv, nil); err != nil {
		return "", fmt.Errorf("%w: %s", ErrIllegalMove, uci)
	}
	return nchess.AlgebraicNotation{}.Encode(pos, mv), nil
}

// IsPawnSAN is true for pawn moves: not a piece letter and not castling.
func IsPawnSAN(san string) bool {
	san = strings.TrimSpace(san)
	if san == "" {
		return false
	}
	c := san[0]
	return !(c >= 'A' && c <= 'Z') && !strings.Contains(san, "O")
}
