package trainer

import (
	"errors"

	"github.com/park285/chess-guess-trainer/internal/chess"
)

var (
	// ErrInputFormat marks text that is not a move in any accepted notation.
	ErrInputFormat = errors.New("malformed move")
	// ErrIllegalMove marks a well-formed move that the position does not allow.
	ErrIllegalMove = chess.ErrIllegalMove

	ErrGameComplete      = errors.New("game complete")
	ErrSessionNotFound   = errors.New("session not found")
	ErrEngineUnavailable = chess.ErrEngineUnavailable
	ErrUnknownVariant    = errors.New("unknown variant")
	ErrUnknownGame       = errors.New("unknown game")
)
