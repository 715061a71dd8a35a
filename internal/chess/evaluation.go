package chess

import (
	"fmt"
	"strconv"

	"github.com/park285/chess-guess-trainer/internal/domain"
)

type EvalKind string

const (
	Centipawn EvalKind = "cp"
	Mate      EvalKind = "mate"
)

// mateScore ranks mates above any centipawn value when a single number is needed.
const mateScore = 100000

// Evaluation of a position. Engine-facing values are expressed from the
// first mover's (white's) perspective: positive favours white, and for mate
// the sign tells who mates. Mate with Value 0 means the position is already
// checkmate, which always favours the side that just moved.
type Evaluation struct {
	Kind  EvalKind `json:"kind"`
	Value int      `json:"value"`
}

func Neutral() Evaluation { return Evaluation{Kind: Centipawn} }

func (e Evaluation) IsMate() bool { return e.Kind == Mate }

// MoverMates reports a mate in favour of the perspective the evaluation is
// currently expressed in. Only meaningful after Normalize.
func (e Evaluation) MoverMates() bool {
	return e.Kind == Mate && e.Value >= 0
}

// MateDistance is |Value| for mate evaluations.
func (e Evaluation) MateDistance() int {
	if e.Value < 0 {
		return -e.Value
	}
	return e.Value
}

// Centipawns collapses the evaluation onto one axis. Mates map beyond
// ±mateScore-n so that shorter mates rank further out.
func (e Evaluation) Centipawns() int {
	if e.Kind != Mate {
		return e.Value
	}
	if e.Value >= 0 {
		return mateScore - e.Value
	}
	return -mateScore - e.Value
}

// Label is the human display: "M3", "M-2" or pawns with two decimals.
func (e Evaluation) Label() string {
	if e.Kind == Mate {
		return "M" + strconv.Itoa(e.Value)
	}
	return fmt.Sprintf("%+.2f", float64(e.Value)/100)
}

// Display follows the suggestion list format: "M3" or "0.35".
func (e Evaluation) Display() string {
	if e.Kind == Mate {
		return "M" + strconv.Itoa(e.Value)
	}
	return strconv.FormatFloat(float64(e.Value)/100, 'f', -1, 64)
}

// Normalize re-expresses a first-mover evaluation from side's perspective.
func Normalize(e Evaluation, side domain.Side) Evaluation {
	if side != domain.Black {
		return e
	}
	return Evaluation{Kind: e.Kind, Value: -e.Value}
}

// fromEngineScore converts a UCI score (side to move perspective) into the
// first-mover perspective.
func fromEngineScore(kind string, value int, sideToMove domain.Side) Evaluation {
	ev := Evaluation{Kind: Centipawn, Value: value}
	if kind == "mate" {
		ev.Kind = Mate
	}
	if sideToMove == domain.Black {
		ev.Value = -ev.Value
	}
	return ev
}
