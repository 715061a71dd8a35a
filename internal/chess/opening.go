package chess

import (
	"strings"
	"sync"

	"github.com/corentings/chess/v2/opening"
)

const (
	standardFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	// bookDepth bounds the replay; no ECO line is longer.
	bookDepth = 40
)

// the ECO book parses a few thousand rows, so it is built on first use
var ecoBook = sync.OnceValue(opening.NewBookECO)

// Opening names the deepest ECO line the plies follow. Games from a custom
// start position have no opening.
func Opening(startFEN string, plies []string) (code, title string) {
	if f := strings.TrimSpace(startFEN); f != "" && f != "startpos" && f != standardFEN {
		return "", ""
	}
	b := NewBoard()
	for i, uci := range plies {
		if i == bookDepth {
			break
		}
		if _, err := b.Apply(uci); err != nil {
			break
		}
	}
	if eco := ecoBook().Find(b.game.Moves()); eco != nil {
		return eco.Code(), eco.Title()
	}
	return "", ""
}
