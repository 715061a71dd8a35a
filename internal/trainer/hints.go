package trainer

import "strings"

const maxHintLevel = 2

var pieceKeys = map[byte]string{
	'K': "piece.king",
	'Q': "piece.queen",
	'R': "piece.rook",
	'B': "piece.bishop",
	'N': "piece.knight",
}

// pieceKey names the piece moved by a SAN move. Castling moves the king.
func pieceKey(san string) string {
	if strings.HasPrefix(san, "O-O") {
		return "piece.king"
	}
	if san != "" {
		if key, ok := pieceKeys[san[0]]; ok {
			return key
		}
	}
	return "piece.pawn"
}

// hintText reveals the historical move progressively: the piece at level 1,
// then its destination square.
func hintText(msgs Messages, level int, san, uci string) string {
	if level <= 0 {
		return ""
	}
	parts := []string{msgs.Text("hint.piece", map[string]any{"Piece": msgs.Text(pieceKey(san), nil)})}
	if level >= 2 && len(uci) >= 4 {
		parts = append(parts, msgs.Text("hint.destination", map[string]any{"Square": uci[2:4]}))
	}
	return strings.Join(parts, " ")
}

// entryHint explains how to type the move that was just revealed.
func entryHint(msgs Messages, pawn bool) string {
	if pawn {
		return msgs.Text("hint.pawn_entry", nil)
	}
	return msgs.Text("hint.piece_entry", nil)
}
