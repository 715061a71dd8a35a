package trainer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/width"

	"github.com/park285/chess-guess-trainer/internal/chess"
)

// pieceLetters maps localized piece initials to the English ones. Initials
// match in either case; English initials the locale does not reuse are
// accepted as well.
var pieceLetters = map[string]map[rune]rune{
	"en": {},
	"fr": {'R': 'K', 'D': 'Q', 'T': 'R', 'F': 'B', 'C': 'N'},
	"de": {'D': 'Q', 'T': 'R', 'L': 'B', 'S': 'N'},
	"es": {'R': 'K', 'D': 'Q', 'T': 'R', 'A': 'B', 'C': 'N'},
}

var (
	uciPattern = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][qrbn]?$`)
	sanPattern = regexp.MustCompile(`^(?:[NBRQK]?[a-h]?[1-8]?x?[a-h][1-8](?:=?[NBRQ])?|O-O(?:-O)?)[+#]?$`)
)

// ValidatedMove is a legal move in both notations.
type ValidatedMove struct {
	UCI string
	SAN string
}

type Validator struct {
	pieces map[rune]rune
}

func NewValidator(locale string) (*Validator, error) {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if locale == "" {
		locale = "en"
	}
	pieces, ok := pieceLetters[locale]
	if !ok {
		return nil, fmt.Errorf("unsupported move locale %q", locale)
	}
	return &Validator{pieces: pieces}, nil
}

func fold(raw string) string {
	text := strings.TrimSpace(width.Fold.String(raw))
	return strings.TrimRight(text, "!?")
}

// Normalize folds full-width input, trims it and rewrites localized piece
// letters and castling zeros. UCI text is only folded and lowercased.
func (v *Validator) Normalize(raw string) string {
	text := fold(raw)
	if lower := strings.ToLower(text); uciPattern.MatchString(lower) {
		return lower
	}
	if strings.HasPrefix(text, "0-0") {
		return strings.ReplaceAll(text, "0", "O")
	}

	runes := []rune(text)
	if len(runes) >= 3 && v.leadsWithPiece(runes) {
		runes[0], _ = v.piece(runes[0])
	}
	for i := 1; i < len(runes); i++ {
		if runes[i-1] == '=' {
			if p, ok := v.piece(runes[i]); ok {
				runes[i] = p
			}
		}
	}
	return string(runes)
}

// piece resolves a piece initial in either case to its English capital.
func (v *Validator) piece(r rune) (rune, bool) {
	up := unicode.ToUpper(r)
	if p, ok := v.pieces[up]; ok {
		return p, true
	}
	if strings.ContainsRune("NBRQK", up) {
		return up, true
	}
	return 0, false
}

// leadsWithPiece decides whether the first letter names a piece. Capitals
// always do. A lowercase letter that is also a file ("c", "d" in French)
// names a piece only when a file follows it ("cf3"), since "cxd4" and "c4"
// are pawn moves.
func (v *Validator) leadsWithPiece(runes []rune) bool {
	first, next := runes[0], runes[1]
	if _, ok := v.piece(first); !ok {
		return false
	}
	if unicode.IsUpper(first) {
		return true
	}
	isFile := func(r rune) bool { return r >= 'a' && r <= 'h' }
	if isFile(first) {
		return isFile(next)
	}
	return isFile(next) || next == 'x' || (next >= '1' && next <= '8')
}

// Validate resolves raw against the board. It never mutates b.
func (v *Validator) Validate(b *chess.Board, raw string) (ValidatedMove, error) {
	text := v.Normalize(raw)
	if text == "" {
		return ValidatedMove{}, fmt.Errorf("%w: empty input", ErrInputFormat)
	}

	if uciPattern.MatchString(text) {
		san, err := b.SAN(text)
		if err != nil {
			return ValidatedMove{}, fmt.Errorf("%w: %s", ErrIllegalMove, text)
		}
		return ValidatedMove{UCI: text, SAN: san}, nil
	}

	if !sanPattern.MatchString(text) {
		return ValidatedMove{}, fmt.Errorf("%w: %q", ErrInputFormat, raw)
	}
	uci, err := b.UCIFromSAN(strings.TrimRight(text, "+#"))
	if err != nil {
		return ValidatedMove{}, fmt.Errorf("%w: %s", ErrIllegalMove, text)
	}
	san, err := b.SAN(uci)
	if err != nil {
		return ValidatedMove{}, fmt.Errorf("%w: %s", ErrIllegalMove, text)
	}
	return ValidatedMove{UCI: uci, SAN: san}, nil
}
