// Package moves turns opening lines written in SAN into the forms the rest of
// the system needs: UCI moves for the explorer, the final FEN, and an ECO
// book lookup when the upstream does not name the opening.
package moves

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
)

// Line is a parsed opening line.
type Line struct {
	SAN  []string
	UCI  []string
	FEN  string
	ECO  string
	Name string
}

// Key is the natural key of the line: its UCI moves joined by commas.
func (l Line) Key() string {
	return strings.Join(l.UCI, ",")
}

// String returns the SAN moves joined by spaces.
func (l Line) String() string {
	return strings.Join(l.SAN, " ")
}

var (
	bookOnce sync.Once
	book     *opening.BookECO
)

func ecoBook() *opening.BookECO {
	bookOnce.Do(func() {
		book = opening.NewBookECO()
	})
	return book
}

// Parse replays san from the starting position. It fails on the first
// illegal or ambiguous move.
func Parse(san []string) (Line, error) {
	if len(san) == 0 {
		return Line{}, fmt.Errorf("empty move line")
	}

	pgnOpt, err := chess.PGN(strings.NewReader(toPGN(san)))
	if err != nil {
		return Line{}, fmt.Errorf("parse line %q: %w", strings.Join(san, " "), err)
	}
	game := chess.NewGame(pgnOpt)

	played := game.Moves()
	if len(played) != len(san) {
		return Line{}, fmt.Errorf("parse line %q: replayed %d of %d moves", strings.Join(san, " "), len(played), len(san))
	}

	line := Line{
		SAN: append([]string(nil), san...),
		UCI: make([]string, 0, len(played)),
		FEN: game.Position().String(),
	}
	for _, m := range played {
		line.UCI = append(line.UCI, MoveToUCI(m))
	}

	if o := ecoBook().Find(played); o != nil {
		line.ECO = o.Code()
		line.Name = o.Title()
	}
	return line, nil
}

// toPGN numbers the moves so the PGN reader accepts a bare SAN list.
func toPGN(san []string) string {
	var b strings.Builder
	for i, s := range san {
		if i%2 == 0 {
			fmt.Fprintf(&b, "%d. ", i/2+1)
		}
		b.WriteString(strings.TrimSpace(s))
		b.WriteByte(' ')
	}
	b.WriteString("*")
	return b.String()
}

var moveNumberRe = regexp.MustCompile(`^\d+\.+$|^\d+\.+`)

// Split breaks a written line such as "1. e4 e5 2. Nf3" into SAN tokens,
// dropping move numbers and result markers.
func Split(text string) []string {
	var out []string
	for _, tok := range strings.Fields(text) {
		tok = moveNumberRe.ReplaceAllString(tok, "")
		switch tok {
		case "", "1-0", "0-1", "1/2-1/2", "*":
			continue
		}
		out = append(out, tok)
	}
	return out
}

// MoveToUCI converts a chess Move to UCI format (e.g., "e2e4", "e7e8q")
func MoveToUCI(move *chess.Move) string {
	if move == nil {
		return ""
	}

	uci := squareToString(move.S1()) + squareToString(move.S2())

	switch move.Promo() {
	case chess.Queen:
		uci += "q"
	case chess.Rook:
		uci += "r"
	case chess.Bishop:
		uci += "b"
	case chess.Knight:
		uci += "n"
	}

	return uci
}

// squareToString converts a Square to algebraic notation (e.g., "e2", "a8")
func squareToString(sq chess.Square) string {
	return fmt.Sprintf("%c%c", 'a'+rune(sq.File()), '1'+rune(sq.Rank()))
}
