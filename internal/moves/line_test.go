package moves_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/openingtiers/internal/moves"
)

func TestParse_ItalianSetup(t *testing.T) {
	line, err := moves.Parse([]string{"e4", "e5", "Nf3"})
	require.NoError(t, err)

	assert.Equal(t, []string{"e2e4", "e7e5", "g1f3"}, line.UCI)
	assert.Equal(t, "e2e4,e7e5,g1f3", line.Key())
	assert.Equal(t, "e4 e5 Nf3", line.String())
	assert.Equal(t, "rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 1 2", line.FEN)
	assert.NotEmpty(t, line.ECO, "book should classify a mainline")
}

func TestParse_CastlingAndCaptures(t *testing.T) {
	line, err := moves.Parse([]string{"e4", "e5", "Nf3", "Nc6", "Bc4", "Bc5", "O-O"})
	require.NoError(t, err)
	assert.Equal(t, "e1g1", line.UCI[6])
}

func TestParse_IllegalMove(t *testing.T) {
	_, err := moves.Parse([]string{"e4", "e4"})
	assert.Error(t, err)
}

func TestParse_Empty(t *testing.T) {
	_, err := moves.Parse(nil)
	assert.Error(t, err)
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"e4", "c5", "Nf3"}, moves.Split("1. e4 c5 2. Nf3"))
	assert.Equal(t, []string{"d4", "d5", "c4"}, moves.Split("1.d4 d5 2.c4 *"))
	assert.Equal(t, []string{"e4", "e5"}, moves.Split("  e4   e5 "))
	assert.Empty(t, moves.Split(""))
}
