package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChess_InitialLayout(t *testing.T) {
	r := NewRegistry(nil)
	s, err := r.Start("r1", Chess, []string{"w", "b"})
	require.NoError(t, err)

	b := s.Board.(*ChessBoard)
	assert.Equal(t, [8]string{"r", "n", "b", "q", "k", "b", "n", "r"}, b.Board[0])
	assert.Equal(t, [8]string{"R", "N", "B", "Q", "K", "B", "N", "R"}, b.Board[7])
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w - - 0 1", b.FEN(SideWhite))
	assert.Equal(t, SideWhite, s.CurrentPlayer)
	assert.Nil(t, b.SelectedCell)
}

func TestChess_UnconditionalRelocation(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Start("r1", Chess, nil)
	require.NoError(t, err)

	// A rook jumping over its own pawns is not legal chess but is relocated anyway.
	s, err := r.ApplyMove("r1", Chess, json.RawMessage(`{"from":{"row":7,"col":0},"to":{"row":4,"col":0}}`))
	require.NoError(t, err)

	b := s.Board.(*ChessBoard)
	assert.Equal(t, "", b.Board[7][0])
	assert.Equal(t, "R", b.Board[4][0])
	assert.Equal(t, SideBlack, s.CurrentPlayer)
	require.NotNil(t, b.LastMove)
	assert.Equal(t, SideWhite, b.LastMove.Side)
	assert.False(t, s.GameOver)
}

func TestChess_Rejections(t *testing.T) {
	tests := []struct {
		name string
		move string
		want error
	}{
		{name: "empty source", move: `{"from":{"row":4,"col":4},"to":{"row":3,"col":4}}`, want: ErrInvalidMove},
		{name: "off board", move: `{"from":{"row":6,"col":4},"to":{"row":8,"col":4}}`, want: ErrInvalidMove},
		{name: "same cell", move: `{"from":{"row":6,"col":4},"to":{"row":6,"col":4}}`, want: ErrInvalidMove},
		{name: "declared wrong side", move: `{"from":{"row":1,"col":4},"to":{"row":3,"col":4},"player":"black"}`, want: ErrNotYourTurn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(nil)
			_, err := r.Start("r1", Chess, nil)
			require.NoError(t, err)

			_, err = r.ApplyMove("r1", Chess, json.RawMessage(tt.move))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestChess_KingCaptureEndsGame(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Start("r1", Chess, nil)
	require.NoError(t, err)

	s, err := r.ApplyMove("r1", Chess, json.RawMessage(`{"from":{"row":7,"col":3},"to":{"row":0,"col":4}}`))
	require.NoError(t, err)
	assert.True(t, s.GameOver)
	assert.Equal(t, "white", s.Winner)
}

func TestChess_FoolsMate(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Start("r1", Chess, nil)
	require.NoError(t, err)

	moves := []string{
		`{"from":{"row":6,"col":5},"to":{"row":5,"col":5}}`, // f3
		`{"from":{"row":1,"col":4},"to":{"row":3,"col":4}}`, // e5
		`{"from":{"row":6,"col":6},"to":{"row":4,"col":6}}`, // g4
		`{"from":{"row":0,"col":3},"to":{"row":4,"col":7}}`, // Qh4#
	}
	var s *State
	for _, m := range moves {
		s, err = r.ApplyMove("r1", Chess, json.RawMessage(m))
		require.NoError(t, err)
	}
	assert.True(t, s.GameOver)
	assert.Equal(t, "black", s.Winner)
}

func TestChess_PawnPromotion(t *testing.T) {
	e := chessEngine{}
	s := &State{GameType: Chess, CurrentPlayer: SideWhite, Board: &ChessBoard{}}
	b := s.Board.(*ChessBoard)
	b.Board[1][0] = "P"

	e.Apply(s, ChessMove{From: Cell{1, 0}, To: Cell{0, 0}})
	assert.Equal(t, "Q", b.Board[0][0])
}

func TestChess_BotPicksLegalMove(t *testing.T) {
	r := NewRegistry(seeded())
	_, err := r.Start("r1", Chess, []string{"a", BotID})
	require.NoError(t, err)
	_, err = r.ApplyMove("r1", Chess, json.RawMessage(`{"from":{"row":6,"col":4},"to":{"row":4,"col":4}}`))
	require.NoError(t, err)

	s, err := r.PlayBot("r1")
	require.NoError(t, err)

	b := s.Board.(*ChessBoard)
	require.NotNil(t, b.LastMove)
	assert.Equal(t, SideBlack, b.LastMove.Side)
	moved := b.Board[b.LastMove.To.Row][b.LastMove.To.Col]
	assert.NotEmpty(t, moved)
	assert.Equal(t, moved, toLower(moved), "bot must move a black piece")
	assert.Equal(t, SideWhite, s.CurrentPlayer)
}

func toLower(s string) string {
	if s >= "A" && s <= "Z" {
		return string(s[0] + 'a' - 'A')
	}
	return s
}
