package game

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/corentings/chess/v2"
)

type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Cell) valid() bool {
	return c.Row >= 0 && c.Row < 8 && c.Col >= 0 && c.Col < 8
}

// ChessBoard holds piece codes in FEN letters, uppercase for white. Row 0 is rank 8.
type ChessBoard struct {
	Board        [8][8]string `json:"board"`
	SelectedCell *Cell        `json:"selectedCell"`
	LastMove     *ChessMove   `json:"lastMove,omitempty"`
}

func (*ChessBoard) gameType() Type { return Chess }

func (b *ChessBoard) clone() Board {
	c := *b
	if b.SelectedCell != nil {
		sc := *b.SelectedCell
		c.SelectedCell = &sc
	}
	if b.LastMove != nil {
		lm := *b.LastMove
		c.LastMove = &lm
	}
	return &c
}

// FEN renders the board with side to move. Castling and en passant rights are not tracked.
func (b *ChessBoard) FEN(toMove Side) string {
	var sb strings.Builder
	for r := 0; r < 8; r++ {
		empty := 0
		for c := 0; c < 8; c++ {
			p := b.Board[r][c]
			if p == "" {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(p)
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if r < 7 {
			sb.WriteByte('/')
		}
	}
	turn := "w"
	if toMove == SideBlack {
		turn = "b"
	}
	sb.WriteString(" " + turn + " - - 0 1")
	return sb.String()
}

func (b *ChessBoard) hasKing(side Side) bool {
	king := "k"
	if side == SideWhite {
		king = "K"
	}
	for _, row := range b.Board {
		for _, p := range row {
			if p == king {
				return true
			}
		}
	}
	return false
}

type ChessMove struct {
	From Cell `json:"from"`
	To   Cell `json:"to"`
	Side Side `json:"player,omitempty"`
}

func (m ChessMove) Player() Side { return m.Side }

// chessEngine relocates pieces without checking chess legality; clients are trusted. The position is
// only inspected afterwards to detect a finished game.
type chessEngine struct{}

func (chessEngine) Sides() [2]Side { return [2]Side{SideWhite, SideBlack} }

func (chessEngine) NewBoard(*rand.Rand) Board {
	b := &ChessBoard{}
	back := []string{"r", "n", "b", "q", "k", "b", "n", "r"}
	for c := 0; c < 8; c++ {
		b.Board[0][c] = back[c]
		b.Board[1][c] = "p"
		b.Board[6][c] = "P"
		b.Board[7][c] = strings.ToUpper(back[c])
	}
	return b
}

func (chessEngine) DecodeMove(raw json.RawMessage) (Move, error) {
	var m ChessMove
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMove, err)
	}
	return m, nil
}

func (chessEngine) Validate(s *State, mv Move) error {
	m, ok := mv.(ChessMove)
	if !ok || !m.From.valid() || !m.To.valid() || m.From == m.To {
		return ErrInvalidMove
	}
	if s.Board.(*ChessBoard).Board[m.From.Row][m.From.Col] == "" {
		return ErrInvalidMove
	}
	return nil
}

func (e chessEngine) Apply(s *State, mv Move) {
	m := mv.(ChessMove)
	b := s.Board.(*ChessBoard)
	piece := b.Board[m.From.Row][m.From.Col]
	// Pawns reaching the last rank are promoted to a queen.
	switch {
	case piece == "P" && m.To.Row == 0:
		piece = "Q"
	case piece == "p" && m.To.Row == 7:
		piece = "q"
	}
	b.Board[m.To.Row][m.To.Col] = piece
	b.Board[m.From.Row][m.From.Col] = ""
	b.SelectedCell = nil
	m.Side = s.CurrentPlayer
	b.LastMove = &m
	s.CurrentPlayer = other(e.Sides(), s.CurrentPlayer)
}

func (e chessEngine) Terminal(s *State) (bool, string) {
	b := s.Board.(*ChessBoard)
	mover := other(e.Sides(), s.CurrentPlayer)
	if !b.hasKing(SideWhite) || !b.hasKing(SideBlack) {
		if b.hasKing(mover) {
			return true, string(mover)
		}
		return true, string(s.CurrentPlayer)
	}
	g, err := positionOf(b, s.CurrentPlayer)
	if err != nil {
		return false, ""
	}
	switch g.Position().Status() {
	case chess.Checkmate:
		return true, string(mover)
	case chess.Stalemate:
		return true, Draw
	}
	return false, ""
}

// NextMove picks a random legal move for the side to play.
func (chessEngine) NextMove(s *State, rng *rand.Rand) (Move, bool) {
	b := s.Board.(*ChessBoard)
	g, err := positionOf(b, s.CurrentPlayer)
	if err != nil {
		return nil, false
	}
	moves := g.ValidMoves()
	if len(moves) == 0 {
		return nil, false
	}
	i := 0
	if rng != nil {
		i = rng.IntN(len(moves))
	}
	return ChessMove{
		From: cellOf(moves[i].S1()),
		To:   cellOf(moves[i].S2()),
		Side: s.CurrentPlayer,
	}, true
}

func positionOf(b *ChessBoard, toMove Side) (*chess.Game, error) {
	opt, err := chess.FEN(b.FEN(toMove))
	if err != nil {
		return nil, err
	}
	return chess.NewGame(opt), nil
}

func cellOf(sq chess.Square) Cell {
	return Cell{Row: 7 - int(sq.Rank()), Col: int(sq.File())}
}
