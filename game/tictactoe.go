package game

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
)

type TicTacToeBoard struct {
	Board [3][3]Side `json:"board"`
}

func (*TicTacToeBoard) gameType() Type { return TicTacToe }

func (b *TicTacToeBoard) clone() Board {
	c := *b
	return &c
}

func (b *TicTacToeBoard) full() bool {
	for _, row := range b.Board {
		for _, cell := range row {
			if cell == "" {
				return false
			}
		}
	}
	return true
}

type TicTacToeMove struct {
	Row  int  `json:"row"`
	Col  int  `json:"col"`
	Side Side `json:"player"`
}

func (m TicTacToeMove) Player() Side { return m.Side }

type ticTacToe struct{}

var ticTacToeLines = [8][3][2]int{
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	{{0, 0}, {1, 0}, {2, 0}},
	{{0, 1}, {1, 1}, {2, 1}},
	{{0, 2}, {1, 2}, {2, 2}},
	{{0, 0}, {1, 1}, {2, 2}},
	{{0, 2}, {1, 1}, {2, 0}},
}

func (ticTacToe) Sides() [2]Side { return [2]Side{SideX, SideO} }

func (ticTacToe) NewBoard(*rand.Rand) Board { return &TicTacToeBoard{} }

func (ticTacToe) DecodeMove(raw json.RawMessage) (Move, error) {
	var m TicTacToeMove
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMove, err)
	}
	if m.Side == "" {
		return nil, ErrInvalidMove
	}
	return m, nil
}

func (ticTacToe) Validate(s *State, mv Move) error {
	m, ok := mv.(TicTacToeMove)
	if !ok {
		return ErrInvalidMove
	}
	if m.Row < 0 || m.Row > 2 || m.Col < 0 || m.Col > 2 {
		return ErrInvalidMove
	}
	if s.Board.(*TicTacToeBoard).Board[m.Row][m.Col] != "" {
		return ErrCellOccupied
	}
	return nil
}

func (e ticTacToe) Apply(s *State, mv Move) {
	m := mv.(TicTacToeMove)
	s.Board.(*TicTacToeBoard).Board[m.Row][m.Col] = m.Side
	s.CurrentPlayer = other(e.Sides(), m.Side)
}

func (ticTacToe) Terminal(s *State) (bool, string) {
	b := s.Board.(*TicTacToeBoard)
	for _, line := range ticTacToeLines {
		a := b.Board[line[0][0]][line[0][1]]
		if a == "" {
			continue
		}
		if a == b.Board[line[1][0]][line[1][1]] && a == b.Board[line[2][0]][line[2][1]] {
			return true, string(a)
		}
	}
	if b.full() {
		return true, Draw
	}
	return false, ""
}

// NextMove completes a line when it can, blocks one otherwise, and falls back to the first free cell.
func (e ticTacToe) NextMove(s *State, _ *rand.Rand) (Move, bool) {
	b := s.Board.(*TicTacToeBoard)
	me := s.CurrentPlayer
	for _, target := range []Side{me, other(e.Sides(), me)} {
		for _, line := range ticTacToeLines {
			var free [][2]int
			count := 0
			for _, c := range line {
				switch b.Board[c[0]][c[1]] {
				case target:
					count++
				case "":
					free = append(free, c)
				}
			}
			if count == 2 && len(free) == 1 {
				return TicTacToeMove{Row: free[0][0], Col: free[0][1], Side: me}, true
			}
		}
	}
	for r := range b.Board {
		for c := range b.Board[r] {
			if b.Board[r][c] == "" {
				return TicTacToeMove{Row: r, Col: c, Side: me}, true
			}
		}
	}
	return nil, false
}
