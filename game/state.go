package game

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
)

type Type string

const (
	TicTacToe Type = "tictactoe"
	Chess     Type = "chess"
	Cards     Type = "cards"
	Poker     Type = "poker"
	Durak     Type = "durak"
)

func (t Type) Valid() bool {
	_, ok := engines[t]
	return ok
}

// Side is the symbol a seat plays as: X/O, white/black or player1/player2.
type Side string

const (
	SideX      Side = "X"
	SideO      Side = "O"
	SideWhite  Side = "white"
	SideBlack  Side = "black"
	SideFirst  Side = "player1"
	SideSecond Side = "player2"
)

const (
	Draw = "draw"

	// BotID is the reserved player id of the server-side opponent.
	BotID = "bot"

	MaxPlayers = 2
)

// Board is the per-type payload of a State. The set of implementations is closed.
type Board interface {
	gameType() Type
	clone() Board
}

// State is the authoritative game of one room.
type State struct {
	GameType      Type
	Players       []string
	Symbols       map[string]Side
	CurrentPlayer Side
	GameOver      bool
	Winner        string
	// Epoch changes on every start and restart so scheduled work can detect a superseded game.
	Epoch uint64
	Board Board
}

func newState(t Type, e Engine, players []string, rng *rand.Rand, epoch uint64) *State {
	s := &State{
		GameType: t,
		Symbols:  make(map[string]Side, MaxPlayers),
		Epoch:    epoch,
	}
	for _, p := range players {
		s.seat(e, p)
	}
	s.reset(e, rng)
	return s
}

func (s *State) reset(e Engine, rng *rand.Rand) {
	s.Board = e.NewBoard(rng)
	s.CurrentPlayer = e.Sides()[0]
	s.GameOver = false
	s.Winner = ""
}

// seat appends player to the next free seat and records its side. It returns false when the game is
// full or the player is already seated.
func (s *State) seat(e Engine, player string) bool {
	if player == "" || len(s.Players) >= MaxPlayers {
		return false
	}
	if _, ok := s.Symbols[player]; ok {
		return false
	}
	s.Symbols[player] = e.Sides()[len(s.Players)]
	s.Players = append(s.Players, player)
	return true
}

// PlayerFor returns the id seated as side, or "" when the seat is empty.
func (s *State) PlayerFor(side Side) string {
	for id, sd := range s.Symbols {
		if sd == side {
			return id
		}
	}
	return ""
}

func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	c.Players = append([]string(nil), s.Players...)
	c.Symbols = make(map[string]Side, len(s.Symbols))
	for k, v := range s.Symbols {
		c.Symbols[k] = v
	}
	if s.Board != nil {
		c.Board = s.Board.clone()
	}
	return &c
}

type stateHeader struct {
	GameType      Type            `json:"gameType"`
	Players       []string        `json:"players"`
	Symbols       map[string]Side `json:"symbols"`
	CurrentPlayer Side            `json:"currentPlayer"`
	GameOver      bool            `json:"gameOver"`
	Winner        *string         `json:"winner"`
	Epoch         uint64          `json:"epoch"`
}

// MarshalJSON flattens the board fields next to the common fields.
func (s State) MarshalJSON() ([]byte, error) {
	h := stateHeader{
		GameType:      s.GameType,
		Players:       s.Players,
		Symbols:       s.Symbols,
		CurrentPlayer: s.CurrentPlayer,
		GameOver:      s.GameOver,
		Epoch:         s.Epoch,
	}
	if h.Players == nil {
		h.Players = []string{}
	}
	if s.Winner != "" {
		w := s.Winner
		h.Winner = &w
	}
	fields := make(map[string]json.RawMessage)
	if s.Board != nil {
		b, err := json.Marshal(s.Board)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(b, &fields); err != nil {
			return nil, err
		}
	}
	hb, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(hb, &fields); err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

func (s *State) UnmarshalJSON(data []byte) error {
	var h stateHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}
	var b Board
	switch h.GameType {
	case TicTacToe:
		b = &TicTacToeBoard{}
	case Chess:
		b = &ChessBoard{}
	case Cards, Poker, Durak:
		b = &CardTable{Type: h.GameType}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownGameType, h.GameType)
	}
	if err := json.Unmarshal(data, b); err != nil {
		return err
	}
	*s = State{
		GameType:      h.GameType,
		Players:       h.Players,
		Symbols:       h.Symbols,
		CurrentPlayer: h.CurrentPlayer,
		GameOver:      h.GameOver,
		Epoch:         h.Epoch,
		Board:         b,
	}
	if h.Winner != nil {
		s.Winner = *h.Winner
	}
	if s.Symbols == nil {
		s.Symbols = make(map[string]Side)
	}
	return nil
}
