package game

import (
	"encoding/json"
	"math/rand/v2"
)

// Move is a decoded, engine-specific move. Player may be empty when the engine lets the mover be
// implied by the turn.
type Move interface {
	Player() Side
}

// Engine is the rule set of one game type. Engines are stateless; all state lives in State.
type Engine interface {
	Sides() [2]Side
	NewBoard(rng *rand.Rand) Board
	DecodeMove(raw json.RawMessage) (Move, error)
	// Validate reports why m cannot be applied to s. It never mutates s.
	Validate(s *State, m Move) error
	// Apply mutates s by a move that passed Validate and hands the turn over.
	Apply(s *State, m Move)
	// Terminal reports whether s is finished and who won: a Side, Draw, or "".
	Terminal(s *State) (bool, string)
	// NextMove picks a move for the side to play. It is the bot's black box.
	NextMove(s *State, rng *rand.Rand) (Move, bool)
}

var engines = map[Type]Engine{
	TicTacToe: ticTacToe{},
	Chess:     chessEngine{},
	Cards:     newCardEngine(Cards),
	Poker:     newCardEngine(Poker),
	Durak:     newCardEngine(Durak),
}

func EngineFor(t Type) (Engine, bool) {
	e, ok := engines[t]
	return e, ok
}

func other(sides [2]Side, s Side) Side {
	if s == sides[0] {
		return sides[1]
	}
	return sides[0]
}
