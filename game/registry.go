package game

import (
	"encoding/json"
	"math/rand/v2"
	"time"
)

// Registry maps room ids to their single active game. Like media.Registry it is owned by one
// goroutine. Every method returns a copy so callers can publish it freely.
type Registry struct {
	games map[string]*State
	rng   *rand.Rand
	epoch uint64
}

// NewRegistry returns an empty registry. A nil rng seeds one from the clock.
func NewRegistry(rng *rand.Rand) *Registry {
	if rng == nil {
		now := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(now, now>>1|1))
	}
	return &Registry{games: make(map[string]*State), rng: rng}
}

func (r *Registry) nextEpoch() uint64 {
	r.epoch++
	return r.epoch
}

func (r *Registry) Get(roomID string) (*State, bool) {
	s, ok := r.games[roomID]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Start replaces whatever game the room had with a fresh game of type t. Up to two players are
// seated in order; sides are assigned by seat and never recomputed.
func (r *Registry) Start(roomID string, t Type, players []string) (*State, error) {
	e, ok := engines[t]
	if !ok {
		return nil, ErrUnknownGameType
	}
	s := newState(t, e, players, r.rng, r.nextEpoch())
	r.games[roomID] = s
	return s.Clone(), nil
}

// Restart resets progress and keeps the seated players. Restarting as a different type reseats the
// same players in the same order.
func (r *Registry) Restart(roomID string, t Type) (*State, error) {
	cur, ok := r.games[roomID]
	if !ok {
		return nil, ErrNoGame
	}
	if t == "" {
		t = cur.GameType
	}
	e, ok := engines[t]
	if !ok {
		return nil, ErrUnknownGameType
	}
	if cur.GameType != t {
		return r.Start(roomID, t, cur.Players)
	}
	cur.reset(e, r.rng)
	cur.Epoch = r.nextEpoch()
	return cur.Clone(), nil
}

func (r *Registry) Close(roomID string) bool {
	_, ok := r.games[roomID]
	delete(r.games, roomID)
	return ok
}

// Seat places player in the room's free seat. It reports false when nothing changed.
func (r *Registry) Seat(roomID, player string) (*State, bool) {
	s, ok := r.games[roomID]
	if !ok || s.GameOver {
		return nil, false
	}
	if !s.seat(engines[s.GameType], player) {
		return nil, false
	}
	return s.Clone(), true
}

// ApplyMove validates raw against the room's game and applies it. A rejected move leaves the state
// untouched and returns an error wrapping ErrRejected.
func (r *Registry) ApplyMove(roomID string, t Type, raw json.RawMessage) (*State, error) {
	s, ok := r.games[roomID]
	if !ok {
		return nil, ErrNoGame
	}
	if s.GameType != t {
		return nil, ErrWrongGameType
	}
	e := engines[t]
	m, err := e.DecodeMove(raw)
	if err != nil {
		return nil, err
	}
	return r.apply(s, e, m)
}

// PlayBot makes the bot's move when the bot holds the turn.
func (r *Registry) PlayBot(roomID string) (*State, error) {
	s, ok := r.games[roomID]
	if !ok {
		return nil, ErrNoGame
	}
	if s.GameOver {
		return nil, ErrGameOver
	}
	if s.PlayerFor(s.CurrentPlayer) != BotID {
		return nil, ErrNotYourTurn
	}
	e := engines[s.GameType]
	m, ok := e.NextMove(s, r.rng)
	if !ok {
		return nil, ErrInvalidMove
	}
	return r.apply(s, e, m)
}

func (r *Registry) apply(s *State, e Engine, m Move) (*State, error) {
	if err := step(s, e, m); err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

func step(s *State, e Engine, m Move) error {
	if s.GameOver {
		return ErrGameOver
	}
	// Board checks come before the turn check so a re-sent move reports what is wrong with the board.
	if err := e.Validate(s, m); err != nil {
		return err
	}
	if p := m.Player(); p != "" && p != s.CurrentPlayer {
		return ErrNotYourTurn
	}
	e.Apply(s, m)
	if over, winner := e.Terminal(s); over {
		s.GameOver = true
		s.Winner = winner
	}
	return nil
}

// Play applies raw to a copy of s under the rules the registry enforces and returns the copy. s is
// left as it was.
func Play(s *State, raw json.RawMessage) (*State, error) {
	if s == nil {
		return nil, ErrNoGame
	}
	e, ok := engines[s.GameType]
	if !ok {
		return nil, ErrUnknownGameType
	}
	m, err := e.DecodeMove(raw)
	if err != nil {
		return nil, err
	}
	next := s.Clone()
	if err := step(next, e, m); err != nil {
		return nil, err
	}
	return next, nil
}

// BotToMove reports whether the bot holds the turn in the room's running game.
func (r *Registry) BotToMove(roomID string) bool {
	s, ok := r.games[roomID]
	return ok && !s.GameOver && s.PlayerFor(s.CurrentPlayer) == BotID
}

func (r *Registry) Len() int {
	return len(r.games)
}
