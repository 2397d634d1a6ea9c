package game

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
)

const HandSize = 6

type Suit string

const (
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
	Spades   Suit = "spades"
)

var suits = []Suit{Hearts, Diamonds, Clubs, Spades}

var (
	fullValues  = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}
	durakValues = []string{"6", "7", "8", "9", "10", "J", "Q", "K", "A"}
)

type Card struct {
	Suit  Suit   `json:"suit"`
	Value string `json:"value"`
}

type CardAction string

const (
	ActionPlay     CardAction = "play"
	ActionDeal     CardAction = "deal"
	ActionExchange CardAction = "exchange"
	ActionTake     CardAction = "take"
	ActionDiscard  CardAction = "discard"
)

// CardTable is shared by cards, poker and durak. Deck[0] is the top of the deck.
type CardTable struct {
	Type    Type            `json:"-"`
	Deck    []Card          `json:"deck"`
	Hands   map[Side][]Card `json:"hands"`
	Table   []Card          `json:"table"`
	Discard []Card          `json:"discard"`
	Trump   *Suit           `json:"trump,omitempty"`
}

func (t *CardTable) gameType() Type { return t.Type }

func (t *CardTable) clone() Board {
	c := *t
	c.Deck = append([]Card{}, t.Deck...)
	c.Table = append([]Card{}, t.Table...)
	c.Discard = append([]Card{}, t.Discard...)
	c.Hands = make(map[Side][]Card, len(t.Hands))
	for side, hand := range t.Hands {
		c.Hands[side] = append([]Card{}, hand...)
	}
	if t.Trump != nil {
		tr := *t.Trump
		c.Trump = &tr
	}
	return &c
}

func (t *CardTable) topUp(side Side) {
	for len(t.Hands[side]) < HandSize && len(t.Deck) > 0 {
		t.Hands[side] = append(t.Hands[side], t.Deck[0])
		t.Deck = t.Deck[1:]
	}
}

func indexOf(cards []Card, c Card) int {
	for i, x := range cards {
		if x.Suit == c.Suit && x.Value == c.Value {
			return i
		}
	}
	return -1
}

func removeAt(cards []Card, i int) []Card {
	out := make([]Card, 0, len(cards)-1)
	out = append(out, cards[:i]...)
	return append(out, cards[i+1:]...)
}

type CardMove struct {
	Action CardAction `json:"action"`
	Card   *Card      `json:"card,omitempty"`
	Side   Side       `json:"player"`
}

func (m CardMove) Player() Side { return m.Side }

type cardEngine struct {
	t      Type
	values []string
}

func newCardEngine(t Type) cardEngine {
	if t == Durak {
		return cardEngine{t: t, values: durakValues}
	}
	return cardEngine{t: t, values: fullValues}
}

func (cardEngine) Sides() [2]Side { return [2]Side{SideFirst, SideSecond} }

func (e cardEngine) NewBoard(rng *rand.Rand) Board {
	deck := make([]Card, 0, len(suits)*len(e.values))
	for _, s := range suits {
		for _, v := range e.values {
			deck = append(deck, Card{Suit: s, Value: v})
		}
	}
	if rng != nil {
		rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	}
	t := &CardTable{
		Type:    e.t,
		Deck:    deck,
		Hands:   make(map[Side][]Card, 2),
		Table:   []Card{},
		Discard: []Card{},
	}
	if e.t == Durak {
		trump := deck[len(deck)-1].Suit
		t.Trump = &trump
	}
	for _, side := range e.Sides() {
		t.Hands[side] = []Card{}
		t.topUp(side)
	}
	return t
}

func (cardEngine) DecodeMove(raw json.RawMessage) (Move, error) {
	var m CardMove
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMove, err)
	}
	if m.Side == "" || m.Action == "" {
		return nil, ErrInvalidMove
	}
	return m, nil
}

func (cardEngine) Validate(s *State, mv Move) error {
	m, ok := mv.(CardMove)
	if !ok {
		return ErrInvalidMove
	}
	t := s.Board.(*CardTable)
	hand := t.Hands[m.Side]
	switch m.Action {
	case ActionPlay:
		if m.Card == nil || indexOf(hand, *m.Card) < 0 {
			return ErrInvalidMove
		}
	case ActionDeal:
		if len(hand) >= HandSize || len(t.Deck) == 0 {
			return ErrInvalidMove
		}
	case ActionExchange:
		if m.Card == nil || indexOf(hand, *m.Card) < 0 || len(t.Deck) == 0 {
			return ErrInvalidMove
		}
	case ActionTake, ActionDiscard:
		if len(t.Table) == 0 {
			return ErrInvalidMove
		}
	default:
		return ErrInvalidMove
	}
	return nil
}

func (e cardEngine) Apply(s *State, mv Move) {
	m := mv.(CardMove)
	t := s.Board.(*CardTable)
	hand := t.Hands[m.Side]
	switch m.Action {
	case ActionPlay:
		t.Hands[m.Side] = removeAt(hand, indexOf(hand, *m.Card))
		t.Table = append(t.Table, *m.Card)
		s.CurrentPlayer = other(e.Sides(), m.Side)
	case ActionDeal:
		t.topUp(m.Side)
	case ActionExchange:
		hand = removeAt(hand, indexOf(hand, *m.Card))
		t.Discard = append(t.Discard, *m.Card)
		t.Hands[m.Side] = append(hand, t.Deck[0])
		t.Deck = t.Deck[1:]
		s.CurrentPlayer = other(e.Sides(), m.Side)
	case ActionTake:
		t.Hands[m.Side] = append(hand, t.Table...)
		t.Table = []Card{}
		s.CurrentPlayer = other(e.Sides(), m.Side)
	case ActionDiscard:
		t.Discard = append(t.Discard, t.Table...)
		t.Table = []Card{}
	}
}

// Terminal ends the game once the deck is exhausted and a hand is empty; that hand's owner wins.
func (e cardEngine) Terminal(s *State) (bool, string) {
	t := s.Board.(*CardTable)
	if len(t.Deck) > 0 {
		return false, ""
	}
	sides := e.Sides()
	first, second := len(t.Hands[sides[0]]) == 0, len(t.Hands[sides[1]]) == 0
	switch {
	case first && second:
		return true, Draw
	case first:
		return true, string(sides[0])
	case second:
		return true, string(sides[1])
	}
	return false, ""
}

// NextMove tops the hand up when it can and otherwise plays the first card held.
func (cardEngine) NextMove(s *State, _ *rand.Rand) (Move, bool) {
	t := s.Board.(*CardTable)
	side := s.CurrentPlayer
	hand := t.Hands[side]
	if len(hand) < HandSize && len(t.Deck) > 0 {
		return CardMove{Action: ActionDeal, Side: side}, true
	}
	if len(hand) > 0 {
		c := hand[0]
		return CardMove{Action: ActionPlay, Card: &c, Side: side}, true
	}
	if len(t.Table) > 0 {
		return CardMove{Action: ActionTake, Side: side}, true
	}
	return nil, false
}
