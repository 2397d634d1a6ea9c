package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cardMove(t *testing.T, m CardMove) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(m)
	require.NoError(t, err)
	return b
}

func TestCards_InitialDeal(t *testing.T) {
	tests := []struct {
		typ      Type
		deckSize int
		trump    bool
	}{
		{Cards, 52, false},
		{Poker, 52, false},
		{Durak, 36, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			r := NewRegistry(seeded())
			s, err := r.Start("r1", tt.typ, []string{"a", "b"})
			require.NoError(t, err)

			tbl := s.Board.(*CardTable)
			assert.Len(t, tbl.Hands[SideFirst], HandSize)
			assert.Len(t, tbl.Hands[SideSecond], HandSize)
			assert.Len(t, tbl.Deck, tt.deckSize-2*HandSize)
			assert.Empty(t, tbl.Table)
			assert.Equal(t, tt.trump, tbl.Trump != nil)
			if tt.trump {
				assert.Equal(t, tbl.Deck[len(tbl.Deck)-1].Suit, *tbl.Trump)
			}
		})
	}
}

func TestCards_PlayMovesCardToTable(t *testing.T) {
	r := NewRegistry(seeded())
	started, err := r.Start("r1", Cards, []string{"a", "b"})
	require.NoError(t, err)
	card := started.Board.(*CardTable).Hands[SideFirst][2]

	s, err := r.ApplyMove("r1", Cards, cardMove(t, CardMove{Action: ActionPlay, Card: &card, Side: SideFirst}))
	require.NoError(t, err)

	tbl := s.Board.(*CardTable)
	assert.Len(t, tbl.Hands[SideFirst], HandSize-1)
	assert.Equal(t, -1, indexOf(tbl.Hands[SideFirst], card))
	assert.Equal(t, []Card{card}, tbl.Table)
	assert.Equal(t, SideSecond, s.CurrentPlayer)
}

func TestCards_PlayUnknownCardRejected(t *testing.T) {
	r := NewRegistry(seeded())
	started, err := r.Start("r1", Cards, nil)
	require.NoError(t, err)
	// A card from the opponent's hand is never in ours.
	card := started.Board.(*CardTable).Hands[SideSecond][0]

	_, err = r.ApplyMove("r1", Cards, cardMove(t, CardMove{Action: ActionPlay, Card: &card, Side: SideFirst}))
	assert.ErrorIs(t, err, ErrInvalidMove)

	_, err = r.ApplyMove("r1", Cards, cardMove(t, CardMove{Action: ActionPlay, Card: &card, Side: SideSecond}))
	assert.ErrorIs(t, err, ErrNotYourTurn)
}

func TestCards_DealTopsUpHand(t *testing.T) {
	r := NewRegistry(seeded())
	started, err := r.Start("r1", Durak, nil)
	require.NoError(t, err)
	hand := started.Board.(*CardTable).Hands[SideFirst]

	_, err = r.ApplyMove("r1", Durak, cardMove(t, CardMove{Action: ActionDeal, Side: SideFirst}))
	assert.ErrorIs(t, err, ErrInvalidMove, "full hand cannot draw")

	_, err = r.ApplyMove("r1", Durak, cardMove(t, CardMove{Action: ActionPlay, Card: &hand[0], Side: SideFirst}))
	require.NoError(t, err)
	c := started.Board.(*CardTable).Hands[SideSecond][0]
	_, err = r.ApplyMove("r1", Durak, cardMove(t, CardMove{Action: ActionPlay, Card: &c, Side: SideSecond}))
	require.NoError(t, err)

	s, err := r.ApplyMove("r1", Durak, cardMove(t, CardMove{Action: ActionDeal, Side: SideFirst}))
	require.NoError(t, err)
	tbl := s.Board.(*CardTable)
	assert.Len(t, tbl.Hands[SideFirst], HandSize)
	assert.Len(t, tbl.Deck, 36-2*HandSize-1)
	assert.Equal(t, SideFirst, s.CurrentPlayer, "dealing keeps the turn")
}

func TestCards_TakeAndDiscard(t *testing.T) {
	r := NewRegistry(seeded())
	started, err := r.Start("r1", Durak, nil)
	require.NoError(t, err)
	c := started.Board.(*CardTable).Hands[SideFirst][0]

	_, err = r.ApplyMove("r1", Durak, cardMove(t, CardMove{Action: ActionDiscard, Side: SideFirst}))
	assert.ErrorIs(t, err, ErrInvalidMove, "nothing on the table")

	_, err = r.ApplyMove("r1", Durak, cardMove(t, CardMove{Action: ActionPlay, Card: &c, Side: SideFirst}))
	require.NoError(t, err)

	s, err := r.ApplyMove("r1", Durak, cardMove(t, CardMove{Action: ActionTake, Side: SideSecond}))
	require.NoError(t, err)
	tbl := s.Board.(*CardTable)
	assert.Empty(t, tbl.Table)
	assert.Len(t, tbl.Hands[SideSecond], HandSize+1)
	assert.NotEqual(t, -1, indexOf(tbl.Hands[SideSecond], c))
	assert.Equal(t, SideFirst, s.CurrentPlayer)
}

func TestCards_Exchange(t *testing.T) {
	r := NewRegistry(seeded())
	started, err := r.Start("r1", Poker, nil)
	require.NoError(t, err)
	tbl := started.Board.(*CardTable)
	give, top := tbl.Hands[SideFirst][0], tbl.Deck[0]

	s, err := r.ApplyMove("r1", Poker, cardMove(t, CardMove{Action: ActionExchange, Card: &give, Side: SideFirst}))
	require.NoError(t, err)
	tbl = s.Board.(*CardTable)
	assert.Len(t, tbl.Hands[SideFirst], HandSize)
	assert.Equal(t, -1, indexOf(tbl.Hands[SideFirst], give))
	assert.NotEqual(t, -1, indexOf(tbl.Hands[SideFirst], top))
	assert.Equal(t, []Card{give}, tbl.Discard)
	assert.Equal(t, SideSecond, s.CurrentPlayer)
}

func TestCards_Terminal(t *testing.T) {
	e := newCardEngine(Cards)
	card := Card{Suit: Spades, Value: "A"}
	tests := []struct {
		name   string
		table  CardTable
		over   bool
		winner string
	}{
		{
			name:  "deck left",
			table: CardTable{Deck: []Card{card}, Hands: map[Side][]Card{SideFirst: {}, SideSecond: {}}},
		},
		{
			name:   "first emptied",
			table:  CardTable{Hands: map[Side][]Card{SideFirst: {}, SideSecond: {card}}},
			over:   true,
			winner: "player1",
		},
		{
			name:   "both empty",
			table:  CardTable{Hands: map[Side][]Card{SideFirst: {}, SideSecond: {}}},
			over:   true,
			winner: Draw,
		},
		{
			name:  "both holding",
			table: CardTable{Hands: map[Side][]Card{SideFirst: {card}, SideSecond: {card}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := tt.table
			over, winner := e.Terminal(&State{Board: &tbl})
			assert.Equal(t, tt.over, over)
			assert.Equal(t, tt.winner, winner)
		})
	}
}
