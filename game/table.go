package game

import (
	"math/rand"

	"github.com/instapoker/server/proto"
)

// Table holds the dealt card state of one started room. Betting and
// hand evaluation happen elsewhere; the table only tracks which cards
// have left the deck.
type Table struct {
	deck []proto.GameCard
	next int
}

func NewTable(rng *rand.Rand) *Table {
	deck := NewDeck()
	Shuffle(rng, deck)
	return &Table{deck: deck}
}

// DealHole draws the next two hole cards for one player.
func (t *Table) DealHole() (proto.GameCard, proto.GameCard) {
	c1 := t.draw()
	c2 := t.draw()
	return c1, c2
}

// Remaining reports how many cards are still in the deck.
func (t *Table) Remaining() int {
	return len(t.deck) - t.next
}

func (t *Table) draw() proto.GameCard {
	if t.next >= len(t.deck) {
		// 8 players consume 16 of 52 cards, so running dry means the
		// caller seated more players than a deck supports.
		panic("deck exhausted")
	}
	c := t.deck[t.next]
	t.next++
	return c
}
