package game

import (
	"math/rand"

	"github.com/instapoker/server/proto"
)

const DeckSize = 52

// NewDeck returns a standard 52-card set in suit order, no jokers.
func NewDeck() []proto.GameCard {
	suits := []proto.Suit{proto.Diamonds, proto.Clubs, proto.Hearts, proto.Spades}
	deck := make([]proto.GameCard, 0, DeckSize)
	for _, suit := range suits {
		for value := int32(1); value <= 13; value++ {
			deck = append(deck, proto.GameCard{Value: value, Suit: suit})
		}
	}
	return deck
}

// Shuffle permutes deck in place using rng.
func Shuffle(rng *rand.Rand, deck []proto.GameCard) {
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
}
