// internal/game/deck.go
package game

import (
	"math/rand"

	"github.com/jason-s-yu/peak/internal/models"
)

// Composition describes how many copies of each card a deck holds.
type Composition struct {
	NumberCopies int `json:"numberCopies"` // copies of each value 1..10
	Peak         int `json:"peak"`
	Reverse      int `json:"reverse"`
	Star         int `json:"star"`
	Goblin       int `json:"goblin"`
	Pause        int `json:"pause"`
}

// DefaultComposition is the full ruleset: 40 numbered cards and 18 specials.
var DefaultComposition = Composition{
	NumberCopies: 4,
	Peak:         10,
	Reverse:      2,
	Star:         2,
	Goblin:       2,
	Pause:        2,
}

// ClassicComposition only carries Peak specials.
var ClassicComposition = Composition{
	NumberCopies: 4,
	Peak:         10,
}

// Total returns the number of cards a deck built from c contains.
func (c Composition) Total() int {
	return c.NumberCopies*10 + c.Peak + c.Reverse + c.Star + c.Goblin + c.Pause
}

// BuildDeck returns the deck for composition c in canonical (unshuffled) order.
func BuildDeck(c Composition) []models.Card {
	deck := make([]models.Card, 0, c.Total())
	for v := 1; v <= 10; v++ {
		for i := 0; i < c.NumberCopies; i++ {
			deck = append(deck, models.NumberCard(v))
		}
	}
	specials := []struct {
		n    int
		card models.Card
	}{
		{c.Peak, models.PeakCard()},
		{c.Reverse, models.ReverseCard()},
		{c.Star, models.StarCard()},
		{c.Goblin, models.GoblinCard()},
		{c.Pause, models.PauseCard()},
	}
	for _, s := range specials {
		for i := 0; i < s.n; i++ {
			deck = append(deck, s.card)
		}
	}
	return deck
}

// Shuffle permutes deck in place with a Fisher-Yates pass driven by rng.
func Shuffle(rng *rand.Rand, deck []models.Card) {
	for i := len(deck) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}

// Draw pops the top (last) card of deck.
func Draw(deck []models.Card) (models.Card, []models.Card, error) {
	if len(deck) == 0 {
		return models.Card{}, deck, ErrEmptyDeck
	}
	top := deck[len(deck)-1]
	return top, deck[:len(deck)-1], nil
}
