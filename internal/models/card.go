// internal/models/card.go
package models

import (
	"fmt"
	"strconv"
)

// CardKind is the closed set of card kinds in a Peak deck.
type CardKind string

const (
	KindNumber  CardKind = "number"
	KindPeak    CardKind = "peak"
	KindReverse CardKind = "reverse"
	KindStar    CardKind = "star"
	KindGoblin  CardKind = "goblin"
	KindPause   CardKind = "pause"
)

// Valid reports whether k is one of the known kinds.
func (k CardKind) Valid() bool {
	switch k {
	case KindNumber, KindPeak, KindReverse, KindStar, KindGoblin, KindPause:
		return true
	}
	return false
}

// Card is an immutable card value. Cards are fungible within a kind; Value is
// only meaningful (1..10) for numbered cards and zero for specials.
type Card struct {
	Kind  CardKind `json:"kind"`
	Value int      `json:"value,omitempty"`
}

// NumberCard returns a numbered card. It panics on values outside 1..10.
func NumberCard(v int) Card {
	if v < 1 || v > 10 {
		panic(fmt.Sprintf("models: invalid number card value %d", v))
	}
	return Card{Kind: KindNumber, Value: v}
}

func PeakCard() Card    { return Card{Kind: KindPeak} }
func ReverseCard() Card { return Card{Kind: KindReverse} }
func StarCard() Card    { return Card{Kind: KindStar} }
func GoblinCard() Card  { return Card{Kind: KindGoblin} }
func PauseCard() Card   { return Card{Kind: KindPause} }

// IsSpecial is true for every kind except numbered cards.
func (c Card) IsSpecial() bool { return c.Kind != KindNumber }

// IsHigh reports whether c is an 8, 9 or 10.
func (c Card) IsHigh() bool { return c.Kind == KindNumber && c.Value >= 8 && c.Value <= 10 }

func (c Card) String() string {
	switch c.Kind {
	case KindNumber:
		return strconv.Itoa(c.Value)
	case KindPeak:
		return "Peak"
	case KindReverse:
		return "Reverse"
	case KindStar:
		return "Star"
	case KindGoblin:
		return "Goblin"
	case KindPause:
		return "Pause"
	}
	return "?"
}
