// internal/game/rules.go
package game

import (
	"fmt"

	"github.com/jason-s-yu/peak/internal/models"
)

const (
	MinPlayers = 2
	MaxPlayers = 4
)

// PlayContext is everything a Validator may look at besides the card itself.
type PlayContext struct {
	LastPlayed              *models.Card
	HighCardPlayedThisRound bool
}

// Validator decides legal plays and legal finishes. Implementations must be pure.
type Validator interface {
	CanPlay(card models.Card, ctx PlayContext) bool
	CanFinishOn(card models.Card, ctx PlayContext) bool
}

// StandardRules lets any card be played; only finishing is restricted.
type StandardRules struct{}

func (StandardRules) CanPlay(models.Card, PlayContext) bool { return true }

// CanFinishOn: specials never finish, 1-4 and 7 never finish, 5-6 always
// finish, and 8-10 finish only once a high card has been shown this round.
func (StandardRules) CanFinishOn(card models.Card, ctx PlayContext) bool {
	if card.Kind != models.KindNumber {
		return false
	}
	switch {
	case card.Value >= 5 && card.Value <= 6:
		return true
	case card.Value >= 8 && card.Value <= 10:
		return ctx.HighCardPlayedThisRound
	}
	return false
}

// AdjacencyRules only accepts numbered cards that match or neighbour the last
// numbered card. Specials are always playable and reset the constraint.
type AdjacencyRules struct {
	StandardRules
}

func (AdjacencyRules) CanPlay(card models.Card, ctx PlayContext) bool {
	if card.IsSpecial() || ctx.LastPlayed == nil || ctx.LastPlayed.IsSpecial() {
		return true
	}
	diff := card.Value - ctx.LastPlayed.Value
	return diff >= -1 && diff <= 1
}

// HouseRules are the lobby-configurable knobs of a game.
type HouseRules struct {
	StrictAdjacency  bool `json:"strictAdjacency"`  // numbered cards must match or neighbour the last one
	ClassicDeck      bool `json:"classicDeck"`      // Peak is the only special card
	StartingHandSize int  `json:"startingHandSize"` // cards dealt to each player
	HandLimit        int  `json:"handLimit"`        // hand sizes above this disqualify
	PeakPenalty      int  `json:"peakPenalty"`      // cards drawn by the victim of a Peak
	PauseSeconds     int  `json:"pauseSeconds"`     // how long a Pause card sidelines its target
}

// DefaultHouseRules returns the canonical ruleset.
func DefaultHouseRules() HouseRules {
	return HouseRules{
		StartingHandSize: 7,
		HandLimit:        20,
		PeakPenalty:      5,
		PauseSeconds:     120,
	}
}

// Validator returns the play validator these rules call for.
func (rules HouseRules) Validator() Validator {
	if rules.StrictAdjacency {
		return AdjacencyRules{}
	}
	return StandardRules{}
}

// Composition returns the deck composition these rules call for.
func (rules HouseRules) Composition() Composition {
	if rules.ClassicDeck {
		return ClassicComposition
	}
	return DefaultComposition
}

// Update will update the house rules with the new rules provided.
// Keys that are absent or nil are ignored and the old value persists.
func (rules *HouseRules) Update(newRules map[string]interface{}) error {
	assignBool := func(field *bool, key string) error {
		if val, exists := newRules[key]; exists && val != nil {
			b, ok := val.(bool)
			if !ok {
				return fmt.Errorf("invalid type for %s", key)
			}
			*field = b
		}
		return nil
	}

	assignInt := func(field *int, key string, minVal int) error {
		val, exists := newRules[key]
		if !exists || val == nil {
			return nil
		}
		var n int
		// JSON numbers decode as float64
		switch v := val.(type) {
		case float64:
			n = int(v)
		case int:
			n = v
		default:
			return fmt.Errorf("invalid type for %s", key)
		}
		if n < minVal {
			return fmt.Errorf("%s must be at least %d", key, minVal)
		}
		*field = n
		return nil
	}

	if err := assignBool(&rules.StrictAdjacency, "strictAdjacency"); err != nil {
		return err
	}
	if err := assignBool(&rules.ClassicDeck, "classicDeck"); err != nil {
		return err
	}
	if err := assignInt(&rules.StartingHandSize, "startingHandSize", 1); err != nil {
		return err
	}
	if err := assignInt(&rules.HandLimit, "handLimit", 1); err != nil {
		return err
	}
	if err := assignInt(&rules.PeakPenalty, "peakPenalty", 0); err != nil {
		return err
	}
	if err := assignInt(&rules.PauseSeconds, "pauseSeconds", 0); err != nil {
		return err
	}
	return nil
}

// ParseRules applies a map of rule overrides to a copy of current.
func ParseRules(rules map[string]interface{}, current HouseRules) (HouseRules, error) {
	houseRules := current
	err := houseRules.Update(rules)
	return houseRules, err
}

// validateRoster checks player count and id uniqueness.
func validateRoster(roster []models.Participant) error {
	if len(roster) < MinPlayers || len(roster) > MaxPlayers {
		return fmt.Errorf("%w: got %d", ErrInvalidPlayerCount, len(roster))
	}
	seen := make(map[string]bool, len(roster))
	for _, p := range roster {
		if p.ID == "" || seen[p.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicatePlayer, p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}
