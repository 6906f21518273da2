// cmd/peak/choices_test.go
package main

import (
	"testing"

	"github.com/jason-s-yu/peak/internal/game"
	"github.com/jason-s-yu/peak/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableWithHand(hand ...models.Card) game.GameState {
	return game.GameState{
		Phase: game.PhaseInProgress,
		Players: []*models.Player{
			{ID: "ann", Hand: hand, Status: models.StatusActive},
			{ID: "ben", Hand: []models.Card{models.NumberCard(2)}, Status: models.StatusActive},
		},
	}
}

func TestTurnChoicesListsPlayableCards(t *testing.T) {
	st := tableWithHand(models.NumberCard(3), models.PeakCard(), models.NumberCard(9))
	choices := turnChoices(st, "ann", []int{0, 2}, true)

	require.Len(t, choices, 5)
	assert.Equal(t, turnChoice{Kind: choicePlay, HandIndex: 0, Label: "Play card 1: 3"}, choices[0])
	assert.Equal(t, turnChoice{Kind: choicePlay, HandIndex: 2, Label: "Play card 3: 9"}, choices[1])
	assert.Equal(t, choiceDraw, choices[2].Kind)
	assert.Equal(t, choiceLog, choices[3].Kind)
	assert.Equal(t, choiceQuit, choices[4].Kind)
}

func TestTurnChoicesOffersPassWhenStuck(t *testing.T) {
	st := tableWithHand()
	choices := turnChoices(st, "ann", nil, false)
	require.Len(t, choices, 3)
	assert.Equal(t, choicePass, choices[0].Kind)
}

func TestTurnChoicesLabelsAreUnique(t *testing.T) {
	st := tableWithHand(models.NumberCard(4), models.NumberCard(4))
	choices := turnChoices(st, "ann", []int{0, 1}, true)
	seen := map[string]bool{}
	for _, c := range choices {
		assert.False(t, seen[c.Label], c.Label)
		seen[c.Label] = true
	}
}
