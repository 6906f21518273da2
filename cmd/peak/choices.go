// cmd/peak/choices.go
package main

import (
	"fmt"

	"github.com/jason-s-yu/peak/internal/game"
)

type choiceKind int

const (
	choicePlay choiceKind = iota
	choiceDraw
	choicePass
	choiceLog
	choiceQuit
)

type turnChoice struct {
	Kind      choiceKind
	HandIndex int
	Label     string
}

// turnChoices lists the moves offered to playerID. Pass is offered only when
// the player can neither play nor draw.
func turnChoices(st game.GameState, playerID string, playable []int, canDraw bool) []turnChoice {
	var out []turnChoice
	p := st.PlayerByID(playerID)
	if p != nil {
		for _, i := range playable {
			out = append(out, turnChoice{
				Kind:      choicePlay,
				HandIndex: i,
				Label:     fmt.Sprintf("Play card %d: %s", i+1, p.Hand[i]),
			})
		}
	}
	if canDraw {
		out = append(out, turnChoice{Kind: choiceDraw, Label: "Draw a card"})
	}
	if len(playable) == 0 && !canDraw {
		out = append(out, turnChoice{Kind: choicePass, Label: "Pass (no moves available)"})
	}
	out = append(out,
		turnChoice{Kind: choiceLog, Label: "Show game log"},
		turnChoice{Kind: choiceQuit, Label: "Quit game"},
	)
	return out
}
