// internal/game/effects.go
package game

import (
	"time"

	"github.com/jason-s-yu/peak/internal/models"
)

// resolveEffect applies the consequence of card, just played by the player at
// actorIdx. Effects that cannot apply are skipped. Assumes lock is held.
func (g *PeakGame) resolveEffect(actorIdx int, card models.Card) {
	actor := g.state.Players[actorIdx]

	switch card.Kind {
	case models.KindNumber:
		if card.IsHigh() && !g.state.HighCardPlayedThisRound {
			g.state.HighCardPlayedThisRound = true
			g.logf("A high card has been played! Cards 8-10 can now finish this round.")
			g.queue(GameEvent{Type: EventHighCardPlayed, PlayerID: actor.ID, Card: &card})
		}

	case models.KindPeak:
		targetIdx := g.nextActiveFrom(actorIdx)
		if targetIdx < 0 {
			g.logger.Debugf("Peak played by %s has no target.", actor.ID)
			return
		}
		target := g.state.Players[targetIdx]
		drawn := 0
		for i := 0; i < g.state.Rules.PeakPenalty; i++ {
			c, err := g.drawWithRecycle()
			if err != nil {
				g.logger.Warnf("Peak penalty for %s stopped after %d cards: %v", target.ID, drawn, err)
				break
			}
			target.Hand = append(target.Hand, c)
			drawn++
		}
		g.logf("%s played a Peak card! %s must draw %d cards.", actor.DisplayName, target.DisplayName, drawn)
		g.queue(GameEvent{
			Type:     EventPlayerPickupPenalty,
			PlayerID: actor.ID,
			TargetID: target.ID,
			Payload:  map[string]interface{}{"count": drawn, "handSize": len(target.Hand)},
		})
		g.checkHandLimit(targetIdx)

	case models.KindReverse:
		g.state.Direction = -g.state.Direction
		g.logf("%s reversed the direction of play!", actor.DisplayName)
		g.queue(GameEvent{Type: EventDirectionReversed, PlayerID: actor.ID, Payload: map[string]interface{}{"direction": g.state.Direction}})

	case models.KindStar:
		returned := 0
		for i, p := range g.state.Players {
			if i == actorIdx {
				continue
			}
			kept := p.Hand[:0:0]
			n := 0
			for _, c := range p.Hand {
				if c.Kind == models.KindPeak {
					g.state.Deck = append(g.state.Deck, c)
					n++
					continue
				}
				kept = append(kept, c)
			}
			p.Hand = kept
			if n > 0 {
				returned += n
				g.queue(GameEvent{Type: EventPeaksReturned, PlayerID: actor.ID, TargetID: p.ID, Payload: map[string]interface{}{"count": n}})
			}
		}
		Shuffle(g.rng, g.state.Deck)
		g.logf("%s played a Star card! %d Peak cards returned to the deck.", actor.DisplayName, returned)

	case models.KindGoblin:
		g.logf("%s played a Goblin card! Every other player receives a low card.", actor.DisplayName)
		for i, p := range g.state.Players {
			if i == actorIdx || !p.IsActive() {
				continue
			}
			c, ok := g.takeLowCard()
			if !ok {
				g.logger.Debugf("No low card left for Goblin gift to %s.", p.ID)
				continue
			}
			p.Hand = append(p.Hand, c)
			g.logf("%s receives a %s", p.DisplayName, c)
			g.queue(GameEvent{Type: EventGoblinGift, PlayerID: actor.ID, TargetID: p.ID, Payload: map[string]interface{}{"handSize": len(p.Hand)}})
			g.checkHandLimit(i)
		}

	case models.KindPause:
		targetIdx := g.nextActiveFrom(actorIdx)
		if targetIdx < 0 {
			g.logger.Debugf("Pause played by %s has no target.", actor.ID)
			return
		}
		target := g.state.Players[targetIdx]
		until := g.now().Add(time.Duration(g.state.Rules.PauseSeconds) * time.Second)
		target.PausedUntil = &until
		g.logf("%s paused %s for %d seconds.", actor.DisplayName, target.DisplayName, g.state.Rules.PauseSeconds)
		g.queue(GameEvent{Type: EventPlayerPaused, PlayerID: actor.ID, TargetID: target.ID, Payload: map[string]interface{}{"until": until}})

	default:
		g.logger.Warnf("Unknown card kind %q played by %s.", card.Kind, actor.ID)
	}
}

// nextActiveFrom scans from idx in the current direction and returns the first
// Active player other than idx, or -1. Assumes lock is held.
func (g *PeakGame) nextActiveFrom(idx int) int {
	n := len(g.state.Players)
	for step := 1; step < n; step++ {
		j := ((idx+step*g.state.Direction)%n + n) % n
		if g.state.Players[j].IsActive() {
			return j
		}
	}
	return -1
}

// takeLowCard pulls a card valued 1-4 out of the deck. The value is chosen
// uniformly; if no copy of it is left the other low values are tried in
// random order. When the deck holds none, the discard pile is recycled
// once before giving up. Assumes lock is held.
func (g *PeakGame) takeLowCard() (models.Card, bool) {
	if c, ok := g.pullLowCard(); ok {
		return c, true
	}
	if err := g.recycle(); err != nil {
		return models.Card{}, false
	}
	return g.pullLowCard()
}

func (g *PeakGame) pullLowCard() (models.Card, bool) {
	for _, i := range g.rng.Perm(4) {
		want := i + 1
		for j := len(g.state.Deck) - 1; j >= 0; j-- {
			c := g.state.Deck[j]
			if c.Kind == models.KindNumber && c.Value == want {
				g.state.Deck = append(g.state.Deck[:j], g.state.Deck[j+1:]...)
				return c, true
			}
		}
	}
	return models.Card{}, false
}
