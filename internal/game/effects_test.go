// internal/game/effects_test.go
package game

import (
	"testing"
	"time"

	"github.com/jason-s-yu/peak/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countPeaks(hand []models.Card) int {
	n := 0
	for _, c := range hand {
		if c.Kind == models.KindPeak {
			n++
		}
	}
	return n
}

func TestPeakPenaltyHitsNextPlayer(t *testing.T) {
	g, mb, _ := setupTestGame(t, 4, nil)
	require.Len(t, g.Snapshot().Deck, 30)
	giveCard(t, g, 0, models.PeakCard())
	before := g.Snapshot()

	require.NoError(t, g.PlayCard("p1", 0))
	s := g.Snapshot()

	assert.Len(t, s.Players[1].Hand, len(before.Players[1].Hand)+5)
	assert.Len(t, s.Players[2].Hand, len(before.Players[2].Hand))
	assert.Len(t, s.Deck, 25)
	assert.Equal(t, 58, s.CardCount())
	assert.Equal(t, 1, s.CurrentPlayerIndex)

	penalties := mb.eventsOfType(EventPlayerPickupPenalty)
	require.Len(t, penalties, 1)
	assert.Equal(t, "p2", penalties[0].TargetID)
	assert.Equal(t, 5, penalties[0].Payload["count"])
}

func TestPeakFollowsDirectionAndSkipsInactive(t *testing.T) {
	g, _, _ := setupTestGame(t, 4, nil)
	g.mu.Lock()
	g.state.Direction = -1
	g.state.Players[3].Status = models.StatusFinished
	g.mu.Unlock()
	giveCard(t, g, 0, models.PeakCard())
	before := g.Snapshot()

	require.NoError(t, g.PlayCard("p1", 0))
	s := g.Snapshot()

	assert.Len(t, s.Players[3].Hand, len(before.Players[3].Hand))
	assert.Len(t, s.Players[2].Hand, len(before.Players[2].Hand)+5)
	assert.Equal(t, 2, s.CurrentPlayerIndex)
}

func TestPeakPenaltyStopsWhenCardsRunOut(t *testing.T) {
	g, _, _ := setupTestGame(t, 3, nil)
	giveCard(t, g, 0, models.PeakCard())
	g.mu.Lock()
	// leave two cards in the deck and nothing to recycle
	spare := g.state.Deck[2:]
	g.state.Deck = g.state.Deck[:2:2]
	g.state.DiscardPile = nil
	g.mu.Unlock()
	require.NotEmpty(t, spare)
	before := g.Snapshot()

	require.NoError(t, g.PlayCard("p1", 0))
	s := g.Snapshot()
	assert.Len(t, s.Players[1].Hand, len(before.Players[1].Hand)+2)
	assert.Empty(t, s.Deck)
	assert.Equal(t, PhaseInProgress, s.Phase)
}

func TestReverseFlipsDirection(t *testing.T) {
	g, mb, _ := setupTestGame(t, 4, nil)
	giveCard(t, g, 0, models.ReverseCard())

	require.NoError(t, g.PlayCard("p1", 0))
	s := g.Snapshot()
	assert.Equal(t, -1, s.Direction)
	assert.Equal(t, 3, s.CurrentPlayerIndex, "no player is skipped")
	assert.Len(t, mb.eventsOfType(EventDirectionReversed), 1)
}

func TestDoubleReverseRestoresDirection(t *testing.T) {
	g, _, _ := setupTestGame(t, 4, nil)
	giveCard(t, g, 0, models.ReverseCard())
	giveCard(t, g, 3, models.ReverseCard())

	require.NoError(t, g.PlayCard("p1", 0))
	require.NoError(t, g.PlayCard("p4", 0))
	s := g.Snapshot()
	assert.Equal(t, 1, s.Direction)
	assert.Equal(t, 0, s.CurrentPlayerIndex)
	assert.Equal(t, 58, s.CardCount())
}

func TestStarReturnsPeaksToDeck(t *testing.T) {
	g, mb, _ := setupTestGame(t, 3, nil)
	giveCard(t, g, 1, models.PeakCard())
	giveCard(t, g, 2, models.PeakCard())
	giveCard(t, g, 0, models.StarCard())
	before := g.Snapshot()
	othersPeaks := countPeaks(before.Players[1].Hand) + countPeaks(before.Players[2].Hand)
	require.GreaterOrEqual(t, othersPeaks, 2)

	require.NoError(t, g.PlayCard("p1", 0))
	s := g.Snapshot()

	assert.Zero(t, countPeaks(s.Players[1].Hand))
	assert.Zero(t, countPeaks(s.Players[2].Hand))
	assert.Equal(t, countPeaks(before.Players[0].Hand), countPeaks(s.Players[0].Hand), "the actor keeps their Peaks")
	assert.Len(t, s.Deck, len(before.Deck)+othersPeaks)
	assert.Equal(t, 58, s.CardCount())
	assert.Len(t, mb.eventsOfType(EventPeaksReturned), 2)
}

func TestGoblinGivesLowCards(t *testing.T) {
	g, mb, _ := setupTestGame(t, 3, nil)
	giveCard(t, g, 0, models.GoblinCard())
	before := g.Snapshot()

	require.NoError(t, g.PlayCard("p1", 0))
	s := g.Snapshot()

	for i := 1; i <= 2; i++ {
		hand := s.Players[i].Hand
		require.Len(t, hand, len(before.Players[i].Hand)+1)
		gift := hand[len(hand)-1]
		assert.Equal(t, models.KindNumber, gift.Kind)
		assert.GreaterOrEqual(t, gift.Value, 1)
		assert.LessOrEqual(t, gift.Value, 4)
	}
	assert.Len(t, s.Players[0].Hand, len(before.Players[0].Hand)-1)
	assert.Len(t, s.Deck, len(before.Deck)-2)
	assert.Equal(t, 58, s.CardCount())
	assert.Len(t, mb.eventsOfType(EventGoblinGift), 2)
}

func TestGoblinSkipsInactiveAndMissingCards(t *testing.T) {
	g, _, _ := setupTestGame(t, 3, nil)
	giveCard(t, g, 0, models.GoblinCard())
	g.mu.Lock()
	g.state.Players[2].Status = models.StatusFinished
	// no low cards anywhere in the deck
	var deck []models.Card
	for _, c := range g.state.Deck {
		if c.Kind != models.KindNumber || c.Value > 4 {
			deck = append(deck, c)
		}
	}
	g.state.Deck = deck
	g.mu.Unlock()
	before := g.Snapshot()

	require.NoError(t, g.PlayCard("p1", 0))
	s := g.Snapshot()
	assert.Len(t, s.Players[1].Hand, len(before.Players[1].Hand))
	assert.Len(t, s.Players[2].Hand, len(before.Players[2].Hand))
	assert.Len(t, s.Deck, len(before.Deck))
}

func TestGoblinRecyclesDiscardForLowCards(t *testing.T) {
	g, _, _ := setupTestGame(t, 2, nil)
	giveCard(t, g, 0, models.GoblinCard())
	g.mu.Lock()
	// every low card sits in the discard pile, the deck keeps the rest
	var deck, discard []models.Card
	for _, c := range g.state.Deck {
		if c.Kind == models.KindNumber && c.Value <= 4 {
			discard = append(discard, c)
			continue
		}
		deck = append(deck, c)
	}
	g.state.Deck = deck
	g.state.DiscardPile = discard
	g.mu.Unlock()
	require.NotEmpty(t, discard)
	before := g.Snapshot()

	require.NoError(t, g.PlayCard("p1", 0))
	s := g.Snapshot()
	hand := s.Players[1].Hand
	require.Len(t, hand, len(before.Players[1].Hand)+1)
	gift := hand[len(hand)-1]
	assert.Equal(t, models.KindNumber, gift.Kind)
	assert.LessOrEqual(t, gift.Value, 4)
	assert.Equal(t, []models.Card{models.GoblinCard()}, s.DiscardPile)
	assert.Equal(t, 58, s.CardCount())
}

func TestGoblinCanDisqualify(t *testing.T) {
	g, _, _ := setupTestGame(t, 3, nil)
	giveCard(t, g, 0, models.GoblinCard())
	moveToHand(t, g, 2, 13)

	require.NoError(t, g.PlayCard("p1", 0))
	s := g.Snapshot()
	assert.Len(t, s.Players[2].Hand, 21)
	assert.Equal(t, models.StatusDisqualified, s.Players[2].Status)
	assert.Equal(t, models.StatusActive, s.Players[1].Status)
}

func TestPauseSkipsTargetUntilExpiry(t *testing.T) {
	g, mb, clock := setupTestGame(t, 4, nil)
	giveCard(t, g, 0, models.PauseCard())

	require.NoError(t, g.PlayCard("p1", 0))
	s := g.Snapshot()
	require.NotNil(t, s.Players[1].PausedUntil)
	assert.Equal(t, clock.Now().Add(120*time.Second), *s.Players[1].PausedUntil)
	assert.Equal(t, 2, s.CurrentPlayerIndex, "paused player is skipped")
	assert.Len(t, mb.eventsOfType(EventPlayerPaused), 1)

	clock.Advance(121 * time.Second)
	require.NoError(t, g.DrawCard("p3"))
	require.NoError(t, g.DrawCard("p4"))
	require.NoError(t, g.DrawCard("p1"))
	s = g.Snapshot()
	assert.Equal(t, 1, s.CurrentPlayerIndex)
	assert.Nil(t, s.Players[1].PausedUntil)
	assert.Len(t, mb.eventsOfType(EventPlayerUnpaused), 1)
}

func TestPauseStillActiveSkipsAgain(t *testing.T) {
	g, _, clock := setupTestGame(t, 3, nil)
	giveCard(t, g, 0, models.PauseCard())
	require.NoError(t, g.PlayCard("p1", 0))
	clock.Advance(30 * time.Second)

	require.NoError(t, g.DrawCard("p3"))
	assert.Equal(t, 0, g.Snapshot().CurrentPlayerIndex)
	require.NoError(t, g.DrawCard("p1"))
	assert.Equal(t, 2, g.Snapshot().CurrentPlayerIndex)
}

func TestAllPausedFallsBackToNearest(t *testing.T) {
	g, mb, clock := setupTestGame(t, 3, nil)
	until := clock.Now().Add(time.Hour)
	g.mu.Lock()
	for _, p := range g.state.Players {
		u := until
		p.PausedUntil = &u
	}
	g.mu.Unlock()
	mb.clear()

	require.NoError(t, g.AdvanceTurn())
	s := g.Snapshot()
	assert.Equal(t, 1, s.CurrentPlayerIndex)
	assert.Nil(t, s.Players[1].PausedUntil)
	assert.NotNil(t, s.Players[2].PausedUntil)
	assert.Len(t, mb.eventsOfType(EventPlayerUnpaused), 1)
}

func TestNextActiveFromWraps(t *testing.T) {
	g, _, _ := setupTestGame(t, 4, nil)
	g.mu.Lock()
	defer g.mu.Unlock()
	assert.Equal(t, 0, g.nextActiveFrom(3))
	g.state.Direction = -1
	assert.Equal(t, 3, g.nextActiveFrom(0))
	for _, p := range g.state.Players[1:] {
		p.Status = models.StatusDisqualified
	}
	assert.Equal(t, -1, g.nextActiveFrom(0))
}
