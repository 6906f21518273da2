// internal/game/sync_state.go
package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/peak/internal/models"
)

// Phase is the lifecycle stage of a game.
type Phase string

const (
	PhaseWaiting    Phase = "waiting"
	PhaseDealing    Phase = "dealing"
	PhaseInProgress Phase = "in_progress"
	PhaseFinished   Phase = "finished"
)

// GameState is the full authoritative state of one game. It is the document
// replicated through the shared store, so every field is serializable.
type GameState struct {
	GameID                  uuid.UUID        `json:"gameId"`
	Phase                   Phase            `json:"phase"`
	Rules                   HouseRules       `json:"rules"`
	Players                 []*models.Player `json:"players"`
	CurrentPlayerIndex      int              `json:"currentPlayerIndex"`
	Direction               int              `json:"direction"`
	Deck                    []models.Card    `json:"deck"`
	DiscardPile             []models.Card    `json:"discardPile"`
	LastPlayedCard          *models.Card     `json:"lastPlayedCard,omitempty"`
	HighCardPlayedThisRound bool             `json:"highCardPlayedThisRound"`
	Round                   int              `json:"round"`
	Log                     []string         `json:"log"`
	FinishOrder             []string         `json:"finishOrder"`
	WinnerID                string           `json:"winnerId,omitempty"`

	// ActionCount is the index of the last event queued in this game.
	ActionCount int `json:"actionCount"`

	// Version increases by one with every committed mutation.
	Version uint64 `json:"version"`
}

// Clone returns a deep copy that shares no slices or pointers with s.
func (s GameState) Clone() GameState {
	cp := s
	cp.Players = make([]*models.Player, len(s.Players))
	for i, p := range s.Players {
		cp.Players[i] = p.Clone()
	}
	cp.Deck = append([]models.Card(nil), s.Deck...)
	cp.DiscardPile = append([]models.Card(nil), s.DiscardPile...)
	cp.Log = append([]string(nil), s.Log...)
	cp.FinishOrder = append([]string(nil), s.FinishOrder...)
	if s.LastPlayedCard != nil {
		c := *s.LastPlayedCard
		cp.LastPlayedCard = &c
	}
	return cp
}

// CardCount returns deck + all hands + discard pile.
func (s *GameState) CardCount() int {
	n := len(s.Deck) + len(s.DiscardPile)
	for _, p := range s.Players {
		n += len(p.Hand)
	}
	return n
}

// CurrentPlayer returns the player whose turn it is, or nil before dealing.
func (s *GameState) CurrentPlayer() *models.Player {
	if s.CurrentPlayerIndex < 0 || s.CurrentPlayerIndex >= len(s.Players) {
		return nil
	}
	return s.Players[s.CurrentPlayerIndex]
}

// PlayerByID returns the player with the given id, or nil.
func (s *GameState) PlayerByID(id string) *models.Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PlayerViewState is the minimal state of one player as seen by another.
type PlayerViewState struct {
	PlayerID      string              `json:"playerId"`
	DisplayName   string              `json:"displayName"`
	HandSize      int                 `json:"handSize"`
	Status        models.PlayerStatus `json:"status"`
	PausedUntil   *time.Time          `json:"pausedUntil,omitempty"`
	IsCurrentTurn bool                `json:"isCurrentTurn"`
	Hand          []models.Card       `json:"hand,omitempty"` // only for the requesting player
}

// PlayerView is a snapshot of the game from one player's perspective; other
// players' hands and the deck order stay hidden.
type PlayerView struct {
	GameID                  uuid.UUID         `json:"gameId"`
	ViewerID                string            `json:"viewerId,omitempty"`
	Phase                   Phase             `json:"phase"`
	CurrentPlayerID         string            `json:"currentPlayerId"`
	Direction               int               `json:"direction"`
	DeckSize                int               `json:"deckSize"`
	DiscardSize             int               `json:"discardSize"`
	LastPlayedCard          *models.Card      `json:"lastPlayedCard,omitempty"`
	HighCardPlayedThisRound bool              `json:"highCardPlayedThisRound"`
	Round                   int               `json:"round"`
	WinnerID                string            `json:"winnerId,omitempty"`
	Version                 uint64            `json:"version"`
	Players                 []PlayerViewState `json:"players"`
	Log                     []string          `json:"log,omitempty"`
}

// ViewOf builds the PlayerView of s for forPlayer.
func ViewOf(s GameState, forPlayer string) PlayerView {
	v := PlayerView{
		GameID:                  s.GameID,
		ViewerID:                forPlayer,
		Phase:                   s.Phase,
		Direction:               s.Direction,
		DeckSize:                len(s.Deck),
		DiscardSize:             len(s.DiscardPile),
		HighCardPlayedThisRound: s.HighCardPlayedThisRound,
		Round:                   s.Round,
		WinnerID:                s.WinnerID,
		Version:                 s.Version,
		Log:                     append([]string(nil), s.Log...),
	}
	if s.LastPlayedCard != nil {
		c := *s.LastPlayedCard
		v.LastPlayedCard = &c
	}
	if cur := s.CurrentPlayer(); cur != nil && s.Phase == PhaseInProgress {
		v.CurrentPlayerID = cur.ID
	}
	for i, p := range s.Players {
		ps := PlayerViewState{
			PlayerID:      p.ID,
			DisplayName:   p.DisplayName,
			HandSize:      len(p.Hand),
			Status:        p.Status,
			PausedUntil:   p.PausedUntil,
			IsCurrentTurn: s.Phase == PhaseInProgress && i == s.CurrentPlayerIndex,
		}
		if p.ID == forPlayer {
			ps.Hand = append([]models.Card{}, p.Hand...)
		}
		v.Players = append(v.Players, ps)
	}
	return v
}
