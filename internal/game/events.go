// internal/game/events.go
package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/peak/internal/models"
)

// GameEventType is an enum-like type for broadcasting game actions.
type GameEventType string

const (
	EventGameStart           GameEventType = "game_start"
	EventPlayerPlayCard      GameEventType = "player_play_card"
	EventPlayerDrawCard      GameEventType = "player_draw_card"      // public; the drawn card is not revealed
	EventPlayerPickupPenalty GameEventType = "player_pickup_penalty" // Peak victim drew cards
	EventDirectionReversed   GameEventType = "game_direction_reversed"
	EventPeaksReturned       GameEventType = "player_peaks_returned" // Star stripped Peak cards from a hand
	EventGoblinGift          GameEventType = "player_goblin_gift"
	EventPlayerPaused        GameEventType = "player_paused"
	EventPlayerUnpaused      GameEventType = "player_unpaused"
	EventHighCardPlayed      GameEventType = "game_high_card_played"
	EventPlayerFinished      GameEventType = "player_finished"
	EventFinishDenied        GameEventType = "player_finish_denied" // emptied hand on a card that cannot finish
	EventPlayerDisqualified  GameEventType = "player_disqualified"
	EventGameReshuffleDeck   GameEventType = "game_reshuffle_deck"
	EventGamePlayerTurn      GameEventType = "game_player_turn"
	EventGameNewRound        GameEventType = "game_new_round"
	EventGameEnd             GameEventType = "game_end"
	EventPrivateSyncState    GameEventType = "private_sync_state"
)

// GameEvent holds data about an event that can be broadcast to clients in a consistent format.
type GameEvent struct {
	Type     GameEventType          `json:"type"`
	Index    int                    `json:"index,omitempty"` // position in the game's action sequence
	PlayerID string                 `json:"playerId,omitempty"`
	TargetID string                 `json:"targetId,omitempty"`
	Card     *models.Card           `json:"card,omitempty"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
	State    *PlayerView            `json:"state,omitempty"`
}

// GameResult is handed to OnGameEnd exactly once per game.
type GameResult struct {
	GameID       uuid.UUID            `json:"gameId"`
	WinnerID     string               `json:"winnerId,omitempty"`
	FinishOrder  []string             `json:"finishOrder"`
	Disqualified []string             `json:"disqualified"`
	Players      []models.Participant `json:"players"`
	Rounds       int                  `json:"rounds"`
	Log          []string             `json:"log"`
	EndedAt      time.Time            `json:"endedAt"`
}
