// internal/models/game_action.go
package models

// GameAction captures a player's in-game move as received from a client.
type GameAction struct {
	Type string `json:"type"`

	// HandIndex selects the card for ActionPlayCard.
	HandIndex *int `json:"handIndex,omitempty"`
}

const (
	ActionPlayCard   = "action_play"
	ActionDrawCard   = "action_draw"
	ActionGetOptions = "get_options"
	ActionPing       = "ping"
)
