// internal/models/player.go
package models

import "time"

// PlayerStatus tracks whether a player is still taking turns.
type PlayerStatus string

const (
	StatusActive       PlayerStatus = "active"
	StatusFinished     PlayerStatus = "finished"
	StatusDisqualified PlayerStatus = "disqualified"
)

// Participant is the identity handed to the engine by matchmaking/auth.
// Both fields are opaque to the game.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Player is owned by the turn engine; callers must not mutate it directly.
type Player struct {
	ID          string       `json:"id"`
	DisplayName string       `json:"displayName"`
	Hand        []Card       `json:"hand"`
	Status      PlayerStatus `json:"status"`
	PausedUntil *time.Time   `json:"pausedUntil,omitempty"`
}

// IsActive is true while the player still takes turns.
func (p *Player) IsActive() bool { return p.Status == StatusActive }

// IsPaused reports whether the player is paused at instant now.
func (p *Player) IsPaused(now time.Time) bool {
	return p.PausedUntil != nil && now.Before(*p.PausedUntil)
}

// Clone returns a deep copy of the player.
func (p *Player) Clone() *Player {
	cp := *p
	cp.Hand = append([]Card(nil), p.Hand...)
	if p.PausedUntil != nil {
		t := *p.PausedUntil
		cp.PausedUntil = &t
	}
	return &cp
}
