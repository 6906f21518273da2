// internal/game/errors.go
package game

import "errors"

// User-input errors. The engine guarantees no state mutation when one of
// these is returned, so callers may retry immediately with another action.
var (
	ErrNotYourTurn       = errors.New("not your turn")
	ErrInvalidCardIndex  = errors.New("invalid card index")
	ErrPlayerInactive    = errors.New("player is not active")
	ErrIllegalPlay       = errors.New("card cannot be played on the current pile")
	ErrUnknownPlayer     = errors.New("unknown player")
	ErrGameNotInProgress = errors.New("game is not in progress")
)

// Resource-exhaustion errors.
var (
	ErrEmptyDeck        = errors.New("deck is empty")
	ErrNoCardsAvailable = errors.New("no cards available in deck or discard pile")
)

// Setup errors.
var (
	ErrInvalidPlayerCount = errors.New("peak requires 2 to 4 players")
	ErrDuplicatePlayer    = errors.New("duplicate or empty player id")
	ErrAlreadyStarted     = errors.New("game already started")
	ErrDealTooLarge       = errors.New("starting hands exceed the deck")
)

// IsUserError reports whether err is a validation error caused by the acting
// client rather than by the engine or its collaborators.
func IsUserError(err error) bool {
	return errors.Is(err, ErrNotYourTurn) ||
		errors.Is(err, ErrInvalidCardIndex) ||
		errors.Is(err, ErrPlayerInactive) ||
		errors.Is(err, ErrIllegalPlay) ||
		errors.Is(err, ErrUnknownPlayer)
}
