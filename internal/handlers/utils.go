// internal/handlers/utils.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jason-s-yu/peak/internal/auth"
	"github.com/jason-s-yu/peak/internal/game"
	"github.com/jason-s-yu/peak/internal/models"
	"github.com/jason-s-yu/peak/internal/roomsync"
	"github.com/sirupsen/logrus"
)

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("failed to encode response: %v", err)
	}
}

// authenticate returns the participant named by the request's token.
func authenticate(r *http.Request) (models.Participant, error) {
	token := auth.TokenFromRequest(r)
	if token == "" {
		return models.Participant{}, errors.New("missing auth token")
	}
	return auth.AuthenticateJWT(token)
}

// errorCode maps an action error to the code sent to clients.
func errorCode(err error) string {
	switch {
	case errors.Is(err, game.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, game.ErrInvalidCardIndex):
		return "invalid_card_index"
	case errors.Is(err, game.ErrPlayerInactive):
		return "player_inactive"
	case errors.Is(err, game.ErrIllegalPlay):
		return "illegal_play"
	case errors.Is(err, game.ErrUnknownPlayer):
		return "unknown_player"
	case errors.Is(err, game.ErrGameNotInProgress):
		return "game_not_in_progress"
	case errors.Is(err, game.ErrNoCardsAvailable):
		return "no_cards_available"
	case errors.Is(err, roomsync.ErrStaleState):
		return "stale_state"
	case errors.Is(err, roomsync.ErrRoomNotFound):
		return "room_not_found"
	}
	return "internal_error"
}
