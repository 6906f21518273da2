// internal/handlers/room.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jason-s-yu/peak/internal/game"
	"github.com/jason-s-yu/peak/internal/models"
	"github.com/jason-s-yu/peak/internal/roomsync"
)

type createRoomRequest struct {
	Players    []models.Participant   `json:"players"`
	HouseRules map[string]interface{} `json:"houseRules,omitempty"`
}

// CreateRoomHandler deals a new game for the posted roster and returns its room id.
// The caller must be seated in the roster.
func CreateRoomHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		self, err := authenticate(r)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		var req createRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		seated := false
		for _, p := range req.Players {
			if p.ID == self.ID {
				seated = true
				break
			}
		}
		if !seated {
			http.Error(w, "creator must be one of the players", http.StatusBadRequest)
			return
		}
		rules, err := game.ParseRules(req.HouseRules, gs.Rules)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		roomID, err := gs.CreateRoom(r.Context(), self, req.Players, rules)
		switch {
		case errors.Is(err, game.ErrInvalidPlayerCount), errors.Is(err, game.ErrDuplicatePlayer), errors.Is(err, game.ErrDealTooLarge):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case err != nil:
			gs.Logger.Errorf("failed to create room for %s: %v", self.ID, err)
			http.Error(w, "failed to create room", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"roomId": roomID})
	}
}

// GetRoomHandler returns the caller's view of a room: GET /room/{id}.
func GetRoomHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		self, err := authenticate(r)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		roomID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/room/"), "/")
		if roomID == "" {
			http.Error(w, "missing room id", http.StatusBadRequest)
			return
		}
		doc, err := gs.Store.Get(r.Context(), roomID)
		if errors.Is(err, roomsync.ErrRoomNotFound) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "failed to load room", http.StatusInternalServerError)
			return
		}
		if doc.State.PlayerByID(self.ID) == nil {
			http.Error(w, "not a player in this room", http.StatusForbidden)
			return
		}
		writeJSON(w, http.StatusOK, game.ViewOf(doc.State, self.ID))
	}
}
