// internal/handlers/queue.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/jason-s-yu/peak/internal/matchmaking"
)

// QueueJoinHandler long-polls until the caller is matched, then returns the
// room id and roster. A timed out wait answers 408.
func QueueJoinHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if gs.Queue == nil {
			http.Error(w, "matchmaking disabled", http.StatusServiceUnavailable)
			return
		}
		self, err := authenticate(r)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		gs.Logger.Debugf("%s joined the matchmaking queue", self.ID)
		m, err := gs.Queue.Join(r.Context(), self)
		switch {
		case errors.Is(err, matchmaking.ErrQueueTimeout):
			http.Error(w, err.Error(), http.StatusRequestTimeout)
		case errors.Is(err, matchmaking.ErrAlreadyQueued):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, matchmaking.ErrLeftQueue):
			http.Error(w, err.Error(), http.StatusGone)
		case err != nil:
			// client went away
			gs.Logger.Debugf("%s left the matchmaking queue: %v", self.ID, err)
		default:
			writeJSON(w, http.StatusOK, m)
		}
	}
}

// QueueLeaveHandler removes the caller from the queue.
func QueueLeaveHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if gs.Queue == nil {
			http.Error(w, "matchmaking disabled", http.StatusServiceUnavailable)
			return
		}
		self, err := authenticate(r)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"left": gs.Queue.Leave(self.ID)})
	}
}
