// internal/game/utils.go
package game

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// EventBytes marshals a GameEvent into JSON bytes.
// Logs a warning and returns empty JSON "{}" on marshalling error.
func EventBytes(ev GameEvent) []byte {
	data, err := json.Marshal(ev)
	if err != nil {
		logrus.Warnf("Failed to marshal GameEvent type %s: %v", ev.Type, err)
		return []byte("{}")
	}
	return data
}

// PrivateSyncEvent wraps a player's view in a private_sync_state event.
func PrivateSyncEvent(view PlayerView) GameEvent {
	return GameEvent{Type: EventPrivateSyncState, PlayerID: view.ViewerID, State: &view}
}
