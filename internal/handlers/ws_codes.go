// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the game handler.
// These provide more specific reasons for closure than standard codes.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Provided auth token was invalid or expired.
	NotInGameError        = 3002 // Authenticated participant is not seated in the room.
	InvalidRoomIDError    = 3003 // Target room in the WS URL does not exist or is invalid.
)
