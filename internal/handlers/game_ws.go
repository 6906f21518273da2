// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/peak/internal/game"
	"github.com/jason-s-yu/peak/internal/middleware"
	"github.com/jason-s-yu/peak/internal/models"
	"github.com/jason-s-yu/peak/internal/roomsync"
	"github.com/sirupsen/logrus"
)

const writeTimeout = 3 * time.Second

// session is one participant's socket in one room.
type session struct {
	c      *websocket.Conn
	self   models.Participant
	logger *logrus.Entry
	seated atomic.Bool
}

// GameWSHandler upgrades /game/ws/{room_id} to a WebSocket for an
// authenticated participant, joins the room through a sync adapter and
// relays actions and state until the socket closes.
func GameWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := strings.Split(strings.TrimPrefix(r.URL.Path, "/game/ws/"), "/")[0]
		if roomID == "" {
			http.Error(w, "Missing room_id in path (/game/ws/{room_id})", http.StatusBadRequest)
			return
		}
		self, err := authenticate(r)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"game"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for room %s: %v", roomID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != "game" {
			c.Close(BadSubprotocolError, "Client must use the 'game' subprotocol.")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		s := &session{
			c:      c,
			self:   self,
			logger: logger.WithFields(logrus.Fields{"room": roomID, "participant": self.ID}),
		}
		a := gs.newAdapter(self)
		a.OnChange = s.sendState
		a.OnMemberJoined = func(id string) { s.send(map[string]string{"type": "player_connected", "playerId": id}) }
		a.OnMemberLeft = func(id string) { s.send(map[string]string{"type": "player_disconnected", "playerId": id}) }

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		if err := a.JoinRoom(ctx, roomID); err != nil {
			s.logger.Warnf("failed to join room: %v", err)
			c.Close(InvalidRoomIDError, "Room not found.")
			return
		}
		defer func() {
			leaveCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			defer cancel()
			if err := a.Leave(leaveCtx); err != nil {
				s.logger.Warnf("failed to leave room: %v", err)
			}
		}()

		state := a.Game().Snapshot()
		if state.PlayerByID(self.ID) == nil {
			c.Close(NotInGameError, "You are not a player in this game.")
			return
		}
		s.seated.Store(true)
		s.sendState(a.Game().Snapshot())

		err = readGameMessages(ctx, s, a)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, err)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// readGameMessages reads and dispatches client messages until the socket
// fails or ctx ends.
func readGameMessages(ctx context.Context, s *session, a *roomsync.Adapter) error {
	for {
		msgType, data, err := s.c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			s.logger.Warnf("Ignoring non-text message type %d", msgType)
			continue
		}

		var msg models.GameAction
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError("invalid_json", "Invalid JSON format.")
			continue
		}
		s.logger.Debugf("Received action '%s'", msg.Type)

		switch msg.Type {
		case models.ActionPlayCard:
			if msg.HandIndex == nil {
				s.sendError(errorCode(game.ErrInvalidCardIndex), "handIndex is required")
				continue
			}
			s.reportActionError(a.PlayCard(ctx, *msg.HandIndex))
		case models.ActionDrawCard:
			s.reportActionError(a.DrawCard(ctx))
		case models.ActionGetOptions:
			playable, canDraw := a.Game().PlayerOptions(s.self.ID)
			if playable == nil {
				playable = []int{}
			}
			s.send(map[string]interface{}{"type": "options", "playable": playable, "canDraw": canDraw})
		case models.ActionPing:
			s.send(map[string]string{"type": "pong"})
		default:
			s.sendError("unknown_action", fmt.Sprintf("Unknown action type: %s", msg.Type))
		}
	}
}

// reportActionError tells the client why its action was refused. State
// changes reach the client through the adapter, including the state adopted
// after a lost write.
func (s *session) reportActionError(err error) {
	if err == nil {
		return
	}
	if !game.IsUserError(err) && !errors.Is(err, roomsync.ErrStaleState) && !errors.Is(err, game.ErrNoCardsAvailable) {
		s.logger.Warnf("action failed: %v", err)
	}
	s.sendError(errorCode(err), err.Error())
}

// sendState pushes the participant's view of state, and the final result
// once the game is over.
func (s *session) sendState(state game.GameState) {
	if !s.seated.Load() {
		return
	}
	view := game.ViewOf(state, s.self.ID)
	s.write(game.EventBytes(game.PrivateSyncEvent(view)))
	if state.Phase == game.PhaseFinished {
		s.send(map[string]interface{}{
			"type":        game.EventGameEnd,
			"winnerId":    state.WinnerID,
			"finishOrder": state.FinishOrder,
			"version":     state.Version,
		})
	}
}

func (s *session) sendError(code, message string) {
	s.send(map[string]string{"type": "error", "code": code, "message": message})
}

func (s *session) send(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Errorf("Error marshaling WebSocket message: %v", err)
		return
	}
	s.write(data)
}

func (s *session) write(data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.c.Write(ctx, websocket.MessageText, data); err != nil {
		status := websocket.CloseStatus(err)
		if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
			s.logger.Debugf("Error writing WebSocket message: %v", err)
		}
	}
}
