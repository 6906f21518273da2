// internal/handlers/game_server.go
package handlers

import (
	"context"
	"time"

	"github.com/jason-s-yu/peak/internal/game"
	"github.com/jason-s-yu/peak/internal/matchmaking"
	"github.com/jason-s-yu/peak/internal/models"
	"github.com/jason-s-yu/peak/internal/roomsync"
	"github.com/sirupsen/logrus"
)

// GameServer holds what the HTTP and WebSocket handlers share: the room
// store every session synchronizes through and the matchmaking queue.
type GameServer struct {
	Store  roomsync.Store
	Queue  *matchmaking.Queue
	Rules  game.HouseRules
	Logger *logrus.Logger

	// Recorder receives action records from engines on this server, if set.
	Recorder game.ActionRecorder
	// OnGameEnd is called once per game, by the session whose move ended it.
	OnGameEnd func(game.GameResult)

	JoinAttempts int
	JoinDelay    time.Duration
}

// NewGameServer returns a server over store. If queue is non-nil, every
// match it forms gets a room created for it.
func NewGameServer(logger *logrus.Logger, store roomsync.Store, queue *matchmaking.Queue) *GameServer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	gs := &GameServer{
		Store:        store,
		Queue:        queue,
		Rules:        game.DefaultHouseRules(),
		Logger:       logger,
		JoinAttempts: roomsync.DefaultJoinAttempts,
		JoinDelay:    roomsync.DefaultJoinDelay,
	}
	if queue != nil {
		queue.OnMatch = gs.createMatchRoom
	}
	return gs
}

// newAdapter returns a sync adapter acting as self.
func (gs *GameServer) newAdapter(self models.Participant, opts ...game.Option) *roomsync.Adapter {
	logger := logrus.NewEntry(gs.Logger)
	a := roomsync.NewAdapter(gs.Store, self, logger)
	a.JoinAttempts = gs.JoinAttempts
	a.JoinDelay = gs.JoinDelay
	a.GameOptions = append([]game.Option{game.WithLogger(logger)}, opts...)
	if gs.Recorder != nil {
		a.GameOptions = append(a.GameOptions, game.WithRecorder(gs.Recorder))
	}
	if gs.OnGameEnd != nil {
		a.OnGameEnd = gs.OnGameEnd
	}
	return a
}

// CreateRoom deals a game for roster on behalf of self and writes it to the
// store. Participants then connect to the room over the game socket.
func (gs *GameServer) CreateRoom(ctx context.Context, self models.Participant, roster []models.Participant, rules game.HouseRules, opts ...game.Option) (string, error) {
	a := gs.newAdapter(self, opts...)
	defer a.Close()
	return a.CreateRoom(ctx, roster, rules)
}

// createMatchRoom creates the room for a formed match under the match's room id.
func (gs *GameServer) createMatchRoom(m matchmaking.Match) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	roomID, err := gs.CreateRoom(ctx, m.Roster[0], m.Roster, gs.Rules, game.WithID(m.RoomID))
	if err != nil {
		gs.Logger.Errorf("failed to create room for match %s: %v", m.RoomID, err)
		return
	}
	gs.Logger.Infof("Match formed: room %s with %d players", roomID, len(m.Roster))
}
