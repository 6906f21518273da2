// internal/roomsync/adapter.go
package roomsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jason-s-yu/peak/internal/game"
	"github.com/jason-s-yu/peak/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	DefaultJoinAttempts = 10
	DefaultJoinDelay    = 500 * time.Millisecond
)

// ErrNoRoom is returned by actions issued before CreateRoom or JoinRoom.
var ErrNoRoom = errors.New("adapter has no room")

// Adapter mirrors one participant's engine to a shared room document. Local
// actions commit first and are then pushed with the version they were based
// on; remote changes replace the local state wholesale.
type Adapter struct {
	store  Store
	self   models.Participant
	logger *logrus.Entry

	// JoinAttempts and JoinDelay bound the wait for a room document to appear.
	JoinAttempts int
	JoinDelay    time.Duration

	// GameOptions are passed to every engine the adapter builds.
	GameOptions []game.Option

	// OnChange receives every state the adapter adopts, local or remote.
	OnChange func(game.GameState)
	// OnMemberJoined and OnMemberLeft surface room membership changes of other participants.
	OnMemberJoined func(memberID string)
	OnMemberLeft   func(memberID string)
	// OnGameEnd fires on the adapter whose local action finished the game,
	// while the adapter is locked; it must not call back into the adapter.
	OnGameEnd func(game.GameResult)

	mu     sync.Mutex
	roomID string
	game   *game.PeakGame
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAdapter returns an adapter acting as self against store.
func NewAdapter(store Store, self models.Participant, logger *logrus.Entry) *Adapter {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Adapter{
		store:        store,
		self:         self,
		logger:       logger.WithField("participant", self.ID),
		JoinAttempts: DefaultJoinAttempts,
		JoinDelay:    DefaultJoinDelay,
	}
}

// RoomID returns the joined room, or "" before CreateRoom/JoinRoom.
func (a *Adapter) RoomID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.roomID
}

// Game returns the local engine, or nil before CreateRoom/JoinRoom.
func (a *Adapter) Game() *game.PeakGame {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.game
}

// CreateRoom deals a new game for roster, writes it as a new room document
// and joins it. The room id is the game id.
func (a *Adapter) CreateRoom(ctx context.Context, roster []models.Participant, rules game.HouseRules) (string, error) {
	g, err := game.NewPeakGame(roster, rules, a.GameOptions...)
	if err != nil {
		return "", err
	}
	a.hook(g)
	out, err := g.StageStart()
	if err != nil {
		return "", err
	}
	state := out.State()
	roomID := state.GameID.String()

	if err := a.store.Put(ctx, roomID, 0, Document{State: state}); err != nil {
		return "", fmt.Errorf("failed to create room %s: %w", roomID, err)
	}
	g.Publish(out)
	a.logger.Infof("Created room %s for %d players", roomID, len(roster))
	if err := a.attach(ctx, roomID, g); err != nil {
		return "", err
	}
	a.emit(state)
	return roomID, nil
}

// JoinRoom waits for the room document to exist, retrying with a delay since
// the creator may not have written it yet, then mirrors it locally.
func (a *Adapter) JoinRoom(ctx context.Context, roomID string) error {
	attempts := a.JoinAttempts
	if attempts < 1 {
		attempts = 1
	}
	var doc Document
	var err error
	for i := 0; i < attempts; i++ {
		doc, err = a.store.Get(ctx, roomID)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrRoomNotFound) {
			return err
		}
		if i == attempts-1 {
			return fmt.Errorf("%w: gave up after %d attempts", ErrRoomNotFound, attempts)
		}
		a.logger.Debugf("Room %s not found yet, retrying in %v (%d/%d)", roomID, a.JoinDelay, i+1, attempts)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.JoinDelay):
		}
	}

	g := game.NewFromState(doc.State, a.GameOptions...)
	a.hook(g)
	if err := a.attach(ctx, roomID, g); err != nil {
		return err
	}
	a.logger.Infof("Joined room %s at version %d", roomID, doc.Version())
	a.emit(doc.State)
	return nil
}

func (a *Adapter) hook(g *game.PeakGame) {
	if a.OnGameEnd != nil {
		g.OnGameEnd = a.OnGameEnd
	}
}

// attach registers membership and starts watching the room.
func (a *Adapter) attach(ctx context.Context, roomID string, g *game.PeakGame) error {
	if err := a.store.AddMember(ctx, roomID, a.self.ID); err != nil {
		return err
	}
	watchCtx, cancel := context.WithCancel(context.Background())
	notes, err := a.store.Subscribe(watchCtx, roomID)
	if err != nil {
		cancel()
		return err
	}

	a.mu.Lock()
	a.stopLocked()
	a.roomID = roomID
	a.game = g
	a.cancel = cancel
	a.done = make(chan struct{})
	done := a.done
	a.mu.Unlock()

	go a.watch(watchCtx, roomID, notes, done)
	return nil
}

// PlayCard plays a card locally and pushes the result.
func (a *Adapter) PlayCard(ctx context.Context, handIndex int) error {
	return a.apply(ctx, func(g *game.PeakGame) (game.Outcome, error) { return g.StagePlayCard(a.self.ID, handIndex) })
}

// DrawCard draws a card locally and pushes the result.
func (a *Adapter) DrawCard(ctx context.Context) error {
	return a.apply(ctx, func(g *game.PeakGame) (game.Outcome, error) { return g.StageDrawCard(a.self.ID) })
}

// AdvanceTurn skips the current turn, e.g. on a turn timeout, and pushes the result.
func (a *Adapter) AdvanceTurn(ctx context.Context) error {
	return a.apply(ctx, func(g *game.PeakGame) (game.Outcome, error) { return g.StageAdvanceTurn() })
}

// apply stages action against the local engine and writes the new state with
// the pre-action version as the expected version. The engine's hooks and
// action records only run once the write has landed. If another participant
// got there first the local engine adopts the stored state and ErrStaleState
// is returned.
func (a *Adapter) apply(ctx context.Context, action func(*game.PeakGame) (game.Outcome, error)) error {
	a.mu.Lock()
	adopted, err := a.applyLocked(ctx, action)
	a.mu.Unlock()
	if adopted != nil {
		a.emit(*adopted)
	}
	return err
}

// applyLocked returns the state the engine ended up with, if it changed.
// Assumes lock is held.
func (a *Adapter) applyLocked(ctx context.Context, action func(*game.PeakGame) (game.Outcome, error)) (*game.GameState, error) {
	if a.game == nil {
		return nil, ErrNoRoom
	}
	before := a.game.Snapshot()
	out, err := action(a.game)
	if err != nil {
		return nil, err
	}
	state := out.State()

	err = a.store.Put(ctx, a.roomID, before.Version, Document{State: state})
	if err == nil {
		a.game.Publish(out)
		return &state, nil
	}

	// the staged outcome is dropped unpublished
	a.game.Restore(before)
	if errors.Is(err, ErrStaleState) {
		a.logger.Infof("Lost write race on room %s at version %d, re-fetching", a.roomID, before.Version)
	} else {
		a.logger.Warnf("Failed to push version %d to room %s: %v", state.Version, a.roomID, err)
	}

	doc, ferr := a.store.Get(ctx, a.roomID)
	if ferr != nil {
		return nil, fmt.Errorf("%w (re-fetch failed: %v)", err, ferr)
	}
	a.game.Restore(doc.State)
	return &doc.State, err
}

func (a *Adapter) watch(ctx context.Context, roomID string, notes <-chan Notification, done chan struct{}) {
	defer close(done)
	for n := range notes {
		switch n.Kind {
		case NotifyState:
			a.adoptRemote(ctx, roomID, n.Version)
		case NotifyMemberJoined:
			if n.MemberID != a.self.ID && a.OnMemberJoined != nil {
				a.OnMemberJoined(n.MemberID)
			}
		case NotifyMemberLeft:
			if n.MemberID == a.self.ID {
				continue
			}
			a.logger.Infof("Participant %s left room %s", n.MemberID, roomID)
			if a.OnMemberLeft != nil {
				a.OnMemberLeft(n.MemberID)
			}
		}
	}
}

// adoptRemote replaces the local state if the room moved past it.
func (a *Adapter) adoptRemote(ctx context.Context, roomID string, version uint64) {
	a.mu.Lock()
	if a.game == nil || a.roomID != roomID || version <= a.game.Snapshot().Version {
		a.mu.Unlock()
		return
	}
	doc, err := a.store.Get(ctx, roomID)
	if err != nil {
		a.mu.Unlock()
		if ctx.Err() == nil {
			a.logger.Warnf("Failed to fetch room %s after change notification: %v", roomID, err)
		}
		return
	}
	if doc.Version() <= a.game.Snapshot().Version {
		a.mu.Unlock()
		return
	}
	a.game.Restore(doc.State)
	a.mu.Unlock()
	a.emit(doc.State)
}

func (a *Adapter) emit(state game.GameState) {
	if a.OnChange != nil {
		a.OnChange(state)
	}
}

// Leave removes the participant from the room membership and stops watching.
func (a *Adapter) Leave(ctx context.Context) error {
	roomID := a.RoomID()
	if roomID == "" {
		return ErrNoRoom
	}
	err := a.store.RemoveMember(ctx, roomID, a.self.ID)
	a.Close()
	return err
}

// Close stops watching the room without leaving it.
func (a *Adapter) Close() {
	a.mu.Lock()
	done := a.done
	a.stopLocked()
	a.mu.Unlock()
	if done != nil {
		<-done
	}
}

// stopLocked cancels the current watcher. Assumes lock is held.
func (a *Adapter) stopLocked() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.done = nil
}
