// internal/game/game.go
package game

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/peak/internal/cache"
	"github.com/jason-s-yu/peak/internal/models"
	"github.com/sirupsen/logrus"
)

// ActionRecorder receives one record per game event, e.g. the historian queue.
type ActionRecorder interface {
	RecordAction(ctx context.Context, rec cache.GameActionRecord) error
}

// PeakGame is the turn engine for a single game. All exported methods are
// safe for concurrent use; hooks are invoked after the lock is released.
type PeakGame struct {
	mu    sync.Mutex
	state GameState

	validator Validator
	rng       *rand.Rand
	now       func() time.Time
	logger    *logrus.Entry
	recorder  ActionRecorder

	pending []GameEvent
	result  *GameResult

	// OnStateChange receives a deep copy of the state after every committed mutation.
	OnStateChange func(GameState)

	// BroadcastFn is used to send events to all players. If nil, no broadcast is done.
	BroadcastFn func(ev GameEvent)

	// OnGameEnd is invoked once, when the game reaches PhaseFinished.
	OnGameEnd func(res GameResult)
}

// Option customizes a PeakGame at construction.
type Option func(*PeakGame)

// WithRand sets the random source used for shuffles and Goblin gifts.
func WithRand(rng *rand.Rand) Option { return func(g *PeakGame) { g.rng = rng } }

// WithClock sets the clock used for Pause expiry.
func WithClock(now func() time.Time) Option { return func(g *PeakGame) { g.now = now } }

// WithLogger sets the base logger; a game_id field is added to it.
func WithLogger(l *logrus.Entry) Option { return func(g *PeakGame) { g.logger = l } }

// WithRecorder sets the sink for action records.
func WithRecorder(r ActionRecorder) Option { return func(g *PeakGame) { g.recorder = r } }

// WithID overrides the generated game id.
func WithID(id uuid.UUID) Option { return func(g *PeakGame) { g.state.GameID = id } }

func newPeakGame(opts []Option) *PeakGame {
	g := &PeakGame{
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
		logger: logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewPeakGame builds a game in PhaseWaiting for the given ordered roster.
func NewPeakGame(roster []models.Participant, rules HouseRules, opts ...Option) (*PeakGame, error) {
	if err := validateRoster(roster); err != nil {
		return nil, err
	}
	g := newPeakGame(opts)
	if g.state.GameID == uuid.Nil {
		g.state.GameID = uuid.New()
	}
	g.logger = g.logger.WithField("game_id", g.state.GameID)
	g.validator = rules.Validator()

	g.state.Phase = PhaseWaiting
	g.state.Rules = rules
	g.state.Direction = 1
	g.state.Players = make([]*models.Player, len(roster))
	for i, p := range roster {
		g.state.Players[i] = &models.Player{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			Hand:        []models.Card{},
			Status:      models.StatusActive,
		}
	}
	return g, nil
}

// NewFromState builds an engine around an existing state, e.g. one fetched
// from the shared store by a joining participant.
func NewFromState(state GameState, opts ...Option) *PeakGame {
	g := newPeakGame(opts)
	g.state = state.Clone()
	g.validator = state.Rules.Validator()
	g.logger = g.logger.WithField("game_id", state.GameID)
	return g
}

// ID returns the game id.
func (g *PeakGame) ID() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.GameID
}

// Snapshot returns a deep copy of the current state.
func (g *PeakGame) Snapshot() GameState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Clone()
}

// Restore replaces the local state wholesale. Hooks are not invoked.
func (g *PeakGame) Restore(state GameState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = state.Clone()
	g.validator = state.Rules.Validator()
	g.pending = nil
	g.result = nil
}

// ViewFor returns the game as seen by playerID.
func (g *PeakGame) ViewFor(playerID string) PlayerView {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ViewOf(g.state, playerID)
}

// Start deals the opening hands and moves the game to PhaseInProgress.
func (g *PeakGame) Start() error {
	out, err := g.StageStart()
	if err != nil {
		return err
	}
	g.Publish(out)
	return nil
}

// StageStart is Start without running hooks; see Publish.
func (g *PeakGame) StageStart() (Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.Phase != PhaseWaiting {
		return Outcome{}, ErrAlreadyStarted
	}
	comp := g.state.Rules.Composition()
	handSize := g.state.Rules.StartingHandSize
	if need := handSize * len(g.state.Players); need > comp.Total() {
		return Outcome{}, fmt.Errorf("%w: cannot deal %d cards from a %d-card deck", ErrDealTooLarge, need, comp.Total())
	}

	g.state.Phase = PhaseDealing
	g.state.Deck = BuildDeck(comp)
	Shuffle(g.rng, g.state.Deck)
	g.state.DiscardPile = []models.Card{}

	// deal round-robin, one card at a time
	for c := 0; c < handSize; c++ {
		for _, p := range g.state.Players {
			var card models.Card
			card, g.state.Deck, _ = Draw(g.state.Deck)
			p.Hand = append(p.Hand, card)
		}
	}

	g.state.Phase = PhaseInProgress
	g.state.CurrentPlayerIndex = 0
	g.state.Direction = 1
	g.state.Round = 1
	g.logf("Game setup complete. Each player starts with %d cards.", handSize)
	g.logger.Infof("Dealt %d cards to %d players, %d left in deck.", handSize, len(g.state.Players), len(g.state.Deck))
	g.queue(GameEvent{Type: EventGameStart, Payload: map[string]interface{}{
		"deckSize": len(g.state.Deck),
		"handSize": handSize,
	}})
	g.queueTurn()
	return g.commit(), nil
}

// PlayCard plays the card at handIndex from playerID's hand.
func (g *PeakGame) PlayCard(playerID string, handIndex int) error {
	out, err := g.StagePlayCard(playerID, handIndex)
	if err != nil {
		return err
	}
	g.Publish(out)
	return nil
}

// StagePlayCard is PlayCard without running hooks; see Publish.
func (g *PeakGame) StagePlayCard(playerID string, handIndex int) (Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playCard(playerID, handIndex)
}

// DrawCard draws one card for playerID and ends their turn.
func (g *PeakGame) DrawCard(playerID string) error {
	out, err := g.StageDrawCard(playerID)
	if err != nil {
		return err
	}
	g.Publish(out)
	return nil
}

// StageDrawCard is DrawCard without running hooks; see Publish.
func (g *PeakGame) StageDrawCard(playerID string) (Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.drawCard(playerID)
}

// AdvanceTurn moves the turn pointer to the next eligible player without
// any other action, e.g. when a turn timer expires.
func (g *PeakGame) AdvanceTurn() error {
	out, err := g.StageAdvanceTurn()
	if err != nil {
		return err
	}
	g.Publish(out)
	return nil
}

// StageAdvanceTurn is AdvanceTurn without running hooks; see Publish.
func (g *PeakGame) StageAdvanceTurn() (Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.Phase != PhaseInProgress {
		return Outcome{}, ErrGameNotInProgress
	}
	g.advanceTurn()
	return g.commit(), nil
}

// Publish runs the hooks and records of a staged mutation. A staged outcome
// that is never published leaves no trace outside the engine's state.
func (g *PeakGame) Publish(out Outcome) {
	g.notify(out)
}

// PlayerOptions lists the hand indexes playerID may legally play and whether
// a draw is possible. Both are empty when it is not their turn.
func (g *PeakGame) PlayerOptions(playerID string) ([]int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.Phase != PhaseInProgress {
		return nil, false
	}
	cur := g.state.CurrentPlayer()
	if cur == nil || cur.ID != playerID || !cur.IsActive() {
		return nil, false
	}
	ctx := g.playContext()
	var playable []int
	for i, c := range cur.Hand {
		if g.validator.CanPlay(c, ctx) {
			playable = append(playable, i)
		}
	}
	canDraw := len(g.state.Deck) > 0 || len(g.state.DiscardPile) > 1
	return playable, canDraw
}

// checkTurn validates the common gates of PlayCard and DrawCard.
// Assumes lock is held.
func (g *PeakGame) checkTurn(playerID string) (int, error) {
	if g.state.Phase != PhaseInProgress {
		return -1, ErrGameNotInProgress
	}
	idx := g.indexOf(playerID)
	if idx < 0 {
		return -1, fmt.Errorf("%w: %w %q", ErrNotYourTurn, ErrUnknownPlayer, playerID)
	}
	if idx != g.state.CurrentPlayerIndex {
		return -1, ErrNotYourTurn
	}
	return idx, nil
}

// playCard implements PlayCard. Assumes lock is held.
func (g *PeakGame) playCard(playerID string, handIndex int) (Outcome, error) {
	idx, err := g.checkTurn(playerID)
	if err != nil {
		return Outcome{}, err
	}
	p := g.state.Players[idx]
	if handIndex < 0 || handIndex >= len(p.Hand) {
		return Outcome{}, ErrInvalidCardIndex
	}
	if !p.IsActive() {
		return Outcome{}, ErrPlayerInactive
	}

	card := p.Hand[handIndex]
	// finishing is judged against the round as it stood before this card
	ctx := g.playContext()
	if !g.validator.CanPlay(card, ctx) {
		return Outcome{}, ErrIllegalPlay
	}

	p.Hand = append(p.Hand[:handIndex:handIndex], p.Hand[handIndex+1:]...)
	played := card
	g.state.LastPlayedCard = &played
	g.state.DiscardPile = append(g.state.DiscardPile, card)
	g.logf("%s played %s", p.DisplayName, card)
	g.queue(GameEvent{
		Type:     EventPlayerPlayCard,
		PlayerID: p.ID,
		Card:     &played,
		Payload:  map[string]interface{}{"handSize": len(p.Hand)},
	})

	g.resolveEffect(idx, card)

	if g.state.Phase == PhaseInProgress && len(p.Hand) == 0 && p.IsActive() {
		if g.validator.CanFinishOn(card, ctx) {
			g.finishPlayer(idx)
		} else {
			g.denyFinish(idx, card)
		}
	}

	if g.state.Phase == PhaseInProgress {
		g.advanceTurn()
	}
	return g.commit(), nil
}

// drawCard implements DrawCard. Assumes lock is held.
func (g *PeakGame) drawCard(playerID string) (Outcome, error) {
	idx, err := g.checkTurn(playerID)
	if err != nil {
		return Outcome{}, err
	}
	p := g.state.Players[idx]
	if !p.IsActive() {
		return Outcome{}, ErrPlayerInactive
	}

	card, err := g.drawWithRecycle()
	if err != nil {
		g.logger.Warnf("Player %s cannot draw: %v", p.ID, err)
		return Outcome{}, err
	}
	p.Hand = append(p.Hand, card)
	g.logf("%s drew a card", p.DisplayName)
	g.queue(GameEvent{
		Type:     EventPlayerDrawCard,
		PlayerID: p.ID,
		Payload: map[string]interface{}{
			"handSize": len(p.Hand),
			"deckSize": len(g.state.Deck),
		},
	})
	g.checkHandLimit(idx)

	if g.state.Phase == PhaseInProgress {
		g.advanceTurn()
	}
	return g.commit(), nil
}

// denyFinish deals a replacement card to a player who emptied their hand on
// a card that cannot finish. Assumes lock is held.
func (g *PeakGame) denyFinish(idx int, card models.Card) {
	p := g.state.Players[idx]
	g.logf("%s cannot finish on %s", p.DisplayName, card)
	replacement, err := g.drawWithRecycle()
	if err != nil {
		// the player keeps an empty hand and has to draw next turn
		g.logger.Warnf("No replacement card for player %s: %v", p.ID, err)
		g.queue(GameEvent{Type: EventFinishDenied, PlayerID: p.ID, Card: &card, Payload: map[string]interface{}{"replacement": false}})
		return
	}
	p.Hand = append(p.Hand, replacement)
	g.logf("%s picks up a replacement card", p.DisplayName)
	g.queue(GameEvent{Type: EventFinishDenied, PlayerID: p.ID, Card: &card, Payload: map[string]interface{}{"replacement": true}})
}

// finishPlayer marks a player as having legally finished. Assumes lock is held.
func (g *PeakGame) finishPlayer(idx int) {
	p := g.state.Players[idx]
	p.Status = models.StatusFinished
	p.PausedUntil = nil
	g.state.FinishOrder = append(g.state.FinishOrder, p.ID)
	g.logf("%s has finished the game!", p.DisplayName)
	g.queue(GameEvent{Type: EventPlayerFinished, PlayerID: p.ID, Payload: map[string]interface{}{"place": len(g.state.FinishOrder)}})
	g.checkWin()
}

// checkHandLimit disqualifies the player if their hand outgrew the limit.
// Assumes lock is held.
func (g *PeakGame) checkHandLimit(idx int) {
	p := g.state.Players[idx]
	if p.Status == models.StatusDisqualified || len(p.Hand) <= g.state.Rules.HandLimit {
		return
	}
	p.Status = models.StatusDisqualified
	p.PausedUntil = nil
	g.logf("%s is disqualified for having over %d cards!", p.DisplayName, g.state.Rules.HandLimit)
	g.logger.Infof("Player %s disqualified with %d cards.", p.ID, len(p.Hand))
	g.queue(GameEvent{Type: EventPlayerDisqualified, PlayerID: p.ID, Payload: map[string]interface{}{"handSize": len(p.Hand)}})
	g.checkWin()
}

// checkWin ends the game once a single Active/Finished player remains, or
// once fewer than two players are left taking turns. Assumes lock is held.
func (g *PeakGame) checkWin() {
	if g.state.Phase != PhaseInProgress {
		return
	}
	var remaining []*models.Player
	active := 0
	for _, p := range g.state.Players {
		switch p.Status {
		case models.StatusActive:
			active++
			remaining = append(remaining, p)
		case models.StatusFinished:
			remaining = append(remaining, p)
		}
	}
	switch {
	case len(remaining) == 1:
		g.endGame(remaining[0].ID)
	case active < 2:
		winner := ""
		if len(g.state.FinishOrder) > 0 {
			winner = g.state.FinishOrder[0]
		}
		g.endGame(winner)
	}
}

// endGame transitions to PhaseFinished. It is a no-op once finished.
// Assumes lock is held.
func (g *PeakGame) endGame(winnerID string) {
	if g.state.Phase == PhaseFinished {
		return
	}
	g.state.Phase = PhaseFinished
	g.state.WinnerID = winnerID

	res := &GameResult{
		GameID:      g.state.GameID,
		WinnerID:    winnerID,
		FinishOrder: append([]string(nil), g.state.FinishOrder...),
		Rounds:      g.state.Round,
		EndedAt:     g.now(),
	}
	for _, p := range g.state.Players {
		res.Players = append(res.Players, models.Participant{ID: p.ID, DisplayName: p.DisplayName})
		if p.Status == models.StatusDisqualified {
			res.Disqualified = append(res.Disqualified, p.ID)
		}
	}
	if w := g.state.PlayerByID(winnerID); w != nil {
		g.logf("Game Over! %s wins!", w.DisplayName)
	} else {
		g.logf("Game Over! No active players remaining. No winner.")
	}
	res.Log = append([]string(nil), g.state.Log...)
	g.result = res

	g.logger.Infof("Game ended after %d rounds. Winner: %q", g.state.Round, winnerID)
	g.queue(GameEvent{Type: EventGameEnd, PlayerID: winnerID, Payload: map[string]interface{}{
		"winner":      winnerID,
		"finishOrder": res.FinishOrder,
	}})
}

// advanceTurn steps the turn pointer in the current direction until it lands
// on an Active, unpaused player. Assumes lock is held.
func (g *PeakGame) advanceTurn() {
	n := len(g.state.Players)
	if n == 0 {
		return
	}
	now := g.now()
	idx := g.state.CurrentPlayerIndex
	wrapped := false
	fallback, fallbackWrapped := -1, false

	for i := 0; i < 2*n; i++ {
		next := ((idx+g.state.Direction)%n + n) % n
		if (g.state.Direction > 0 && next == 0) || (g.state.Direction < 0 && next == n-1) {
			wrapped = true
		}
		idx = next

		p := g.state.Players[idx]
		if !p.IsActive() {
			continue
		}
		if p.PausedUntil != nil && !p.IsPaused(now) {
			p.PausedUntil = nil
			g.queue(GameEvent{Type: EventPlayerUnpaused, PlayerID: p.ID})
		}
		if p.IsPaused(now) {
			if fallback < 0 {
				fallback, fallbackWrapped = idx, wrapped
			}
			continue
		}
		g.setTurn(idx, wrapped)
		return
	}

	if fallback >= 0 {
		// every candidate is paused; lift the nearest pause rather than stall
		p := g.state.Players[fallback]
		p.PausedUntil = nil
		g.logger.Debugf("All eligible players paused, resuming %s early.", p.ID)
		g.queue(GameEvent{Type: EventPlayerUnpaused, PlayerID: p.ID})
		g.setTurn(fallback, fallbackWrapped)
		return
	}
	g.logger.Warnf("No eligible player to advance turn to.")
}

// setTurn points the turn at idx, starting a new round if the pointer
// wrapped past the first seat. Assumes lock is held.
func (g *PeakGame) setTurn(idx int, wrapped bool) {
	g.state.CurrentPlayerIndex = idx
	if wrapped {
		g.state.Round++
		g.state.HighCardPlayedThisRound = false
		g.logf("--- Round %d ---", g.state.Round)
		g.queue(GameEvent{Type: EventGameNewRound, Payload: map[string]interface{}{"round": g.state.Round}})
	}
	g.queueTurn()
}

func (g *PeakGame) queueTurn() {
	cur := g.state.CurrentPlayer()
	if cur == nil {
		return
	}
	g.queue(GameEvent{Type: EventGamePlayerTurn, PlayerID: cur.ID, Payload: map[string]interface{}{
		"round":     g.state.Round,
		"direction": g.state.Direction,
	}})
}

// drawWithRecycle draws from the deck, refilling it from the discard pile
// (all but the top card) when empty. Assumes lock is held.
func (g *PeakGame) drawWithRecycle() (models.Card, error) {
	if len(g.state.Deck) == 0 {
		if err := g.recycle(); err != nil {
			return models.Card{}, err
		}
	}
	card, deck, err := Draw(g.state.Deck)
	if err != nil {
		return models.Card{}, err
	}
	g.state.Deck = deck
	return card, nil
}

// recycle moves every discard except the top one back into the deck and
// reshuffles. Assumes lock is held.
func (g *PeakGame) recycle() error {
	if len(g.state.DiscardPile) <= 1 {
		return ErrNoCardsAvailable
	}
	top := g.state.DiscardPile[len(g.state.DiscardPile)-1]
	g.state.Deck = append(g.state.Deck, g.state.DiscardPile[:len(g.state.DiscardPile)-1]...)
	g.state.DiscardPile = []models.Card{top}
	Shuffle(g.rng, g.state.Deck)

	g.logger.Debugf("Deck empty. Reshuffled discard pile into deck. New size: %d", len(g.state.Deck))
	g.queue(GameEvent{Type: EventGameReshuffleDeck, Payload: map[string]interface{}{"deckSize": len(g.state.Deck)}})
	return nil
}

func (g *PeakGame) playContext() PlayContext {
	ctx := PlayContext{HighCardPlayedThisRound: g.state.HighCardPlayedThisRound}
	if g.state.LastPlayedCard != nil {
		c := *g.state.LastPlayedCard
		ctx.LastPlayed = &c
	}
	return ctx
}

func (g *PeakGame) indexOf(playerID string) int {
	for i, p := range g.state.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// logf appends a line to the human-readable game log.
func (g *PeakGame) logf(format string, args ...interface{}) {
	g.state.Log = append(g.state.Log, fmt.Sprintf(format, args...))
}

// queue stamps ev with the next action index of the game. The counter lives
// in the state so every replica continues the same sequence.
func (g *PeakGame) queue(ev GameEvent) {
	g.state.ActionCount++
	ev.Index = g.state.ActionCount
	g.pending = append(g.pending, ev)
}

// Outcome is a committed mutation whose hooks have not run yet.
type Outcome struct {
	state  GameState
	events []GameEvent
	result *GameResult
}

// State returns the state the mutation produced.
func (o Outcome) State() GameState {
	return o.state.Clone()
}

// commit bumps the version and collects everything to publish.
// Assumes lock is held.
func (g *PeakGame) commit() Outcome {
	g.state.Version++
	out := Outcome{
		state:  g.state.Clone(),
		events: g.pending,
		result: g.result,
	}
	g.pending = nil
	g.result = nil
	return out
}

// notify runs hooks for a committed mutation. Must be called without the lock.
func (g *PeakGame) notify(out Outcome) {
	for _, ev := range out.events {
		if g.BroadcastFn != nil {
			g.BroadcastFn(ev)
		}
		g.logAction(out.state.GameID, ev)
	}
	if g.OnStateChange != nil {
		g.OnStateChange(out.state)
	}
	if out.result != nil && g.OnGameEnd != nil {
		g.OnGameEnd(*out.result)
	}
}

// logAction sends the event to the recorder asynchronously.
func (g *PeakGame) logAction(gameID uuid.UUID, ev GameEvent) {
	if g.recorder == nil {
		return
	}
	payload := make(map[string]interface{}, len(ev.Payload)+2)
	for k, v := range ev.Payload {
		payload[k] = v
	}
	if ev.TargetID != "" {
		payload["target"] = ev.TargetID
	}
	if ev.Card != nil && ev.Type != EventPlayerDrawCard {
		payload["card"] = ev.Card.String()
	}
	record := cache.GameActionRecord{
		GameID:        gameID,
		ActionIndex:   ev.Index,
		ActorID:       ev.PlayerID,
		ActionType:    string(ev.Type),
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func(rec cache.GameActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := g.recorder.RecordAction(ctx, rec); err != nil {
			g.logger.Warnf("Error publishing game action %d: %v", rec.ActionIndex, err)
		}
	}(record)
}
