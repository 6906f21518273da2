// internal/matchmaking/queue.go
package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/peak/internal/game"
	"github.com/jason-s-yu/peak/internal/models"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout is how long a participant waits in the queue before giving up.
const DefaultTimeout = 15 * time.Minute

var (
	ErrQueueTimeout  = errors.New("matchmaking wait timed out")
	ErrAlreadyQueued = errors.New("participant is already queued")
	ErrLeftQueue     = errors.New("participant left the queue")
)

// Match is a formed group: a fresh room id and the ordered roster.
type Match struct {
	RoomID uuid.UUID            `json:"roomId"`
	Roster []models.Participant `json:"roster"`
}

type ticket struct {
	p     models.Participant
	match chan Match
	left  chan struct{}
}

// Queue groups waiting participants into matches of GroupSize, first come first served.
type Queue struct {
	groupSize int
	timeout   time.Duration

	// OnMatch is invoked once per formed match, before any waiter returns.
	OnMatch func(Match)

	mu      sync.Mutex
	waiting []*ticket
}

// NewQueue returns a queue forming groups of groupSize players.
func NewQueue(groupSize int, timeout time.Duration) (*Queue, error) {
	if groupSize < game.MinPlayers || groupSize > game.MaxPlayers {
		return nil, fmt.Errorf("%w: group size %d", game.ErrInvalidPlayerCount, groupSize)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Queue{groupSize: groupSize, timeout: timeout}, nil
}

// Join waits until p is placed in a match, ctx ends, the queue timeout
// elapses, or Leave is called. On any failure p is no longer queued.
func (q *Queue) Join(ctx context.Context, p models.Participant) (Match, error) {
	t := &ticket{p: p, match: make(chan Match, 1), left: make(chan struct{})}

	q.mu.Lock()
	for _, w := range q.waiting {
		if w.p.ID == p.ID {
			q.mu.Unlock()
			return Match{}, ErrAlreadyQueued
		}
	}
	q.waiting = append(q.waiting, t)
	group := q.takeGroupLocked()
	q.mu.Unlock()

	logrus.Debugf("matchmaking: %s joined the queue", p.ID)
	if group != nil {
		q.deliver(group)
	}

	timer := time.NewTimer(q.timeout)
	defer timer.Stop()

	var cause error
	select {
	case m := <-t.match:
		return m, nil
	case <-t.left:
		return Match{}, ErrLeftQueue
	case <-timer.C:
		cause = ErrQueueTimeout
	case <-ctx.Done():
		cause = ctx.Err()
	}

	if !q.remove(p.ID) {
		// matched or removed while we were giving up
		select {
		case m := <-t.match:
			return m, nil
		case <-t.left:
			return Match{}, ErrLeftQueue
		}
	}
	logrus.Infof("matchmaking: %s removed from the queue: %v", p.ID, cause)
	return Match{}, cause
}

// Leave removes a waiting participant. It reports whether they were queued.
func (q *Queue) Leave(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, w := range q.waiting {
		if w.p.ID == id {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			close(w.left)
			return true
		}
	}
	return false
}

// Len returns the number of waiting participants.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

func (q *Queue) remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, w := range q.waiting {
		if w.p.ID == id {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			return true
		}
	}
	return false
}

// takeGroupLocked pops the oldest groupSize tickets once enough are waiting.
// Assumes lock is held.
func (q *Queue) takeGroupLocked() []*ticket {
	if len(q.waiting) < q.groupSize {
		return nil
	}
	group := append([]*ticket(nil), q.waiting[:q.groupSize]...)
	q.waiting = append(q.waiting[:0:0], q.waiting[q.groupSize:]...)
	return group
}

func (q *Queue) deliver(group []*ticket) {
	m := Match{RoomID: uuid.New()}
	for _, t := range group {
		m.Roster = append(m.Roster, t.p)
	}
	logrus.Infof("matchmaking: formed room %s with %d players", m.RoomID, len(m.Roster))
	if q.OnMatch != nil {
		q.OnMatch(m)
	}
	for _, t := range group {
		t.match <- m
	}
}
