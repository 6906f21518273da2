// internal/roomsync/memory_store.go
package roomsync

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

const subscriberBuffer = 64

type memoryRoom struct {
	doc     *Document
	members map[string]struct{}
	subs    map[chan Notification]struct{}
}

// MemoryStore is an in-process Store for single-process play and tests.
type MemoryStore struct {
	mu    sync.Mutex
	rooms map[string]*memoryRoom
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[string]*memoryRoom)}
}

// room returns the room entry, creating it if needed. Assumes lock is held.
func (s *MemoryStore) room(roomID string) *memoryRoom {
	r, ok := s.rooms[roomID]
	if !ok {
		r = &memoryRoom{
			members: make(map[string]struct{}),
			subs:    make(map[chan Notification]struct{}),
		}
		s.rooms[roomID] = r
	}
	return r
}

func (s *MemoryStore) Put(_ context.Context, roomID string, expectedVersion uint64, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.room(roomID)
	switch {
	case r.doc == nil && expectedVersion != 0:
		return ErrRoomNotFound
	case r.doc != nil && expectedVersion == 0:
		return ErrRoomExists
	case r.doc != nil && r.doc.Version() != expectedVersion:
		return fmt.Errorf("%w: expected version %d, have %d", ErrStaleState, expectedVersion, r.doc.Version())
	}
	if doc.Version() <= expectedVersion {
		return fmt.Errorf("new version %d must exceed %d", doc.Version(), expectedVersion)
	}
	cp := Document{State: doc.State.Clone()}
	r.doc = &cp
	s.publish(r, Notification{Kind: NotifyState, RoomID: roomID, Version: cp.Version()})
	return nil
}

func (s *MemoryStore) Get(_ context.Context, roomID string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok || r.doc == nil {
		return Document{}, ErrRoomNotFound
	}
	return Document{State: r.doc.State.Clone()}, nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, roomID string) (<-chan Notification, error) {
	ch := make(chan Notification, subscriberBuffer)
	s.mu.Lock()
	r := s.room(roomID)
	r.subs[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(r.subs, ch)
		s.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

func (s *MemoryStore) AddMember(_ context.Context, roomID, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.room(roomID)
	if _, ok := r.members[memberID]; ok {
		return nil
	}
	r.members[memberID] = struct{}{}
	s.publish(r, Notification{Kind: NotifyMemberJoined, RoomID: roomID, MemberID: memberID})
	return nil
}

func (s *MemoryStore) RemoveMember(_ context.Context, roomID, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	if _, ok := r.members[memberID]; !ok {
		return nil
	}
	delete(r.members, memberID)
	s.publish(r, Notification{Kind: NotifyMemberLeft, RoomID: roomID, MemberID: memberID})
	return nil
}

func (s *MemoryStore) Members(_ context.Context, roomID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, len(r.members))
	for id := range r.members {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// publish fans n out to every subscriber without blocking. Assumes lock is held.
func (s *MemoryStore) publish(r *memoryRoom, n Notification) {
	for ch := range r.subs {
		select {
		case ch <- n:
		default:
			logrus.Warnf("roomsync: dropping %s notification for room %s, subscriber is full", n.Kind, n.RoomID)
		}
	}
}
