// internal/roomsync/store.go
package roomsync

import (
	"context"
	"errors"

	"github.com/jason-s-yu/peak/internal/game"
)

var (
	// ErrStaleState is returned when a write's expected version no longer
	// matches the stored document. The caller should re-fetch and retry.
	ErrStaleState = errors.New("stale game state")
	// ErrRoomNotFound is returned when no document exists for a room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomExists is returned when creating a room whose document already exists.
	ErrRoomExists = errors.New("room already exists")
)

// Document is the replicated room document.
type Document struct {
	State game.GameState `json:"state"`
}

// Version is the version of the contained state.
func (d Document) Version() uint64 { return d.State.Version }

// NotificationKind tags what changed in a room.
type NotificationKind string

const (
	NotifyState        NotificationKind = "state"
	NotifyMemberJoined NotificationKind = "member_joined"
	NotifyMemberLeft   NotificationKind = "member_left"
)

// Notification is delivered to subscribers of a room.
type Notification struct {
	Kind     NotificationKind `json:"kind"`
	RoomID   string           `json:"roomId"`
	Version  uint64           `json:"version,omitempty"`
	MemberID string           `json:"memberId,omitempty"`
}

// Store is the shared room store. Writes are conditional on the version the
// writer last saw; reads may race with concurrent writes.
type Store interface {
	// Put writes doc if the stored version equals expectedVersion. An
	// expectedVersion of 0 creates the room and fails with ErrRoomExists if
	// it is already there.
	Put(ctx context.Context, roomID string, expectedVersion uint64, doc Document) error
	Get(ctx context.Context, roomID string) (Document, error)
	// Subscribe delivers notifications for roomID until ctx is done, then
	// closes the channel.
	Subscribe(ctx context.Context, roomID string) (<-chan Notification, error)

	AddMember(ctx context.Context, roomID, memberID string) error
	RemoveMember(ctx context.Context, roomID, memberID string) error
	Members(ctx context.Context, roomID string) ([]string, error)
}
