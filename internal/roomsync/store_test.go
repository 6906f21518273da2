// internal/roomsync/store_test.go
package roomsync

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/peak/internal/game"
	"github.com/jason-s-yu/peak/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startedState(t *testing.T) game.GameState {
	t.Helper()
	g, err := game.NewPeakGame([]models.Participant{alice, bob}, game.DefaultHouseRules())
	require.NoError(t, err)
	require.NoError(t, g.Start())
	return g.Snapshot()
}

// exerciseStore runs the Store contract against any implementation.
func exerciseStore(t *testing.T, store Store) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	roomID := uuid.NewString()
	state := startedState(t)

	_, err := store.Get(ctx, roomID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.ErrorIs(t, store.Put(ctx, roomID, 3, Document{State: state}), ErrRoomNotFound)

	notes, err := store.Subscribe(ctx, roomID)
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, roomID, 0, Document{State: state}))
	assert.ErrorIs(t, store.Put(ctx, roomID, 0, Document{State: state}), ErrRoomExists)

	doc, err := store.Get(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, state.GameID, doc.State.GameID)
	assert.Equal(t, uint64(1), doc.Version())
	assert.Equal(t, state.CardCount(), doc.State.CardCount())

	next := state.Clone()
	next.Version = 2
	next.CurrentPlayerIndex = 1
	require.NoError(t, store.Put(ctx, roomID, 1, Document{State: next}))
	assert.ErrorIs(t, store.Put(ctx, roomID, 1, Document{State: next}), ErrStaleState)

	require.NoError(t, store.AddMember(ctx, roomID, "alice"))
	require.NoError(t, store.AddMember(ctx, roomID, "bob"))
	require.NoError(t, store.RemoveMember(ctx, roomID, "alice"))
	members, err := store.Members(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, members)

	want := []Notification{
		{Kind: NotifyState, RoomID: roomID, Version: 1},
		{Kind: NotifyState, RoomID: roomID, Version: 2},
		{Kind: NotifyMemberJoined, RoomID: roomID, MemberID: "alice"},
		{Kind: NotifyMemberJoined, RoomID: roomID, MemberID: "bob"},
		{Kind: NotifyMemberLeft, RoomID: roomID, MemberID: "alice"},
	}
	for _, w := range want {
		select {
		case n := <-notes:
			assert.Equal(t, w, n)
		case <-ctx.Done():
			t.Fatalf("missing notification %+v", w)
		}
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreRejectsNonIncreasingVersion(t *testing.T) {
	store := NewMemoryStore()
	state := startedState(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "r", 0, Document{State: state}))
	assert.Error(t, store.Put(ctx, "r", 1, Document{State: state}))
}

func TestMemoryStoreSubscriptionClosesWithContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	notes, err := store.Subscribe(ctx, "r")
	require.NoError(t, err)
	cancel()
	select {
	case _, ok := <-notes:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}
}

// TestRedisStore needs a running Redis; it is skipped otherwise.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available at %s: %v", addr, err)
	}

	exerciseStore(t, NewRedisStore(rdb, "peaktest", time.Minute))
}
