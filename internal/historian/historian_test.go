// internal/historian/historian_test.go
package historian

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/peak/internal/cache"
	"github.com/jason-s-yu/peak/internal/game"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chanSource pops from a channel.
type chanSource chan cache.GameActionRecord

func (c chanSource) Pop(ctx context.Context, timeout time.Duration) (*cache.GameActionRecord, error) {
	select {
	case rec := <-c:
		return &rec, nil
	case <-time.After(timeout):
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type memorySink struct {
	mu        sync.Mutex
	batches   [][]cache.GameActionRecord
	abandoned []uuid.UUID
	fail      error
}

func (m *memorySink) InsertActions(_ context.Context, records []cache.GameActionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.batches = append(m.batches, append([]cache.GameActionRecord(nil), records...))
	return nil
}

func (m *memorySink) MarkGameAbandoned(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.abandoned = append(m.abandoned, id)
	return true, nil
}

func (m *memorySink) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func record(gameID uuid.UUID, idx int, typ game.GameEventType) cache.GameActionRecord {
	return cache.GameActionRecord{GameID: gameID, ActionIndex: idx, ActionType: string(typ), Timestamp: time.Now().UnixMilli()}
}

func TestBatchFlushesWhenFull(t *testing.T) {
	sink := &memorySink{}
	s := NewService(nil, sink, Options{BatchSize: 3})
	ctx := context.Background()
	id := uuid.New()

	s.Add(ctx, record(id, 1, game.EventGameStart))
	s.Add(ctx, record(id, 2, game.EventPlayerDrawCard))
	assert.Equal(t, 0, sink.total())
	assert.Equal(t, 2, s.Pending())

	s.Add(ctx, record(id, 3, game.EventPlayerPlayCard))
	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0], 3)
	assert.Equal(t, 0, s.Pending())
}

func TestFailedFlushIsRetried(t *testing.T) {
	sink := &memorySink{fail: errors.New("db down")}
	s := NewService(nil, sink, Options{BatchSize: 10})
	ctx := context.Background()
	s.Add(ctx, record(uuid.New(), 1, game.EventGameStart))

	assert.Error(t, s.Flush(ctx))
	assert.Equal(t, 1, s.Pending())

	sink.fail = nil
	require.NoError(t, s.Flush(ctx))
	assert.Equal(t, 1, sink.total())
	assert.Equal(t, 0, s.Pending())
}

func TestSweepMarksSilentGamesAbandoned(t *testing.T) {
	sink := &memorySink{}
	s := NewService(nil, sink, Options{Inactivity: time.Minute})
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	silent, active, ended := uuid.New(), uuid.New(), uuid.New()
	s.Add(ctx, record(silent, 1, game.EventGameStart))
	s.Add(ctx, record(ended, 1, game.EventGameStart))
	s.Add(ctx, record(ended, 2, game.EventGameEnd))

	now = now.Add(2 * time.Minute)
	s.Add(ctx, record(active, 1, game.EventGameStart))

	assert.Equal(t, 1, s.SweepInactive(ctx))
	assert.Equal(t, []uuid.UUID{silent}, sink.abandoned)
	// already swept
	assert.Equal(t, 0, s.SweepInactive(ctx))
}

func TestRunDrainsSourceAndFlushesOnStop(t *testing.T) {
	src := make(chanSource, 8)
	sink := &memorySink{}
	s := NewService(src, sink, Options{BatchSize: 100, FlushDelay: time.Hour, PopTimeout: 10 * time.Millisecond})
	id := uuid.New()
	for i := 1; i <= 5; i++ {
		src <- record(id, i, game.EventPlayerDrawCard)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return s.Pending() == 5 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, 5, sink.total())
}

// TestRedisQueueRoundTrip needs a running Redis; it is skipped otherwise.
func TestRedisQueueRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available at %s: %v", addr, err)
	}

	q := cache.NewActionQueue(rdb, "peak_actions_test_"+uuid.NewString())
	defer rdb.Del(context.Background(), q.Name())
	rec := record(uuid.New(), 1, game.EventPlayerDrawCard)
	rec.ActorID = "p1"
	rec.ActionPayload = map[string]interface{}{"extra": "test"}
	require.NoError(t, q.RecordAction(ctx, rec))

	sink := &memorySink{}
	s := NewService(q, sink, Options{BatchSize: 1})
	got, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	s.Add(ctx, *got)
	require.Len(t, sink.batches, 1)
	assert.Equal(t, rec.GameID, sink.batches[0][0].GameID)
	assert.Equal(t, "p1", sink.batches[0][0].ActorID)
	assert.Equal(t, "test", sink.batches[0][0].ActionPayload["extra"])

	empty, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Nil(t, empty)
}
