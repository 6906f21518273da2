// internal/roomsync/redis_store.go
package roomsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultRoomTTL bounds how long an idle room document lives in Redis.
const DefaultRoomTTL = 24 * time.Hour

// RedisStore keeps each room as a hash (version, state), a member set and a
// pub/sub channel. Writes are compare-and-set on the version field.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns a store using keys under prefix ("peak" if empty).
func NewRedisStore(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "peak"
	}
	if ttl <= 0 {
		ttl = DefaultRoomTTL
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) docKey(roomID string) string     { return s.prefix + ":room:" + roomID }
func (s *RedisStore) channel(roomID string) string    { return s.prefix + ":room:" + roomID + ":events" }
func (s *RedisStore) membersKey(roomID string) string { return s.prefix + ":room:" + roomID + ":members" }

func (s *RedisStore) Put(ctx context.Context, roomID string, expectedVersion uint64, doc Document) error {
	if doc.Version() <= expectedVersion {
		return fmt.Errorf("new version %d must exceed %d", doc.Version(), expectedVersion)
	}
	data, err := json.Marshal(doc.State)
	if err != nil {
		return fmt.Errorf("failed to marshal room state: %w", err)
	}
	note, err := json.Marshal(Notification{Kind: NotifyState, RoomID: roomID, Version: doc.Version()})
	if err != nil {
		return err
	}
	key := s.docKey(roomID)

	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, "version").Uint64()
		switch {
		case errors.Is(err, redis.Nil):
			if expectedVersion != 0 {
				return ErrRoomNotFound
			}
		case err != nil:
			return err
		case expectedVersion == 0:
			return ErrRoomExists
		case current != expectedVersion:
			return fmt.Errorf("%w: expected version %d, have %d", ErrStaleState, expectedVersion, current)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "version", doc.Version(), "state", data)
			pipe.Expire(ctx, key, s.ttl)
			pipe.Publish(ctx, s.channel(roomID), note)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		// another writer committed between our read and our write
		return fmt.Errorf("%w: concurrent write to room %s", ErrStaleState, roomID)
	}
	return err
}

func (s *RedisStore) Get(ctx context.Context, roomID string) (Document, error) {
	data, err := s.rdb.HGet(ctx, s.docKey(roomID), "state").Bytes()
	if errors.Is(err, redis.Nil) {
		return Document{}, ErrRoomNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("failed to read room %s: %w", roomID, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc.State); err != nil {
		return Document{}, fmt.Errorf("failed to unmarshal room %s: %w", roomID, err)
	}
	return doc, nil
}

func (s *RedisStore) Subscribe(ctx context.Context, roomID string) (<-chan Notification, error) {
	pubsub := s.rdb.Subscribe(ctx, s.channel(roomID))
	// wait for the subscription to be confirmed so no publish is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to room %s: %w", roomID, err)
	}

	out := make(chan Notification, subscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var n Notification
				if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
					logrus.Warnf("roomsync: bad notification on %s: %v", msg.Channel, err)
					continue
				}
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *RedisStore) AddMember(ctx context.Context, roomID, memberID string) error {
	return s.updateMembers(ctx, roomID, memberID, NotifyMemberJoined)
}

func (s *RedisStore) RemoveMember(ctx context.Context, roomID, memberID string) error {
	return s.updateMembers(ctx, roomID, memberID, NotifyMemberLeft)
}

func (s *RedisStore) updateMembers(ctx context.Context, roomID, memberID string, kind NotificationKind) error {
	key := s.membersKey(roomID)
	var changed int64
	var err error
	if kind == NotifyMemberJoined {
		changed, err = s.rdb.SAdd(ctx, key, memberID).Result()
		if err == nil {
			err = s.rdb.Expire(ctx, key, s.ttl).Err()
		}
	} else {
		changed, err = s.rdb.SRem(ctx, key, memberID).Result()
	}
	if err != nil {
		return fmt.Errorf("failed to update members of room %s: %w", roomID, err)
	}
	if changed == 0 {
		return nil
	}
	note, err := json.Marshal(Notification{Kind: kind, RoomID: roomID, MemberID: memberID})
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, s.channel(roomID), note).Err()
}

func (s *RedisStore) Members(ctx context.Context, roomID string) ([]string, error) {
	members, err := s.rdb.SMembers(ctx, s.membersKey(roomID)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(members)
	return members, nil
}
