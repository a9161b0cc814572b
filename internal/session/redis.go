package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one JSON record per user with a native ttl refreshed on
// every save.
type RedisStore struct {
	rdb  *redis.Client
	ttl  time.Duration
	caps Caps

	now func() time.Time
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration, caps Caps) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl, caps: caps, now: time.Now}
}

func key(storeID string, userID int64) string {
	return fmt.Sprintf("session:%s:%d", storeID, userID)
}

func (r *RedisStore) Load(ctx context.Context, storeID string, userID int64) (*Session, error) {
	raw, err := r.rdb.Get(ctx, key(storeID, userID)).Bytes()
	if err == redis.Nil {
		return New(storeID, userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		// A corrupt record is unrecoverable; start the dialog over rather
		// than fail every subsequent event.
		log.Printf("discarding corrupt session %s: %v", key(storeID, userID), err)
		return New(storeID, userID), nil
	}
	if s.State.Step == "" {
		s.State.Step = StepWelcome
	}
	s.StoreID = storeID
	s.UserID = userID
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, storeID string, userID int64, s *Session) error {
	now := r.now().UTC()
	s.Normalize(r.caps)
	s.LastInteraction = now
	s.Timestamp = now

	// omitempty on every optional field strips null-valued attributes from
	// the serialized record
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := r.rdb.Set(ctx, key(storeID, userID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
