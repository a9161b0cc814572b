package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore is a map-backed Store for tests and local development. It
// deep-copies through JSON so callers cannot alias stored state.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
	caps Caps
}

func NewMemoryStore(caps Caps) *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte), caps: caps}
}

func (m *MemoryStore) Load(ctx context.Context, storeID string, userID int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key(storeID, userID)]
	if !ok {
		return New(storeID, userID), nil
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return New(storeID, userID), nil
	}
	return &s, nil
}

func (m *MemoryStore) Save(ctx context.Context, storeID string, userID int64, s *Session) error {
	s.Normalize(m.caps)
	now := time.Now().UTC()
	s.LastInteraction = now
	s.Timestamp = now
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key(storeID, userID)] = raw
	return nil
}

var _ Store = (*MemoryStore)(nil)
