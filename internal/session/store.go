package session

import (
	"context"
	"errors"
)

// ErrStorageUnavailable signals a transient backend failure. Event
// processing must fail rather than proceed without persistence.
var ErrStorageUnavailable = errors.New("session storage unavailable")

// Store persists sessions keyed by (store id, user id).
//
// Load never fails on absence: a missing record yields an empty, well-formed
// session. Save writes the whole record atomically after enforcing caps.
type Store interface {
	Load(ctx context.Context, storeID string, userID int64) (*Session, error)
	Save(ctx context.Context, storeID string, userID int64, s *Session) error
}
