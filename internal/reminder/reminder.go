package reminder

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"dealbot/internal/deals"
)

// Reminder carries everything needed to render the follow-up message, so
// delivery does not depend on the session still existing.
type Reminder struct {
	ID        string     `json:"id"`
	StoreID   string     `json:"storeId"`
	UserID    int64      `json:"userId"`
	Deal      deals.Deal `json:"deal"`
	FireAt    time.Time  `json:"fireAt"`
	CreatedAt time.Time  `json:"createdAt"`
}

func New(storeID string, userID int64, deal deals.Deal, fireAt time.Time) Reminder {
	return Reminder{
		ID:        uuid.NewString(),
		StoreID:   storeID,
		UserID:    userID,
		Deal:      deal,
		FireAt:    fireAt,
		CreatedAt: time.Now().UTC(),
	}
}

// Queue accepts reminders for later delivery.
type Queue interface {
	Enqueue(ctx context.Context, r Reminder) error
}

// NoopQueue stands in when no broker is configured; reminders are logged
// and dropped.
type NoopQueue struct{}

func (NoopQueue) Enqueue(_ context.Context, r Reminder) error {
	log.Printf("reminder queue not configured, dropping reminder %s for user %d", r.ID, r.UserID)
	return nil
}
