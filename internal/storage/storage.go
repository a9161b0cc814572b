package storage

import "time"

// Event is one processed inbound event and the size of its outbound set,
// kept as an append-only audit trail.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	StoreID   string    `json:"store_id,omitempty"`
	UserID    int64     `json:"user_id"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text,omitempty"`
	ButtonID  string    `json:"button_id,omitempty"`
	Outbound  int       `json:"outbound"`
}

// NowUTC exists so callers stamp events uniformly.
func NowUTC() time.Time { return time.Now().UTC() }

// Recorder abstracts persistence of interaction events.
// Implementations can be file-based, database, etc.
// LoadInteractions should return events in chronological order.
// AppendInteraction should atomically append a new event.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendInteraction(event Event) error
	LoadInteractions() ([]Event, error)
}
