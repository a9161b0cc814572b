package session

import (
	"time"

	"dealbot/internal/deals"
	"dealbot/internal/geo"
)

// Dialog steps. The machine cycles; there is no terminal step.
type Step string

const (
	StepWelcome              Step = "welcome"
	StepAwaitingLocation     Step = "awaiting_location"
	StepLocationConfirmed    Step = "location_confirmed"
	StepSearching            Step = "searching"
	StepDealsShown           Step = "deals_shown"
	StepAwaitingReminderTime Step = "awaiting_reminder_time"
)

type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

type SentMessage struct {
	Hash      string    `json:"hash"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
}

// ChatContext freezes the result set follow-up questions are grounded in.
type ChatContext struct {
	Deals         []deals.Deal `json:"deals,omitempty"`
	Category      string       `json:"category,omitempty"`
	LocationLabel string       `json:"locationLabel,omitempty"`
}

type UserState struct {
	Step                 Step          `json:"step"`
	Category             string        `json:"category,omitempty"`
	Location             *geo.Location `json:"location,omitempty"`
	LastDeals            []deals.Deal  `json:"lastDeals,omitempty"`
	ChatContext          *ChatContext  `json:"chatContext,omitempty"`
	PendingReminderDeal  *deals.Deal   `json:"pendingReminderDeal,omitempty"`
	ChatInteractionCount int           `json:"chatInteractionCount,omitempty"`
}

// Caps bound the session's retained history.
type Caps struct {
	Conversation  int
	SentMessages  int
	SharedDealIDs int
}

func DefaultCaps() Caps {
	return Caps{Conversation: 20, SentMessages: 50, SharedDealIDs: 200}
}

// Session is the single source of truth for one user's dialog; it is loaded
// before and persisted after every inbound event.
type Session struct {
	StoreID         string        `json:"storeId"`
	UserID          int64         `json:"userId"`
	Conversation    []Message     `json:"conversation,omitempty"`
	SentMessages    []SentMessage `json:"sentMessages,omitempty"`
	SharedDealIDs   []string      `json:"sharedDealIds,omitempty"`
	State           UserState     `json:"userState"`
	LastInteraction time.Time     `json:"lastInteraction"`
	Timestamp       time.Time     `json:"timestamp"`
}

// New returns an empty, well-formed session at the welcome step.
func New(storeID string, userID int64) *Session {
	return &Session{
		StoreID: storeID,
		UserID:  userID,
		State:   UserState{Step: StepWelcome},
	}
}

func (s *Session) AppendUser(content string) {
	s.Conversation = append(s.Conversation, Message{Role: "user", Content: content})
}

func (s *Session) AppendAssistant(content string) {
	s.Conversation = append(s.Conversation, Message{Role: "assistant", Content: content})
}

// AlreadySent reports whether an outbound hash was dispatched this session.
func (s *Session) AlreadySent(hash string) bool {
	for i := range s.SentMessages {
		if s.SentMessages[i].Hash == hash {
			return true
		}
	}
	return false
}

// MarkSent records an outbound hash before dispatch. Returns false when the
// hash was already present, in which case the send must be suppressed.
func (s *Session) MarkSent(hash, kind string, at time.Time) bool {
	if s.AlreadySent(hash) {
		return false
	}
	s.SentMessages = append(s.SentMessages, SentMessage{Hash: hash, Timestamp: at, Kind: kind})
	return true
}

// AddSharedDeals appends deal ids the user has now been shown, preserving
// order and skipping ids already present.
func (s *Session) AddSharedDeals(ids []string) {
	seen := make(map[string]bool, len(s.SharedDealIDs))
	for _, id := range s.SharedDealIDs {
		seen[id] = true
	}
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		s.SharedDealIDs = append(s.SharedDealIDs, id)
	}
}

// ResetForNewLocation clears everything bound to the previous location.
func (s *Session) ResetForNewLocation() {
	s.State.Category = ""
	s.State.LastDeals = nil
	s.State.ChatContext = nil
	s.State.ChatInteractionCount = 0
	s.SharedDealIDs = nil
}

// ResetToWelcome returns the dialog to its initial shape. The sent-message
// log and the seen-deal history survive a restart keyword: dedup and
// exclusion bookkeeping are not conversation state.
func (s *Session) ResetToWelcome() {
	s.State = UserState{Step: StepWelcome}
	s.Conversation = nil
}

// Normalize enforces the retention caps, keeping the most recent entries.
func (s *Session) Normalize(c Caps) {
	if c.Conversation > 0 && len(s.Conversation) > c.Conversation {
		s.Conversation = append([]Message(nil), s.Conversation[len(s.Conversation)-c.Conversation:]...)
	}
	if c.SentMessages > 0 && len(s.SentMessages) > c.SentMessages {
		s.SentMessages = append([]SentMessage(nil), s.SentMessages[len(s.SentMessages)-c.SentMessages:]...)
	}
	if c.SharedDealIDs > 0 && len(s.SharedDealIDs) > c.SharedDealIDs {
		s.SharedDealIDs = append([]string(nil), s.SharedDealIDs[len(s.SharedDealIDs)-c.SharedDealIDs:]...)
	}
}
