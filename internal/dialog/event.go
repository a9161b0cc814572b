package dialog

import (
	"strconv"
	"strings"

	"dealbot/internal/places"
)

type EventKind string

const (
	EventText     EventKind = "text"
	EventButton   EventKind = "interactive"
	EventLocation EventKind = "location"
)

// Event is one normalized inbound message. The ingress layer guarantees
// events for a single user arrive serialized.
type Event struct {
	StoreID   string
	UserID    int64
	Kind      EventKind
	Text      string
	ButtonID  string
	Latitude  float64
	Longitude float64
}

// Canonical button ids.
const (
	BtnShareLocationPrompt = "share_location_prompt"
	BtnHowItWorks          = "how_it_works"
	BtnAbout               = "about"
	BtnMoreDeals           = "more_deals"
	BtnShareDeals          = "share_deals"
	BtnNewSearch           = "new_search"
	BtnReminder1h          = "reminder_1hour"
	BtnReminder2h          = "reminder_2hours"
	BtnReminder4h          = "reminder_4hours"
)

// restartKeywords return the dialog to the welcome step. Data, not code.
var restartKeywords = []string{"restart", "menu", "reset", "start over", "main menu", "start again"}

func isRestartText(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, k := range restartKeywords {
		if t == k {
			return true
		}
	}
	return false
}

// legacyButtonIDs maps retired ingress ids onto the canonical grammar.
// Dispatch never sees a legacy id.
var legacyButtonIDs = map[string]string{
	"food_deals":      "search_food_deals",
	"fashion_deals":   "search_fashion_deals",
	"events_deals":    "search_events_deals",
	"groceries_deals": "search_groceries_deals",
	"share_location":  BtnShareLocationPrompt,
}

// NormalizeButtonID folds legacy ids into canonical ones.
func NormalizeButtonID(id string) string {
	id = strings.TrimSpace(id)
	if canonical, ok := legacyButtonIDs[id]; ok {
		return canonical
	}
	return id
}

// searchCategory extracts the category from a search_<category>_deals id.
// Only the searchable categories parse; anything else is malformed input.
func searchCategory(id string) (string, bool) {
	if !strings.HasPrefix(id, "search_") || !strings.HasSuffix(id, "_deals") {
		return "", false
	}
	cat := strings.TrimSuffix(strings.TrimPrefix(id, "search_"), "_deals")
	if !places.IsCategory(cat) {
		return "", false
	}
	return cat, true
}

// indexedButton splits ids of the form <action>_<i>; returns the action
// prefix and index.
func indexedButton(id string) (string, int, bool) {
	for _, prefix := range []string{"get_directions_", "share_deal_", "set_reminder_"} {
		if strings.HasPrefix(id, prefix) {
			i, err := strconv.Atoi(strings.TrimPrefix(id, prefix))
			if err != nil || i < 0 {
				return "", 0, false
			}
			return strings.TrimSuffix(prefix, "_"), i, true
		}
	}
	return "", 0, false
}
