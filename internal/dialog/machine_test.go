package dialog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"dealbot/internal/deals"
	"dealbot/internal/geo"
	"dealbot/internal/llm"
	"dealbot/internal/reminder"
	"dealbot/internal/session"
)

type fakeAcquirer struct {
	found        []deals.Deal
	err          error
	calls        int
	lastCategory string
	lastExclude  []string
}

func (f *fakeAcquirer) Acquire(_ context.Context, _ *geo.Location, category string, exclude []string, _ int) ([]deals.Deal, error) {
	f.calls++
	f.lastCategory = category
	f.lastExclude = append([]string(nil), exclude...)
	return f.found, f.err
}

type fakeResolver struct {
	loc *geo.Location
	err error
}

func (f *fakeResolver) Resolve(_ context.Context, lat, lng float64) (*geo.Location, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := *f.loc
	out.Latitude, out.Longitude = lat, lng
	return &out, nil
}

type fakeWeather struct {
	current *geo.Weather
	hourly  []geo.HourlyEntry
	err     error
}

func (f *fakeWeather) Current(_ context.Context, _, _ float64) (*geo.Weather, error) {
	return f.current, f.err
}

func (f *fakeWeather) Hourly(_ context.Context, _, _ float64) ([]geo.HourlyEntry, error) {
	return f.hourly, f.err
}

type fakeChat struct {
	reply      string
	err        error
	calls      int
	lastSystem string
	lastUser   string
}

func (f *fakeChat) Complete(_ context.Context, system, user string, _ llm.Options) (string, error) {
	f.calls++
	f.lastSystem, f.lastUser = system, user
	return f.reply, f.err
}

type fakeQueue struct {
	got []reminder.Reminder
	err error
}

func (f *fakeQueue) Enqueue(_ context.Context, r reminder.Reminder) error {
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, r)
	return nil
}

type machineFixture struct {
	m        *Machine
	acquirer *fakeAcquirer
	chat     *fakeChat
	queue    *fakeQueue
	now      time.Time
}

func newFixture(found []deals.Deal) *machineFixture {
	f := &machineFixture{
		acquirer: &fakeAcquirer{found: found},
		chat:     &fakeChat{reply: "The croissant deal runs on weekdays."},
		queue:    &fakeQueue{},
		now:      time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	resolver := &fakeResolver{loc: &geo.Location{
		DisplayName: "Marina Bay Sands",
		Area:        "Downtown Core",
	}}
	weather := &fakeWeather{
		current: &geo.Weather{DisplayText: "🌤 31°C, partly cloudy"},
		hourly:  []geo.HourlyEntry{{DisplayText: "3pm 32°C"}},
	}
	f.m = NewMachine(f.acquirer, resolver, weather, f.chat, f.queue, Config{Country: "Singapore", DealLimit: 5})
	f.m.now = func() time.Time { return f.now }
	return f
}

func coord(v float64) *float64 { return &v }

func sampleDeals() []deals.Deal {
	return []deals.Deal{
		{DealID: "D1", BusinessName: "Tiong Bahru Bakery", Offer: "1-for-1 croissants",
			Address: "56 Eng Hoon St", Latitude: coord(1.2859), Longitude: coord(103.8324)},
		{DealID: "D2", BusinessName: "KOI Thé", Offer: "20% off milk tea"},
	}
}

func locationEvent(lat, lng float64) Event {
	return Event{Kind: EventLocation, Latitude: lat, Longitude: lng}
}

func buttonEvent(id string) Event { return Event{Kind: EventButton, ButtonID: id} }

func textEvent(t string) Event { return Event{Kind: EventText, Text: t} }

// walks a fresh session to the deals-shown step.
func shownSession(t *testing.T, f *machineFixture) *session.Session {
	t.Helper()
	s := session.New("sg-01", 42)
	if _, err := f.m.Step(context.Background(), s, locationEvent(1.2834, 103.8607)); err != nil {
		t.Fatalf("location step: %v", err)
	}
	if _, err := f.m.Step(context.Background(), s, buttonEvent("search_food_deals")); err != nil {
		t.Fatalf("search step: %v", err)
	}
	return s
}

func TestGreetingShowsWelcomeCard(t *testing.T) {
	f := newFixture(nil)
	s := session.New("sg-01", 42)

	out, err := f.m.Step(context.Background(), s, textEvent("hello"))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if len(out) != 1 || out[0].Kind != MsgButtons {
		t.Fatalf("want one buttons message, got %+v", out)
	}
	if out[0].Header != "Welcome" || len(out[0].Buttons) != 3 {
		t.Fatalf("welcome card malformed: %+v", out[0])
	}
	if out[0].Buttons[0].ID != BtnShareLocationPrompt {
		t.Fatalf("first button: %+v", out[0].Buttons[0])
	}
}

func TestValidLocationConfirmsAndResets(t *testing.T) {
	f := newFixture(nil)
	s := session.New("sg-01", 42)
	s.State.Category = "fashion"
	s.State.ChatInteractionCount = 7

	out, err := f.m.Step(context.Background(), s, locationEvent(1.2834, 103.8607))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if s.State.Step != session.StepLocationConfirmed {
		t.Fatalf("step: %s", s.State.Step)
	}
	if s.State.Category != "" || s.State.ChatInteractionCount != 0 {
		t.Fatalf("stale search state survived: %+v", s.State)
	}
	if s.State.Location == nil || s.State.Location.DisplayName != "Marina Bay Sands" {
		t.Fatalf("location: %+v", s.State.Location)
	}
	if s.State.Location.Weather == nil {
		t.Fatal("weather should be attached when available")
	}
	if len(out) != 1 || out[0].Kind != MsgButtons {
		t.Fatalf("want confirmation card, got %+v", out)
	}
	if !strings.Contains(out[0].Body, "Marina Bay Sands") || !strings.Contains(out[0].Body, "31°C") {
		t.Fatalf("confirmation body: %q", out[0].Body)
	}
}

func TestOutOfRegionLocationLeavesSessionUntouched(t *testing.T) {
	f := newFixture(nil)
	s := session.New("sg-01", 42)
	resolver := &fakeResolver{err: geo.ErrOutOfRegion}
	f.m.resolver = resolver

	out, err := f.m.Step(context.Background(), s, locationEvent(51.5072, -0.1276))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if s.State.Step != session.StepWelcome || s.State.Location != nil {
		t.Fatalf("rejection must not mutate the session: %+v", s.State)
	}
	if len(out) != 1 || out[0].Body != outOfRegionText("Singapore") {
		t.Fatalf("out: %+v", out)
	}
	if !strings.Contains(out[0].Body, "Singapore") {
		t.Fatalf("rejection copy must name the configured country: %q", out[0].Body)
	}
}

func TestInvalidCoordinatesReprompt(t *testing.T) {
	f := newFixture(nil)
	s := session.New("sg-01", 42)

	out, err := f.m.Step(context.Background(), s, locationEvent(91.0, 200.0))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if s.State.Location != nil {
		t.Fatal("invalid location must not resolve")
	}
	if out[0].Body != textReprompt {
		t.Fatalf("out: %+v", out)
	}
}

func TestSearchWithoutLocationAsksForIt(t *testing.T) {
	f := newFixture(nil)
	s := session.New("sg-01", 42)

	out, err := f.m.Step(context.Background(), s, buttonEvent("search_food_deals"))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if s.State.Step != session.StepAwaitingLocation {
		t.Fatalf("step: %s", s.State.Step)
	}
	if f.acquirer.calls != 0 {
		t.Fatal("pipeline must not run without a location")
	}
	if out[0].Body != textShareHowTo {
		t.Fatalf("out: %+v", out)
	}
}

func TestSearchEmptyResultFallsBackToConfirmed(t *testing.T) {
	f := newFixture(nil)
	s := shownSession(t, f)

	if s.State.Step != session.StepLocationConfirmed {
		t.Fatalf("step: %s", s.State.Step)
	}
	if len(s.State.LastDeals) != 0 || len(s.SharedDealIDs) != 0 {
		t.Fatalf("empty search must not record results: %+v", s.State)
	}
}

func TestSearchShowsDealsAndRecordsThem(t *testing.T) {
	f := newFixture(sampleDeals())
	s := shownSession(t, f)

	if s.State.Step != session.StepDealsShown {
		t.Fatalf("step: %s", s.State.Step)
	}
	if f.acquirer.lastCategory != "food" {
		t.Fatalf("category: %q", f.acquirer.lastCategory)
	}
	if len(s.State.LastDeals) != 2 || s.State.ChatContext == nil {
		t.Fatalf("result snapshot missing: %+v", s.State)
	}
	if len(s.SharedDealIDs) != 2 || s.SharedDealIDs[0] != "D1" {
		t.Fatalf("shared ids: %v", s.SharedDealIDs)
	}
}

func TestSearchRendersDealCardsPlusTrailingActions(t *testing.T) {
	f := newFixture(sampleDeals())
	s := session.New("sg-01", 42)
	if _, err := f.m.Step(context.Background(), s, locationEvent(1.2834, 103.8607)); err != nil {
		t.Fatalf("location: %v", err)
	}
	out, err := f.m.Step(context.Background(), s, buttonEvent("search_food_deals"))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("want 2 cards + trailing actions, got %d messages", len(out))
	}
	if !strings.Contains(out[0].Body, "Tiong Bahru Bakery") {
		t.Fatalf("first card: %q", out[0].Body)
	}
	if out[0].Buttons[0].ID != "get_directions_0" || out[1].Buttons[2].ID != "set_reminder_1" {
		t.Fatalf("action ids: %+v %+v", out[0].Buttons, out[1].Buttons)
	}
	last := out[len(out)-1]
	if last.Buttons[0].ID != BtnMoreDeals || last.Buttons[2].ID != BtnNewSearch {
		t.Fatalf("trailing actions: %+v", last.Buttons)
	}
}

func TestSearchFailurePropagatesWithoutMessages(t *testing.T) {
	f := newFixture(nil)
	f.acquirer.err = errors.New("store down")
	s := session.New("sg-01", 42)
	if _, err := f.m.Step(context.Background(), s, locationEvent(1.2834, 103.8607)); err != nil {
		t.Fatalf("location: %v", err)
	}

	out, err := f.m.Step(context.Background(), s, buttonEvent("search_food_deals"))
	if err == nil {
		t.Fatal("storage failure must surface so the session is discarded")
	}
	if out != nil {
		t.Fatalf("no messages on failure, got %+v", out)
	}
}

func TestMoreDealsExcludesEverythingAlreadyShown(t *testing.T) {
	f := newFixture(sampleDeals())
	s := shownSession(t, f)

	f.acquirer.found = []deals.Deal{{DealID: "D3", BusinessName: "Third Wave", Offer: "free espresso shot"}}
	if _, err := f.m.Step(context.Background(), s, buttonEvent(BtnMoreDeals)); err != nil {
		t.Fatalf("more deals: %v", err)
	}
	if len(f.acquirer.lastExclude) != 2 || f.acquirer.lastExclude[0] != "D1" || f.acquirer.lastExclude[1] != "D2" {
		t.Fatalf("exclusion list: %v", f.acquirer.lastExclude)
	}
	if len(s.SharedDealIDs) != 3 || s.SharedDealIDs[2] != "D3" {
		t.Fatalf("shared ids after more: %v", s.SharedDealIDs)
	}
	if len(s.State.LastDeals) != 1 || s.State.LastDeals[0].DealID != "D3" {
		t.Fatalf("snapshot should hold only the fresh page: %+v", s.State.LastDeals)
	}
}

func TestLegacyButtonIDStillSearches(t *testing.T) {
	f := newFixture(sampleDeals())
	s := session.New("sg-01", 42)
	if _, err := f.m.Step(context.Background(), s, locationEvent(1.2834, 103.8607)); err != nil {
		t.Fatalf("location: %v", err)
	}
	if _, err := f.m.Step(context.Background(), s, buttonEvent("food_deals")); err != nil {
		t.Fatalf("legacy search: %v", err)
	}
	if f.acquirer.lastCategory != "food" {
		t.Fatalf("category: %q", f.acquirer.lastCategory)
	}
}

func TestDirectionsSendsCoordinatesWhenKnown(t *testing.T) {
	f := newFixture(sampleDeals())
	s := shownSession(t, f)

	out, err := f.m.Step(context.Background(), s, buttonEvent("get_directions_0"))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if out[0].Kind != MsgLocation || out[0].Name != "Tiong Bahru Bakery" {
		t.Fatalf("want venue message, got %+v", out[0])
	}
}

func TestDirectionsFallsBackToMapLinkWithoutCoordinates(t *testing.T) {
	f := newFixture(sampleDeals())
	s := shownSession(t, f)

	out, err := f.m.Step(context.Background(), s, buttonEvent("get_directions_1"))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if out[0].Kind != MsgText || !strings.Contains(out[0].Body, "google.com/maps/search") {
		t.Fatalf("want map link fallback, got %+v", out[0])
	}
}

func TestDealActionIndexOutOfRangeReprompts(t *testing.T) {
	f := newFixture(sampleDeals())
	s := shownSession(t, f)

	out, err := f.m.Step(context.Background(), s, buttonEvent("share_deal_9"))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if out[0].Body != textReprompt {
		t.Fatalf("out: %+v", out)
	}
}

func TestReminderFlowEnqueuesWithChosenDelay(t *testing.T) {
	f := newFixture(sampleDeals())
	s := shownSession(t, f)

	out, err := f.m.Step(context.Background(), s, buttonEvent("set_reminder_0"))
	if err != nil {
		t.Fatalf("set reminder: %v", err)
	}
	if s.State.Step != session.StepAwaitingReminderTime || s.State.PendingReminderDeal == nil {
		t.Fatalf("state after set_reminder: %+v", s.State)
	}
	if len(out[0].Buttons) != 3 || out[0].Buttons[1].ID != BtnReminder2h {
		t.Fatalf("time choices: %+v", out[0].Buttons)
	}

	out, err = f.m.Step(context.Background(), s, buttonEvent(BtnReminder2h))
	if err != nil {
		t.Fatalf("pick time: %v", err)
	}
	if s.State.Step != session.StepDealsShown || s.State.PendingReminderDeal != nil {
		t.Fatalf("state after pick: %+v", s.State)
	}
	if len(f.queue.got) != 1 {
		t.Fatalf("enqueued: %d", len(f.queue.got))
	}
	r := f.queue.got[0]
	if r.Deal.DealID != "D1" || r.UserID != 42 {
		t.Fatalf("reminder: %+v", r)
	}
	if want := f.now.Add(2 * time.Hour); !r.FireAt.Equal(want) {
		t.Fatalf("fireAt %v, want %v", r.FireAt, want)
	}
	if !strings.Contains(out[0].Body, "2 hours") {
		t.Fatalf("confirmation: %q", out[0].Body)
	}
}

func TestReminderQueueFailureDegradesGracefully(t *testing.T) {
	f := newFixture(sampleDeals())
	f.queue.err = errors.New("broker gone")
	s := shownSession(t, f)

	if _, err := f.m.Step(context.Background(), s, buttonEvent("set_reminder_0")); err != nil {
		t.Fatalf("set reminder: %v", err)
	}
	out, err := f.m.Step(context.Background(), s, buttonEvent(BtnReminder1h))
	if err != nil {
		t.Fatalf("queue failure must not error the step: %v", err)
	}
	if s.State.Step != session.StepDealsShown {
		t.Fatalf("step: %s", s.State.Step)
	}
	if !strings.Contains(out[0].Body, "couldn't set that reminder") {
		t.Fatalf("out: %+v", out)
	}
}

func TestChatFollowUpUsesSnapshotAndRecordsTurns(t *testing.T) {
	f := newFixture(sampleDeals())
	s := shownSession(t, f)

	out, err := f.m.Step(context.Background(), s, textEvent("which one is open late?"))
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if f.chat.calls != 1 {
		t.Fatalf("chat calls: %d", f.chat.calls)
	}
	if !strings.Contains(f.chat.lastSystem, "Tiong Bahru Bakery") {
		t.Fatalf("system prompt missing deals: %q", f.chat.lastSystem)
	}
	if strings.Count(f.chat.lastUser, "which one is open late?") != 1 {
		t.Fatalf("question must appear exactly once: %q", f.chat.lastUser)
	}
	if out[0].Body != f.chat.reply {
		t.Fatalf("out: %+v", out)
	}
	if s.State.ChatInteractionCount != 1 {
		t.Fatalf("count: %d", s.State.ChatInteractionCount)
	}
	n := len(s.Conversation)
	if n < 2 || s.Conversation[n-1].Role != "assistant" || s.Conversation[n-2].Role != "user" {
		t.Fatalf("conversation tail: %+v", s.Conversation)
	}
}

func TestChatQuotaExhaustionResetsToWelcome(t *testing.T) {
	f := newFixture(sampleDeals())
	s := shownSession(t, f)
	s.State.ChatInteractionCount = 10

	out, err := f.m.Step(context.Background(), s, textEvent("and another thing"))
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if f.chat.calls != 0 {
		t.Fatal("model must not be consulted past the quota")
	}
	if s.State.Step != session.StepWelcome {
		t.Fatalf("step: %s", s.State.Step)
	}
	if len(out) != 2 || out[1].Header != "Welcome" {
		t.Fatalf("want fresh-start text plus welcome card, got %+v", out)
	}
}

func TestChatFailureKeepsStateAndApologizes(t *testing.T) {
	f := newFixture(sampleDeals())
	f.chat.err = errors.New("model timeout")
	s := shownSession(t, f)

	out, err := f.m.Step(context.Background(), s, textEvent("is the bakery halal?"))
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if out[0].Body != textChatTrouble {
		t.Fatalf("out: %+v", out)
	}
	if s.State.Step != session.StepDealsShown {
		t.Fatalf("step: %s", s.State.Step)
	}
	if s.State.ChatInteractionCount != 0 {
		t.Fatalf("a failed turn must not consume quota, count=%d", s.State.ChatInteractionCount)
	}
	if len(s.Conversation) != 0 {
		t.Fatalf("a failed turn must not be recorded: %+v", s.Conversation)
	}
}

func TestRestartKeywordResetsFromAnyStep(t *testing.T) {
	f := newFixture(sampleDeals())
	s := shownSession(t, f)

	out, err := f.m.Step(context.Background(), s, textEvent("  Start Over "))
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if s.State.Step != session.StepWelcome || s.State.Location != nil {
		t.Fatalf("state: %+v", s.State)
	}
	if len(s.SharedDealIDs) != 2 {
		t.Fatalf("restart must keep the seen-deal history: %v", s.SharedDealIDs)
	}
	if out[0].Header != "Welcome" {
		t.Fatalf("out: %+v", out)
	}
}

func TestMalformedSearchButtonDoesNotSearchOrMutate(t *testing.T) {
	f := newFixture(sampleDeals())
	s := session.New("sg-01", 42)
	if _, err := f.m.Step(context.Background(), s, locationEvent(1.2834, 103.8607)); err != nil {
		t.Fatalf("location: %v", err)
	}

	out, err := f.m.Step(context.Background(), s, buttonEvent("search_xyz_deals"))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if f.acquirer.calls != 0 {
		t.Fatalf("pipeline must not run for a malformed id, got %d calls", f.acquirer.calls)
	}
	if s.State.Category != "" || s.State.Step != session.StepLocationConfirmed {
		t.Fatalf("malformed id mutated state: %+v", s.State)
	}
	if out[0].Body != textReprompt {
		t.Fatalf("out: %+v", out)
	}
}

func TestUnknownButtonReprompts(t *testing.T) {
	f := newFixture(nil)
	s := session.New("sg-01", 42)

	out, err := f.m.Step(context.Background(), s, buttonEvent("mystery_button"))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if out[0].Body != textReprompt {
		t.Fatalf("out: %+v", out)
	}
}
