package dialog

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"dealbot/internal/deals"
	"dealbot/internal/geo"
	"dealbot/internal/llm"
	"dealbot/internal/reminder"
	"dealbot/internal/session"
)

const chatQuota = 10

// Acquirer runs the deal acquisition pipeline.
type Acquirer interface {
	Acquire(ctx context.Context, loc *geo.Location, category string, excludeDealIDs []string, limit int) ([]deals.Deal, error)
}

type Config struct {
	Country     string
	DealLimit   int
	ChatTimeout time.Duration
}

// Machine is the dialog state machine. It holds no per-user state: every
// transition reads and mutates the session it is handed, so concurrent
// events for different users cannot interfere.
type Machine struct {
	acquirer  Acquirer
	resolver  geo.Resolver
	weather   geo.WeatherProvider
	chat      llm.Client
	reminders reminder.Queue
	cfg       Config

	now func() time.Time
}

func NewMachine(acquirer Acquirer, resolver geo.Resolver, weather geo.WeatherProvider, chat llm.Client, reminders reminder.Queue, cfg Config) *Machine {
	if cfg.DealLimit <= 0 {
		cfg.DealLimit = 5
	}
	if cfg.ChatTimeout <= 0 {
		cfg.ChatTimeout = 10 * time.Second
	}
	if reminders == nil {
		reminders = reminder.NoopQueue{}
	}
	return &Machine{
		acquirer:  acquirer,
		resolver:  resolver,
		weather:   weather,
		chat:      chat,
		reminders: reminders,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Step processes one inbound event: it transitions the session and returns
// the outbound messages. A non-nil error means the event failed and the
// mutated session must not be persisted.
func (m *Machine) Step(ctx context.Context, s *session.Session, ev Event) ([]Message, error) {
	switch ev.Kind {
	case EventLocation:
		return m.handleLocation(ctx, s, ev)
	case EventButton:
		return m.handleButton(ctx, s, NormalizeButtonID(ev.ButtonID))
	case EventText:
		return m.handleText(ctx, s, ev.Text)
	default:
		return []Message{NewText(textReprompt)}, nil
	}
}

func (m *Machine) handleText(ctx context.Context, s *session.Session, text string) ([]Message, error) {
	if isRestartText(text) {
		s.ResetToWelcome()
		return []Message{welcomeCard()}, nil
	}

	// Follow-up questions are grounded in the frozen result snapshot.
	if s.State.Step == session.StepDealsShown && s.State.ChatContext != nil {
		return m.handleChat(ctx, s, text)
	}

	switch s.State.Step {
	case session.StepWelcome, "":
		s.AppendUser(text)
		return []Message{welcomeCard()}, nil
	case session.StepAwaitingLocation:
		return []Message{NewText(textShareHowTo)}, nil
	case session.StepLocationConfirmed:
		if s.State.Location != nil {
			return []Message{confirmationCard(s.State.Location)}, nil
		}
		return []Message{NewText(textShareHowTo)}, nil
	default:
		return []Message{NewText(textReprompt)}, nil
	}
}

func (m *Machine) handleLocation(ctx context.Context, s *session.Session, ev Event) ([]Message, error) {
	if !geo.ValidCoords(ev.Latitude, ev.Longitude) {
		return []Message{NewText(textReprompt)}, nil
	}

	loc, err := m.resolver.Resolve(ctx, ev.Latitude, ev.Longitude)
	switch {
	case err == geo.ErrOutOfRegion:
		return []Message{NewText(outOfRegionText(m.cfg.Country))}, nil
	case err != nil:
		log.Printf("location resolve failed for user %d: %v", s.UserID, err)
		return []Message{NewText(textReprompt)}, nil
	}
	loc.Source = geo.SourceGPS

	// Weather is decoration; its absence never blocks the transition.
	if w, werr := m.weather.Current(ctx, loc.Latitude, loc.Longitude); werr == nil {
		loc.Weather = w
	}
	if hours, herr := m.weather.Hourly(ctx, loc.Latitude, loc.Longitude); herr == nil {
		loc.HourlyForecast = hours
	}

	s.ResetForNewLocation()
	s.State.Location = loc
	s.State.Step = session.StepLocationConfirmed
	return []Message{confirmationCard(loc)}, nil
}

func (m *Machine) handleButton(ctx context.Context, s *session.Session, id string) ([]Message, error) {
	if cat, ok := searchCategory(id); ok {
		return m.handleSearch(ctx, s, cat)
	}
	if action, i, ok := indexedButton(id); ok {
		return m.handleDealAction(s, action, i)
	}

	switch id {
	case BtnShareLocationPrompt, BtnNewSearch:
		s.State.Step = session.StepAwaitingLocation
		return []Message{NewText(textShareHowTo)}, nil
	case BtnHowItWorks:
		return []Message{howItWorksText()}, nil
	case BtnAbout:
		return []Message{aboutText()}, nil
	case BtnMoreDeals:
		if s.State.Location == nil || s.State.Category == "" {
			return []Message{NewText(textShareHowTo)}, nil
		}
		return m.handleSearch(ctx, s, s.State.Category)
	case BtnShareDeals:
		if len(s.State.LastDeals) == 0 {
			return []Message{NewText(textReprompt)}, nil
		}
		return []Message{NewText(shareDigest(s.State.LastDeals))}, nil
	case BtnReminder1h, BtnReminder2h, BtnReminder4h:
		return m.handleReminderTime(ctx, s, id)
	default:
		return []Message{NewText(textReprompt)}, nil
	}
}

func (m *Machine) handleSearch(ctx context.Context, s *session.Session, category string) ([]Message, error) {
	if s.State.Location == nil {
		s.State.Step = session.StepAwaitingLocation
		return []Message{NewText(textShareHowTo)}, nil
	}

	s.State.Category = category
	s.State.Step = session.StepSearching

	found, err := m.acquirer.Acquire(ctx, s.State.Location, category, s.SharedDealIDs, m.cfg.DealLimit)
	if err != nil {
		return nil, fmt.Errorf("deal acquisition failed: %w", err)
	}

	if len(found) == 0 {
		s.State.Step = session.StepLocationConfirmed
		s.State.LastDeals = nil
		return []Message{NewText(textNoDeals)}, nil
	}

	ids := make([]string, 0, len(found))
	for i := range found {
		ids = append(ids, found[i].DealID)
	}

	s.State.Step = session.StepDealsShown
	s.State.LastDeals = found
	s.State.ChatContext = &session.ChatContext{
		Deals:         found,
		Category:      category,
		LocationLabel: s.State.Location.Label(),
	}
	s.State.ChatInteractionCount = 0
	s.AddSharedDeals(ids)

	out := make([]Message, 0, len(found)+1)
	for i := range found {
		out = append(out, dealCard(&found[i], i))
	}
	out = append(out, trailingActionsCard())
	return out, nil
}

func (m *Machine) handleDealAction(s *session.Session, action string, i int) ([]Message, error) {
	if i >= len(s.State.LastDeals) {
		return []Message{NewText(textReprompt)}, nil
	}
	d := &s.State.LastDeals[i]

	switch action {
	case "get_directions":
		if d.HasCoords() {
			return []Message{NewLocation(*d.Latitude, *d.Longitude, d.BusinessName, d.Address)}, nil
		}
		return []Message{NewText(fmt.Sprintf("📍 %s\n%s\n%s", d.BusinessName, d.Address, mapURL(d)))}, nil
	case "share_deal":
		return []Message{NewText(shareBlurb(d))}, nil
	case "set_reminder":
		s.State.PendingReminderDeal = d
		s.State.Step = session.StepAwaitingReminderTime
		return []Message{reminderTimeCard(d)}, nil
	default:
		return []Message{NewText(textReprompt)}, nil
	}
}

func (m *Machine) handleReminderTime(ctx context.Context, s *session.Session, id string) ([]Message, error) {
	if s.State.PendingReminderDeal == nil {
		return []Message{NewText(textReprompt)}, nil
	}
	hours := map[string]int{BtnReminder1h: 1, BtnReminder2h: 2, BtnReminder4h: 4}[id]

	d := *s.State.PendingReminderDeal
	s.State.PendingReminderDeal = nil
	s.State.Step = session.StepDealsShown

	r := reminder.New(s.StoreID, s.UserID, d, m.now().Add(time.Duration(hours)*time.Hour))
	if err := m.reminders.Enqueue(ctx, r); err != nil {
		log.Printf("failed to enqueue reminder %s: %v", r.ID, err)
		return []Message{NewText("I couldn't set that reminder. Please try again in a moment.")}, nil
	}
	return []Message{reminderConfirmedText(&d, hours)}, nil
}

// handleChat answers a free-text question about the shown deals, bounded to
// chatQuota turns per result snapshot.
func (m *Machine) handleChat(ctx context.Context, s *session.Session, text string) ([]Message, error) {
	if s.State.ChatInteractionCount >= chatQuota {
		s.ResetToWelcome()
		return []Message{NewText("Let's start fresh!"), welcomeCard()}, nil
	}
	prompt := chatUserPrompt(s.Conversation, text)

	cctx, cancel := context.WithTimeout(ctx, m.cfg.ChatTimeout)
	defer cancel()

	reply, err := m.chat.Complete(cctx, chatSystemPrompt(s.State.ChatContext, m.cfg.Country), prompt, llm.Options{Temperature: 0.4})
	if err != nil {
		log.Printf("chat follow-up failed for user %d: %v", s.UserID, err)
		return []Message{NewText(textChatTrouble)}, nil
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return []Message{NewText(textChatTrouble)}, nil
	}

	// Quota and conversation record only an answered turn; a failed turn
	// costs the user nothing.
	s.State.ChatInteractionCount++
	s.AppendUser(text)
	s.AppendAssistant(reply)
	return []Message{NewText(reply)}, nil
}

func chatSystemPrompt(cc *session.ChatContext, country string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a helpful deals assistant for %s. The user was just shown these %s deals near %s:\n", country, cc.Category, cc.LocationLabel)
	for i := range cc.Deals {
		d := &cc.Deals[i]
		fmt.Fprintf(&b, "%d. %s: %s", i+1, d.BusinessName, d.Offer)
		if d.Address != "" {
			fmt.Fprintf(&b, " (%s)", d.Address)
		}
		if d.Validity != "" {
			fmt.Fprintf(&b, " valid %s", d.Validity)
		}
		b.WriteByte('\n')
	}
	b.WriteString("Answer questions about these deals only. Be brief and concrete.")
	return b.String()
}

// chatUserPrompt folds the recent exchange into the question so the model
// keeps thread context without a multi-turn API.
func chatUserPrompt(conv []session.Message, question string) string {
	if len(conv) == 0 {
		return question
	}
	var b strings.Builder
	start := 0
	if len(conv) > 8 {
		start = len(conv) - 8
	}
	b.WriteString("Conversation so far:\n")
	for _, msg := range conv[start:] {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
	}
	fmt.Fprintf(&b, "\nCurrent question: %s", question)
	return b.String()
}
