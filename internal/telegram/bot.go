package telegram

import (
	"context"
	"errors"
	"log"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dealbot/internal/dialog"
	"dealbot/internal/session"
	"dealbot/internal/storage"
)

// Sender is the slice of the bot API we use for output; swappable in tests.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	api      *tgbotapi.BotAPI
	s        Sender
	store    session.Store
	machine  *dialog.Machine
	storeID  string
	recorder storage.Recorder

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func New(botToken string, store session.Store, machine *dialog.Machine, storeID string, rec storage.Recorder) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:      api,
		s:        api,
		store:    store,
		machine:  machine,
		storeID:  storeID,
		recorder: rec,
		locks:    make(map[int64]*sync.Mutex),
	}, nil
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			ev, chatID, ok := b.toEvent(update)
			if !ok {
				continue
			}
			go b.process(ctx, ev, chatID, update.CallbackQuery)
		}
	}
}

// toEvent normalizes a transport update into a dialog event.
func (b *Bot) toEvent(update tgbotapi.Update) (dialog.Event, int64, bool) {
	if update.CallbackQuery != nil {
		cb := update.CallbackQuery
		chatID := cb.From.ID
		if cb.Message != nil {
			chatID = cb.Message.Chat.ID
		}
		return dialog.Event{
			StoreID:  b.storeID,
			UserID:   cb.From.ID,
			Kind:     dialog.EventButton,
			ButtonID: dialog.NormalizeButtonID(cb.Data),
		}, chatID, true
	}
	if msg := update.Message; msg != nil && msg.From != nil {
		ev := dialog.Event{
			StoreID: b.storeID,
			UserID:  msg.From.ID,
		}
		if msg.Location != nil {
			ev.Kind = dialog.EventLocation
			ev.Latitude = msg.Location.Latitude
			ev.Longitude = msg.Location.Longitude
		} else {
			ev.Kind = dialog.EventText
			ev.Text = msg.Text
		}
		return ev, msg.Chat.ID, true
	}
	return dialog.Event{}, 0, false
}

// process runs load → transition → save for one event. Events for the same
// user are serialized behind a per-user lock; different users proceed in
// parallel.
func (b *Bot) process(ctx context.Context, ev dialog.Event, chatID int64, cb *tgbotapi.CallbackQuery) {
	lock := b.userLock(ev.UserID)
	lock.Lock()
	defer lock.Unlock()

	if cb != nil {
		// ack the button press so the client stops spinning
		if _, err := b.s.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			log.Printf("failed to answer callback: %v", err)
		}
	}

	sess, err := b.store.Load(ctx, ev.StoreID, ev.UserID)
	if err != nil {
		log.Printf("failed to load session for user %d: %v", ev.UserID, err)
		b.sendText(chatID, "Sorry, something went wrong. Please try again in a moment.")
		return
	}

	out, err := b.machine.Step(ctx, sess, ev)
	if err != nil {
		if errors.Is(err, session.ErrStorageUnavailable) {
			log.Printf("event for user %d failed on storage: %v", ev.UserID, err)
		} else {
			log.Printf("event for user %d failed: %v", ev.UserID, err)
		}
		// the mutated session is discarded; prior state stays persisted
		b.sendText(chatID, "Sorry, something went wrong. Please try again in a moment.")
		return
	}

	b.dispatch(chatID, sess, out)
	b.record(ev, len(out))

	if err := b.store.Save(ctx, ev.StoreID, ev.UserID, sess); err != nil {
		log.Printf("failed to save session for user %d: %v", ev.UserID, err)
		b.sendText(chatID, "Sorry, something went wrong. Please try again in a moment.")
	}
}

func (b *Bot) userLock(userID int64) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		b.locks[userID] = l
	}
	return l
}

func (b *Bot) record(ev dialog.Event, outbound int) {
	if b.recorder == nil {
		return
	}
	if err := b.recorder.AppendInteraction(storage.Event{
		StoreID:   ev.StoreID,
		UserID:    ev.UserID,
		Kind:      string(ev.Kind),
		Text:      ev.Text,
		ButtonID:  ev.ButtonID,
		Outbound:  outbound,
		Timestamp: storage.NowUTC(),
	}); err != nil {
		log.Printf("failed to record interaction: %v", err)
	}
}
