package telegram

import (
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dealbot/internal/dialog"
	"dealbot/internal/session"
)

// dispatch sends the outbound set, recording each message's hash in the
// session before the send so replays of the same transition are suppressed.
func (b *Bot) dispatch(chatID int64, sess *session.Session, out []dialog.Message) {
	for _, m := range out {
		if !sess.MarkSent(m.Hash(), string(m.Kind), time.Now().UTC()) {
			continue
		}
		if _, err := b.s.Send(toChattable(chatID, m)); err != nil {
			log.Printf("failed to send %s message to %d: %v", m.Kind, chatID, err)
		}
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	if _, err := b.s.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("failed to send message: %v", err)
	}
}

// toChattable maps a transport-neutral message onto the bot API shapes.
func toChattable(chatID int64, m dialog.Message) tgbotapi.Chattable {
	switch m.Kind {
	case dialog.MsgLocation:
		if m.Name != "" || m.Address != "" {
			return tgbotapi.NewVenue(chatID, m.Name, m.Address, m.Latitude, m.Longitude)
		}
		return tgbotapi.NewLocation(chatID, m.Latitude, m.Longitude)

	case dialog.MsgButtons, dialog.MsgList:
		kb := toKeyboard(m)
		body := renderBody(m)
		if m.ImageURL != "" {
			photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(m.ImageURL))
			photo.Caption = body
			photo.ReplyMarkup = kb
			return photo
		}
		msg := tgbotapi.NewMessage(chatID, body)
		msg.ReplyMarkup = kb
		return msg

	default:
		return tgbotapi.NewMessage(chatID, m.Body)
	}
}

// renderBody folds the header/footer framing into the text body; the
// transport has no separate fields for them.
func renderBody(m dialog.Message) string {
	var parts []string
	if m.Header != "" {
		parts = append(parts, m.Header)
	}
	if m.Body != "" {
		parts = append(parts, m.Body)
	}
	for _, sec := range m.Sections {
		var b strings.Builder
		if sec.Title != "" {
			b.WriteString(sec.Title)
		}
		for _, row := range sec.Rows {
			b.WriteString("\n• ")
			b.WriteString(row.Title)
			if row.Description != "" {
				b.WriteString(": ")
				b.WriteString(row.Description)
			}
		}
		parts = append(parts, b.String())
	}
	if m.Footer != "" {
		parts = append(parts, m.Footer)
	}
	return strings.Join(parts, "\n\n")
}

func toKeyboard(m dialog.Message) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if len(m.Buttons) > 0 {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(m.Buttons))
		for _, btn := range m.Buttons {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(btn.Title, btn.ID))
		}
		rows = append(rows, row)
	}
	for _, sec := range m.Sections {
		for _, r := range sec.Rows {
			rows = append(rows, []tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardButtonData(r.Title, r.ID),
			})
		}
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
