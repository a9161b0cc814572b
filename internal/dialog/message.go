package dialog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"
)

type MessageKind string

const (
	MsgText     MessageKind = "text"
	MsgLocation MessageKind = "location"
	MsgButtons  MessageKind = "buttons"
	MsgList     MessageKind = "list"
)

type Button struct {
	ID    string
	Title string
}

type Section struct {
	Title string
	Rows  []Row
}

type Row struct {
	ID          string
	Title       string
	Description string
}

// Message is a transport-neutral outbound message. The egress adapter maps
// it onto the channel's native shapes.
type Message struct {
	Kind      MessageKind
	Header    string
	Body      string
	Footer    string
	ImageURL  string // optional image header on buttons/list messages
	Latitude  float64
	Longitude float64
	Name      string // location messages
	Address   string
	Buttons   []Button // at most 3; titles at most 20 chars
	Sections  []Section
}

const maxButtonTitle = 20

// clampTitle enforces the transport's 20-char button title limit. The cut
// lands on a rune boundary; titles often start with an emoji.
func clampTitle(t string) string {
	if utf8.RuneCountInString(t) <= maxButtonTitle {
		return t
	}
	r := []rune(t)
	return string(r[:maxButtonTitle-1]) + "…"
}

func NewText(body string) Message {
	return Message{Kind: MsgText, Body: body}
}

func NewLocation(lat, lng float64, name, address string) Message {
	return Message{Kind: MsgLocation, Latitude: lat, Longitude: lng, Name: name, Address: address}
}

func NewButtons(header, body, footer string, buttons ...Button) Message {
	for i := range buttons {
		buttons[i].Title = clampTitle(buttons[i].Title)
	}
	if len(buttons) > 3 {
		buttons = buttons[:3]
	}
	return Message{Kind: MsgButtons, Header: header, Body: body, Footer: footer, Buttons: buttons}
}

// Hash is the stable session-local dedup key: identical renderings of a
// transition produce identical hashes, timestamps excluded.
func (m Message) Hash() string {
	var b strings.Builder
	b.WriteString(string(m.Kind))
	b.WriteByte('|')
	b.WriteString(m.Header)
	b.WriteByte('|')
	b.WriteString(m.Body)
	b.WriteByte('|')
	b.WriteString(m.Footer)
	b.WriteByte('|')
	b.WriteString(m.ImageURL)
	b.WriteByte('|')
	fmt.Fprintf(&b, "%.6f,%.6f|%s|%s", m.Latitude, m.Longitude, m.Name, m.Address)
	for _, btn := range m.Buttons {
		fmt.Fprintf(&b, "|%s=%s", btn.ID, btn.Title)
	}
	for _, sec := range m.Sections {
		b.WriteByte('|')
		b.WriteString(sec.Title)
		for _, row := range sec.Rows {
			fmt.Fprintf(&b, ";%s=%s=%s", row.ID, row.Title, row.Description)
		}
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:16])
}
