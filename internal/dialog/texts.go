package dialog

import (
	"fmt"
	"net/url"
	"strings"

	"dealbot/internal/deals"
	"dealbot/internal/geo"
)

const (
	textNoDeals     = "No deals found near you right now. Try another category, or share a new location."
	textApology     = "Sorry, something went wrong on our side. Please try again in a moment."
	textReprompt    = "I didn't quite get that. Tap one of the buttons, or type \"menu\" to start over."
	textShareHowTo  = "Share your location and I'll find deals around you.\n\nTap the attachment icon and choose Location, then send your current position."
	textChatTrouble = "I couldn't look that up just now. Ask me again in a bit, or tap More deals."
)

func outOfRegionText(country string) string {
	return fmt.Sprintf("Sorry, we only cover %s for now. Share a location inside %s to see deals.", country, country)
}

func welcomeCard() Message {
	return NewButtons(
		"Welcome",
		"Hi! I find food, fashion, event and grocery deals near you. Share your location to get started.",
		"",
		Button{ID: BtnShareLocationPrompt, Title: "Share location"},
		Button{ID: BtnHowItWorks, Title: "How it works"},
		Button{ID: BtnAbout, Title: "About"},
	)
}

func howItWorksText() Message {
	return NewText("1. Share your location.\n2. Pick a category.\n3. Get up to five nearby deals with photos and directions.\n\nYou can also ask follow-up questions about any deal I show you.")
}

func aboutText() Message {
	return NewText("I'm a deals assistant. I search verified offers around your location and keep track of what you've already seen, so every search shows you something new.")
}

// confirmationCard acknowledges a resolved location with weather context and
// the category choices.
func confirmationCard(loc *geo.Location) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "📍 You're near %s.", loc.Label())
	if loc.Weather != nil {
		b.WriteString("\n\n")
		b.WriteString(loc.Weather.DisplayText)
	}
	if n := len(loc.HourlyForecast); n > 0 {
		b.WriteString("\nLater today: ")
		limit := n
		if limit > 3 {
			limit = 3
		}
		parts := make([]string, 0, limit)
		for _, h := range loc.HourlyForecast[:limit] {
			parts = append(parts, h.DisplayText)
		}
		b.WriteString(strings.Join(parts, " · "))
	}
	b.WriteString("\n\nWhat are you looking for?")
	return NewButtons(
		"Location confirmed",
		b.String(),
		"",
		Button{ID: "search_food_deals", Title: "🍜 Food"},
		Button{ID: "search_fashion_deals", Title: "👗 Fashion"},
		Button{ID: "search_groceries_deals", Title: "🛒 Groceries"},
	)
}

// dealCard renders one deal as an interactive message; i indexes into the
// session's lastDeals and is embedded in the action button ids.
func dealCard(d *deals.Deal, i int) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s", d.BusinessName, d.Offer)
	if d.Address != "" {
		fmt.Fprintf(&b, "\n📍 %s", d.Address)
	}
	if d.Rating > 0 {
		fmt.Fprintf(&b, "\n⭐ %.1f", d.Rating)
	}
	if d.Validity != "" {
		fmt.Fprintf(&b, "\n🗓 %s", d.Validity)
	}
	m := NewButtons(
		"",
		b.String(),
		"",
		Button{ID: fmt.Sprintf("get_directions_%d", i), Title: "Directions"},
		Button{ID: fmt.Sprintf("share_deal_%d", i), Title: "Share"},
		Button{ID: fmt.Sprintf("set_reminder_%d", i), Title: "Remind me"},
	)
	if len(d.Photos) > 0 {
		m.ImageURL = d.Photos[0].URL
	}
	return m
}

func trailingActionsCard() Message {
	return NewButtons(
		"",
		"Anything else? Ask me about these deals, or:",
		"",
		Button{ID: BtnMoreDeals, Title: "More deals"},
		Button{ID: BtnShareDeals, Title: "Share deals"},
		Button{ID: BtnNewSearch, Title: "New search"},
	)
}

func reminderTimeCard(d *deals.Deal) Message {
	return NewButtons(
		"Set a reminder",
		fmt.Sprintf("When should I remind you about %s?", d.BusinessName),
		"",
		Button{ID: BtnReminder1h, Title: "In 1 hour"},
		Button{ID: BtnReminder2h, Title: "In 2 hours"},
		Button{ID: BtnReminder4h, Title: "In 4 hours"},
	)
}

func reminderConfirmedText(d *deals.Deal, hours int) Message {
	plural := "hours"
	if hours == 1 {
		plural = "hour"
	}
	return NewText(fmt.Sprintf("Done! I'll remind you about %s in %d %s. ⏰", d.BusinessName, hours, plural))
}

// shareBlurb is the plain-text rendering meant for copy-forwarding.
func shareBlurb(d *deals.Deal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔥 %s\n%s", d.BusinessName, d.Offer)
	if d.Address != "" {
		fmt.Fprintf(&b, "\n📍 %s", d.Address)
	}
	if d.Validity != "" {
		fmt.Fprintf(&b, "\nValid: %s", d.Validity)
	}
	if d.SourceURL != "" {
		fmt.Fprintf(&b, "\n%s", d.SourceURL)
	}
	return b.String()
}

func shareDigest(ds []deals.Deal) string {
	var b strings.Builder
	b.WriteString("Deals near you:\n")
	for i := range ds {
		fmt.Fprintf(&b, "\n%d. %s: %s", i+1, ds[i].BusinessName, ds[i].Offer)
	}
	return b.String()
}

// mapURL is the directions fallback for deals without coordinates.
func mapURL(d *deals.Deal) string {
	q := d.BusinessName
	if d.Address != "" {
		q += " " + d.Address
	}
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(q)
}
