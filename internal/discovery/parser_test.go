package discovery

import "testing"

const labeledReply = `Here are some deals I found:

1. Business Name: Ah Seng Bak Kut Teh
   Address: 7 Keppel Road, #01-19, Singapore 089053
   Deal Details: 20% off all soups on weekdays
   Contact: +65 6222 1234
   Validity: Until 30 September

2. Business Name: KOI Thé
   Address: 313 Orchard Road, Singapore
   Deal Details: 1-for-1 milk tea after 3pm
   Validity: Weekends only

3. Business Name: Deal 3
   Deal Details: 50% off something
`

func TestParseLabeledStrategy(t *testing.T) {
	got := ParseModelReply(labeledReply, "Singapore")
	if len(got) != 2 {
		t.Fatalf("want 2 deals, got %d: %+v", len(got), got)
	}
	d := got[0]
	if d.BusinessName != "Ah Seng Bak Kut Teh" {
		t.Fatalf("name: %q", d.BusinessName)
	}
	if d.Address != "7 Keppel Road, #01-19, Singapore 089053" {
		t.Fatalf("address: %q", d.Address)
	}
	if d.Offer != "20% off all soups on weekdays" {
		t.Fatalf("offer: %q", d.Offer)
	}
	if d.Contact != "+65 6222 1234" || d.Validity != "Until 30 September" {
		t.Fatalf("contact/validity: %+v", d)
	}
	if got[1].BusinessName != "KOI Thé" {
		t.Fatalf("second deal: %+v", got[1])
	}
}

const heuristicReply = `Here's what I found:

1. **Tiong Bahru Bakery**
   Famous for croissants.
   56 Eng Hoon Street, Singapore 160056
   They are running a 1-for-1 croissant promotion this week.

2. **Uniqlo Orchard**
   Located at 313 Orchard Road, Singapore.
   Get 30% off selected outerwear.

3. **Deal 3**
   Something with 10% off here.

4. **The Coffee Spot**
   A nice quiet place with no offers mentioned.
`

func TestParseHeuristicStrategy(t *testing.T) {
	got := ParseModelReply(heuristicReply, "Singapore")
	if len(got) != 2 {
		t.Fatalf("want 2 deals, got %d: %+v", len(got), got)
	}
	d := got[0]
	if d.BusinessName != "Tiong Bahru Bakery" {
		t.Fatalf("name: %q", d.BusinessName)
	}
	if d.Address != "56 Eng Hoon Street, Singapore 160056" {
		t.Fatalf("address heuristic: %q", d.Address)
	}
	if d.Offer != "They are running a 1-for-1 croissant promotion this week." {
		t.Fatalf("offer heuristic: %q", d.Offer)
	}
	if got[1].BusinessName != "Uniqlo Orchard" {
		t.Fatalf("second deal: %+v", got[1])
	}
	// "Deal 3" is generic; "The Coffee Spot" has no offer line.
}

func TestParsePrefersLabeledOverHeuristic(t *testing.T) {
	combined := labeledReply + "\n\n" + heuristicReply
	got := ParseModelReply(combined, "Singapore")
	for _, d := range got {
		if d.BusinessName == "Tiong Bahru Bakery" {
			return // heuristic items may also carry labels; only check strategy ran
		}
	}
	if len(got) == 0 {
		t.Fatal("no deals parsed")
	}
	if got[0].BusinessName != "Ah Seng Bak Kut Teh" {
		t.Fatalf("labeled strategy should win: %+v", got[0])
	}
}

func TestParseUnstructuredReplyYieldsNothing(t *testing.T) {
	if got := ParseModelReply("I could not find any current deals in that area, sorry!", "Singapore"); len(got) != 0 {
		t.Fatalf("want none, got %+v", got)
	}
	if got := ParseModelReply("", "Singapore"); len(got) != 0 {
		t.Fatalf("want none for empty input, got %+v", got)
	}
}
