package discovery

import (
	"regexp"
	"strings"
)

// ParsedDeal is the intermediate shape between model text and a stored deal.
type ParsedDeal struct {
	BusinessName string
	Address      string
	Offer        string
	Contact      string
	Validity     string
}

var (
	itemStartRe = regexp.MustCompile(`(?m)^\s*\d+[.)]\s`)

	// primary pattern: explicitly labeled fields
	nameFieldRe     = regexp.MustCompile(`(?i)\*{0,2}business\s*name\*{0,2}\s*[:\-]\s*(.+)`)
	addressFieldRe  = regexp.MustCompile(`(?i)\*{0,2}address\*{0,2}\s*[:\-]\s*(.+)`)
	dealFieldRe     = regexp.MustCompile(`(?i)\*{0,2}deal(?:\s*details)?\*{0,2}\s*[:\-]\s*(.+)`)
	contactFieldRe  = regexp.MustCompile(`(?i)\*{0,2}contact\*{0,2}\s*[:\-]\s*(.+)`)
	validityFieldRe = regexp.MustCompile(`(?i)\*{0,2}validity\*{0,2}\s*[:\-]\s*(.+)`)

	// secondary pattern: "N. **Name** ..." with heuristic field extraction
	boldNameRe = regexp.MustCompile(`^\s*\d+[.)]\s*\*\*(.+?)\*\*`)
	offerHintRe = regexp.MustCompile(`(?i)\b(off|discounts?|promotions?)\b`)

	genericNameRe = regexp.MustCompile(`(?i)^(deal|offer|promotion)\s*#?\d*$`)
)

// ParseModelReply extracts deals from free-form model output. The labeled
// strategy runs first; when it yields nothing, the bold-name heuristic
// strategy runs over the same text. country feeds the address heuristic.
func ParseModelReply(raw, country string) []ParsedDeal {
	blocks := splitNumberedBlocks(raw)
	if len(blocks) == 0 {
		return nil
	}

	out := parseLabeled(blocks)
	if len(out) == 0 {
		out = parseHeuristic(blocks, country)
	}
	return out
}

// splitNumberedBlocks slices the reply on numbered item boundaries.
func splitNumberedBlocks(raw string) []string {
	locs := itemStartRe.FindAllStringIndex(raw, -1)
	if len(locs) == 0 {
		return nil
	}
	var blocks []string
	for i, l := range locs {
		end := len(raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		b := strings.TrimSpace(raw[l[0]:end])
		if b != "" {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

func parseLabeled(blocks []string) []ParsedDeal {
	var out []ParsedDeal
	for _, b := range blocks {
		d := ParsedDeal{
			BusinessName: firstGroup(nameFieldRe, b),
			Address:      firstGroup(addressFieldRe, b),
			Offer:        firstGroup(dealFieldRe, b),
			Contact:      firstGroup(contactFieldRe, b),
			Validity:     firstGroup(validityFieldRe, b),
		}
		if !usableName(d.BusinessName) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func parseHeuristic(blocks []string, country string) []ParsedDeal {
	countryLower := strings.ToLower(country)
	var out []ParsedDeal
	for _, b := range blocks {
		m := boldNameRe.FindStringSubmatch(b)
		if m == nil {
			continue
		}
		d := ParsedDeal{BusinessName: strings.TrimSpace(m[1])}
		if !usableName(d.BusinessName) {
			continue
		}
		for _, line := range strings.Split(b, "\n") {
			line = strings.TrimSpace(strings.Trim(line, " -*•"))
			if line == "" {
				continue
			}
			if d.Address == "" && countryLower != "" &&
				strings.Contains(strings.ToLower(line), countryLower) {
				d.Address = line
				continue
			}
			if d.Offer == "" && offerHintRe.MatchString(line) && !boldNameRe.MatchString(line) {
				d.Offer = line
			}
		}
		if d.Offer == "" {
			continue
		}
		out = append(out, d)
	}
	return out
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(strings.Trim(m[1], " *"))
}

// usableName drops empty and obviously generic names ("Deal 3").
func usableName(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && !genericNameRe.MatchString(name)
}
