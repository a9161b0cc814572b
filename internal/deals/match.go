package deals

import (
	"strings"

	"dealbot/internal/geo"
)

const minMatchTokenLen = 3

// localityTokens derives the textual match keys from a query location:
// display name, area, formatted address, postal code and the street name
// with its leading house number stripped.
func localityTokens(loc *geo.Location) []string {
	raw := []string{
		loc.DisplayName,
		loc.Area,
		loc.FormattedAddress,
		loc.PostalCode,
		streetWithoutNumber(loc.FormattedAddress),
	}
	var out []string
	seen := make(map[string]bool)
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if len(t) < minMatchTokenLen || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// streetWithoutNumber drops a leading house number from the first address
// segment ("123 Orchard Road, ..." -> "orchard road").
func streetWithoutNumber(addr string) string {
	seg := addr
	if i := strings.IndexByte(addr, ','); i >= 0 {
		seg = addr[:i]
	}
	fields := strings.Fields(seg)
	if len(fields) > 1 && isNumericish(fields[0]) {
		fields = fields[1:]
	}
	return strings.Join(fields, " ")
}

func isNumericish(s string) bool {
	if s == "" {
		return false
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits > 0 && digits >= len(s)-1
}

// matchesTextually reports whether any locality token of the query appears
// in the deal's own location text, address or description.
func matchesTextually(loc *geo.Location, d *Deal) bool {
	haystack := strings.ToLower(d.Area + " | " + d.Address + " | " + d.Description)
	for _, tok := range localityTokens(loc) {
		if strings.Contains(haystack, tok) {
			return true
		}
	}
	return false
}
