package deals

import (
	"strings"
	"time"
)

// Photo is stored inline with the deal as JSON.
type Photo struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Deal struct {
	DealID       string    `gorm:"primaryKey;column:deal_id" json:"dealId"`
	BusinessName string    `json:"businessName"`
	Offer        string    `json:"offer"`
	Description  string    `json:"description,omitempty"`
	Address      string    `json:"address,omitempty"`
	Area         string    `json:"area,omitempty"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	Category     string    `gorm:"index" json:"category"`
	Validity     string    `json:"validity,omitempty"`
	StartDate    time.Time `json:"startDate,omitempty"`
	EndDate      time.Time `gorm:"index" json:"endDate"`
	Source       string    `json:"socialMediaSource,omitempty"`
	Rating       float64   `json:"rating,omitempty"`
	Photos       []Photo   `gorm:"serializer:json" json:"photos,omitempty"`
	SourceURL    string    `json:"sourceUrl,omitempty"`
	CheckedAt    time.Time `json:"checkedAt"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `gorm:"index" json:"ttl"`
}

func (Deal) TableName() string { return "deals" }

// HasCoords reports whether the deal carries usable coordinates.
func (d *Deal) HasCoords() bool {
	return d.Latitude != nil && d.Longitude != nil
}

// NormalizeName collapses a business name to a comparison key: lowercase
// alphanumerics with single spaces.
func NormalizeName(name string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// sourcePriority is the fixed tie-break ordering on social sources.
var sourcePriority = map[string]int{
	"instagram": 7,
	"tiktok":    6,
	"facebook":  5,
	"telegram":  4,
	"whatsapp":  3,
	"youtube":   2,
	"reddit":    2,
	"web":       1,
}

// SourcePriority returns the rank of a social source; unknown sources rank
// with "web".
func SourcePriority(source string) int {
	if p, ok := sourcePriority[strings.ToLower(strings.TrimSpace(source))]; ok {
		return p
	}
	return 1
}

// DedupeByName keeps the first occurrence of each normalized business name.
func DedupeByName(in []Deal) []Deal {
	seen := make(map[string]bool, len(in))
	out := make([]Deal, 0, len(in))
	for _, d := range in {
		key := NormalizeName(d.BusinessName)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}
