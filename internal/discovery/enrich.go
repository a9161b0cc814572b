package discovery

import (
	"strings"

	"dealbot/internal/deals"
	"dealbot/internal/places"
)

// stopWords are locality words too common to signal a business-name match.
var stopWords = map[string]bool{
	"the": true, "and": true, "singapore": true, "pte": true, "ltd": true,
	"mall": true, "centre": true, "center": true, "plaza": true,
	"shop": true, "store": true, "outlet": true,
}

func significantWords(name string) []string {
	var out []string
	for _, w := range strings.Fields(deals.NormalizeName(name)) {
		if len(w) <= 2 || stopWords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// matchPlace finds the nearby place most plausibly backing a parsed deal:
// exact normalized-name equality, then significant-word overlap, then
// significant-substring containment.
func matchPlace(businessName string, nearby []places.Place) *places.Place {
	norm := deals.NormalizeName(businessName)
	if norm == "" {
		return nil
	}

	for i := range nearby {
		if deals.NormalizeName(nearby[i].Name) == norm {
			return &nearby[i]
		}
	}

	words := significantWords(businessName)
	for i := range nearby {
		placeWords := significantWords(nearby[i].Name)
		for _, w := range words {
			for _, pw := range placeWords {
				if w == pw {
					return &nearby[i]
				}
			}
		}
	}

	for i := range nearby {
		placeNorm := deals.NormalizeName(nearby[i].Name)
		for _, w := range words {
			if strings.Contains(placeNorm, w) {
				return &nearby[i]
			}
		}
		for _, pw := range significantWords(nearby[i].Name) {
			if strings.Contains(norm, pw) {
				return &nearby[i]
			}
		}
	}
	return nil
}

// enrich attaches photo and rating metadata from the pre-fetched nearby set.
// Deals with no matching place borrow the first photo-bearing place as a
// visual fallback, without taking its rating or coordinates.
func enrich(d *deals.Deal, nearby []places.Place) {
	if p := matchPlace(d.BusinessName, nearby); p != nil {
		if p.Rating > 0 {
			d.Rating = p.Rating
		}
		if d.Address == "" {
			d.Address = p.Address
		}
		lat, lng := p.Latitude, p.Longitude
		d.Latitude, d.Longitude = &lat, &lng
		if top := places.TopPhoto(*p); top != nil {
			d.Photos = append(d.Photos, deals.Photo{URL: top.URL, Width: top.Width, Height: top.Height})
		}
		return
	}
	for i := range nearby {
		if top := places.TopPhoto(nearby[i]); top != nil {
			d.Photos = append(d.Photos, deals.Photo{URL: top.URL, Width: top.Width, Height: top.Height})
			return
		}
	}
}
