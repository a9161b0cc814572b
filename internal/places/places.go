package places

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sort"
	"time"

	"googlemaps.github.io/maps"
)

const DefaultRadiusM = 1000

type Place struct {
	ID               string
	Name             string
	Address          string
	Latitude         float64
	Longitude        float64
	Rating           float64
	UserRatingsTotal int
	Photos           []Photo
}

type Photo struct {
	Reference string
	URL       string
	Width     int
	Height    int
}

// TopPhoto returns the photo with the largest area, or nil.
func TopPhoto(p Place) *Photo {
	if len(p.Photos) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(p.Photos); i++ {
		if p.Photos[i].Width*p.Photos[i].Height > p.Photos[best].Width*p.Photos[best].Height {
			best = i
		}
	}
	return &p.Photos[best]
}

// categoryTypes binds each deal category to a bounded set of place types.
// Kept as data; ingress categories outside this map yield no places.
var categoryTypes = map[string][]maps.PlaceType{
	"food": {
		maps.PlaceTypeRestaurant,
		maps.PlaceTypeMealTakeaway,
		maps.PlaceTypeBakery,
		maps.PlaceTypeCafe,
	},
	"fashion": {
		maps.PlaceTypeClothingStore,
		maps.PlaceTypeShoeStore,
		maps.PlaceTypeShoppingMall,
	},
	"events": {
		maps.PlaceTypeAmusementPark,
		maps.PlaceTypeAquarium,
		maps.PlaceTypeArtGallery,
		maps.PlaceTypeBowlingAlley,
		maps.PlaceTypeMovieTheater,
		maps.PlaceTypeMuseum,
		maps.PlaceTypeNightClub,
		maps.PlaceTypePark,
		maps.PlaceTypeStadium,
		maps.PlaceTypeTouristAttraction,
		maps.PlaceTypeZoo,
	},
	"groceries": {
		maps.PlaceTypeSupermarket,
		maps.PlaceType("grocery_or_supermarket"),
		maps.PlaceTypeConvenienceStore,
	},
}

// Categories lists the searchable deal categories in display order.
func Categories() []string {
	return []string{"food", "fashion", "events", "groceries"}
}

func IsCategory(c string) bool {
	_, ok := categoryTypes[c]
	return ok
}

type nearbySearcher interface {
	NearbySearch(ctx context.Context, r *maps.NearbySearchRequest) (maps.PlacesSearchResponse, error)
}

// Client wraps the Google Places web service.
type Client struct {
	c             nearbySearcher
	apiKey        string
	timeout       time.Duration
	photoMaxWidth int
}

func NewClient(apiKey string, timeout time.Duration, photoMaxWidth int) (*Client, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Client{c: c, apiKey: apiKey, timeout: timeout, photoMaxWidth: photoMaxWidth}, nil
}

// Nearby issues one search per mapped place type and merges the results,
// deduplicated by place id and ordered by rating volume.
func (c *Client) Nearby(ctx context.Context, lat, lng float64, category string, radiusM uint) ([]Place, error) {
	types, ok := categoryTypes[category]
	if !ok {
		return nil, fmt.Errorf("unknown category %q", category)
	}
	if radiusM == 0 {
		radiusM = DefaultRadiusM
	}

	seen := make(map[string]bool)
	var out []Place
	for _, t := range types {
		resp, err := c.search(ctx, lat, lng, t, radiusM)
		if err != nil {
			// A single type failing should not void the whole set.
			log.Printf("nearby search (%s) failed: %v", t, err)
			continue
		}
		for _, r := range resp.Results {
			if seen[r.PlaceID] {
				continue
			}
			seen[r.PlaceID] = true
			out = append(out, c.toPlace(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UserRatingsTotal > out[j].UserRatingsTotal
	})
	return out, nil
}

func (c *Client) search(ctx context.Context, lat, lng float64, t maps.PlaceType, radiusM uint) (maps.PlacesSearchResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.c.NearbySearch(ctx, &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: lat, Lng: lng},
		Radius:   radiusM,
		Type:     t,
	})
}

func (c *Client) toPlace(r maps.PlacesSearchResult) Place {
	addr := r.Vicinity
	if addr == "" {
		addr = r.FormattedAddress
	}
	p := Place{
		ID:               r.PlaceID,
		Name:             r.Name,
		Address:          addr,
		Latitude:         r.Geometry.Location.Lat,
		Longitude:        r.Geometry.Location.Lng,
		Rating:           float64(r.Rating),
		UserRatingsTotal: r.UserRatingsTotal,
	}
	for _, ph := range r.Photos {
		p.Photos = append(p.Photos, Photo{
			Reference: ph.PhotoReference,
			URL:       c.PhotoURL(ph.PhotoReference, c.photoMaxWidth),
			Width:     ph.Width,
			Height:    ph.Height,
		})
	}
	return p
}

// PhotoURL builds a directly embeddable photo URL.
func (c *Client) PhotoURL(photoRef string, maxWidthPx int) string {
	if photoRef == "" {
		return ""
	}
	v := url.Values{}
	v.Set("maxwidth", fmt.Sprintf("%d", maxWidthPx))
	v.Set("photo_reference", photoRef)
	v.Set("key", c.apiKey)
	return "https://maps.googleapis.com/maps/api/place/photo?" + v.Encode()
}

// Searcher is the slice of the places client the pipeline consumes.
type Searcher interface {
	Nearby(ctx context.Context, lat, lng float64, category string, radiusM uint) ([]Place, error)
	PhotoURL(photoRef string, maxWidthPx int) string
}

var _ Searcher = (*Client)(nil)
