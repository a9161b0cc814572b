package geo

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"googlemaps.github.io/maps"
)

// reverseGeocoder is the slice of the maps client we use; narrowed for tests.
type reverseGeocoder interface {
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// Bounds is a regional bounding box. The zero value accepts everything.
type Bounds struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

func (b Bounds) Contains(lat, lng float64) bool {
	if b == (Bounds{}) {
		return true
	}
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// Geocoder resolves coordinates through the Google geocoding API and
// rejects anything outside the configured region.
type Geocoder struct {
	c       reverseGeocoder
	region  string
	bounds  Bounds
	timeout time.Duration
}

func NewGeocoder(apiKey, regionCode string, bounds Bounds, timeout time.Duration) (*Geocoder, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Geocoder{c: c, region: regionCode, bounds: bounds, timeout: timeout}, nil
}

func (g *Geocoder) Resolve(ctx context.Context, lat, lng float64) (*Location, error) {
	if !ValidCoords(lat, lng) {
		return nil, ErrUnresolvable
	}
	// Coordinates far outside the bounding box skip the provider entirely.
	if !g.bounds.Contains(lat, lng) {
		return nil, ErrOutOfRegion
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	results, err := g.c.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: lat, Lng: lng},
	})
	if err != nil {
		log.Printf("reverse geocode failed for (%f,%f): %v", lat, lng, err)
		return nil, ErrUnavailable
	}
	if len(results) == 0 {
		return nil, ErrUnresolvable
	}

	loc := &Location{
		Latitude:  lat,
		Longitude: lng,
		Source:    SourceGPS,
	}

	countrySeen := ""
	for _, res := range results {
		for _, comp := range res.AddressComponents {
			for _, t := range comp.Types {
				switch t {
				case "country":
					if countrySeen == "" {
						countrySeen = comp.ShortName
					}
				case "postal_code":
					if loc.PostalCode == "" {
						loc.PostalCode = comp.LongName
					}
				case "sublocality", "sublocality_level_1", "neighborhood":
					// sublocality preferred over locality
					if loc.Area == "" {
						loc.Area = comp.LongName
					}
				case "premise", "point_of_interest", "establishment":
					if loc.DisplayName == "" {
						loc.DisplayName = comp.LongName
					}
				}
			}
		}
		if loc.FormattedAddress == "" {
			loc.FormattedAddress = res.FormattedAddress
		}
	}
	if loc.Area == "" {
		loc.Area = localityOf(results)
	}
	if countrySeen != "" && countrySeen != g.region {
		return nil, ErrOutOfRegion
	}
	if loc.DisplayName == "" {
		if loc.Area != "" {
			loc.DisplayName = loc.Area
		} else {
			loc.DisplayName = loc.FormattedAddress
		}
	}
	return loc, nil
}

func localityOf(results []maps.GeocodingResult) string {
	for _, res := range results {
		for _, comp := range res.AddressComponents {
			for _, t := range comp.Types {
				if t == "locality" {
					return comp.LongName
				}
			}
		}
	}
	return ""
}

// ValidCoords rejects NaN, infinities and out-of-range values before any
// provider round-trip.
func ValidCoords(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
