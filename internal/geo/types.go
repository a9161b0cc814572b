package geo

import (
	"context"
	"errors"
	"time"
)

// Location source tags.
const (
	SourceGPS            = "gps"
	SourceGeocodedSearch = "geocoded_search"
)

var (
	// ErrOutOfRegion means the coordinates resolved to a country other
	// than the configured deployment region.
	ErrOutOfRegion = errors.New("location outside configured region")
	// ErrUnresolvable means the geocoder produced no usable result.
	ErrUnresolvable = errors.New("location could not be resolved")
	// ErrUnavailable means a provider failed transiently; callers degrade.
	ErrUnavailable = errors.New("provider unavailable")
)

type Location struct {
	Latitude         float64       `json:"latitude"`
	Longitude        float64       `json:"longitude"`
	DisplayName      string        `json:"displayName,omitempty"`
	FormattedAddress string        `json:"formattedAddress,omitempty"`
	Area             string        `json:"area,omitempty"`
	PostalCode       string        `json:"postalCode,omitempty"`
	Weather          *Weather      `json:"weather,omitempty"`
	HourlyForecast   []HourlyEntry `json:"hourlyForecast,omitempty"`
	Source           string        `json:"source,omitempty"`
}

// Label is the human-facing name of the location, falling back to the
// formatted address or the area when no display name was resolved.
func (l *Location) Label() string {
	if l == nil {
		return ""
	}
	if l.DisplayName != "" {
		return l.DisplayName
	}
	if l.FormattedAddress != "" {
		return l.FormattedAddress
	}
	return l.Area
}

type Weather struct {
	TemperatureC float64 `json:"temperatureC"`
	FeelsLikeC   float64 `json:"feelsLikeC"`
	Condition    string  `json:"condition"`
	Emoji        string  `json:"emoji"`
	Description  string  `json:"description"`
	Humidity     int     `json:"humidity,omitempty"`
	WindSpeedKmh float64 `json:"windSpeedKmh,omitempty"`
	IsDaytime    bool    `json:"isDaytime"`
	DisplayText  string  `json:"displayText"`
}

type HourlyEntry struct {
	Time          time.Time `json:"time"`
	TemperatureC  float64   `json:"temperatureC"`
	Emoji         string    `json:"emoji"`
	Condition     string    `json:"condition"`
	RainChancePct int       `json:"rainChancePct"`
	DisplayText   string    `json:"displayText"`
}

// Resolver turns raw coordinates into a region-validated Location.
type Resolver interface {
	Resolve(ctx context.Context, lat, lng float64) (*Location, error)
}

// WeatherProvider supplies the current snapshot and the remainder of the
// local day's hourly forecast. Implementations return ErrUnavailable on
// transient failure; callers omit weather rather than fail the event.
type WeatherProvider interface {
	Current(ctx context.Context, lat, lng float64) (*Weather, error)
	Hourly(ctx context.Context, lat, lng float64) ([]HourlyEntry, error)
}
