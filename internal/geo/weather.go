package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

const minHourlyEntries = 3

// OpenMeteo is a thin client over the Open-Meteo forecast endpoint. The
// deployment's timezone is fixed; hourly times are interpreted in it.
type OpenMeteo struct {
	baseURL string
	httpc   *http.Client
	tz      *time.Location
	timeout time.Duration

	// now is swappable in tests.
	now func() time.Time
}

func NewOpenMeteo(baseURL string, tz *time.Location, timeout time.Duration) *OpenMeteo {
	return &OpenMeteo{
		baseURL: baseURL,
		httpc:   &http.Client{},
		tz:      tz,
		timeout: timeout,
		now:     time.Now,
	}
}

type meteoResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		FeelsLike   float64 `json:"apparent_temperature"`
		Humidity    int     `json:"relative_humidity_2m"`
		WeatherCode int     `json:"weather_code"`
		WindSpeed   float64 `json:"wind_speed_10m"`
		IsDay       int     `json:"is_day"`
	} `json:"current"`
	Hourly struct {
		Time        []string  `json:"time"`
		Temperature []float64 `json:"temperature_2m"`
		RainChance  []int     `json:"precipitation_probability"`
		WeatherCode []int     `json:"weather_code"`
	} `json:"hourly"`
}

func (o *OpenMeteo) fetch(ctx context.Context, lat, lng float64, params url.Values) (*meteoResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	params.Set("latitude", fmt.Sprintf("%.4f", lat))
	params.Set("longitude", fmt.Sprintf("%.4f", lng))
	params.Set("timezone", "GMT")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("weather endpoint returned %d: %s", resp.StatusCode, string(body))
	}
	var out meteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode weather response: %w", err)
	}
	return &out, nil
}

func (o *OpenMeteo) Current(ctx context.Context, lat, lng float64) (*Weather, error) {
	params := url.Values{}
	params.Set("current", "temperature_2m,apparent_temperature,relative_humidity_2m,weather_code,wind_speed_10m,is_day")
	resp, err := o.fetch(ctx, lat, lng, params)
	if err != nil {
		log.Printf("current weather fetch failed: %v", err)
		return nil, ErrUnavailable
	}

	cond := conditionFor(resp.Current.WeatherCode)
	w := &Weather{
		TemperatureC: resp.Current.Temperature,
		FeelsLikeC:   resp.Current.FeelsLike,
		Condition:    cond.Condition,
		Emoji:        cond.Emoji,
		Description:  cond.Description,
		Humidity:     resp.Current.Humidity,
		WindSpeedKmh: resp.Current.WindSpeed,
		IsDaytime:    resp.Current.IsDay == 1,
	}
	w.DisplayText = fmt.Sprintf("%s %.0f°C (feels like %.0f°C), %s", w.Emoji, w.TemperatureC, w.FeelsLikeC, w.Description)
	return w, nil
}

// Hourly returns entries covering the hours remaining in the local day,
// never fewer than three.
func (o *OpenMeteo) Hourly(ctx context.Context, lat, lng float64) ([]HourlyEntry, error) {
	params := url.Values{}
	params.Set("hourly", "temperature_2m,precipitation_probability,weather_code")
	params.Set("forecast_days", "2")
	resp, err := o.fetch(ctx, lat, lng, params)
	if err != nil {
		log.Printf("hourly forecast fetch failed: %v", err)
		return nil, ErrUnavailable
	}

	now := o.now().In(o.tz)
	endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, o.tz)

	var all []HourlyEntry
	for i, ts := range resp.Hourly.Time {
		if i >= len(resp.Hourly.Temperature) || i >= len(resp.Hourly.WeatherCode) {
			break
		}
		// Times arrive zone-less in the requested zone.
		t, err := time.Parse("2006-01-02T15:04", ts)
		if err != nil {
			continue
		}
		t = t.In(o.tz)
		if !t.After(now) {
			continue
		}
		cond := conditionFor(resp.Hourly.WeatherCode[i])
		rain := 0
		if i < len(resp.Hourly.RainChance) {
			rain = resp.Hourly.RainChance[i]
		}
		e := HourlyEntry{
			Time:          t,
			TemperatureC:  resp.Hourly.Temperature[i],
			Emoji:         cond.Emoji,
			Condition:     cond.Condition,
			RainChancePct: rain,
		}
		e.DisplayText = fmt.Sprintf("%s %s %.0f°C, %d%% rain", t.Format("3pm"), e.Emoji, e.TemperatureC, e.RainChancePct)
		all = append(all, e)
	}

	var today []HourlyEntry
	for _, e := range all {
		if e.Time.After(endOfDay) {
			break
		}
		today = append(today, e)
	}
	// Near midnight the remaining-day window shrinks below the minimum;
	// spill into the next day's hours.
	if len(today) < minHourlyEntries && len(all) > len(today) {
		n := minHourlyEntries
		if n > len(all) {
			n = len(all)
		}
		today = all[:n]
	}
	return today, nil
}
