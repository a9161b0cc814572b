package geo

// WMO weather interpretation codes mapped to display data. Kept as data so
// the rendering vocabulary can be tuned without touching logic.

type condition struct {
	Condition   string
	Emoji       string
	Description string
}

var wmoConditions = map[int]condition{
	0:  {"clear", "☀️", "clear sky"},
	1:  {"mostly_clear", "🌤️", "mostly clear"},
	2:  {"partly_cloudy", "⛅", "partly cloudy"},
	3:  {"overcast", "☁️", "overcast"},
	45: {"fog", "🌫️", "fog"},
	48: {"fog", "🌫️", "depositing rime fog"},
	51: {"drizzle", "🌦️", "light drizzle"},
	53: {"drizzle", "🌦️", "moderate drizzle"},
	55: {"drizzle", "🌧️", "dense drizzle"},
	61: {"rain", "🌧️", "slight rain"},
	63: {"rain", "🌧️", "moderate rain"},
	65: {"rain", "⛈️", "heavy rain"},
	66: {"rain", "🌧️", "freezing rain"},
	67: {"rain", "⛈️", "heavy freezing rain"},
	80: {"showers", "🌦️", "slight rain showers"},
	81: {"showers", "🌧️", "moderate rain showers"},
	82: {"showers", "⛈️", "violent rain showers"},
	95: {"thunderstorm", "⛈️", "thunderstorm"},
	96: {"thunderstorm", "⛈️", "thunderstorm with slight hail"},
	99: {"thunderstorm", "⛈️", "thunderstorm with heavy hail"},
}

var unknownCondition = condition{"unknown", "🌡️", "current conditions"}

func conditionFor(code int) condition {
	if c, ok := wmoConditions[code]; ok {
		return c
	}
	return unknownCondition
}
