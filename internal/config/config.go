package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN,required"`
	StoreID          string `env:"STORE_ID" envDefault:"default"`

	// Regional deployment parameters
	Region          string  `env:"REGION" envDefault:"SG"`
	RegionCountry   string  `env:"REGION_COUNTRY" envDefault:"Singapore"`
	RegionTZOffsetH int     `env:"REGION_TZ_OFFSET_HOURS" envDefault:"8"`
	RegionMinLat    float64 `env:"REGION_MIN_LAT" envDefault:"1.1496"`
	RegionMaxLat    float64 `env:"REGION_MAX_LAT" envDefault:"1.4784"`
	RegionMinLng    float64 `env:"REGION_MIN_LNG" envDefault:"103.594"`
	RegionMaxLng    float64 `env:"REGION_MAX_LNG" envDefault:"104.0945"`

	// Provider credentials
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-search-preview"`
	MapsAPIKey    string `env:"MAPS_API_KEY"`
	WeatherURL    string `env:"WEATHER_BASE_URL" envDefault:"https://api.open-meteo.com/v1/forecast"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Session store
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`

	// Deal store
	DealDBPath string `env:"DEAL_DB_PATH" envDefault:"data/deals.db"`

	// Reminder queue
	RabbitURL   string `env:"RABBIT_URL"`
	RabbitQueue string `env:"RABBIT_QUEUE" envDefault:"deal-reminders"`

	// Timeouts
	DefaultTimeoutMs int `env:"TIMEOUT_DEFAULT_MS" envDefault:"10000"`
	ModelTimeoutMs   int `env:"TIMEOUT_MODEL_MS" envDefault:"20000"`

	// Retention
	SessionTTLHours int `env:"SESSION_TTL_HOURS" envDefault:"24"`
	DealTTLDays     int `env:"DEAL_TTL_DAYS" envDefault:"7"`
	DealEndDateDays int `env:"DEAL_END_DATE_DAYS" envDefault:"30"`

	// Session caps
	ConversationCap  int `env:"CAP_CONVERSATION" envDefault:"20"`
	SentMessagesCap  int `env:"CAP_SENT_MESSAGES" envDefault:"50"`
	SharedDealIDsCap int `env:"CAP_SHARED_DEAL_IDS" envDefault:"200"`

	// Retrieval tuning
	ExactRadiusKm      float64 `env:"RADIUS_EXACT_KM" envDefault:"1.0"`
	CacheMatchRadiusKm float64 `env:"RADIUS_CACHE_MATCH_KM" envDefault:"1.0"`
	PhotoMaxWidthPx    int     `env:"PHOTO_MAX_WIDTH_PX" envDefault:"400"`
	MaxDealsPerSearch  int     `env:"MAX_DEALS_PER_SEARCH" envDefault:"5"`

	// Audit trail
	LogFilePath string `env:"LOG_FILE_PATH" envDefault:"logs/interactions.jsonl"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}

func (c *Config) DefaultTimeout() time.Duration {
	return time.Duration(c.DefaultTimeoutMs) * time.Millisecond
}

func (c *Config) ModelTimeout() time.Duration {
	return time.Duration(c.ModelTimeoutMs) * time.Millisecond
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func (c *Config) DealTTL() time.Duration {
	return time.Duration(c.DealTTLDays) * 24 * time.Hour
}

func (c *Config) DealEndDateWindow() time.Duration {
	return time.Duration(c.DealEndDateDays) * 24 * time.Hour
}

// Timezone returns the deployment's fixed local zone used for hourly
// forecasts and validity rendering.
func (c *Config) Timezone() *time.Location {
	return time.FixedZone("REGION", c.RegionTZOffsetH*3600)
}
