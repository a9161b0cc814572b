package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"dealbot/internal/config"
	"dealbot/internal/deals"
	"dealbot/internal/dialog"
	"dealbot/internal/discovery"
	"dealbot/internal/geo"
	"dealbot/internal/llm"
	"dealbot/internal/places"
	"dealbot/internal/reminder"
	"dealbot/internal/scheduler"
	"dealbot/internal/session"
	"dealbot/internal/storage"
	"dealbot/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Session store
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to reach redis at %s: %v", cfg.RedisAddr, err)
	}
	caps := session.Caps{
		Conversation:  cfg.ConversationCap,
		SentMessages:  cfg.SentMessagesCap,
		SharedDealIDs: cfg.SharedDealIDsCap,
	}
	sessions := session.NewRedisStore(rdb, cfg.SessionTTL(), caps)

	// Deal store
	db, err := gorm.Open(sqlite.Open(cfg.DealDBPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Fatalf("failed to open deal db at %s: %v", cfg.DealDBPath, err)
	}
	repo, err := deals.NewRepository(db, cfg.CacheMatchRadiusKm, cfg.DealTTL(), cfg.DealEndDateWindow())
	if err != nil {
		log.Fatalf("failed to init deal repository: %v", err)
	}

	// Providers
	bounds := geo.Bounds{
		MinLat: cfg.RegionMinLat, MaxLat: cfg.RegionMaxLat,
		MinLng: cfg.RegionMinLng, MaxLng: cfg.RegionMaxLng,
	}
	geocoder, err := geo.NewGeocoder(cfg.MapsAPIKey, cfg.Region, bounds, cfg.DefaultTimeout())
	if err != nil {
		log.Fatalf("failed to init geocoder: %v", err)
	}
	weather := geo.NewOpenMeteo(cfg.WeatherURL, cfg.Timezone(), cfg.DefaultTimeout())
	placesClient, err := places.NewClient(cfg.MapsAPIKey, cfg.DefaultTimeout(), cfg.PhotoMaxWidthPx)
	if err != nil {
		log.Fatalf("failed to init places client: %v", err)
	}
	model := llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.OpenRouterReferrer, cfg.OpenRouterTitle)

	pipeline := discovery.NewPipeline(repo, model, placesClient, discovery.Config{
		Country:      cfg.RegionCountry,
		ModelTimeout: cfg.ModelTimeout(),
		RadiusM:      uint(cfg.ExactRadiusKm * 1000),
	})

	// Reminders are optional; without a broker they degrade to a logged drop.
	var reminders reminder.Queue = reminder.NoopQueue{}
	if cfg.RabbitURL != "" {
		q, err := reminder.NewAMQPQueue(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Printf("failed to init reminder queue: %v", err)
		} else {
			defer q.Close()
			reminders = q
		}
	}

	machine := dialog.NewMachine(pipeline, geocoder, weather, model, reminders, dialog.Config{
		Country:     cfg.RegionCountry,
		DealLimit:   cfg.MaxDealsPerSearch,
		ChatTimeout: cfg.DefaultTimeout(),
	})

	var rec storage.Recorder
	if cfg.LogFilePath != "" {
		fr, err := storage.NewFileRecorder(cfg.LogFilePath)
		if err != nil {
			log.Printf("failed to init file recorder: %v", err)
		} else {
			rec = fr
		}
	}

	sched := scheduler.New(repo, "")
	if err := sched.Start(); err != nil {
		log.Printf("failed to start sweep scheduler: %v", err)
	}
	defer sched.Stop()

	bot, err := telegram.New(cfg.TelegramBotToken, sessions, machine, cfg.StoreID, rec)
	if err != nil {
		log.Fatalf("failed to create bot: %v", err)
	}

	log.Printf("deal bot started (store=%s region=%s)", cfg.StoreID, cfg.Region)
	bot.Start(ctx)
}
