package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"dealbot/internal/config"
	"dealbot/internal/reminder"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()
	if cfg.RabbitURL == "" {
		log.Fatal("RABBIT_URL is required for the reminder worker")
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatalf("failed to create bot api: %v", err)
	}

	q, err := reminder.NewAMQPQueue(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatalf("failed to connect to reminder queue: %v", err)
	}
	defer q.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("reminder worker started (queue=%s)", cfg.RabbitQueue)
	err = q.Consume(ctx, func(_ context.Context, r reminder.Reminder) error {
		text := renderReminder(r)
		if _, err := api.Send(tgbotapi.NewMessage(r.UserID, text)); err != nil {
			return fmt.Errorf("failed to deliver reminder %s: %w", r.ID, err)
		}
		log.Printf("delivered reminder %s to user %d", r.ID, r.UserID)
		return nil
	})
	if err != nil && ctx.Err() == nil {
		log.Fatalf("consumer stopped: %v", err)
	}
}

func renderReminder(r reminder.Reminder) string {
	d := r.Deal
	text := fmt.Sprintf("⏰ Reminder: %s\n%s", d.BusinessName, d.Offer)
	if d.Address != "" {
		text += "\n📍 " + d.Address
	}
	if d.Validity != "" {
		text += "\nValid: " + d.Validity
	}
	return text
}
