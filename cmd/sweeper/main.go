package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/config"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/database"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/external"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/jobs"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/logger"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/messaging"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/repository"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/service"
)

func main() {
	log.Println("Starting hold sweeper service...")

	cfg := config.Load()
	cfg.NATS.ClientID = "hold-sweeper"

	logger.Init(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	var events service.EventPublisher
	nats, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		log.Printf("NATS unavailable, events disabled: %v", err)
		events = messaging.NoopPublisher{}
	} else {
		defer nats.Close()
		events = nats
	}

	store := repository.NewPostgresStore(db)
	gateway := external.NewPaymentClient(cfg.Gateway)
	services := service.NewServices(store, gateway, events, nil, cfg.Booking)

	sweeper := jobs.NewHoldSweeper(services.Bookings, cfg.SweepInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down hold sweeper...")
	sweeper.Stop()
	log.Println("Hold sweeper stopped")
}
