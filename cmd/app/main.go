package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dsemenov/skyfare/config"
	"github.com/dsemenov/skyfare/internal/bootstrap"
	"github.com/dsemenov/skyfare/internal/cache"
	"github.com/dsemenov/skyfare/internal/kafka"
	"github.com/dsemenov/skyfare/internal/repository"
	"github.com/dsemenov/skyfare/internal/service/booking"
	"github.com/dsemenov/skyfare/internal/service/flights"
	"github.com/dsemenov/skyfare/internal/service/pricing"
	"github.com/dsemenov/skyfare/internal/service/wallet"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.FlightsCacheTTL)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	flightRepo := repository.NewFlightRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool, cfg.Wallet.StartingBalance)
	walletRepo := repository.NewWalletRepository(pool, cfg.Wallet.StartingBalance)

	pricingService := pricing.NewPricingService(
		flightRepo,
		time.Duration(cfg.Pricing.AttemptWindowMinutes)*time.Minute,
		time.Duration(cfg.Pricing.CooldownMinutes)*time.Minute,
		cfg.Pricing.AttemptThreshold,
	)
	flightService := flights.NewFlightService(flightRepo, pricingService, redisCache, time.Duration(cfg.Booking.FlightsCacheTTL)*time.Second)
	bookingService := booking.NewBookingService(
		bookingRepo,
		flightRepo,
		redisCache,
		producer,
		cfg.Kafka.BookingTopic,
		time.Duration(cfg.Booking.SeatHoldTTLSeconds)*time.Second,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)
	walletService := wallet.NewWalletService(walletRepo)

	if err := bootstrap.Run(ctx, cfg, flightService, pricingService, bookingService, walletService); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
