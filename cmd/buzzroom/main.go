package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/velasco/buzzroom/internal/config"
	"github.com/velasco/buzzroom/internal/game/relay"
	"github.com/velasco/buzzroom/internal/gateway"
	"github.com/velasco/buzzroom/internal/recovery"
	"github.com/velasco/buzzroom/internal/store"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to Postgres
	st, err := store.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer st.Close()

	// Connect to Redis for session recovery
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to ping redis")
	}
	defer redisClient.Close()
	recoveryCache := recovery.NewCache(redisClient, 2*time.Hour)

	// Connect to NATS
	relayCfg := relay.DefaultConfig()
	relayCfg.URL = cfg.NatsURL
	rl, err := relay.NewRelay(relayCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer rl.Close()

	// Buzz change feed as the durable fallback path behind the relay
	feed, err := store.NewFeed(store.DefaultFeedConfig(cfg.Database.DSN()))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open buzz change feed")
	}

	log.Info().
		Str("database", cfg.Database.Database).
		Str("nats_url", cfg.NatsURL).
		Int("port", cfg.Port).
		Msg("starting buzzroom gateway")

	// Gateway: WebSocket pools fed by the relay, browser frames fed back
	var consumer *gateway.Consumer
	manager := gateway.NewConnectionManager(gateway.DefaultConnectionConfig(), func(gameID uuid.UUID, frame []byte) {
		consumer.Ingest(gameID, frame)
	})
	consumer = gateway.NewConsumer(rl, manager)
	server := gateway.NewServer(fmt.Sprintf(":%d", cfg.Port), manager, recoveryCache)

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		manager.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		consumer.BridgeFeed(ctx, feed.SubscribeAll())
	}()
	go func() {
		defer wg.Done()
		if err := consumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway consumer failed")
			stop()
		}
	}()
	go func() {
		defer wg.Done()
		if err := feed.Run(ctx); err != nil {
			log.Error().Err(err).Msg("buzz change feed failed")
			stop()
		}
	}()

	if err := server.Run(ctx); err != nil {
		log.Error().Err(err).Msg("gateway server failed")
	}
	stop()
	wg.Wait()
	log.Info().Msg("buzzroom stopped")
}
