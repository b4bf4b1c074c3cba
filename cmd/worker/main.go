package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"wb-aggregator/internal/cache"
	"wb-aggregator/internal/calendar"
	"wb-aggregator/internal/config"
	"wb-aggregator/internal/database"
	"wb-aggregator/internal/notify"
	"wb-aggregator/internal/repository"
	"wb-aggregator/internal/worker"
)

const botClientTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Auth.APIKey == "" {
		return fmt.Errorf("API key is required to call the bot webhook")
	}

	logger := config.NewLogger(cfg.Logger, "worker")
	logger.Info().Msg("starting wb-aggregator worker")

	// Cancelled on SIGINT/SIGTERM; both loops exit on ctx.Done.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis.URL, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	defer redisClient.Close()

	sweeper := worker.NewSweeper(
		repository.NewTxManager(pool, logger),
		repository.NewGoodsRepository(pool, logger),
		repository.NewAvailabilityRepository(pool, logger),
		cache.NewCatalogCache(redisClient, cfg.Redis.CatalogCacheTTL),
		calendar.New(cfg.Location()),
		cfg.Worker.SweepInterval,
		logger,
	)

	relay := notify.NewRelay(
		notify.NewQueue(redisClient),
		notify.NewBotClient(cfg.Bot.APIURL, cfg.Auth.APIKey, botClientTimeout),
		notify.RelayConfig{
			MaxRetries: cfg.Notify.MaxRetries,
			RetryDelay: cfg.Notify.RetryDelay,
		},
		logger,
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		relay.Run(ctx)
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received, waiting for workers to stop")

	wg.Wait()

	logger.Info().Msg("worker shutdown completed")
	return nil
}
