package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wb-aggregator/internal/cache"
	"wb-aggregator/internal/calendar"
	"wb-aggregator/internal/config"
	"wb-aggregator/internal/database"
	"wb-aggregator/internal/handler"
	"wb-aggregator/internal/media"
	"wb-aggregator/internal/middleware"
	"wb-aggregator/internal/notify"
	"wb-aggregator/internal/repository"
	"wb-aggregator/internal/router"
	"wb-aggregator/internal/scraper"
	"wb-aggregator/internal/service"

	"github.com/rs/zerolog"
)

const (
	scraperTimeout = 10 * time.Second
	mediaURLBase   = "/media"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.ValidateAPI(); err != nil {
		return fmt.Errorf("invalid API configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger, "api")
	logger.Info().Bool("dev_mode", cfg.Auth.DevMode).Msg("starting wb-aggregator API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, cfg.Database.ConnectionString(), logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	// Initialize database connection pool
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

	cal := calendar.New(cfg.Location())

	// Initialize repositories
	txm := repository.NewTxManager(pool, logger)
	goodsRepo := repository.NewGoodsRepository(pool, logger)
	stockRepo := repository.NewAvailabilityRepository(pool, logger)
	reservationRepo := repository.NewReservationRepository(pool, logger)
	categoryRepo := repository.NewCategoryRepository(pool, logger)
	adminRepo := repository.NewAdminRepository(pool, logger)

	catalogCache := cache.NewCatalogCache(redisClient, cfg.Redis.CatalogCacheTTL)
	queue := notify.NewQueue(redisClient)
	mediaStore := newMediaStore(ctx, cfg, logger)

	// Initialize services
	availabilityService := service.NewAvailabilityService(txm, stockRepo, cal, logger)
	goodsService := service.NewGoodsService(goodsRepo, stockRepo, availabilityService, catalogCache, cal, logger)
	reservationService := service.NewReservationService(service.ReservationDeps{
		TxManager:    txm,
		Goods:        goodsRepo,
		Availability: stockRepo,
		Reservations: reservationRepo,
		Media:        mediaStore,
		Notifier:     queue,
		Cache:        catalogCache,
		Calendar:     cal,
	}, logger)
	categoryService := service.NewCategoryService(categoryRepo, catalogCache, logger)
	adminService := service.NewAdminService(adminRepo, logger)

	if err := adminService.Bootstrap(ctx, cfg.Auth.AdminUserIDs); err != nil {
		return fmt.Errorf("failed to seed admins: %w", err)
	}

	// Initialize HTTP handlers
	handlers := router.Handlers{
		Goods:        handler.NewGoodsHandler(goodsService, scraper.New(scraperTimeout, logger), logger),
		Reservations: handler.NewReservationHandler(reservationService, logger),
		Categories:   handler.NewCategoryHandler(categoryService, logger),
		Admin:        handler.NewAdminHandler(availabilityService, adminService, cal.Location(), logger),
	}

	// Initialize router
	mux := router.New(handlers, router.Options{
		Auth: middleware.AuthOptions{
			APIKey:   cfg.Auth.APIKey,
			BotToken: cfg.Bot.Token,
			DevMode:  cfg.Auth.DevMode,
			MaxAge:   cfg.Auth.InitDataMaxAge,
		},
		Admins:      adminService,
		CORSOrigins: cfg.Server.CORSOrigins,
		MediaDir:    cfg.Media.Dir,
	}, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newMediaStore writes confirmation evidence to S3 when enabled, falling
// back to the local media directory.
func newMediaStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) service.MediaStore {
	local := media.NewFileStore(cfg.Media.Dir, mediaURLBase, logger)

	if !cfg.S3.Enabled {
		logger.Info().Str("dir", cfg.Media.Dir).Msg("using local file system for confirmation media (S3 disabled)")
		return local
	}

	s3Store, err := media.NewS3Store(ctx, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.Prefix, logger)
	if err != nil {
		logger.Warn().
			Err(err).
			Msg("failed to initialise S3 store, falling back to local file system only")
		return local
	}

	return media.NewFallbackStore(s3Store, local, logger)
}
