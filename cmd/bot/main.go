package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"wb-aggregator/internal/bot"
	"wb-aggregator/internal/config"
	"wb-aggregator/internal/handler"
	"wb-aggregator/internal/router"
)

// Long polling holds requests for up to a minute.
const telegramClientTimeout = 75 * time.Second

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
	if err := cfg.ValidateBot(); err != nil {
		return fmt.Errorf("invalid bot configuration: %w", err)
	}
	if cfg.Auth.APIKey == "" {
		return fmt.Errorf("API key is required to protect the notification webhook")
	}

	logger := config.NewLogger(cfg.Logger, "bot")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		sender   bot.Sender
		commands *bot.Commands
	)
	if cfg.Bot.Token == "" {
		logger.Warn().Msg("BOT_TOKEN is empty, messages will only be logged (dev mode)")
		sender = bot.NewLogSender(logger)
	} else {
		api, err := bot.NewBotAPI(cfg.Bot.Token, telegramClientTimeout)
		if err != nil {
			return fmt.Errorf("failed to connect to telegram: %w", err)
		}
		logger.Info().Str("username", api.Self.UserName).Msg("authorized on telegram")
		sender = api
		commands = bot.NewCommands(api, api, cfg.Bot.WebAppURL, logger)
	}

	notifier := bot.NewNotifier(sender, cfg.Bot.WebAppURL, logger)
	mux := router.NewBot(handler.NewNotificationHandler(notifier, logger), cfg.Auth.APIKey, logger)

	server := &http.Server{
		Addr:         cfg.Bot.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	if commands != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			commands.Run(ctx)
		}()
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().
			Str("address", cfg.Bot.Address()).
			Msg("notification webhook started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		cancel()
		wg.Wait()
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		wg.Wait()
		logger.Info().Msg("bot shutdown completed")
	}

	return nil
}
