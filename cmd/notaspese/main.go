package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"notaspese/internal/config"
	"notaspese/internal/events"
	apphttp "notaspese/internal/http"
	"notaspese/internal/ledger"
	applog "notaspese/internal/log"
	"notaspese/internal/receipt"
	"notaspese/internal/services"
	"notaspese/internal/storage"
)

func main() {
	// Load .env if present; real environment variables win.
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", applog.FieldError, err)
		os.Exit(1)
	}

	store, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open storage", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	slot := storage.NewLedgerSlot(store)
	initial, err := slot.Load(context.Background())
	if err != nil {
		logger.Error("Failed to load persisted ledger", applog.FieldError, err)
		os.Exit(1)
	}
	book := ledger.New(slot, logger, initial)
	logger.Info("Ledger loaded", applog.FieldLedgerSize, book.Len())

	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// Event publishing is optional; run without it rather than die.
			logger.Warn("Failed to connect to AMQP, ledger events disabled",
				applog.FieldError, err)
		} else {
			publisher = client
			logger.Info("Connected to AMQP",
				"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	svc := services.NewLedgerService(book, publisher)
	defer svc.Close()

	var extractor apphttp.Extractor
	if cfg.ReceiptEnabled() {
		extractor = receipt.NewClient(cfg.ReceiptAPIURL, cfg.ReceiptAPIKey, cfg.ReceiptTimeout, logger)
		logger.Info("Receipt recognition enabled", "endpoint", cfg.ReceiptAPIURL)
	} else {
		logger.Info("Receipt recognition not configured, uploads will answer 503")
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, extractor)

	// Configure server timeouts and limits
	srv.ReadTimeout = 15 * time.Second
	srv.WriteTimeout = 60 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting notaspese server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
