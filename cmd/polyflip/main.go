package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rewired-gh/polyflip/internal/clob"
	"github.com/rewired-gh/polyflip/internal/config"
	"github.com/rewired-gh/polyflip/internal/gamma"
	"github.com/rewired-gh/polyflip/internal/logger"
	"github.com/rewired-gh/polyflip/internal/metrics"
	"github.com/rewired-gh/polyflip/internal/session"
	"github.com/rewired-gh/polyflip/internal/storage"
	"github.com/rewired-gh/polyflip/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	journal, err := storage.Open(cfg.Storage.DBPath, cfg.Storage.MaxSessions)
	if err != nil {
		logger.Fatal("Failed to open trade journal: %v", err)
	}
	defer func() {
		if err := journal.Close(); err != nil {
			logger.Error("Failed to close trade journal: %v", err)
		}
	}()

	discover := gamma.NewClient(cfg.Exchange.GammaAPIURL, cfg.Exchange.Timeout)
	exchange := clob.NewClient(
		cfg.Exchange.ClobAPIURL,
		clob.Credentials{
			APIKey:     cfg.Exchange.APIKey,
			Secret:     cfg.Exchange.APISecret,
			Passphrase: cfg.Exchange.APIPassphrase,
		},
		cfg.Exchange.Timeout,
		cfg.Exchange.MaxRetries,
	)

	var notifier *telegram.Notifier
	if cfg.Telegram.Enabled {
		notifier, err = telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram notifier: %v", err)
		}
		logger.Info("Telegram notifier initialized")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	if cfg.Metrics.Enabled {
		go func() {
			logger.Info("Serving metrics on %s", cfg.Metrics.ListenAddr)
			if err := metrics.Serve(cfg.Metrics.ListenAddr); err != nil {
				logger.Error("Metrics server stopped: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, finishing current cycle...")
		cancel()
	}()

	logger.Info("Starting trading loop (market: %s %dm, %d entry rules)",
		cfg.Market.Coin, cfg.Market.PeriodMinutes, len(cfg.Entry))

	driver := session.NewDriver(cfg, discover, exchange, journal, notifier)
	if err := driver.Run(ctx); err != nil && err != context.Canceled {
		logger.Fatal("Trading loop stopped: %v", err)
	}
	logger.Info("Service stopped")
}
