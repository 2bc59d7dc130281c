package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/Gendalf4ever/archivist/internal/bot"
	"github.com/Gendalf4ever/archivist/internal/capture"
	"github.com/Gendalf4ever/archivist/internal/config"
	"github.com/Gendalf4ever/archivist/internal/retrieve"
	"github.com/Gendalf4ever/archivist/internal/storage"
	"github.com/Gendalf4ever/archivist/internal/title"
)

func main() {
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level %q: %v\n", cfg.LogLevel, err)
		os.Exit(1)
	}
	log.SetLevel(level)

	log.WithFields(logrus.Fields{
		"storage_driver": cfg.StorageDriver,
		"title_resolver": cfg.TitleResolver,
	}).Info("Configuration loaded successfully")

	log.Info("Initializing components...")

	var repo storage.Repository
	switch cfg.StorageDriver {
	case config.DriverBadger:
		repo, err = storage.NewBadgerRepository(cfg.BadgerDBPath, log)
	default:
		repo, err = storage.NewSQLiteRepository(cfg.SQLitePath, log)
	}
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer func() {
		log.Info("Closing storage...")
		if err := repo.Close(); err != nil {
			log.WithError(err).Error("Error closing storage")
		}
	}()

	var resolver title.Resolver
	switch cfg.TitleResolver {
	case config.ResolverBrowser:
		resolver = title.NewBrowserResolver(cfg.TitleFetchTimeout, log)
	default:
		resolver = title.NewHTTPResolver(http.DefaultClient, cfg.TitleFetchTimeout, log)
	}

	pipeline := capture.New(repo, resolver, log)
	engine := retrieve.NewEngine(repo, log)

	botHandler, err := bot.NewHandler(cfg.TelegramBotToken, pipeline, engine, log)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram bot handler: %v", err)
	}

	log.Info("Starting Archivist...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go botHandler.Start(ctx)

	log.Info("Archivist is running. Press Ctrl+C to exit.")

	<-ctx.Done()

	log.Info("Shutting down Archivist...")
	stop()

	log.Info("Archivist shut down gracefully.")
}
