package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/rss-monitor/app/api"
	"github.com/lysyi3m/rss-monitor/app/cfg"
	"github.com/lysyi3m/rss-monitor/app/database"
	"github.com/lysyi3m/rss-monitor/app/feed"
	"github.com/lysyi3m/rss-monitor/app/notify"
	"github.com/lysyi3m/rss-monitor/app/tasks"
)

func main() {
	if err := run(); err != nil {
		slog.Error("RSS Monitor failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	config, err := cfg.Load(os.Args[1:])
	if err != nil {
		return err
	}
	if config == nil {
		// Help was shown
		return nil
	}

	setupLogging(config.Debug)

	slog.Info("Starting RSS Monitor", "version", config.Version, "timezone", config.Timezone)

	db, err := database.NewConnection(config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database ready", "path", config.DBPath, "schema_version", version, "dirty", dirty)

	sourceRepo := database.NewSourceRepository(db)
	keywordRepo := database.NewKeywordRepository(db)
	articleRepo := database.NewArticleRepository(db)

	ctx := context.Background()

	if config.SeedFile != "" {
		seed, err := feed.LoadSeed(config.SeedFile)
		if err != nil {
			return fmt.Errorf("failed to load seed file %s: %w", config.SeedFile, err)
		}

		seedTask := tasks.NewApplySeedTask(seed, sourceRepo, keywordRepo)
		seedTask.Start()
		if err := seedTask.Execute(ctx); err != nil {
			return err
		}
	}

	notifier, err := notify.New(ctx, notify.Config{
		Region:          config.Notify.AWSRegion,
		AccessKeyID:     config.Notify.AWSAccessKeyID,
		SecretAccessKey: config.Notify.AWSSecretKey,
		Endpoint:        config.Notify.AWSEndpointURL,
		TopicARN:        config.Notify.SNSTopicARN,
		QueueURL:        config.Notify.SQSQueueURL,
	})
	if err != nil {
		return fmt.Errorf("failed to configure notifications: %w", err)
	}

	fetcher := feed.NewFetcher(feed.FetcherOptions{
		UserAgent: config.UserAgent,
		Timeout:   config.FetchTimeout,
		Retries:   config.FetchRetries,
	})

	scheduler := tasks.NewScheduler(sourceRepo, keywordRepo, articleRepo, fetcher, notifier, config.PollInterval)
	slog.Info("Starting poll scheduler", "interval", config.PollInterval, "fetch_timeout", config.FetchTimeout)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(sourceRepo, keywordRepo, articleRepo, scheduler, config.Version)
	httpServer := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      api.NewServer(handler, config.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", config.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case runErr = <-serverErrChan:
	}

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler and database are closed via defer
	return runErr
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}
