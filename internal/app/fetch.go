package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/stefur/tempapp/internal/config"
	"github.com/stefur/tempapp/internal/db"
	"github.com/stefur/tempapp/internal/homeassistant"
	"github.com/stefur/tempapp/internal/modules/temps/repository"
	"github.com/stefur/tempapp/internal/modules/temps/service"
	"github.com/stefur/tempapp/internal/mqtt"
)

// Fetch runs one acquisition batch and returns. Scheduling is left to the
// caller (cron, a systemd timer).
func Fetch(ctx context.Context, cfg config.Config) error {
	if err := cfg.ValidateFetch(); err != nil {
		return err
	}
	slog.Info("fetch starting",
		"haBaseURL", cfg.HABaseURL,
		"sensors", cfg.Sensors,
		"sqlitePath", cfg.Path,
		"mqttBroker", cfg.MQTTBroker,
	)

	dbConn, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	client := homeassistant.NewClient(homeassistant.Options{
		BaseURL: cfg.HABaseURL,
		Token:   cfg.HAToken,
		Headers: cfg.HAHeaders,
		Timeout: cfg.HATimeout,
	}, slog.Default())

	opts := service.FetcherOptions{
		Sensors:  cfg.Sensors,
		Location: cfg.Location,
		Logger:   slog.Default(),
	}
	if cfg.MQTTBroker != "" {
		publisher, err := mqtt.NewPublisher(cfg, slog.Default())
		if err != nil {
			return err
		}
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = publisher.Connect(connectCtx)
		cancel()
		if err != nil {
			slog.Warn("mqtt connection failed (storing without publishing)", "error", err)
			publisher.Disconnect()
		} else {
			opts.Publisher = publisher
			defer publisher.Disconnect()
		}
	}

	fetcher := service.NewFetcher(client, repository.NewRepository(dbConn), opts)
	result, err := fetcher.Run(ctx)
	if err != nil {
		return err
	}
	slog.Info("fetch finished", "batch_id", result.BatchID, "time", result.Time, "inserted", result.Inserted)
	return nil
}

// Migrate applies pending schema migrations and exits.
func Migrate(ctx context.Context, cfg config.Config) error {
	dbConn, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	return db.Close(dbConn)
}
