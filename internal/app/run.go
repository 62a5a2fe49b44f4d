package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stefur/tempapp/internal/cache"
	"github.com/stefur/tempapp/internal/config"
	"github.com/stefur/tempapp/internal/db"
	"github.com/stefur/tempapp/internal/httpapi"
	"github.com/stefur/tempapp/internal/migrate"
	"github.com/stefur/tempapp/internal/modules/temps"
	"github.com/stefur/tempapp/internal/modules/temps/service"
	"github.com/stefur/tempapp/internal/modules/temps/views"
	"github.com/stefur/tempapp/internal/mqtt"
)

// Serve runs the dashboard until ctx is cancelled.
func Serve(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"staticDir", cfg.StaticDir,
		"dbDriver", cfg.Driver,
		"sqlitePath", cfg.Path,
		"timezone", cfg.Timezone,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopicPrefix", cfg.MQTTTopicPrefix,
		"redisAddr", cfg.RedisAddr,
		"cacheTTL", cfg.CacheTTL,
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

	if err := views.LoadTemplates(); err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	aggregateCache := newCache(ctx, cfg)
	defer func() {
		if err := aggregateCache.Close(); err != nil {
			slog.Warn("cache close", "error", err)
		}
	}()

	// The handler is attached before Connect so the subscription made by the
	// connect handler delivers straight into it.
	var subscriber *mqtt.Subscriber
	var ingest mqtt.ReadingSubscriber
	var broker httpapi.ConnectionChecker
	if cfg.MQTTBroker != "" {
		subscriber, err = mqtt.NewSubscriber(cfg, slog.Default())
		if err != nil {
			return err
		}
		ingest, broker = subscriber, subscriber
	}

	mux := httpapi.NewMux(dbConn, cfg.StaticDir, broker)
	temps.RegisterFeature(mux, dbConn, service.Options{
		Cache:    aggregateCache,
		CacheTTL: cfg.CacheTTL,
		Location: cfg.Location,
		Logger:   slog.Default(),
	}, ingest)

	if subscriber != nil {
		// A short timeout keeps startup fast when the broker is down.
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	}

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if subscriber != nil {
		slog.Info("mqtt disconnecting")
		subscriber.Disconnect()
	}

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// openDatabase opens the store and brings the schema up to date.
func openDatabase(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	dbConn, err := db.Open(ctx, cfg, slog.Default())
	if err != nil {
		return nil, err
	}
	applied, err := migrate.Run(ctx, dbConn)
	if err != nil {
		_ = db.Close(dbConn)
		return nil, err
	}
	if applied > 0 {
		slog.Info("migrations applied", "count", applied)
	}
	slog.Info("database connection successful", "path", cfg.Path)
	return dbConn, nil
}

// newCache returns the Redis cache when configured. An unreachable Redis is
// a warning: lookups then miss and values are computed.
func newCache(ctx context.Context, cfg config.Config) cache.Cache {
	if cfg.RedisAddr == "" {
		return cache.NewNoop()
	}
	c := cache.NewRedis(cache.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, slog.Default())

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		slog.Warn("redis unreachable (continuing, aggregates computed per request)", "addr", cfg.RedisAddr, "error", err)
	}
	return c
}
