package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/stefur/tempapp/internal/modules/temps/repository"
	"github.com/stefur/tempapp/internal/modules/temps/types"
	"github.com/stefur/tempapp/internal/mqtt"
)

const ingestTimeout = 5 * time.Second

// registerMQTTHandler stores every reading received over MQTT. The insert is
// idempotent, so readings this process published itself are skipped.
func registerMQTTHandler(subscriber mqtt.ReadingSubscriber, repo repository.TempsRepository, logger *slog.Logger) {
	subscriber.SetMessageHandler(func(msg types.ReadingMessage) error {
		logger.Debug("processing reading message",
			"floor", msg.Floor,
			"time", msg.Time,
			"batch_id", msg.BatchID,
		)

		ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
		defer cancel()

		n, err := repo.InsertReadings(ctx, []types.Reading{msg.Reading()})
		if err != nil {
			logger.Error("failed to insert reading",
				"floor", msg.Floor,
				"error", err,
			)
			return err
		}

		logger.Debug("stored reading message", "floor", msg.Floor, "new", n == 1)
		return nil
	})
}
