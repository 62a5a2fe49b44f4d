// Package mqtt carries temperature readings over an MQTT broker: the fetch
// job publishes them and the dashboard server ingests them.
package mqtt

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/stefur/tempapp/internal/config"
	"github.com/stefur/tempapp/internal/modules/temps/types"
)

const qos = byte(1)

// clientOptions builds the shared paho options. role separates the client
// IDs of the publisher and the subscriber so both can run against one broker.
func clientOptions(cfg config.Config, role string, logger *slog.Logger, onConnect func(), onLost func()) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(clientID(cfg.MQTTClientID, role))

	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		onConnect()
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort, "role", role)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		onLost()
		logger.Warn("mqtt connection lost", "role", role, "error", err)
	})
	return opts
}

func clientID(base, role string) string {
	if base == "" {
		base = "tempapp"
	}
	return base + "-" + role + "-" + uuid.NewString()[:8]
}

// ReadingTopic is the topic a reading for entity is published on.
func ReadingTopic(prefix, entity string) string {
	return strings.TrimRight(prefix, "/") + "/" + entity
}

// SubscriptionTopic matches every reading topic under prefix.
func SubscriptionTopic(prefix string) string {
	return strings.TrimRight(prefix, "/") + "/#"
}

func ValidateReading(m types.ReadingMessage) error {
	if strings.TrimSpace(m.Floor) == "" {
		return fmt.Errorf("floor is required")
	}
	if m.Time.IsZero() {
		return fmt.Errorf("time is required")
	}
	if math.IsNaN(m.Temp) || math.IsInf(m.Temp, 0) {
		return fmt.Errorf("temp must be finite: %v", m.Temp)
	}
	return nil
}
