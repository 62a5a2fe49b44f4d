package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/stefur/tempapp/internal/config"
	"github.com/stefur/tempapp/internal/modules/temps/types"
)

// Publisher sends readings to {prefix}/{entity}.
type Publisher struct {
	client    mqtt.Client
	prefix    string
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPublisher(cfg config.Config, logger *slog.Logger) (*Publisher, error) {
	p := &Publisher{
		prefix: cfg.MQTTTopicPrefix,
		logger: logger,
		stopCh: make(chan struct{}),
	}
	opts := clientOptions(cfg, "pub", logger,
		func() { p.setConnected(true) },
		func() { p.setConnected(false) },
	)
	p.client = mqtt.NewClient(opts)
	return p, nil
}

// Connect waits for the initial connection, and respects ctx and Disconnect().
func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return fmt.Errorf("publisher stopped")
	default:
	}

	if p.IsConnected() {
		return nil
	}

	// With ConnectRetry(true) paho may keep retrying internally.
	token := p.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			// The connect handler runs in its own goroutine and may lag
			// behind the token.
			p.setConnected(true)
			return nil
		}

		select {
		case <-ctx.Done():
			p.client.Disconnect(0)
			return ctx.Err()
		case <-p.stopCh:
			return fmt.Errorf("publisher stopped")
		default:
		}
	}
}

// PublishReading publishes one reading as JSON at QoS 1, not retained.
func (p *Publisher) PublishReading(msg types.ReadingMessage) error {
	if !p.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}
	if err := ValidateReading(msg); err != nil {
		return fmt.Errorf("invalid reading: %w", err)
	}
	if msg.Entity == "" {
		return fmt.Errorf("entity is required for the topic")
	}

	topic := ReadingTopic(p.prefix, msg.Entity)
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}

	token := p.client.Publish(topic, qos, false, data)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if token.Error() != nil {
		p.logger.Error("failed to publish reading", "topic", topic, "error", token.Error())
		return fmt.Errorf("publish reading: %w", token.Error())
	}

	p.logger.Debug("published reading", "topic", topic, "floor", msg.Floor, "temp", msg.Temp)
	return nil
}

func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Disconnect is idempotent. After it, Connect returns "publisher stopped".
func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() { close(p.stopCh) })

	// Paho quiesces in-flight work for the given ms.
	if p.client != nil {
		p.client.Disconnect(250)
	}

	p.setConnected(false)
	p.logger.Info("mqtt publisher disconnected")
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}
