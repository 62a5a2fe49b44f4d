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

// ReadingHandler stores or otherwise consumes one valid reading.
type ReadingHandler func(msg types.ReadingMessage) error

type Subscriber struct {
	client    mqtt.Client
	topic     string
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool
	handler   ReadingHandler

	stopCh   chan struct{}
	stopOnce sync.Once
}

// ReadingSubscriber is what feature modules attach their handler to.
type ReadingSubscriber interface {
	SetMessageHandler(handler ReadingHandler)
}

func (s *Subscriber) SetMessageHandler(handler ReadingHandler) {
	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()
}

func NewSubscriber(cfg config.Config, logger *slog.Logger) (*Subscriber, error) {
	s := &Subscriber{
		topic:  SubscriptionTopic(cfg.MQTTTopicPrefix),
		logger: logger,
		stopCh: make(chan struct{}),
	}
	opts := clientOptions(cfg, "sub", logger, s.onConnect, func() { s.setConnected(false) })
	s.client = mqtt.NewClient(opts)
	return s, nil
}

// onConnect runs on the first connect and on every reconnect. A clean
// session drops subscriptions, so they are renewed here.
func (s *Subscriber) onConnect() {
	s.setConnected(true)
	go func() {
		if err := s.subscribe(); err != nil {
			s.logger.Error("mqtt subscribe failed", "topic", s.topic, "error", err)
		}
	}()
}

// Connect establishes the broker connection; the subscription follows from
// the connect handler.
func (s *Subscriber) Connect(ctx context.Context) error {
	select {
	case <-s.stopCh:
		return fmt.Errorf("subscriber stopped")
	default:
	}

	if s.IsConnected() {
		return nil
	}

	token := s.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			s.client.Disconnect(0)
			return ctx.Err()
		case <-s.stopCh:
			s.client.Disconnect(0)
			return fmt.Errorf("subscriber stopped")
		default:
		}
	}
}

func (s *Subscriber) subscribe() error {
	token := s.client.Subscribe(s.topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", s.topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", s.topic, token.Error())
	}

	s.logger.Info("subscribed to mqtt topic", "topic", s.topic, "qos", qos)
	return nil
}

func (s *Subscriber) handleMessage(topic string, payload []byte) {
	s.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))

	var msg types.ReadingMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.logger.Warn("failed to parse reading message",
			"topic", topic,
			"error", err,
			"payload", string(payload),
		)
		return
	}

	if err := ValidateReading(msg); err != nil {
		s.logger.Warn("invalid reading message",
			"topic", topic,
			"floor", msg.Floor,
			"error", err,
		)
		return
	}

	s.mu.RLock()
	handler := s.handler
	s.mu.RUnlock()
	if handler == nil {
		return
	}
	if err := handler(msg); err != nil {
		s.logger.Error("message handler failed",
			"topic", topic,
			"floor", msg.Floor,
			"error", err,
		)
		return
	}
	s.logger.Debug("processed reading message", "floor", msg.Floor, "time", msg.Time)
}

func (s *Subscriber) IsConnected() bool {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()
	return connected && s.client.IsConnected()
}

// Disconnect is idempotent and safe to call multiple times.
func (s *Subscriber) Disconnect() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	if s.client != nil && s.IsConnected() {
		token := s.client.Unsubscribe(s.topic)
		token.WaitTimeout(2 * time.Second)
	}

	if s.client != nil {
		s.client.Disconnect(250)
	}

	s.setConnected(false)
	s.logger.Info("mqtt subscriber disconnected")
}

func (s *Subscriber) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}
