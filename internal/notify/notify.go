package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/koios/flipdot-renderer/internal/config"
	"go.uber.org/zap"
)

const (
	DefaultTopic    = "flipdot/refresh"
	DefaultClientID = "flipdot-renderer"

	publishTimeout = 5 * time.Second
)

// Notifier tells display agents that the playlist changed so they can poll
// early. Delivery is best effort; the poll protocol stays authoritative.
type Notifier interface {
	Notify(ctx context.Context, reason string) error
	Close()
}

// Message is the payload published on every refresh hint
type Message struct {
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Nop discards every notification
type Nop struct{}

func (Nop) Notify(context.Context, string) error { return nil }
func (Nop) Close()                               {}

// publisher is the part of mqtt.Client the notifier needs
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes refresh hints to a broker topic
type MQTT struct {
	client publisher
	topic  string
	logger *zap.Logger
	now    func() time.Time
}

// New returns an MQTT notifier when a broker is configured and Nop otherwise
func New(cfg config.MQTTConfig, logger *zap.Logger) (Notifier, error) {
	if cfg.Broker == "" {
		logger.Info("MQTT broker not configured, refresh notifications disabled")
		return Nop{}, nil
	}
	return NewMQTT(cfg, logger)
}

// NewMQTT connects to the configured broker
func NewMQTT(cfg config.MQTTConfig, logger *zap.Logger) (*MQTT, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(mqtt.Client) {
		logger.Info("Connected to MQTT broker", zap.String("broker", cfg.Broker))
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return newMQTT(client, cfg.Topic, logger), nil
}

func newMQTT(client publisher, topic string, logger *zap.Logger) *MQTT {
	if topic == "" {
		topic = DefaultTopic
	}
	return &MQTT{client: client, topic: topic, logger: logger, now: time.Now}
}

// Notify publishes a refresh hint with QoS 1, not retained
func (m *MQTT) Notify(ctx context.Context, reason string) error {
	payload, err := json.Marshal(Message{Reason: reason, At: m.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode refresh message: %w", err)
	}

	token := m.client.Publish(m.topic, 1, false, payload)
	timeout := publishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish to %s timed out", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", m.topic, err)
	}

	m.logger.Debug("Published refresh hint", zap.String("topic", m.topic), zap.String("reason", reason))
	return nil
}

// Close disconnects from the broker
func (m *MQTT) Close() {
	m.client.Disconnect(250)
}
