package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/i474232898/weather-monitor/internal/weather"
)

const publishTimeout = 5 * time.Second

// publisher is the part of mqtt.Client the notifier needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTNotifier publishes each alert as JSON to a topic.
type MQTTNotifier struct {
	client publisher
	topic  string
}

// NewMQTTNotifier wraps an already connected client.
func NewMQTTNotifier(client publisher, topic string) *MQTTNotifier {
	return &MQTTNotifier{client: client, topic: topic}
}

// ClientID builds a broker client id from prefix, the host name and a random
// suffix. Brokers drop the older session when two clients share an id.
func ClientID(prefix string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%s-%s", prefix, host, uuid.NewString()[:8])
}

// DialMQTT connects to broker and returns a notifier publishing to topic.
func DialMQTT(broker, clientID, topic string) (*MQTTNotifier, mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	log.Info().Str("broker", broker).Str("topic", topic).Msg("mqtt alert notifier connected")
	return NewMQTTNotifier(client, topic), client, nil
}

func (n *MQTTNotifier) Notify(ctx context.Context, a weather.AlertEvent) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	token := n.client.Publish(n.topic, 1, false, payload)
	timeout := publishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("mqtt publish to %s timed out", n.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish to %s: %w", n.topic, err)
	}
	return nil
}
