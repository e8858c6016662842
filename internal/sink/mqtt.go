package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/luki/sensorapp/internal/sensor"
)

// MQTTOptions configures the broker connection.
type MQTTOptions struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

const mqttConnectWait = 5 * time.Second

// DialMQTT connects to the broker, retrying in the background if the first
// attempt fails.
func DialMQTT(opts MQTTOptions) (mqtt.Client, error) {
	o := mqtt.NewClientOptions()
	o.AddBroker(opts.Broker)
	o.SetClientID(opts.ClientID)
	if opts.Username != "" {
		o.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		o.SetPassword(opts.Password)
	}
	o.SetAutoReconnect(true)
	o.SetConnectRetry(true)
	o.SetConnectRetryInterval(2 * time.Second)

	c := mqtt.NewClient(o)
	if token := c.Connect(); token.WaitTimeout(mqttConnectWait) && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", opts.Broker, token.Error())
	}
	return c, nil
}

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes each record as JSON on <prefix>/<sensor type>.
type MQTT struct {
	client publisher
	prefix string
	qos    byte
}

// NewMQTT publishes through an already connected client.
func NewMQTT(client publisher, prefix string, qos byte) *MQTT {
	return &MQTT{client: client, prefix: strings.TrimSuffix(prefix, "/"), qos: qos}
}

// Topic returns the topic records of type t are published on.
func (m *MQTT) Topic(t sensor.Type) string {
	return m.prefix + "/" + strings.ToLower(t.String())
}

// Write implements Writer.
func (m *MQTT) Write(ctx context.Context, rec sensor.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	topic := m.Topic(rec.Type)
	token := m.client.Publish(topic, m.qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}
