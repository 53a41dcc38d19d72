// Package mqtt implements the "mqtt" output type tag: a publisher built
// on github.com/eclipse/paho.mqtt.golang.
package mqtt

import (
	"context"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/ark-flow/arkflow/internal/component"
	"github.com/ark-flow/arkflow/internal/errs"
	"github.com/ark-flow/arkflow/internal/message"
	"github.com/ark-flow/arkflow/internal/registry"
)

// Config is the "mqtt" output's configuration fragment.
type Config struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
}

// Output publishes each batch payload to Topic.
type Output struct {
	cfg    Config
	client mqtt.Client
}

// New constructs an mqtt Output from cfg.
func New(cfg Config) (*Output, error) {
	if cfg.Broker == "" {
		return nil, errs.Config("mqtt output: broker is required")
	}
	if cfg.Topic == "" {
		return nil, errs.Config("mqtt output: topic is required")
	}
	return &Output{cfg: cfg}, nil
}

// Connect dials the broker.
func (o *Output) Connect(context.Context) error {
	clientID := o.cfg.ClientID
	if clientID == "" {
		clientID = "arkflow-" + uuid.NewString()
	}
	opts := mqtt.NewClientOptions().AddBroker(o.cfg.Broker).SetClientID(clientID).SetAutoReconnect(false)
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return errs.Disconnection(errTimeout)
	}
	if err := token.Error(); err != nil {
		return errs.Connection(err, "mqtt output: connect to %s", o.cfg.Broker)
	}
	o.client = client
	return nil
}

// Write publishes every payload in batch, waiting for each publish to
// complete before moving to the next.
func (o *Output) Write(ctx context.Context, batch message.Batch) error {
	b := batch
	if b.IsColumnar() {
		var err error
		b, err = b.ToJSON()
		if err != nil {
			return errs.Serialization(err, "mqtt output: encoding columnar batch")
		}
	}

	for _, payload := range b.Binary() {
		token := o.client.Publish(o.cfg.Topic, o.cfg.QoS, false, payload)
		if !token.WaitTimeout(10 * time.Second) {
			return errs.Disconnection(errTimeout)
		}
		if err := token.Error(); err != nil {
			return errs.Disconnection(err)
		}
	}
	return nil
}

// Close disconnects from the broker.
func (o *Output) Close(context.Context) error {
	if o.client != nil && o.client.IsConnected() {
		o.client.Disconnect(250)
	}
	return nil
}

type timeoutErr string

func (e timeoutErr) Error() string { return string(e) }

const errTimeout = timeoutErr("mqtt: timed out waiting for broker")

func init() {
	registry.Outputs.MustRegister("mqtt", func(raw component.Decoder) (component.Output, error) {
		var cfg Config
		if err := raw.Decode(&cfg); err != nil {
			return nil, errs.Config("mqtt output: %v", err)
		}
		return New(cfg)
	})
}
